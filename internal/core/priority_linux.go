package core

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// raiseThreadPriority pins the calling goroutine to its OS thread and
// renices that thread. The thread is never unlocked, so it is discarded
// when the goroutine exits instead of returning to the pool reniced.
func raiseThreadPriority(nice int) error {
	runtime.LockOSThread()
	tid := unix.Gettid()
	if err := unix.Setpriority(unix.PRIO_PROCESS, tid, nice); err != nil {
		return fmt.Errorf("setpriority(tid=%d, %d): %w", tid, nice, err)
	}
	return nil
}
