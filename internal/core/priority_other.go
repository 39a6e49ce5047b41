//go:build !linux

package core

import "errors"

func raiseThreadPriority(int) error {
	return errors.New("thread priority not supported on this platform")
}
