package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/atomic"
	"golang.org/x/time/rate"

	"gate-service/internal/hardware"
	"gate-service/internal/logger"
	"gate-service/internal/types"
)

// samplerNice is the nice value requested for the sampling thread.
const samplerNice = -10

// Sample is one published snapshot. Tick is the sampler's own counter at
// the moment the lines were read.
type Sample struct {
	IO   types.IOState
	Tick uint32
}

// Sampler owns the tick clock and the input snapshot. It is the only
// writer of both; readers get whole snapshots through an atomic pointer.
type Sampler struct {
	io     HardwareIO
	logger *logger.Logger

	tick   atomic.Uint32
	latest atomic.Pointer[Sample]
	notify chan struct{}

	readErrors rate.Sometimes
}

func NewSampler(io HardwareIO, l *logger.Logger) *Sampler {
	return &Sampler{
		io:         io,
		logger:     l.WithTag("Sampler"),
		notify:     make(chan struct{}, 1),
		readErrors: rate.Sometimes{Interval: 10 * time.Second},
	}
}

// Sample advances the tick clock by one and reads every input in a single
// batch. The snapshot is only published if the read succeeded.
func (s *Sampler) Sample() (Sample, error) {
	tick := s.tick.Inc()

	vals, err := s.io.ReadDigitalInputs(hardware.InputChannels)
	if err != nil {
		return Sample{Tick: tick}, fmt.Errorf("tick %d: %w", tick, err)
	}
	state, err := ioStateFrom(hardware.InputChannels, vals)
	if err != nil {
		return Sample{Tick: tick}, fmt.Errorf("tick %d: %w", tick, err)
	}

	smp := Sample{IO: state, Tick: tick}
	s.latest.Store(&smp)

	select {
	case s.notify <- struct{}{}:
	default:
	}
	return smp, nil
}

// Latest returns the most recently published snapshot.
func (s *Sampler) Latest() (Sample, bool) {
	p := s.latest.Load()
	if p == nil {
		return Sample{}, false
	}
	return *p, true
}

func (s *Sampler) Ticks() uint32 { return s.tick.Load() }

// Updates signals that a new snapshot may be available. Signals coalesce.
func (s *Sampler) Updates() <-chan struct{} { return s.notify }

// Run samples every period until ctx is done.
func (s *Sampler) Run(ctx context.Context, period time.Duration) {
	if err := raiseThreadPriority(samplerNice); err != nil {
		s.logger.Warnf("Could not raise sampler priority: %v", err)
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	s.logger.Infof("Sampling %d inputs every %v", len(hardware.InputChannels), period)
	for {
		select {
		case <-ctx.Done():
			s.logger.Infof("Sampler stopped at tick %d", s.Ticks())
			return
		case <-ticker.C:
			if _, err := s.Sample(); err != nil {
				s.readErrors.Do(func() {
					s.logger.Errorf("Input read failed: %v", err)
				})
			}
		}
	}
}

func ioStateFrom(channels []string, vals []bool) (types.IOState, error) {
	var st types.IOState
	if len(vals) != len(channels) {
		return st, fmt.Errorf("got %d input values for %d channels", len(vals), len(channels))
	}
	for i, ch := range channels {
		switch ch {
		case hardware.InLimitOpen:
			st.LimitOpen = vals[i]
		case hardware.InLimitClosed:
			st.LimitClosed = vals[i]
		case hardware.InPhotocell:
			st.Photocell = vals[i]
		case hardware.InPushButton:
			st.PushButton = vals[i]
		case hardware.InRemoteOpen:
			st.RemoteOpen = vals[i]
		default:
			return st, fmt.Errorf("unknown input channel: %s", ch)
		}
	}
	return st, nil
}
