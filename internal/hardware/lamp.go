package hardware

import (
	"context"
	"time"

	"gate-service/internal/logger"
	"gate-service/internal/types"
)

// DigitalOutput is the subset of the hardware interface the lamp needs.
type DigitalOutput interface {
	WriteDigitalOutput(channel string, value bool) error
}

// LampPattern describes one blink cycle. Steady keeps the lamp lit and
// ignores the durations; a zero pattern keeps it dark.
type LampPattern struct {
	On     time.Duration
	Off    time.Duration
	Steady bool
}

func (p LampPattern) blinks() bool { return !p.Steady && p.On > 0 && p.Off > 0 }

func (p LampPattern) startsLit() bool { return p.Steady || p.On > 0 }

var LampPatterns = map[types.LampCode]LampPattern{
	types.LampOff:     {},
	types.LampFault:   {On: 125 * time.Millisecond, Off: 125 * time.Millisecond},
	types.LampMoving:  {On: 500 * time.Millisecond, Off: 500 * time.Millisecond},
	types.LampStopped: {Steady: true},
}

// LampDriver turns the abstract lamp code into a pattern on one output.
type LampDriver struct {
	out      DigitalOutput
	channel  string
	logger   *logger.Logger
	patterns map[types.LampCode]LampPattern
	codes    chan types.LampCode
}

func NewLampDriver(out DigitalOutput, channel string, l *logger.Logger) *LampDriver {
	return &LampDriver{
		out:      out,
		channel:  channel,
		logger:   l.WithTag("Lamp"),
		patterns: LampPatterns,
		codes:    make(chan types.LampCode, 1),
	}
}

// SetLamp never blocks. If the driver has not yet picked up the previous
// code it is replaced.
func (d *LampDriver) SetLamp(code types.LampCode) {
	for {
		select {
		case d.codes <- code:
			return
		default:
			select {
			case <-d.codes:
			default:
			}
		}
	}
}

// Run drives the lamp until ctx is cancelled, then switches it off.
func (d *LampDriver) Run(ctx context.Context) {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	var (
		pattern LampPattern
		lit     bool
		tick    <-chan time.Time
	)
	d.set(false)

	for {
		select {
		case <-ctx.Done():
			d.set(false)
			return

		case code := <-d.codes:
			p, ok := d.patterns[code]
			if !ok {
				d.logger.Warnf("No pattern for lamp code %s, switching off", code)
			}
			d.logger.Debugf("Lamp pattern %s", code)
			pattern = p
			lit = pattern.startsLit()
			d.set(lit)
			tick = d.arm(timer, pattern, lit)

		case <-tick:
			lit = !lit
			d.set(lit)
			tick = d.arm(timer, pattern, lit)
		}
	}
}

func (d *LampDriver) arm(timer *time.Timer, p LampPattern, lit bool) <-chan time.Time {
	if !p.blinks() {
		timer.Stop()
		return nil
	}
	next := p.Off
	if lit {
		next = p.On
	}
	timer.Reset(next)
	return timer.C
}

func (d *LampDriver) set(on bool) {
	if err := d.out.WriteDigitalOutput(d.channel, on); err != nil {
		d.logger.Errorf("Failed to set lamp: %v", err)
	}
}
