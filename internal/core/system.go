// File: internal/core/system.go
package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"gate-service/internal/fsm"
	"gate-service/internal/hardware"
	"gate-service/internal/logger"
	"gate-service/internal/types"
)

// FaultReminderInterval bounds how often a standing fault is re-logged.
const FaultReminderInterval = 30 * time.Second

type GateSystem struct {
	logger   *logger.Logger
	io       HardwareIO
	sampler  *Sampler
	actuator *Actuator
	lamp     *hardware.LampDriver
	period   time.Duration
	hooks    []TransitionHook

	// Owned by the control loop
	machine  fsm.Machine
	lastTick uint32

	mu     sync.RWMutex
	status fsm.Machine

	restart       chan struct{}
	faultReminder rate.Sometimes
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

func NewGateSystem(io HardwareIO, l *logger.Logger) *GateSystem {
	lamp := hardware.NewLampDriver(io, hardware.OutLamp, l)
	machine := fsm.Start()
	return &GateSystem{
		logger:        l.WithTag("Gate"),
		io:            io,
		sampler:       NewSampler(io, l),
		actuator:      NewActuator(io, lamp, l),
		lamp:          lamp,
		period:        fsm.SamplePeriod,
		machine:       machine,
		status:        machine,
		restart:       make(chan struct{}, 1),
		faultReminder: rate.Sometimes{Interval: FaultReminderInterval},
	}
}

// OnTransition registers a hook. Register hooks before Start.
func (g *GateSystem) OnTransition(hook TransitionHook) {
	g.hooks = append(g.hooks, hook)
}

func (g *GateSystem) Start() error {
	g.logger.Infof("Starting gate system")

	if err := g.io.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize hardware: %w", err)
	}

	// Outputs reflect Initializing before the first sample arrives
	g.actuator.Apply(g.machine.Command, g.machine.Lamp)

	for _, ch := range hardware.InputChannels {
		active, err := g.io.ReadDigitalInput(ch)
		if err != nil {
			g.logger.Warnf("Failed to read initial %s state: %v", ch, err)
			continue
		}
		g.logger.Infof("Initial state: %s active=%v", ch, active)
	}
	g.lastTick = g.sampler.Ticks()

	// g.machine belongs to the control loop once it is running
	g.logger.Infof("Gate system starting in %s (motion timeout %v = %d ticks of %v)",
		g.machine.State, fsm.MotionTimeout, fsm.MotionTimeoutTicks, g.period)

	ctx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel

	g.wg.Add(3)
	go func() {
		defer g.wg.Done()
		g.lamp.Run(ctx)
	}()
	go func() {
		defer g.wg.Done()
		g.sampler.Run(ctx, g.period)
	}()
	go func() {
		defer g.wg.Done()
		g.run(ctx)
	}()

	g.logger.Infof("Gate system started")
	return nil
}

// Shutdown stops sampling and control, de-energizes the motor and releases
// the hardware.
func (g *GateSystem) Shutdown() {
	g.logger.Infof("Shutting down gate system")
	if g.cancel != nil {
		g.cancel()
	}
	g.wg.Wait()

	if err := g.actuator.Stop(); err != nil {
		g.logger.Errorf("Failed to stop motor on shutdown: %v", err)
	}
	g.io.Cleanup()
}

// Restart asks the control loop to re-enter Initializing. This is the only
// way out of a motion timeout fault.
func (g *GateSystem) Restart() {
	select {
	case g.restart <- struct{}{}:
	default:
	}
}

// Status returns a copy of the machine as of the last completed step.
func (g *GateSystem) Status() fsm.Machine {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.status
}

func (g *GateSystem) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			g.logger.Infof("Control loop stopped in %s", g.machine.State)
			return
		case <-g.restart:
			g.applyRestart()
		case <-g.sampler.Updates():
			smp, ok := g.sampler.Latest()
			if !ok {
				continue
			}
			g.step(smp)
		}
	}
}

// step performs one decide-act cycle for a snapshot. Ticks missed since the
// previous step (failed reads, a slow loop) are credited to the motion clock.
func (g *GateSystem) step(smp Sample) {
	elapsed := smp.Tick - g.lastTick
	if elapsed == 0 {
		return
	}
	g.lastTick = smp.Tick

	prev := g.machine
	next, changed := fsm.Step(prev.Advance(elapsed), smp.IO)
	g.machine = next
	g.actuator.Apply(next.Command, next.Lamp)
	g.publish(next)

	if changed {
		g.transitioned(prev.State, next, smp)
	}
	if next.State == types.StateFault {
		g.faultReminder.Do(func() {
			g.logger.Warnf("Gate in fault: %s (inputs %s)", next.Fault, smp.IO)
		})
	}
}

func (g *GateSystem) applyRestart() {
	prev := g.machine
	g.logger.Infof("Supervisory restart requested in %s (fault=%s)", prev.State, prev.Fault)

	next := fsm.Restart(prev)
	g.machine = next
	g.actuator.Apply(next.Command, next.Lamp)
	g.publish(next)

	smp, _ := g.sampler.Latest()
	g.transitioned(prev.State, next, smp)
}

func (g *GateSystem) publish(m fsm.Machine) {
	g.mu.Lock()
	g.status = m
	g.mu.Unlock()
}

func (g *GateSystem) transitioned(from types.GateState, m fsm.Machine, smp Sample) {
	if m.State == types.StateFault {
		g.logger.Errorf("State transition: %s -> %s (fault=%s, inputs %s, tick %d)",
			from, m.State, m.Fault, smp.IO, smp.Tick)
	} else {
		g.logger.Infof("State transition: %s -> %s", from, m.State)
		g.logger.Debugf("Inputs at transition: %s (tick %d)", smp.IO, smp.Tick)
	}

	for _, hook := range g.hooks {
		hook(from, m.State, m.Fault)
	}
}
