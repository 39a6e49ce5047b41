package fsm

import (
	"time"

	"gate-service/internal/types"
)

// Timing constants
const (
	SamplePeriod  = 50 * time.Millisecond
	MotionTimeout = 180 * time.Second

	// MotionTimeoutTicks is MotionTimeout expressed in sample periods.
	MotionTimeoutTicks = uint32(MotionTimeout / SamplePeriod)
)

// NewGateDefinition creates the gate FSM definition.
//
// Transitions out of each state are listed in priority order. The
// contradictory-limit check comes first everywhere so no motion is ever
// started or continued while both limit switches are active.
func NewGateDefinition() *Definition {
	contradiction := []TransitionOption{
		WithGuard(limitsContradict),
		WithAction(raise(types.FaultContradictoryLimits)),
	}
	timeout := []TransitionOption{
		WithGuard(motionTimedOut),
		WithAction(raise(types.FaultMotionTimeout)),
	}

	return NewDefinition().
		State(types.StateInitializing,
			WithOnEnter(stopMotor),
			WithOnEnter(lamp(types.LampOff)),
			WithOnEnter(resetTick),
			WithOnEnter(clearFault),
		).
		State(types.StateClosing,
			WithOnEnter(driveClose),
			WithOnEnter(lamp(types.LampMoving)),
			WithOnEnter(resetTick),
		).
		State(types.StateOpening,
			WithOnEnter(driveOpen),
			WithOnEnter(lamp(types.LampMoving)),
			WithOnEnter(resetTick),
		).
		State(types.StateOpen,
			WithOnEnter(stopMotor),
			WithOnEnter(lamp(types.LampOff)),
			WithOnEnter(resetTick),
		).
		State(types.StateClosed,
			WithOnEnter(stopMotor),
			WithOnEnter(lamp(types.LampOff)),
		).
		State(types.StateStopped,
			WithOnEnter(stopMotor),
			WithOnEnter(lamp(types.LampStopped)),
		).
		State(types.StateFault,
			WithOnEnter(stopMotor),
			WithOnEnter(lamp(types.LampFault)),
		).

		// === Transitions ===

		// From Initializing: derive a starting position from the limits
		Transition(types.StateInitializing, types.StateFault, contradiction...).
		Transition(types.StateInitializing, types.StateClosing, WithGuard(betweenLimits)).
		Transition(types.StateInitializing, types.StateClosed, WithGuard(limitClosed)).
		Transition(types.StateInitializing, types.StateOpen, WithGuard(limitOpen)).
		Transition(types.StateInitializing, types.StateClosed).

		// From Closing: the photocell reverses the gate
		Transition(types.StateClosing, types.StateFault, contradiction...).
		Transition(types.StateClosing, types.StateOpening, WithGuard(photocell)).
		Transition(types.StateClosing, types.StateClosed, WithGuard(limitClosed)).
		Transition(types.StateClosing, types.StateFault, timeout...).

		// From Opening
		Transition(types.StateOpening, types.StateFault, contradiction...).
		Transition(types.StateOpening, types.StateOpen, WithGuard(limitOpen)).
		Transition(types.StateOpening, types.StateStopped, WithGuard(pushButton)).
		Transition(types.StateOpening, types.StateFault, timeout...).

		// From Open: hold while the beam is broken and keep the clock at zero
		Transition(types.StateOpen, types.StateFault, contradiction...).
		Transition(types.StateOpen, types.StateOpen,
			WithGuard(photocell),
			WithAction(resetTick),
		).
		Transition(types.StateOpen, types.StateClosing, WithGuard(closeRequested)).
		Transition(types.StateOpen, types.StateFault, timeout...).

		// From Closed. A dropout of the closed limit is treated as the
		// gate having drifted open.
		Transition(types.StateClosed, types.StateFault, contradiction...).
		Transition(types.StateClosed, types.StateOpening, WithGuard(openRequested)).
		Transition(types.StateClosed, types.StateClosing, WithGuard(betweenLimits)).

		// From Stopped
		Transition(types.StateStopped, types.StateFault, contradiction...).
		Transition(types.StateStopped, types.StateClosing, WithGuard(resumeClosing)).
		Transition(types.StateStopped, types.StateOpening, WithGuard(resumeOpening)).

		// From Fault: only contradictory limits recover on their own.
		// A motion timeout stays latched until Restart.
		Transition(types.StateFault, types.StateInitializing, WithGuard(recoverable)).

		// Initial state
		Initial(types.StateInitializing)
}

var gate = mustBuild(NewGateDefinition())

func mustBuild(d *Definition) *Chart {
	c, err := d.Build()
	if err != nil {
		panic("fsm: invalid gate definition: " + err.Error())
	}
	return c
}

// Start returns the gate machine in Initializing with its entry actions applied.
func Start() Machine { return gate.Start() }

// Step runs one tick of the gate FSM.
func Step(m Machine, io types.IOState) (Machine, bool) { return gate.Step(m, io) }

// Restart re-enters Initializing, clearing any fault.
func Restart(m Machine) Machine { return gate.Restart(m) }
