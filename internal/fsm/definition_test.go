package fsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gate-service/internal/types"
)

var allStates = []types.GateState{
	types.StateInitializing,
	types.StateClosing,
	types.StateOpening,
	types.StateOpen,
	types.StateClosed,
	types.StateStopped,
	types.StateFault,
}

// in builds a machine sitting in state with that state's outputs applied.
func in(state types.GateState, fault types.FaultCode, tick uint32) Machine {
	m := Machine{State: state, Fault: fault, Tick: tick}
	switch state {
	case types.StateClosing:
		m.Command, m.Lamp = types.MotorClose, types.LampMoving
	case types.StateOpening:
		m.Command, m.Lamp = types.MotorOpen, types.LampMoving
	case types.StateStopped:
		m.Command, m.Lamp = types.MotorStop, types.LampStopped
	case types.StateFault:
		m.Command, m.Lamp = types.MotorStop, types.LampFault
	default:
		m.Command, m.Lamp = types.MotorStop, types.LampOff
	}
	return m
}

// allInputs enumerates every combination of the five sensor lines.
func allInputs() []types.IOState {
	var out []types.IOState
	for bits := 0; bits < 32; bits++ {
		out = append(out, types.IOState{
			LimitOpen:   bits&1 != 0,
			LimitClosed: bits&2 != 0,
			Photocell:   bits&4 != 0,
			PushButton:  bits&8 != 0,
			RemoteOpen:  bits&16 != 0,
		})
	}
	return out
}

func expectedCommand(s types.GateState) types.MotorCommand {
	switch s {
	case types.StateClosing:
		return types.MotorClose
	case types.StateOpening:
		return types.MotorOpen
	default:
		return types.MotorStop
	}
}

func TestStart(t *testing.T) {
	m := Start()
	assert.Equal(t, types.StateInitializing, m.State)
	assert.Equal(t, types.FaultNone, m.Fault)
	assert.Equal(t, types.MotorStop, m.Command)
	assert.Equal(t, types.LampOff, m.Lamp)
	assert.Zero(t, m.Tick)
}

func TestMotionTimeoutTicks(t *testing.T) {
	assert.Equal(t, uint32(3600), MotionTimeoutTicks)
}

func TestDriveOutputsNeverBothAsserted(t *testing.T) {
	for _, s := range allStates {
		for _, io := range allInputs() {
			for _, tick := range []uint32{0, 1, MotionTimeoutTicks, MotionTimeoutTicks + 1} {
				next, _ := Step(in(s, types.FaultContradictoryLimits, tick), io)
				assert.False(t, next.Command.DriveOpen() && next.Command.DriveClose(),
					"%s %s tick=%d", s, io, tick)
				assert.Equal(t, expectedCommand(next.State), next.Command,
					"%s -> %s with %s", s, next.State, io)
			}
		}
	}
}

func TestContradictoryLimitsFaultFromEveryState(t *testing.T) {
	for _, s := range allStates {
		if s == types.StateFault {
			continue
		}
		for _, io := range allInputs() {
			if !io.LimitsContradict() {
				continue
			}
			next, changed := Step(in(s, types.FaultNone, 5), io)
			require.True(t, changed, "%s with %s", s, io)
			assert.Equal(t, types.StateFault, next.State, "%s with %s", s, io)
			assert.Equal(t, types.FaultContradictoryLimits, next.Fault)
			assert.Equal(t, types.MotorStop, next.Command)
			assert.Equal(t, types.LampFault, next.Lamp)
		}
	}
}

func TestStableStatesAreFixedPoints(t *testing.T) {
	tests := []struct {
		name  string
		start Machine
		io    types.IOState
	}{
		{"closing mid travel", in(types.StateClosing, types.FaultNone, 10), types.IOState{}},
		{"opening mid travel", in(types.StateOpening, types.FaultNone, 10), types.IOState{}},
		{"open at limit", in(types.StateOpen, types.FaultNone, 10), types.IOState{LimitOpen: true}},
		{"closed at limit", in(types.StateClosed, types.FaultNone, 10), types.IOState{LimitClosed: true}},
		{"stopped idle", in(types.StateStopped, types.FaultNone, 10), types.IOState{}},
		{"stopped beam broken", in(types.StateStopped, types.FaultNone, 10), types.IOState{LimitOpen: true, Photocell: true}},
		{"contradiction persists", in(types.StateFault, types.FaultContradictoryLimits, 10), types.IOState{LimitOpen: true, LimitClosed: true}},
		{"timeout latched", in(types.StateFault, types.FaultMotionTimeout, 10), types.IOState{LimitClosed: true, PushButton: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.start
			for i := 0; i < 20; i++ {
				next, changed := Step(m, tt.io)
				require.False(t, changed, "iteration %d", i)
				assert.Equal(t, m, next)
				m = next
			}
		})
	}
}

func TestClosingTimesOut(t *testing.T) {
	next, changed := Step(in(types.StateClosing, types.FaultNone, 3601), types.IOState{})
	require.True(t, changed)
	assert.Equal(t, types.StateFault, next.State)
	assert.Equal(t, types.FaultMotionTimeout, next.Fault)
	assert.Equal(t, types.MotorStop, next.Command)
	assert.Equal(t, types.LampFault, next.Lamp)
}

func TestTimeoutThresholdIsStrict(t *testing.T) {
	for _, s := range []types.GateState{types.StateClosing, types.StateOpening, types.StateOpen} {
		io := types.IOState{}
		if s == types.StateOpen {
			io.LimitOpen = true
		}

		next, changed := Step(in(s, types.FaultNone, MotionTimeoutTicks), io)
		assert.False(t, changed, "%s at threshold", s)
		assert.Equal(t, s, next.State)

		next, changed = Step(in(s, types.FaultNone, MotionTimeoutTicks+1), io)
		assert.True(t, changed, "%s past threshold", s)
		assert.Equal(t, types.StateFault, next.State)
		assert.Equal(t, types.FaultMotionTimeout, next.Fault)
	}
}

func TestMotionTimeoutIsTerminal(t *testing.T) {
	m := in(types.StateFault, types.FaultMotionTimeout, 0)
	for _, io := range allInputs() {
		next, changed := Step(m.Advance(1000), io)
		assert.False(t, changed, "%s", io)
		assert.Equal(t, types.StateFault, next.State)
		assert.Equal(t, types.FaultMotionTimeout, next.Fault)
	}
}

func TestContradictoryLimitsRecovery(t *testing.T) {
	io := types.IOState{LimitClosed: true}

	m, changed := Step(in(types.StateFault, types.FaultContradictoryLimits, 40), io)
	require.True(t, changed)
	assert.Equal(t, types.StateInitializing, m.State)
	assert.Equal(t, types.FaultNone, m.Fault)
	assert.Zero(t, m.Tick)
	assert.Equal(t, types.LampOff, m.Lamp)

	m, changed = Step(m, io)
	require.True(t, changed)
	assert.Equal(t, types.StateClosed, m.State)
}

func TestOpenHoldsWhileBeamBroken(t *testing.T) {
	io := types.IOState{LimitOpen: true, Photocell: true, PushButton: true, RemoteOpen: true}
	m := in(types.StateOpen, types.FaultNone, 0)

	for i := uint32(0); i < 3*MotionTimeoutTicks; i++ {
		next, changed := Step(m.Advance(1), io)
		require.False(t, changed, "left open after %d ticks", i)
		require.Equal(t, types.StateOpen, next.State)
		require.Zero(t, next.Tick, "beam must keep the motion clock at zero")
		m = next
	}
	assert.Equal(t, types.MotorStop, m.Command)
}

func TestOpenClosesOnCommandWithClearBeam(t *testing.T) {
	for _, io := range []types.IOState{
		{LimitOpen: true, PushButton: true},
		{LimitOpen: true, RemoteOpen: true},
	} {
		next, changed := Step(in(types.StateOpen, types.FaultNone, 7), io)
		require.True(t, changed)
		assert.Equal(t, types.StateClosing, next.State)
		assert.Equal(t, types.MotorClose, next.Command)
		assert.Equal(t, types.LampMoving, next.Lamp)
		assert.Zero(t, next.Tick)
	}
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		name string
		from Machine
		io   types.IOState
		want types.GateState
	}{
		{"init between limits closes", Start(), types.IOState{}, types.StateClosing},
		{"init at closed limit", Start(), types.IOState{LimitClosed: true}, types.StateClosed},
		{"init at open limit", Start(), types.IOState{LimitOpen: true}, types.StateOpen},
		{"closing reverses on photocell", in(types.StateClosing, types.FaultNone, 3), types.IOState{Photocell: true}, types.StateOpening},
		{"photocell beats closed limit", in(types.StateClosing, types.FaultNone, 3), types.IOState{Photocell: true, LimitClosed: true}, types.StateOpening},
		{"closing reaches limit", in(types.StateClosing, types.FaultNone, 3), types.IOState{LimitClosed: true}, types.StateClosed},
		{"opening reaches limit", in(types.StateOpening, types.FaultNone, 3), types.IOState{LimitOpen: true}, types.StateOpen},
		{"opening stopped by button", in(types.StateOpening, types.FaultNone, 3), types.IOState{PushButton: true}, types.StateStopped},
		{"closed opens on button", in(types.StateClosed, types.FaultNone, 0), types.IOState{LimitClosed: true, PushButton: true}, types.StateOpening},
		{"closed opens on remote", in(types.StateClosed, types.FaultNone, 0), types.IOState{LimitClosed: true, RemoteOpen: true}, types.StateOpening},
		{"closed limit dropout", in(types.StateClosed, types.FaultNone, 0), types.IOState{}, types.StateClosing},
		{"stopped resumes closing", in(types.StateStopped, types.FaultNone, 0), types.IOState{PushButton: true}, types.StateClosing},
		{"stopped at closed limit ignores button", in(types.StateStopped, types.FaultNone, 0), types.IOState{LimitClosed: true, PushButton: true}, types.StateStopped},
		{"stopped at open limit reopens", in(types.StateStopped, types.FaultNone, 0), types.IOState{LimitOpen: true}, types.StateOpening},
		{"open times out", in(types.StateOpen, types.FaultNone, MotionTimeoutTicks+1), types.IOState{LimitOpen: true}, types.StateFault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, _ := Step(tt.from, tt.io)
			assert.Equal(t, tt.want, next.State)
		})
	}
}

func TestEndToEndCycle(t *testing.T) {
	m := Start()

	m, _ = Step(m, types.IOState{})
	require.Equal(t, types.StateClosing, m.State)
	require.Equal(t, types.MotorClose, m.Command)

	m, _ = Step(m.Advance(5), types.IOState{Photocell: true})
	require.Equal(t, types.StateOpening, m.State)
	require.Equal(t, types.MotorOpen, m.Command)
	require.Zero(t, m.Tick)

	m, _ = Step(m.Advance(50), types.IOState{LimitOpen: true})
	require.Equal(t, types.StateOpen, m.State)
	assert.Equal(t, types.MotorStop, m.Command)
	assert.Equal(t, types.LampOff, m.Lamp)
	assert.Equal(t, types.FaultNone, m.Fault)
}

func TestRestartClearsMotionTimeout(t *testing.T) {
	m := Restart(in(types.StateFault, types.FaultMotionTimeout, 99))
	assert.Equal(t, types.StateInitializing, m.State)
	assert.Equal(t, types.FaultNone, m.Fault)
	assert.Equal(t, types.MotorStop, m.Command)
	assert.Equal(t, types.LampOff, m.Lamp)
	assert.Zero(t, m.Tick)
}

func TestBuildRejectsInvalidDefinitions(t *testing.T) {
	_, err := NewDefinition().State(types.StateOpen).Build()
	assert.Error(t, err, "missing initial state")

	_, err = NewDefinition().Initial(types.StateOpen).Build()
	assert.Error(t, err, "initial state not declared")

	_, err = NewDefinition().
		State(types.StateOpen).
		Transition(types.StateOpen, types.StateClosing).
		Initial(types.StateOpen).
		Build()
	assert.Error(t, err, "target not declared")

	_, err = NewDefinition().
		State(types.StateOpen).
		State(types.StateOpen).
		Initial(types.StateOpen).
		Build()
	assert.Error(t, err, "duplicate state")
}

func TestGuardsEvaluatedInDeclarationOrder(t *testing.T) {
	var order []string
	guard := func(name string, pass bool) Guard {
		return func(*Context) bool {
			order = append(order, name)
			return pass
		}
	}

	chart, err := NewDefinition().
		State(types.StateOpen).
		State(types.StateClosing).
		State(types.StateClosed).
		Transition(types.StateOpen, types.StateClosing, WithGuard(guard("first", false))).
		Transition(types.StateOpen, types.StateClosed, WithGuard(guard("second", true))).
		Transition(types.StateOpen, types.StateClosing, WithGuard(guard("third", true))).
		Initial(types.StateOpen).
		Build()
	require.NoError(t, err)

	next, changed := chart.Step(chart.Start(), types.IOState{})
	assert.True(t, changed)
	assert.Equal(t, types.StateClosed, next.State)
	assert.Equal(t, []string{"first", "second"}, order)
}
