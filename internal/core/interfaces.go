package core

import "gate-service/internal/types"

// HardwareIO defines the interface for hardware I/O operations needed by GateSystem.
// Input values are logical: true means the sensor is active regardless of
// the line's electrical polarity.
type HardwareIO interface {
	Initialize() error
	Cleanup()

	// Digital I/O
	ReadDigitalInput(channel string) (bool, error)
	ReadDigitalInputs(channels []string) ([]bool, error) // one consistent read
	WriteDigitalOutput(channel string, value bool) error
}

// LampSink receives the abstract lamp code; the pattern is its business.
type LampSink interface {
	SetLamp(code types.LampCode)
}

// TransitionHook observes every state change. It runs on the control loop
// and must not block.
type TransitionHook func(from, to types.GateState, fault types.FaultCode)
