package types

import "fmt"

type GateState int

const (
	StateInitializing GateState = iota
	StateClosing
	StateOpening
	StateOpen
	StateClosed
	StateStopped
	StateFault
)

func (s GateState) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateClosing:
		return "closing"
	case StateOpening:
		return "opening"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateStopped:
		return "stopped"
	case StateFault:
		return "fault"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type FaultCode int

const (
	FaultNone FaultCode = iota
	FaultContradictoryLimits
	FaultMotionTimeout
)

func (f FaultCode) String() string {
	switch f {
	case FaultNone:
		return "none"
	case FaultContradictoryLimits:
		return "contradictory-limits"
	case FaultMotionTimeout:
		return "motion-timeout"
	default:
		return fmt.Sprintf("fault(%d)", int(f))
	}
}

// MotorCommand is a single tri-state value so open and close drive can
// never be requested together.
type MotorCommand int

const (
	MotorStop MotorCommand = iota
	MotorOpen
	MotorClose
)

func (c MotorCommand) String() string {
	switch c {
	case MotorStop:
		return "stop"
	case MotorOpen:
		return "open"
	case MotorClose:
		return "close"
	default:
		return fmt.Sprintf("motor(%d)", int(c))
	}
}

// DriveOpen reports whether the open-drive output is asserted.
func (c MotorCommand) DriveOpen() bool { return c == MotorOpen }

// DriveClose reports whether the close-drive output is asserted.
func (c MotorCommand) DriveClose() bool { return c == MotorClose }

// LampCode is consumed by the lamp pattern generator. Values match the
// codes the lamp driver has always used.
type LampCode uint8

const (
	LampOff     LampCode = 0
	LampFault   LampCode = 1
	LampMoving  LampCode = 2
	LampStopped LampCode = 3
)

func (l LampCode) String() string {
	switch l {
	case LampOff:
		return "off"
	case LampFault:
		return "fault"
	case LampMoving:
		return "moving"
	case LampStopped:
		return "stopped"
	default:
		return fmt.Sprintf("lamp(%d)", uint8(l))
	}
}
