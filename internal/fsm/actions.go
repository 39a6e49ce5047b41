package fsm

import "gate-service/internal/types"

// === Entry actions ===

func stopMotor(c *Context)  { c.Machine.Command = types.MotorStop }
func driveOpen(c *Context)  { c.Machine.Command = types.MotorOpen }
func driveClose(c *Context) { c.Machine.Command = types.MotorClose }
func resetTick(c *Context)  { c.Machine.Tick = 0 }
func clearFault(c *Context) { c.Machine.Fault = types.FaultNone }

func lamp(code types.LampCode) Action {
	return func(c *Context) { c.Machine.Lamp = code }
}

// === Transition actions ===

func raise(code types.FaultCode) Action {
	return func(c *Context) { c.Machine.Fault = code }
}

// === Guards ===

func limitsContradict(c *Context) bool { return c.IO.LimitsContradict() }
func betweenLimits(c *Context) bool    { return c.IO.BetweenLimits() }
func limitOpen(c *Context) bool        { return c.IO.LimitOpen }
func limitClosed(c *Context) bool      { return c.IO.LimitClosed }
func photocell(c *Context) bool        { return c.IO.Photocell }
func pushButton(c *Context) bool       { return c.IO.PushButton }

func openRequested(c *Context) bool {
	return c.IO.PushButton || c.IO.RemoteOpen
}

// closeRequested only honors a command while the beam is clear.
func closeRequested(c *Context) bool {
	return (c.IO.PushButton || c.IO.RemoteOpen) && !c.IO.Photocell
}

func resumeClosing(c *Context) bool {
	return c.IO.PushButton && !c.IO.LimitClosed
}

func resumeOpening(c *Context) bool {
	return c.IO.LimitOpen && !c.IO.Photocell
}

func motionTimedOut(c *Context) bool {
	return c.Machine.Tick > MotionTimeoutTicks
}

func recoverable(c *Context) bool {
	return c.Machine.Fault == types.FaultContradictoryLimits && !c.IO.LimitsContradict()
}
