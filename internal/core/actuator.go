package core

import (
	"errors"
	"fmt"

	"gate-service/internal/hardware"
	"gate-service/internal/logger"
	"gate-service/internal/types"
)

// Actuator applies motor commands and lamp codes. Outputs are only
// rewritten when the requested value changes.
type Actuator struct {
	io     HardwareIO
	lamp   LampSink
	logger *logger.Logger

	command       types.MotorCommand
	commandActive bool
	lampCode      types.LampCode
	lampActive    bool
}

func NewActuator(io HardwareIO, lamp LampSink, l *logger.Logger) *Actuator {
	return &Actuator{
		io:     io,
		lamp:   lamp,
		logger: l.WithTag("Actuator"),
	}
}

func (a *Actuator) Stop() error       { return a.drive(types.MotorStop) }
func (a *Actuator) DriveOpen() error  { return a.drive(types.MotorOpen) }
func (a *Actuator) DriveClose() error { return a.drive(types.MotorClose) }

func (a *Actuator) SetLamp(code types.LampCode) {
	if a.lampActive && code == a.lampCode {
		return
	}
	a.lamp.SetLamp(code)
	a.lampCode = code
	a.lampActive = true
	a.logger.Debugf("Lamp %s", code)
}

// Apply sets both outputs from one FSM result. Motor write errors are
// logged; the command is retried on the next call.
func (a *Actuator) Apply(cmd types.MotorCommand, lamp types.LampCode) {
	if err := a.drive(cmd); err != nil {
		a.logger.Errorf("Failed to apply motor command %s: %v", cmd, err)
	}
	a.SetLamp(lamp)
}

// Command returns the last motor command that reached the outputs.
func (a *Actuator) Command() types.MotorCommand { return a.command }

// drive always releases the opposing output before asserting the
// requested one, so both drive lines are never high at the same time.
func (a *Actuator) drive(cmd types.MotorCommand) error {
	if a.commandActive && cmd == a.command {
		return nil
	}

	var release, assert string
	switch cmd {
	case types.MotorOpen:
		release, assert = hardware.OutDriveClose, hardware.OutDriveOpen
	case types.MotorClose:
		release, assert = hardware.OutDriveOpen, hardware.OutDriveClose
	case types.MotorStop:
		errOpen := a.io.WriteDigitalOutput(hardware.OutDriveOpen, false)
		errClose := a.io.WriteDigitalOutput(hardware.OutDriveClose, false)
		if err := errors.Join(errOpen, errClose); err != nil {
			// Stay unapplied so the next tick retries
			a.commandActive = false
			return err
		}
		a.setCommand(cmd)
		return nil
	default:
		return fmt.Errorf("unknown motor command %d", int(cmd))
	}

	if err := a.io.WriteDigitalOutput(release, false); err != nil {
		a.commandActive = false
		return fmt.Errorf("release %s: %w", release, err)
	}
	if err := a.io.WriteDigitalOutput(assert, true); err != nil {
		a.commandActive = false
		return fmt.Errorf("assert %s: %w", assert, err)
	}
	a.setCommand(cmd)
	return nil
}

func (a *Actuator) setCommand(cmd types.MotorCommand) {
	if !a.commandActive || a.command != cmd {
		a.logger.Infof("Motor %s", cmd)
	}
	a.command = cmd
	a.commandActive = true
}
