package hardware

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"gate-service/internal/logger"
)

// PeriphHardwareIO drives the same line map through periph.io, for boards
// where the character device is not available. Inputs are read one after
// another under a single lock; on memory-mapped GPIO the whole batch takes
// microseconds, far inside one sample period.
type PeriphHardwareIO struct {
	logger *logger.Logger

	// Overridable for tests
	hostInit func() error
	resolve  func(line int) (gpio.PinIO, error)

	mu      sync.Mutex
	inputs  map[string]gpio.PinIO
	outputs map[string]gpio.PinIO
}

func NewPeriphHardwareIO(l *logger.Logger) *PeriphHardwareIO {
	return &PeriphHardwareIO{
		logger:   l.WithTag("HardwareIO"),
		hostInit: initHost,
		resolve:  resolvePin,
		inputs:   make(map[string]gpio.PinIO),
		outputs:  make(map[string]gpio.PinIO),
	}
}

func initHost() error {
	_, err := host.Init()
	return err
}

func resolvePin(line int) (gpio.PinIO, error) {
	name := fmt.Sprintf("GPIO%d", line)
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("pin %s not found in hardware", name)
	}
	return p, nil
}

func (io *PeriphHardwareIO) Initialize() error {
	io.logger.Infof("Initializing periph.io host")
	if err := io.hostInit(); err != nil {
		return fmt.Errorf("periph host init: %w", err)
	}

	io.mu.Lock()
	defer io.mu.Unlock()

	for _, name := range OutputChannels {
		mapping := DoMappings[name]
		p, err := io.resolve(mapping.Line)
		if err != nil {
			io.releaseLocked()
			return fmt.Errorf("output %s: %w", name, err)
		}
		if err := p.Out(gpio.Low); err != nil {
			io.releaseLocked()
			return fmt.Errorf("failed to configure output %s: %w", name, err)
		}
		io.outputs[name] = p
		io.logger.Infof("Configured DO %s: %s", name, p.Name())
	}

	for _, name := range InputChannels {
		mapping := DiMappings[name]
		p, err := io.resolve(mapping.Line)
		if err != nil {
			io.releaseLocked()
			return fmt.Errorf("input %s: %w", name, err)
		}
		if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
			io.releaseLocked()
			return fmt.Errorf("failed to configure input %s: %w", name, err)
		}
		io.inputs[name] = p
		io.logger.Infof("Configured DI %s: %s (active low: %v)", name, p.Name(), mapping.ActiveLow)
	}

	return nil
}

func (io *PeriphHardwareIO) ReadDigitalInputs(channels []string) ([]bool, error) {
	io.mu.Lock()
	defer io.mu.Unlock()

	out := make([]bool, len(channels))
	for i, ch := range channels {
		p, ok := io.inputs[ch]
		if !ok {
			return nil, fmt.Errorf("unknown input channel: %s", ch)
		}
		out[i] = (p.Read() == gpio.High) != DiMappings[ch].ActiveLow
	}
	return out, nil
}

func (io *PeriphHardwareIO) ReadDigitalInput(channel string) (bool, error) {
	vals, err := io.ReadDigitalInputs([]string{channel})
	if err != nil {
		return false, err
	}
	return vals[0], nil
}

func (io *PeriphHardwareIO) WriteDigitalOutput(channel string, value bool) error {
	io.mu.Lock()
	p, ok := io.outputs[channel]
	io.mu.Unlock()

	if !ok {
		return fmt.Errorf("unknown digital output channel: %s", channel)
	}

	level := gpio.Low
	if value {
		level = gpio.High
	}
	if err := p.Out(level); err != nil {
		return fmt.Errorf("failed to set DO %s=%v: %w", channel, value, err)
	}

	io.logger.Debugf("Set DO %s=%v", channel, value)
	return nil
}

func (io *PeriphHardwareIO) Cleanup() {
	io.mu.Lock()
	defer io.mu.Unlock()

	io.releaseLocked()
	io.logger.Infof("Hardware cleanup complete")
}

// releaseLocked drives every output low and forgets all pins.
func (io *PeriphHardwareIO) releaseLocked() {
	for name, p := range io.outputs {
		if err := p.Out(gpio.Low); err != nil {
			io.logger.Warnf("Failed to de-energize %s: %v", name, err)
		}
		delete(io.outputs, name)
	}
	for name := range io.inputs {
		delete(io.inputs, name)
	}
}
