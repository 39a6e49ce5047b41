package hardware

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"

	"gate-service/internal/logger"
)

// LinuxHardwareIO talks to the GPIO character device. All inputs live in
// one line request so a single ioctl returns every level at once.
type LinuxHardwareIO struct {
	logger   *logger.Logger
	chipName string
	consumer string

	mu         sync.RWMutex
	chip       *gpiocdev.Chip
	inputs     *gpiocdev.Lines
	inputIndex map[string]int
	outputs    map[string]*gpiocdev.Line
}

func NewLinuxHardwareIO(chipName, consumer string, l *logger.Logger) *LinuxHardwareIO {
	return &LinuxHardwareIO{
		logger:     l.WithTag("HardwareIO"),
		chipName:   chipName,
		consumer:   consumer,
		inputIndex: make(map[string]int),
		outputs:    make(map[string]*gpiocdev.Line),
	}
}

func (io *LinuxHardwareIO) Initialize() error {
	io.logger.Infof("Initializing GPIO on %s", io.chipName)

	chip, err := gpiocdev.NewChip(io.chipName, gpiocdev.WithConsumer(io.consumer))
	if err != nil {
		return fmt.Errorf("failed to open GPIO chip %s: %w", io.chipName, err)
	}

	io.mu.Lock()
	defer io.mu.Unlock()
	io.chip = chip

	// Outputs first, all de-energized, so the motor is never left floating
	for _, name := range OutputChannels {
		mapping := DoMappings[name]
		line, err := chip.RequestLine(mapping.Line,
			gpiocdev.AsOutput(0),
			gpiocdev.WithConsumer(io.consumer))
		if err != nil {
			io.releaseLocked()
			return fmt.Errorf("failed to request output %s (line %d): %w", name, mapping.Line, err)
		}
		io.outputs[name] = line
		io.logger.Infof("Configured DO %s: line=%d", name, mapping.Line)
	}

	offsets := make([]int, 0, len(InputChannels))
	var activeLow []int
	for i, name := range InputChannels {
		mapping := DiMappings[name]
		offsets = append(offsets, mapping.Line)
		if mapping.ActiveLow {
			activeLow = append(activeLow, mapping.Line)
		}
		io.inputIndex[name] = i
	}

	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithConsumer(io.consumer),
	}
	if len(activeLow) > 0 {
		opts = append(opts, gpiocdev.WithLines(activeLow, gpiocdev.AsActiveLow))
	}

	inputs, err := chip.RequestLines(offsets, opts...)
	if err != nil {
		io.releaseLocked()
		return fmt.Errorf("failed to request input lines %v: %w", offsets, err)
	}
	io.inputs = inputs
	io.logger.Infof("Configured DI %v on lines %v (active low: %v)", InputChannels, offsets, activeLow)

	return nil
}

// ReadDigitalInputs samples every requested channel from one kernel read.
// Values are logical: active-low lines are already inverted.
func (io *LinuxHardwareIO) ReadDigitalInputs(channels []string) ([]bool, error) {
	io.mu.RLock()
	defer io.mu.RUnlock()

	if io.inputs == nil {
		return nil, fmt.Errorf("inputs not initialized")
	}

	raw := make([]int, len(InputChannels))
	if err := io.inputs.Values(raw); err != nil {
		return nil, fmt.Errorf("failed to read inputs: %w", err)
	}

	out := make([]bool, len(channels))
	for i, ch := range channels {
		idx, ok := io.inputIndex[ch]
		if !ok {
			return nil, fmt.Errorf("unknown input channel: %s", ch)
		}
		out[i] = raw[idx] != 0
	}
	return out, nil
}

func (io *LinuxHardwareIO) ReadDigitalInput(channel string) (bool, error) {
	vals, err := io.ReadDigitalInputs([]string{channel})
	if err != nil {
		return false, err
	}
	return vals[0], nil
}

func (io *LinuxHardwareIO) WriteDigitalOutput(channel string, value bool) error {
	io.mu.RLock()
	line, ok := io.outputs[channel]
	io.mu.RUnlock()

	if !ok {
		return fmt.Errorf("unknown digital output channel: %s", channel)
	}

	val := 0
	if value {
		val = 1
	}

	if err := line.SetValue(val); err != nil {
		return fmt.Errorf("failed to set DO %s=%v: %w", channel, value, err)
	}

	io.logger.Debugf("Set DO %s=%v", channel, value)
	return nil
}

func (io *LinuxHardwareIO) Cleanup() {
	io.mu.Lock()
	defer io.mu.Unlock()

	io.logger.Infof("Cleaning up hardware resources")
	io.releaseLocked()
	io.logger.Infof("Hardware cleanup complete")
}

func (io *LinuxHardwareIO) releaseLocked() {
	for name, line := range io.outputs {
		if err := line.SetValue(0); err != nil {
			io.logger.Warnf("Failed to de-energize %s: %v", name, err)
		}
		line.Close()
		delete(io.outputs, name)
	}
	if io.inputs != nil {
		io.inputs.Close()
		io.inputs = nil
	}
	if io.chip != nil {
		io.chip.Close()
		io.chip = nil
	}
}
