package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"gate-service/internal/core"
	"gate-service/internal/hardware"
	"gate-service/internal/logger"
	"gate-service/internal/types"
)

func main() {
	// Service log level
	var serviceLogLevel int
	flag.IntVar(&serviceLogLevel, "log", 3, "Service log level (0=NONE, 1=ERROR, 2=WARN, 3=INFO, 4=DEBUG)")

	backend := flag.String("backend", "cdev", "GPIO backend: cdev (GPIO character device) or periph")
	chip := flag.String("chip", hardware.DefaultChip, "GPIO chip for the cdev backend")
	consumer := flag.String("consumer", hardware.DefaultConsumer, "Consumer label for requested GPIO lines")

	flag.Parse()

	l := logger.NewLogger(logger.NewStdLogger(os.Stdout), logger.LogLevel(serviceLogLevel))

	l.Infof("Starting gate service (log level %s)...", l.Level())

	var io core.HardwareIO
	switch *backend {
	case "cdev":
		io = hardware.NewLinuxHardwareIO(*chip, *consumer, l)
	case "periph":
		io = hardware.NewPeriphHardwareIO(l)
	default:
		l.Fatalf("Unknown GPIO backend %q", *backend)
	}

	system := core.NewGateSystem(io, l)
	system.OnTransition(func(from, to types.GateState, fault types.FaultCode) {
		if to == types.StateFault && fault == types.FaultMotionTimeout {
			l.Errorf("Motion timeout: gate halted until restart (send SIGHUP to pid %d)", os.Getpid())
		}
	})

	if err := system.Start(); err != nil {
		l.Fatalf("Failed to start system: %v", err)
	}

	l.Infof("System started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range sigChan {
		if sig == syscall.SIGHUP {
			l.Infof("Received SIGHUP, restarting gate supervisor")
			system.Restart()
			continue
		}
		l.Infof("Received signal %v, shutting down...", sig)
		break
	}
	system.Shutdown()
	l.Infof("Shutdown complete")
}
