package app

import (
	"fmt"
	"image/color"
	"log/slog"

	"github.com/soocke/peekerguard-go/config"
	"github.com/soocke/peekerguard-go/domain/alert"
	"github.com/soocke/peekerguard-go/domain/capture"
	"github.com/soocke/peekerguard-go/domain/capture/screen"
	"github.com/soocke/peekerguard-go/domain/capture/synthetic"
	"github.com/soocke/peekerguard-go/domain/detection"
	"github.com/soocke/peekerguard-go/domain/guard"
	"github.com/soocke/peekerguard-go/domain/lifecycle"
)

const wakeLockTag = "peekerguard"

// Host carries the presentation pieces supplied by the front end. Nil
// fields fall back to logging implementations and a private dispatcher.
type Host struct {
	Surface    alert.Surface
	Dispatcher alert.Dispatcher
	Indicator  guard.Indicator
}

// Container assembles the driver, detector, permission probe and service.
type Container struct {
	Config      *config.Config
	Logger      *slog.Logger
	Driver      capture.Driver
	Detector    *detection.ChangeDetector
	Permissions guard.PermissionChecker
	RunState    *guard.RunState
	Service     *guard.Service

	loop *alert.LoopDispatcher
}

// BuildContainer constructs all components. Nothing is started.
func BuildContainer(cfg *config.Config, logger *slog.Logger, host Host) (*Container, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Container{Config: cfg, Logger: logger, RunState: &guard.RunState{}}
	drv, err := newDriver(cfg, logger.With("component", "driver"))
	if err != nil {
		return nil, err
	}
	c.Driver = drv
	c.Detector = detection.NewChangeDetector(logger.With("component", "detector"))
	c.Permissions = NewPermissions(cfg)
	if host.Dispatcher == nil {
		c.loop = alert.NewLoopDispatcher(logger.With("component", "dispatch"))
		host.Dispatcher = c.loop
	}
	c.Service = guard.NewService(cfg.Guard(), guard.Deps{
		Driver:      c.Driver,
		Detector:    c.Detector,
		Surface:     host.Surface,
		Dispatcher:  host.Dispatcher,
		Indicator:   host.Indicator,
		Permissions: c.Permissions,
		WakeLock:    lifecycle.NewWakeLock(wakeLockTag, nil, logger.With("component", "wakelock")),
		RunState:    c.RunState,
		Logger:      logger,
	})
	return c, nil
}

// Close stops the service and the private dispatcher, if any.
func (c *Container) Close() error {
	err := c.Service.Stop()
	if c.loop != nil {
		c.loop.Close()
	}
	return err
}

func newDriver(cfg *config.Config, logger *slog.Logger) (capture.Driver, error) {
	facing, err := capture.ParseFacing(cfg.Facing)
	if err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case config.BackendScreen:
		return screen.New(facing, logger), nil
	case config.BackendSynthetic:
		return synthetic.New(synthetic.Options{
			Devices: []capture.DeviceInfo{{ID: "synthetic-0", Name: "Synthetic camera", Facing: facing}},
			// Someone walks past every tenth frame.
			Painter: synthetic.Intruder(10, color.RGBA{R: 96, G: 96, B: 96, A: 255}, color.RGBA{R: 240, G: 220, B: 200, A: 255}),
		}), nil
	}
	return nil, fmt.Errorf("app: unknown backend %q", cfg.Backend)
}
