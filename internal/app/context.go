// Package app holds the process-wide state shared by the tapedeck commands:
// settings, the central logger, telemetry and the metrics endpoint.
package app

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/tapedeck/internal/buildinfo"
	"github.com/tphakala/tapedeck/internal/conf"
	"github.com/tphakala/tapedeck/internal/errors"
	"github.com/tphakala/tapedeck/internal/logger"
	"github.com/tphakala/tapedeck/internal/observability"
	"github.com/tphakala/tapedeck/internal/tape"
	"github.com/tphakala/tapedeck/internal/telemetry"
)

// Context holds the overall application state.
type Context struct {
	Build    *buildinfo.Context
	Settings *conf.Settings
	Metrics  *observability.Metrics

	central *logger.CentralLogger
	cancel  context.CancelFunc
	group   *errgroup.Group
}

// NewContext creates an application context for build.
func NewContext(build *buildinfo.Context) *Context {
	return &Context{Build: build}
}

// Setup loads settings and starts the ambient services. It runs once per
// process, before the selected command.
func (c *Context) Setup(ctx context.Context, configFile string) error {
	settings, err := conf.Load(configFile)
	if err != nil {
		return err
	}
	settings.Version = c.Build.Version()
	c.Settings = settings

	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return err
	}
	logger.SetGlobal(central)
	c.central = central

	if err := telemetry.Init(settings); err != nil {
		// Reporting is optional; keep running without it.
		c.Logger().Warn("telemetry unavailable", logger.Error(err))
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		return err
	}
	c.Metrics = metrics

	if settings.Metrics.Enabled {
		endpoint, err := observability.NewEndpoint(settings, metrics)
		if err != nil {
			return err
		}
		runCtx, cancel := context.WithCancel(ctx)
		c.cancel = cancel
		c.group = &errgroup.Group{}
		c.group.Go(func() error {
			if err := endpoint.Run(runCtx); err != nil {
				c.Logger().Error("metrics endpoint failed",
					logger.String("listen", settings.Metrics.Listen),
					logger.Error(err))
				return err
			}
			return nil
		})
	}

	c.Logger().Debug("tapedeck initialized",
		logger.String("version", c.Build.Version()),
		logger.String("revision", c.Build.Revision()),
		logger.Bool("metrics", settings.Metrics.Enabled),
		logger.Bool("telemetry", settings.Telemetry.Enabled))
	return nil
}

// Logger returns the CLI module logger.
func (c *Context) Logger() logger.Logger {
	return logger.Global().Module("cli")
}

// Recorder returns the tape metrics recorder, or nil before Setup.
func (c *Context) Recorder() tape.Recorder {
	if c.Metrics == nil {
		return nil
	}
	return c.Metrics.Tape
}

// Shutdown stops the metrics endpoint, flushes telemetry and closes the
// logger. It is safe to call when Setup failed or never ran.
func (c *Context) Shutdown() error {
	var errs []error
	if c.cancel != nil {
		c.cancel()
		errs = append(errs, c.group.Wait())
		c.cancel = nil
	}
	telemetry.Close()
	if c.central != nil {
		errs = append(errs, c.central.Close())
		c.central = nil
	}
	return errors.Join(errs...)
}
