// Package telemetry wires optional Sentry error reporting into the errors
// package. Nothing is sent unless telemetry is enabled and a DSN is set.
package telemetry

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/tapedeck/internal/conf"
	"github.com/tphakala/tapedeck/internal/errors"
	"github.com/tphakala/tapedeck/internal/logger"
	"github.com/tphakala/tapedeck/internal/privacy"
)

// flushTimeout bounds how long Close waits for queued events.
const flushTimeout = 2 * time.Second

var sentryInitialized atomic.Bool

// Init configures Sentry from settings and registers it as the error
// reporter. It is a no-op when telemetry is disabled.
func Init(settings *conf.Settings) error {
	if !settings.Telemetry.Enabled {
		GetLogger().Debug("telemetry disabled")
		return nil
	}

	err := initWithOptions(sentry.ClientOptions{
		Dsn:              settings.Telemetry.DSN,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      settings.Telemetry.Environment,
		ServerName:       "", // no hostname leakage
		Release:          fmt.Sprintf("tapedeck@%s", settings.Version),
		BeforeSend:       beforeSend,
	})
	if err != nil {
		return err
	}

	GetLogger().Info("telemetry enabled", logger.String("environment", settings.Telemetry.Environment))
	return nil
}

func initWithOptions(opts sentry.ClientOptions) error {
	if err := sentry.Init(opts); err != nil {
		return errors.New(fmt.Errorf("sentry initialization failed: %w", err)).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}
	sentryInitialized.Store(true)
	errors.SetPrivacyScrubber(privacy.ScrubMessage)
	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	return nil
}

// IsInitialized reports whether Sentry reporting is active.
func IsInitialized() bool {
	return sentryInitialized.Load()
}

// Close flushes pending events and detaches the reporter.
func Close() {
	if !sentryInitialized.Swap(false) {
		return
	}
	errors.SetTelemetryReporter(nil)
	errors.SetPrivacyScrubber(nil)
	if !sentry.Flush(flushTimeout) {
		GetLogger().Warn("telemetry flush timed out", logger.Duration("timeout", flushTimeout))
	}
}

// beforeSend strips host and user identifying data from every event.
func beforeSend(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	return applyPrivacyFilters(event)
}

func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	for k := range event.Extra {
		if k != "error_type" && k != "component" {
			delete(event.Extra, k)
		}
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	return event
}
