package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/power-alert/internal/config"
	"github.com/oshokin/power-alert/internal/domain/alert"
	"github.com/oshokin/power-alert/internal/hardware"
	"github.com/oshokin/power-alert/internal/logger"
	"github.com/oshokin/power-alert/internal/notify"
	"github.com/oshokin/power-alert/internal/repository/event"
	"github.com/oshokin/power-alert/internal/service/common"
	"github.com/oshokin/power-alert/internal/service/power"
)

// StatusReporter receives lifecycle phase changes.
type StatusReporter interface {
	Report(phase alert.Phase)
}

// nopReporter ignores phase changes.
type nopReporter struct{}

func (nopReporter) Report(alert.Phase) {}

// Monitor watches one alert pin and halts the host on a confirmed alert.
type Monitor struct {
	// driver claims the alert pin.
	driver hardware.Driver
	// pinName is the registry name of the alert pin.
	pinName string
	// debounce is the confirmation window.
	debounce config.Debounce
	// shutdowner halts the host.
	shutdowner power.Shutdowner
	// events records confirmed alerts; nil disables recording.
	events event.Repository
	// notifier announces confirmed alerts.
	notifier notify.Notifier
	// status receives phase changes.
	status StatusReporter
	// guard rejects a second instance; nil disables the check.
	guard func() error
	// actor is the host and user recorded with events.
	actor *alert.Actor
	// dryRun marks recorded events as not really shut down.
	dryRun bool
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithDebounce overrides the default 10 x 100ms window.
func WithDebounce(debounce config.Debounce) Option {
	return func(m *Monitor) {
		if debounce.Samples > 0 {
			m.debounce.Samples = debounce.Samples
		}

		if debounce.Interval > 0 {
			m.debounce.Interval = debounce.Interval
		}
	}
}

// WithEvents records confirmed alerts in repo.
func WithEvents(repo event.Repository) Option {
	return func(m *Monitor) {
		m.events = repo
	}
}

// WithNotifier announces confirmed alerts through n.
func WithNotifier(n notify.Notifier) Option {
	return func(m *Monitor) {
		if n != nil {
			m.notifier = n
		}
	}
}

// WithStatusReporter forwards phase changes to r.
func WithStatusReporter(r StatusReporter) Option {
	return func(m *Monitor) {
		if r != nil {
			m.status = r
		}
	}
}

// WithInstanceGuard runs guard before the pin is claimed.
func WithInstanceGuard(guard func() error) Option {
	return func(m *Monitor) {
		m.guard = guard
	}
}

// WithActor sets the host and user recorded with events.
func WithActor(actor *alert.Actor) Option {
	return func(m *Monitor) {
		m.actor = actor.Clone()
	}
}

// WithDryRun marks recorded events as dry runs.
func WithDryRun(dryRun bool) Option {
	return func(m *Monitor) {
		m.dryRun = dryRun
	}
}

// New creates a monitor for pinName.
func New(driver hardware.Driver, pinName string, shutdowner power.Shutdowner, opts ...Option) *Monitor {
	m := &Monitor{
		driver:     driver,
		pinName:    pinName,
		shutdowner: shutdowner,
		debounce: config.Debounce{
			Samples:  config.DefaultSamples,
			Interval: config.DefaultSampleInterval,
		},
		notifier: notify.Noop{},
		status:   nopReporter{},
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Watch claims the pin and runs the debounce loop until an alert is
// confirmed or ctx is cancelled. Cancellation is a clean exit (nil).
// Initialization failures wrap ErrHardwareInit; a failed shutdown is
// returned as is and never retried.
func (m *Monitor) Watch(ctx context.Context) error {
	ctx = logger.WithKV(ctx, "pin", m.pinName)

	m.status.Report(alert.PhaseStarting)

	if err := guardInstance(ctx, m.guard, m.pinName); err != nil {
		m.status.Report(alert.PhaseStopped)
		return err
	}

	m.logPreviousEvent(ctx)

	handle, err := Initialize(ctx, m.driver, m.pinName, m.debounce)
	if err != nil {
		m.status.Report(alert.PhaseStopped)
		return err
	}

	// No-op after TriggerShutdown; releases the pin on cancellation.
	defer func() {
		_ = handle.Release()
	}()

	for {
		m.status.Report(alert.PhaseConfirming)

		confirmed, err := handle.ConfirmAlert(ctx)
		if err != nil {
			return m.stop(ctx, err)
		}

		if confirmed {
			break
		}

		m.status.Report(alert.PhaseWatching)
		logger.Debug(ctx, "Alert line low, waiting for rising edge")

		if err = handle.WaitForRisingEdge(ctx); err != nil {
			return m.stop(ctx, err)
		}

		logger.Info(ctx, "Rising edge detected, confirming alert")
	}

	return m.shutdown(ctx, handle)
}

// guardInstance runs the single-instance guard. Only a positive detection
// blocks startup; a process table that cannot be read is logged.
func guardInstance(ctx context.Context, guard func() error, pinName string) error {
	if guard == nil {
		return nil
	}

	err := guard()

	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrAlreadyRunning):
		return fmt.Errorf("%w: pin %s: %w", ErrHardwareInit, pinName, err)
	default:
		logger.WarnKV(ctx, "Single-instance check skipped", "error", err)
		return nil
	}
}

// logPreviousEvent reports the alert that halted the host last time, if any.
func (m *Monitor) logPreviousEvent(ctx context.Context) {
	if m.events == nil {
		return
	}

	previous, err := m.events.Load(ctx)

	switch {
	case err == nil:
		logger.InfoKV(ctx, "Previous power-loss alert on record",
			"confirmed_at", previous.Timestamp.Format(time.RFC3339),
			"dry_run", previous.DryRun,
			"shutdown_error", previous.ShutdownError)
	case errors.Is(err, event.ErrNotFound):
		// First run or never triggered.
	default:
		logger.WarnKV(ctx, "Unable to read previous alert record", "error", err)
	}
}

// stop turns cancellation into a clean exit.
func (m *Monitor) stop(ctx context.Context, err error) error {
	m.status.Report(alert.PhaseStopped)

	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		logger.Info(ctx, "Context canceled, exiting")
		return nil
	}

	return err
}

// shutdown records and announces the confirmed alert, then halts the host.
func (m *Monitor) shutdown(ctx context.Context, handle *Handle) error {
	m.status.Report(alert.PhaseShuttingDown)

	ev := &alert.Event{
		Timestamp: time.Now(),
		Pin:       m.pinName,
		Samples:   handle.State().Samples,
		Interval:  m.debounce.Interval,
		Actor:     m.actor.Clone(),
		DryRun:    m.dryRun,
	}

	logger.WarnKV(ctx, "Power-loss alert confirmed, shutting down",
		"samples", ev.Samples, "interval", ev.Interval.String())

	// Written before halting: the host may lose power at any moment from here on.
	m.record(ctx, ev)

	if err := m.notifier.Notify(ctx, ev); err != nil {
		logger.ErrorKV(ctx, "Alert notification failed", "error", err)
	}

	err := handle.TriggerShutdown(ctx, m.shutdowner)
	if err != nil {
		logger.ErrorKV(ctx, "Shutdown failed", "error", err)

		ev.ShutdownError = err.Error()
		m.record(ctx, ev)

		return err
	}

	logger.Info(ctx, "Shutdown initiated, exiting")

	return nil
}

// record persists ev when a repository is configured.
func (m *Monitor) record(ctx context.Context, ev *alert.Event) {
	if m.events == nil {
		return
	}

	if err := m.events.Save(ctx, ev); err != nil {
		logger.ErrorKV(ctx, "Unable to record alert", "error", err)
	}
}
