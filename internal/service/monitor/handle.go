package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oshokin/power-alert/internal/config"
	"github.com/oshokin/power-alert/internal/domain/alert"
	"github.com/oshokin/power-alert/internal/hardware"
	"github.com/oshokin/power-alert/internal/logger"
	"github.com/oshokin/power-alert/internal/service/power"
)

var (
	// ErrHardwareInit indicates the alert pin could not be claimed.
	ErrHardwareInit = errors.New("hardware initialization failed")
	// ErrHandleReleased is returned by pin operations after the handle was released.
	ErrHandleReleased = errors.New("pin handle already released")
	// errShutdownAlreadyTriggered guards the single-shot shutdown.
	errShutdownAlreadyTriggered = errors.New("shutdown already triggered")
)

// Handle is the exclusively owned alert pin.
type Handle struct {
	// pin is the claimed input.
	pin hardware.Pin
	// debounce holds the sampling window.
	debounce config.Debounce
	// state is the result of the last debounce window.
	state alert.State

	// released is set once the pin has been halted.
	released atomic.Bool
	// triggered is set once shutdown has been invoked.
	triggered atomic.Bool
	// releaseOnce makes Release idempotent.
	releaseOnce sync.Once
	// releaseErr is the result of the single Halt call.
	releaseErr error
}

// Initialize claims the named pin for input. Any failure is wrapped in ErrHardwareInit.
func Initialize(ctx context.Context, driver hardware.Driver, name string, debounce config.Debounce) (*Handle, error) {
	pin, err := driver.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: claim pin %s: %w", ErrHardwareInit, name, err)
	}

	if debounce.Samples <= 0 {
		debounce.Samples = config.DefaultSamples
	}

	if debounce.Interval <= 0 {
		debounce.Interval = config.DefaultSampleInterval
	}

	logger.DebugKV(ctx, "Pin claimed", "pin", pin.Name())

	return &Handle{
		pin:      pin,
		debounce: debounce,
	}, nil
}

// Name returns the name of the claimed pin.
func (h *Handle) Name() string {
	return h.pin.Name()
}

// State returns the result of the last debounce window.
func (h *Handle) State() alert.State {
	return h.state
}

// Read returns the instantaneous pin level.
func (h *Handle) Read() (hardware.Level, error) {
	if h.released.Load() {
		return hardware.Low, ErrHandleReleased
	}

	return h.pin.Read(), nil
}

// WaitForRisingEdge blocks until the input goes from low to high. There is no
// timeout; only ctx cancellation ends the wait early.
func (h *Handle) WaitForRisingEdge(ctx context.Context) error {
	if h.released.Load() {
		return ErrHandleReleased
	}

	return h.pin.WaitForRisingEdge(ctx)
}

// ConfirmAlert waits one interval before each of the configured samples and
// reports true only if all of them read high. It returns false at the first
// low sample without waiting out the rest of the window.
func (h *Handle) ConfirmAlert(ctx context.Context) (bool, error) {
	h.state = alert.State{}

	for {
		if err := sleep(ctx, h.debounce.Interval); err != nil {
			return false, err
		}

		level, err := h.Read()
		if err != nil {
			return false, err
		}

		if !h.state.Observe(level == hardware.High, h.debounce.Samples) {
			break
		}
	}

	logger.DebugKV(ctx, "Debounce window finished",
		"confirmed", h.state.Confirmed, "samples", h.state.Samples, "raw_level", h.state.RawLevel)

	return h.state.Confirmed, nil
}

// Release halts the pin. Only the first call touches the hardware; later calls
// return the same result.
func (h *Handle) Release() error {
	h.releaseOnce.Do(func() {
		h.released.Store(true)
		h.releaseErr = h.pin.Halt()
	})

	return h.releaseErr
}

// TriggerShutdown releases the pin and then invokes the shutdown facility.
// It works once per handle; the shutdown result is returned, never retried.
func (h *Handle) TriggerShutdown(ctx context.Context, shutdowner power.Shutdowner) error {
	if !h.triggered.CompareAndSwap(false, true) {
		return errShutdownAlreadyTriggered
	}

	// A pin that refuses to halt must not keep the host running.
	if err := h.Release(); err != nil {
		logger.WarnKV(ctx, "Release pin failed", "pin", h.pin.Name(), "error", err)
	}

	return shutdowner.Shutdown(ctx)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
