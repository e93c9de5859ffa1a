package monitor

import (
	"context"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/power-alert/internal/config"
	"github.com/oshokin/power-alert/internal/hardware"
)

const testPin = "GPIO15"

// countingShutdowner records how often it was asked to halt the host.
type countingShutdowner struct {
	calls atomic.Int32
	err   error
}

func (s *countingShutdowner) Shutdown(context.Context) error {
	s.calls.Add(1)

	return s.err
}

// defaultDebounce is the production window: ten samples, 100ms apart.
func defaultDebounce() config.Debounce {
	return config.Debounce{
		Samples:  config.DefaultSamples,
		Interval: config.DefaultSampleInterval,
	}
}

// TestInitialize_Failures checks unknown and busy pins surface as ErrHardwareInit.
func TestInitialize_Failures(t *testing.T) {
	t.Parallel()

	driver := hardware.NewSimulated(testPin)

	_, err := Initialize(context.Background(), driver, "GPIO99", defaultDebounce())
	require.ErrorIs(t, err, ErrHardwareInit)
	require.ErrorIs(t, err, hardware.ErrPinNotFound)

	handle, err := Initialize(context.Background(), driver, testPin, defaultDebounce())
	require.NoError(t, err)
	require.Equal(t, testPin, handle.Name())

	_, err = Initialize(context.Background(), driver, testPin, defaultDebounce())
	require.ErrorIs(t, err, ErrHardwareInit)
	require.ErrorIs(t, err, hardware.ErrPinBusy)

	require.NoError(t, handle.Release())
}

// TestConfirmAlert_AllHigh confirms after ten high samples taken over one second.
func TestConfirmAlert_AllHigh(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		driver := hardware.NewSimulated(testPin)
		driver.Pin(testPin).Script(hardware.High)

		handle, err := Initialize(t.Context(), driver, testPin, defaultDebounce())
		require.NoError(t, err)

		started := time.Now()

		confirmed, err := handle.ConfirmAlert(t.Context())
		require.NoError(t, err)
		require.True(t, confirmed)
		require.Equal(t, time.Second, time.Since(started))
		require.Equal(t, 10, driver.Pin(testPin).Reads())

		state := handle.State()
		require.True(t, state.Confirmed)
		require.True(t, state.RawLevel)
		require.Equal(t, 10, state.Samples)
	})
}

// TestConfirmAlert_StopsAtFirstLow returns false at the third sample without waiting out the window.
func TestConfirmAlert_StopsAtFirstLow(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		driver := hardware.NewSimulated(testPin)
		driver.Pin(testPin).Script(hardware.High, hardware.High, hardware.Low)

		handle, err := Initialize(t.Context(), driver, testPin, defaultDebounce())
		require.NoError(t, err)

		started := time.Now()

		confirmed, err := handle.ConfirmAlert(t.Context())
		require.NoError(t, err)
		require.False(t, confirmed)
		require.Equal(t, 300*time.Millisecond, time.Since(started))
		require.Equal(t, 3, driver.Pin(testPin).Reads())

		state := handle.State()
		require.False(t, state.Confirmed)
		require.False(t, state.RawLevel)
		require.Equal(t, 3, state.Samples)
	})
}

// TestConfirmAlert_Canceled returns the context error mid-window.
func TestConfirmAlert_Canceled(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		driver := hardware.NewSimulated(testPin)
		driver.Pin(testPin).Script(hardware.High)

		handle, err := Initialize(t.Context(), driver, testPin, defaultDebounce())
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(t.Context(), 250*time.Millisecond)
		defer cancel()

		confirmed, err := handle.ConfirmAlert(ctx)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.False(t, confirmed)
		require.Equal(t, 2, driver.Pin(testPin).Reads())
	})
}

// TestHandle_ReleaseIsIdempotent checks the pin is freed once and later operations fail.
func TestHandle_ReleaseIsIdempotent(t *testing.T) {
	t.Parallel()

	driver := hardware.NewSimulated(testPin)

	handle, err := Initialize(context.Background(), driver, testPin, defaultDebounce())
	require.NoError(t, err)

	require.NoError(t, handle.Release())
	require.NoError(t, handle.Release())
	require.False(t, driver.Pin(testPin).Claimed())

	_, err = handle.Read()
	require.ErrorIs(t, err, ErrHandleReleased)
	require.ErrorIs(t, handle.WaitForRisingEdge(context.Background()), ErrHandleReleased)

	_, err = handle.ConfirmAlert(context.Background())
	require.ErrorIs(t, err, ErrHandleReleased)
}

// TestHandle_TriggerShutdownOnce invokes the shutdowner at most once and frees the pin first.
func TestHandle_TriggerShutdownOnce(t *testing.T) {
	t.Parallel()

	driver := hardware.NewSimulated(testPin)
	shutdowner := new(countingShutdowner)

	handle, err := Initialize(context.Background(), driver, testPin, defaultDebounce())
	require.NoError(t, err)

	require.NoError(t, handle.TriggerShutdown(context.Background(), shutdowner))
	require.False(t, driver.Pin(testPin).Claimed())

	require.ErrorIs(t, handle.TriggerShutdown(context.Background(), shutdowner), errShutdownAlreadyTriggered)
	require.EqualValues(t, 1, shutdowner.calls.Load())
}

// TestWaitForRisingEdge_Canceled ends an edge wait without an edge.
func TestWaitForRisingEdge_Canceled(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		driver := hardware.NewSimulated(testPin)

		handle, err := Initialize(t.Context(), driver, testPin, defaultDebounce())
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(t.Context(), time.Hour)
		defer cancel()

		require.ErrorIs(t, handle.WaitForRisingEdge(ctx), context.DeadlineExceeded)
	})
}
