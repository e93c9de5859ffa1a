package monitor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/power-alert/internal/config"
	"github.com/oshokin/power-alert/internal/domain/alert"
	"github.com/oshokin/power-alert/internal/hardware"
	"github.com/oshokin/power-alert/internal/repository/event"
	"github.com/oshokin/power-alert/internal/service/common"
	"github.com/oshokin/power-alert/internal/service/power"
)

// phaseRecorder keeps every reported phase in order.
type phaseRecorder struct {
	mu     sync.Mutex
	phases []alert.Phase
}

func (r *phaseRecorder) Report(phase alert.Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.phases = append(r.phases, phase)
}

func (r *phaseRecorder) all() []alert.Phase {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]alert.Phase(nil), r.phases...)
}

// recordingNotifier captures published events.
type recordingNotifier struct {
	mu     sync.Mutex
	events []*alert.Event
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, ev *alert.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.events = append(n.events, ev.Clone())

	return n.err
}

func (*recordingNotifier) Close() {}

// TestWatch_SustainedAlert shuts down once after one low sample, an edge and ten high samples.
func TestWatch_SustainedAlert(t *testing.T) {
	t.Parallel()

	eventFile := filepath.Join(t.TempDir(), "event.json")

	synctest.Test(t, func(t *testing.T) {
		driver := hardware.NewSimulated(testPin)
		pin := driver.Pin(testPin)
		pin.Script(hardware.Low, hardware.High)
		pin.Rise()

		shutdowner := new(countingShutdowner)
		reporter := new(phaseRecorder)
		notifier := new(recordingNotifier)
		repo := event.NewFileRepository(eventFile)
		actor := &alert.Actor{Hostname: "pi", Username: "root"}

		m := New(driver, testPin, shutdowner,
			WithEvents(repo),
			WithNotifier(notifier),
			WithStatusReporter(reporter),
			WithActor(actor))

		started := time.Now()

		require.NoError(t, m.Watch(t.Context()))
		require.Equal(t, 1100*time.Millisecond, time.Since(started))
		require.EqualValues(t, 1, shutdowner.calls.Load())
		require.Equal(t, 11, pin.Reads())
		require.False(t, pin.Claimed())

		require.Equal(t, []alert.Phase{
			alert.PhaseStarting,
			alert.PhaseConfirming,
			alert.PhaseWatching,
			alert.PhaseConfirming,
			alert.PhaseShuttingDown,
		}, reporter.all())

		require.Len(t, notifier.events, 1)
		require.Equal(t, 10, notifier.events[0].Samples)

		recorded, err := repo.Load(t.Context())
		require.NoError(t, err)
		require.Equal(t, testPin, recorded.Pin)
		require.Equal(t, 10, recorded.Samples)
		require.Equal(t, 100*time.Millisecond, recorded.Interval)
		require.Equal(t, actor, recorded.Actor)
		require.False(t, recorded.DryRun)
		require.Empty(t, recorded.ShutdownError)
	})
}

// TestWatch_GlitchIsIgnored returns to waiting after a low sample inside the window.
func TestWatch_GlitchIsIgnored(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		driver := hardware.NewSimulated(testPin)
		pin := driver.Pin(testPin)
		pin.Script(hardware.Low, hardware.High, hardware.High, hardware.High, hardware.High, hardware.Low)
		pin.Rise()

		shutdowner := new(countingShutdowner)
		reporter := new(phaseRecorder)

		ctx, cancel := context.WithCancel(t.Context())
		done := make(chan error, 1)

		go func() {
			done <- New(driver, testPin, shutdowner, WithStatusReporter(reporter)).Watch(ctx)
		}()

		time.Sleep(5 * time.Second)
		synctest.Wait()

		require.Equal(t, alert.PhaseWatching, reporter.all()[len(reporter.all())-1])
		require.Equal(t, 6, pin.Reads())
		require.True(t, pin.Claimed())

		cancel()

		require.NoError(t, <-done)
		require.Zero(t, shutdowner.calls.Load())
		require.False(t, pin.Claimed())
		require.Equal(t, alert.PhaseStopped, reporter.all()[len(reporter.all())-1])
	})
}

// TestWatch_LateEdge confirms only after the edge arrives.
func TestWatch_LateEdge(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		driver := hardware.NewSimulated(testPin)
		pin := driver.Pin(testPin)
		shutdowner := new(countingShutdowner)

		done := make(chan error, 1)

		go func() {
			done <- New(driver, testPin, shutdowner).Watch(t.Context())
		}()

		time.Sleep(time.Minute)
		synctest.Wait()
		require.Zero(t, shutdowner.calls.Load())
		require.Equal(t, 1, pin.Reads())

		pin.Set(hardware.High)

		require.NoError(t, <-done)
		require.EqualValues(t, 1, shutdowner.calls.Load())
		require.Equal(t, 11, pin.Reads())
	})
}

// TestWatch_HardwareInitFailure never shuts down when the pin cannot be claimed.
func TestWatch_HardwareInitFailure(t *testing.T) {
	t.Parallel()

	driver := hardware.NewSimulated(testPin)
	shutdowner := new(countingShutdowner)
	reporter := new(phaseRecorder)

	err := New(driver, "GPIO99", shutdowner, WithStatusReporter(reporter)).Watch(context.Background())
	require.ErrorIs(t, err, ErrHardwareInit)
	require.Zero(t, shutdowner.calls.Load())
	require.Equal(t, []alert.Phase{alert.PhaseStarting, alert.PhaseStopped}, reporter.all())

	busy, err := driver.Open(testPin)
	require.NoError(t, err)

	defer func() {
		_ = busy.Halt()
	}()

	err = New(driver, testPin, shutdowner).Watch(context.Background())
	require.ErrorIs(t, err, ErrHardwareInit)
	require.ErrorIs(t, err, hardware.ErrPinBusy)
	require.Zero(t, shutdowner.calls.Load())
}

// TestWatch_InstanceGuard blocks startup only when a twin process is found.
func TestWatch_InstanceGuard(t *testing.T) {
	t.Parallel()

	driver := hardware.NewSimulated(testPin)
	shutdowner := new(countingShutdowner)

	twin := func() error {
		return fmt.Errorf("%w: power-alert (pid 42)", common.ErrAlreadyRunning)
	}

	err := New(driver, testPin, shutdowner, WithInstanceGuard(twin)).Watch(context.Background())
	require.ErrorIs(t, err, ErrHardwareInit)
	require.ErrorIs(t, err, common.ErrAlreadyRunning)
	require.False(t, driver.Pin(testPin).Claimed())

	unreadable := func() error {
		return errors.New("list processes: permission denied")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = New(driver, testPin, shutdowner, WithInstanceGuard(unreadable)).Watch(ctx)
	require.NoError(t, err)
	require.Zero(t, shutdowner.calls.Load())
}

// TestWatch_ShutdownFailure records the failure and returns it without retrying.
func TestWatch_ShutdownFailure(t *testing.T) {
	t.Parallel()

	eventFile := filepath.Join(t.TempDir(), "event.json")

	synctest.Test(t, func(t *testing.T) {
		driver := hardware.NewSimulated(testPin)
		pin := driver.Pin(testPin)
		pin.Script(hardware.High)

		shutdowner := &countingShutdowner{
			err: fmt.Errorf("%w: /sbin/shutdown -h now: exit status 1", power.ErrShutdownInvocation),
		}
		notifier := &recordingNotifier{err: errors.New("broker unreachable")}
		repo := event.NewFileRepository(eventFile)

		err := New(driver, testPin, shutdowner, WithEvents(repo), WithNotifier(notifier)).Watch(t.Context())
		require.ErrorIs(t, err, power.ErrShutdownInvocation)
		require.EqualValues(t, 1, shutdowner.calls.Load())
		require.Len(t, notifier.events, 1)
		require.False(t, pin.Claimed())

		recorded, err := repo.Load(t.Context())
		require.NoError(t, err)
		require.Contains(t, recorded.ShutdownError, "exit status 1")
	})
}

// TestWatch_DryRunIsRecorded marks events produced in debug mode.
func TestWatch_DryRunIsRecorded(t *testing.T) {
	t.Parallel()

	eventFile := filepath.Join(t.TempDir(), "event.json")

	synctest.Test(t, func(t *testing.T) {
		driver := hardware.NewSimulated(testPin)
		driver.Pin(testPin).Script(hardware.High)

		repo := event.NewFileRepository(eventFile)
		m := New(driver, testPin, power.DryRun{Command: "/sbin/shutdown -h now"},
			WithEvents(repo),
			WithDryRun(true),
			WithDebounce(config.Debounce{Samples: 3, Interval: 50 * time.Millisecond}))

		started := time.Now()

		require.NoError(t, m.Watch(t.Context()))
		require.Equal(t, 150*time.Millisecond, time.Since(started))

		recorded, err := repo.Load(t.Context())
		require.NoError(t, err)
		require.True(t, recorded.DryRun)
		require.Equal(t, 3, recorded.Samples)
	})
}
