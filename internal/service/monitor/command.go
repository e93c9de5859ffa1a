package monitor

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap/zapcore"

	"github.com/oshokin/power-alert/internal/api/grpc/health"
	"github.com/oshokin/power-alert/internal/config"
	"github.com/oshokin/power-alert/internal/hardware"
	"github.com/oshokin/power-alert/internal/logger"
	"github.com/oshokin/power-alert/internal/notify"
	"github.com/oshokin/power-alert/internal/repository/event"
	"github.com/oshokin/power-alert/internal/service/common"
	"github.com/oshokin/power-alert/internal/service/power"
)

// Options controls the monitor run and its configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// Pin overrides the configured alert pin.
	Pin string
	// Debug logs the shutdown instead of running it; for ReadPin it enables debug logs.
	Debug bool
	// Driver overrides the driver selected by configuration.
	Driver hardware.Driver
	// InstanceGuard replaces common.EnsureSingleInstance.
	InstanceGuard func() error
}

// instanceGuard returns the configured guard or the process-table check.
func (o *Options) instanceGuard() func() error {
	if o.InstanceGuard != nil {
		return o.InstanceGuard
	}

	return common.EnsureSingleInstance
}

var errNoHealthAddress = errors.New("health address is not configured")

// Run loads configuration, wires the optional collaborators and watches the
// alert pin until shutdown or ctx cancellation.
//
//nolint:cyclop,funlen // Linear wiring; splitting would scatter it.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "power-alert")

	cfg, err := loadConfig(opts.ConfigPath, opts.Pin)
	if err != nil {
		return err
	}

	driver := opts.Driver
	if driver == nil {
		driver = newDriver(cfg.Driver, cfg.Pin)
	}

	var shutdowner power.Shutdowner

	command, err := power.NewCommand(cfg.Shutdown.Command, cfg.Shutdown.Timeout)
	if err != nil {
		return fmt.Errorf("shutdown command: %w", err)
	}

	shutdowner = command
	if opts.Debug {
		shutdowner = power.DryRun{Command: command.String()}
	}

	actor, err := common.DetectActor()
	if err != nil {
		return fmt.Errorf("detect actor: %w", err)
	}

	var notifier notify.Notifier = notify.Noop{}

	if cfg.MQTT.Enabled() {
		client, dialErr := notify.Dial(cfg.MQTT)
		if dialErr != nil {
			// The shutdown path must not depend on the broker.
			logger.WarnKV(ctx, "MQTT notifications disabled", "broker", cfg.MQTT.Broker, "error", dialErr)
		} else {
			notifier = client
		}
	}

	defer notifier.Close()

	monitorOpts := []Option{
		WithDebounce(cfg.Debounce),
		WithEvents(event.NewFileRepository(cfg.EventFile)),
		WithNotifier(notifier),
		WithInstanceGuard(opts.instanceGuard()),
		WithActor(actor),
		WithDryRun(opts.Debug),
	}

	serveCtx, stopServe := context.WithCancel(ctx)
	serveDone := make(chan struct{})

	defer func() {
		stopServe()
		<-serveDone
	}()

	if cfg.HealthAddress != "" {
		healthServer := health.NewServer()
		monitorOpts = append(monitorOpts, WithStatusReporter(healthServer))

		go func() {
			defer close(serveDone)

			if serveErr := health.ListenAndServe(serveCtx, cfg.HealthAddress, healthServer); serveErr != nil {
				logger.ErrorKV(ctx, "Health endpoint failed", "address", cfg.HealthAddress, "error", serveErr)
			}
		}()
	} else {
		close(serveDone)
	}

	logger.InfoKV(ctx, "Watching alert pin",
		"pin", cfg.Pin,
		"driver", cfg.Driver,
		"samples", cfg.Debounce.Samples,
		"interval", cfg.Debounce.Interval.String(),
		"window", cfg.Debounce.Window().String(),
		"shutdown", command.String(),
		"debug", opts.Debug)

	return New(driver, cfg.Pin, shutdowner, monitorOpts...).Watch(ctx)
}

// ReadPin claims the pin, reads its level once and releases it. It refuses to
// run next to a watching daemon: releasing a periph pin disables its edge
// detection, which would blind the daemon.
func ReadPin(ctx context.Context, opts *Options) (hardware.Level, error) {
	ctx = logger.WithName(ctx, "power-alert-read")

	// Debug turns on pin-level tracing for this call only.
	if opts.Debug {
		ctx = logger.ToContext(ctx, logger.FromContext(ctx).WithOptions(logger.WithLevel(zapcore.DebugLevel)))
	}

	cfg, err := loadConfig(opts.ConfigPath, opts.Pin)
	if err != nil {
		return hardware.Low, err
	}

	if err = guardInstance(ctx, opts.instanceGuard(), cfg.Pin); err != nil {
		return hardware.Low, err
	}

	driver := opts.Driver
	if driver == nil {
		driver = newDriver(cfg.Driver, cfg.Pin)
	}

	handle, err := Initialize(ctx, driver, cfg.Pin, cfg.Debounce)
	if err != nil {
		return hardware.Low, err
	}

	defer func() {
		if releaseErr := handle.Release(); releaseErr != nil {
			logger.WarnKV(ctx, "Release pin failed", "pin", cfg.Pin, "error", releaseErr)
		}
	}()

	level, err := handle.Read()
	if err != nil {
		return hardware.Low, err
	}

	logger.InfoKV(ctx, "Pin level", "pin", cfg.Pin, "level", level.String())

	return level, nil
}

// Status asks a running monitor for its serving status. address overrides
// the configured health address.
func Status(ctx context.Context, configPath, address string) (string, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return "", fmt.Errorf("load configuration: %w", err)
	}

	if address == "" {
		address = cfg.HealthAddress
	}

	if address == "" {
		return "", errNoHealthAddress
	}

	client, err := common.Dial(ctx, address)
	if err != nil {
		return "", fmt.Errorf("dial health endpoint: %w", err)
	}

	defer func() {
		_ = client.Close()
	}()

	status, err := client.Check(ctx, health.ServiceName)
	if err != nil {
		return "", err
	}

	return status.String(), nil
}

// loadConfig reads settings and applies the pin override.
func loadConfig(path, pin string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	if pin != "" {
		cfg.Pin = pin
	}

	if err = logger.Configure(cfg.LogLevel); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newDriver maps the configured driver name onto an implementation.
//
//nolint:ireturn // Callers only need the Driver contract.
func newDriver(name, pin string) hardware.Driver {
	if name == config.DriverSimulated {
		return hardware.NewSimulated(pin)
	}

	return hardware.NewPeriph()
}
