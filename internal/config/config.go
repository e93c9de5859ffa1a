package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the power-alert daemon.
type Config struct {
	// Pin is the GPIO name as known to the periph registry (e.g. "GPIO15").
	Pin string `yaml:"pin"`
	// Driver selects the pin backend: "periph" for real hardware or "simulated".
	Driver string `yaml:"driver"`
	// Debounce controls how the alert line is confirmed.
	Debounce Debounce `yaml:"debounce"`
	// Shutdown describes the command run once the alert is confirmed.
	Shutdown Shutdown `yaml:"shutdown"`
	// EventFile is where the last confirmed alert is recorded.
	EventFile string `yaml:"event_file"`
	// LogLevel is the minimum zap level name ("debug", "info", ...).
	LogLevel string `yaml:"log_level"`
	// HealthAddress enables the gRPC health endpoint when not empty.
	HealthAddress string `yaml:"health_addr"`
	// MQTT configures the optional alert notification.
	MQTT MQTT `yaml:"mqtt"`
}

// Debounce holds the sampling window parameters.
type Debounce struct {
	// Samples is the number of consecutive high readings required.
	Samples int `yaml:"samples"`
	// Interval is the delay before each sample.
	Interval time.Duration `yaml:"interval"`
}

// Window returns the total time a sustained alert needs to be confirmed.
func (d Debounce) Window() time.Duration {
	return time.Duration(d.Samples) * d.Interval
}

// Shutdown holds the OS shutdown invocation.
type Shutdown struct {
	// Command is the absolute executable path followed by its arguments.
	Command []string `yaml:"command"`
	// Timeout bounds how long the command may run before it is reported as failed.
	Timeout time.Duration `yaml:"timeout"`
}

// MQTT holds the broker settings used to announce a confirmed alert.
type MQTT struct {
	// Broker is the broker URL such as tcp://broker.local:1883. Empty disables MQTT.
	Broker string `yaml:"broker"`
	// Topic is where alert events are published.
	Topic string `yaml:"topic"`
	// ClientID is the MQTT client identifier; derived from the hostname when empty.
	ClientID string `yaml:"client_id"`
	// Timeout bounds connecting and publishing.
	Timeout time.Duration `yaml:"timeout"`
}

// Enabled reports whether a broker is configured.
func (m MQTT) Enabled() bool {
	return m.Broker != ""
}

const (
	// DefaultConfigFilename is the default filename for daemon settings.
	DefaultConfigFilename = "power-alert.yaml"

	// DefaultEventFilename is the default filename for the last alert record.
	DefaultEventFilename = "power-alert-event.json"

	// DefaultPin is BCM GPIO15, which sits on physical header pin 10.
	DefaultPin = "GPIO15"

	// DriverPeriph reads a real GPIO through periph.io.
	DriverPeriph = "periph"
	// DriverSimulated uses an in-memory pin that never raises an alert on its own.
	DriverSimulated = "simulated"

	// DefaultSamples is the number of consecutive high samples that confirm an alert.
	DefaultSamples = 10
	// DefaultSampleInterval is the delay before each debounce sample.
	DefaultSampleInterval = 100 * time.Millisecond

	// DefaultShutdownTimeout bounds the shutdown command.
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultMQTTTopic is the topic alerts are published to.
	DefaultMQTTTopic = "power-alert/events"
	// DefaultMQTTTimeout bounds MQTT connect and publish.
	DefaultMQTTTimeout = 5 * time.Second

	// DefaultFilePermissions is the default file permission for config and event files.
	DefaultFilePermissions = 0o600
)

// DefaultShutdownCommand returns the hardened halt command with an absolute path.
func DefaultShutdownCommand() []string {
	return []string{"/sbin/shutdown", "-h", "now"}
}

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errUnknownDriver is returned for driver names other than periph and simulated.
	errUnknownDriver = errors.New("unknown pin driver")
	// errCommandRequired is returned when the shutdown command is empty.
	errCommandRequired = errors.New("shutdown command must be provided")
	// errCommandNotAbsolute is returned when the shutdown executable is not an absolute path.
	errCommandNotAbsolute = errors.New("shutdown executable must be an absolute path")
)

// Default returns the configuration used when no settings file exists.
func Default() *Config {
	cfg := new(Config)

	// Validate only fills defaults on an empty Config, it cannot fail.
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates it.
// A missing file yields the defaults: the daemon is expected to work unconfigured.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills unset fields with defaults and checks the rest for consistency.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.Pin == "" {
		settings.Pin = DefaultPin
	}

	switch settings.Driver {
	case "":
		settings.Driver = DriverPeriph
	case DriverPeriph, DriverSimulated:
	default:
		return fmt.Errorf("%w: %q", errUnknownDriver, settings.Driver)
	}

	if settings.Debounce.Samples <= 0 {
		settings.Debounce.Samples = DefaultSamples
	}

	if settings.Debounce.Interval <= 0 {
		settings.Debounce.Interval = DefaultSampleInterval
	}

	if err := validateShutdown(&settings.Shutdown); err != nil {
		return err
	}

	if settings.EventFile == "" {
		settings.EventFile = DefaultEventFilename
	}

	if settings.HealthAddress != "" {
		if _, err := net.ResolveTCPAddr("tcp", settings.HealthAddress); err != nil {
			return fmt.Errorf("invalid health address: %w", err)
		}
	}

	return validateMQTT(&settings.MQTT)
}

// validateShutdown applies the default command and rejects relative executables.
func validateShutdown(shutdown *Shutdown) error {
	if shutdown.Command == nil {
		shutdown.Command = DefaultShutdownCommand()
	}

	if len(shutdown.Command) == 0 || shutdown.Command[0] == "" {
		return errCommandRequired
	}

	if !filepath.IsAbs(shutdown.Command[0]) {
		return fmt.Errorf("%w: %q", errCommandNotAbsolute, shutdown.Command[0])
	}

	if shutdown.Timeout <= 0 {
		shutdown.Timeout = DefaultShutdownTimeout
	}

	return nil
}

// validateMQTT checks the broker URL when MQTT is enabled.
func validateMQTT(settings *MQTT) error {
	if settings.Topic == "" {
		settings.Topic = DefaultMQTTTopic
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultMQTTTimeout
	}

	if !settings.Enabled() {
		return nil
	}

	if _, err := url.ParseRequestURI(settings.Broker); err != nil {
		return fmt.Errorf("invalid mqtt broker URI: %w", err)
	}

	return nil
}
