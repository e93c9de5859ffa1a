package notify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/oshokin/power-alert/internal/config"
	"github.com/oshokin/power-alert/internal/domain/alert"
	"github.com/oshokin/power-alert/internal/repository/event"
)

// Notifier announces confirmed alerts.
type Notifier interface {
	Notify(ctx context.Context, ev *alert.Event) error
	Close()
}

// Noop discards notifications.
type Noop struct{}

// Notify does nothing.
func (Noop) Notify(context.Context, *alert.Event) error { return nil }

// Close does nothing.
func (Noop) Close() {}

const (
	// qosAtLeastOnce is MQTT QoS 1.
	qosAtLeastOnce byte = 1
	// disconnectQuiesce is how long Disconnect waits for in-flight work, in milliseconds.
	disconnectQuiesce uint = 250
	// clientIDPrefix prefixes the hostname when no client ID is configured.
	clientIDPrefix = "power-alert-"
)

// errTimeout is returned when the broker does not acknowledge in time.
var errTimeout = errors.New("mqtt operation timed out")

// MQTT publishes alert events to a broker topic. Messages are retained so a
// dashboard subscribing later still sees the last alert of each host.
type MQTT struct {
	// client is the connected paho client.
	client mqtt.Client
	// topic receives the events.
	topic string
	// timeout bounds every publish.
	timeout time.Duration
}

// NewMQTT wraps an already connected client.
func NewMQTT(client mqtt.Client, topic string, timeout time.Duration) *MQTT {
	return &MQTT{
		client:  client,
		topic:   topic,
		timeout: timeout,
	}
}

// Dial connects to the configured broker.
func Dial(settings config.MQTT) (*MQTT, error) {
	clientID := settings.ClientID
	if clientID == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("hostname: %w", err)
		}

		clientID = clientIDPrefix + hostname
	}

	options := mqtt.NewClientOptions().
		AddBroker(settings.Broker).
		SetClientID(clientID).
		SetConnectTimeout(settings.Timeout).
		SetAutoReconnect(true)

	return connect(mqtt.NewClient(options), settings)
}

// connect waits for the broker. A client that failed to connect is
// disconnected so its connect and reconnect goroutines stop.
func connect(client mqtt.Client, settings config.MQTT) (*MQTT, error) {
	if err := wait(client.Connect(), settings.Timeout); err != nil {
		client.Disconnect(disconnectQuiesce)

		return nil, fmt.Errorf("connect to mqtt broker %s: %w", settings.Broker, err)
	}

	return NewMQTT(client, settings.Topic, settings.Timeout), nil
}

// Notify publishes the event and waits for the broker acknowledgement.
func (m *MQTT) Notify(ctx context.Context, ev *alert.Event) error {
	payload, err := event.Marshal(ev)
	if err != nil {
		return err
	}

	timeout := m.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}

	if err = wait(m.client.Publish(m.topic, qosAtLeastOnce, true, payload), timeout); err != nil {
		return fmt.Errorf("publish to %s: %w", m.topic, err)
	}

	return nil
}

// Close disconnects from the broker.
func (m *MQTT) Close() {
	m.client.Disconnect(disconnectQuiesce)
}

// wait blocks on a paho token for at most timeout.
func wait(token mqtt.Token, timeout time.Duration) error {
	if !token.WaitTimeout(timeout) {
		return errTimeout
	}

	return token.Error()
}
