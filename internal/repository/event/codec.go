package event

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/power-alert/internal/domain/alert"
)

// Field names of the encoded event.
const (
	fieldTimestamp     = "timestamp"
	fieldPin           = "pin"
	fieldSamples       = "samples"
	fieldInterval      = "interval"
	fieldActor         = "actor"
	fieldHostname      = "hostname"
	fieldUsername      = "username"
	fieldDryRun        = "dry_run"
	fieldShutdownError = "shutdown_error"
)

// Marshal encodes the event as protobuf JSON.
func Marshal(ev *alert.Event) ([]byte, error) {
	fields := map[string]any{
		fieldPin:           ev.Pin,
		fieldSamples:       ev.Samples,
		fieldInterval:      ev.Interval.String(),
		fieldDryRun:        ev.DryRun,
		fieldShutdownError: ev.ShutdownError,
	}

	if !ev.Timestamp.IsZero() {
		fields[fieldTimestamp] = ev.Timestamp.UTC().Format(time.RFC3339Nano)
	}

	if ev.Actor != nil {
		fields[fieldActor] = map[string]any{
			fieldHostname: ev.Actor.Hostname,
			fieldUsername: ev.Actor.Username,
		}
	}

	message, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build event message: %w", err)
	}

	marshalOptions := protojson.MarshalOptions{
		Multiline:       true,
		EmitUnpopulated: true,
	}

	data, err := marshalOptions.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}

	return data, nil
}

// Unmarshal decodes an event produced by Marshal.
func Unmarshal(data []byte) (*alert.Event, error) {
	var message structpb.Struct
	if err := protojson.Unmarshal(data, &message); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}

	fields := message.GetFields()

	ev := &alert.Event{
		Pin:           fields[fieldPin].GetStringValue(),
		Samples:       int(fields[fieldSamples].GetNumberValue()),
		DryRun:        fields[fieldDryRun].GetBoolValue(),
		ShutdownError: fields[fieldShutdownError].GetStringValue(),
	}

	if raw := fields[fieldTimestamp].GetStringValue(); raw != "" {
		timestamp, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("decode event timestamp: %w", err)
		}

		ev.Timestamp = timestamp
	}

	if raw := fields[fieldInterval].GetStringValue(); raw != "" {
		interval, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("decode event interval: %w", err)
		}

		ev.Interval = interval
	}

	if actor := fields[fieldActor].GetStructValue(); actor != nil {
		ev.Actor = &alert.Actor{
			Hostname: actor.GetFields()[fieldHostname].GetStringValue(),
			Username: actor.GetFields()[fieldUsername].GetStringValue(),
		}
	}

	return ev, nil
}
