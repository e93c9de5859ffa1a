// Package event persists the record of the last confirmed power-loss alert.
//
// The FileRepository stores the event as protobuf JSON on disk so that after
// the host comes back up an operator (or the next monitor start) can see why
// it halted and whether the shutdown command reported a failure. Marshal and
// Unmarshal expose the same encoding for other transports.
package event
