package hardware

import (
	"context"
	"errors"
)

// Level is the logic level of a digital input.
type Level bool

const (
	// Low is logic 0.
	Low Level = false
	// High is logic 1.
	High Level = true
)

// String implements fmt.Stringer.
func (l Level) String() string {
	if l {
		return "high"
	}

	return "low"
}

// Pin is a claimed digital input.
type Pin interface {
	// Name returns the registry name of the pin.
	Name() string
	// Read returns the instantaneous level.
	Read() Level
	// WaitForRisingEdge blocks until a low-to-high transition or until ctx is done.
	// Callers wait only after reading low; a polling implementation may treat a
	// high level as the edge.
	WaitForRisingEdge(ctx context.Context) error
	// Halt stops edge detection and releases the pin.
	Halt() error
}

// Driver claims pins by name.
type Driver interface {
	Open(name string) (Pin, error)
}

var (
	// ErrPinNotFound is returned when the driver does not know the pin name.
	ErrPinNotFound = errors.New("pin not found")
	// ErrPinBusy is returned when the pin is already claimed.
	ErrPinBusy = errors.New("pin already in use")
)
