package hardware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

const (
	// edgeWaitSlice bounds one WaitForEdge call so cancellation is noticed.
	edgeWaitSlice = 500 * time.Millisecond
	// levelPollInterval is used when the pin driver cannot report edges.
	levelPollInterval = 10 * time.Millisecond
)

// Periph claims real GPIO pins through periph.io. Pins are addressed by their
// registry names, e.g. "GPIO15" or plain BCM numbers such as "15".
type Periph struct{}

// NewPeriph returns a driver backed by the periph host registry.
func NewPeriph() *Periph {
	return new(Periph)
}

// Open initialises the host drivers once and configures the pin as a pulled-down
// input with rising-edge detection. No other pin is touched.
//
//nolint:ireturn // Driver contract returns the Pin interface.
func (*Periph) Open(name string) (Pin, error) {
	// host.Init is idempotent; subsequent calls are no-ops.
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("initialise host drivers: %w", err)
	}

	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrPinNotFound, name)
	}

	if err := p.In(gpio.PullDown, gpio.RisingEdge); err != nil {
		return nil, fmt.Errorf("configure %s as input: %w", name, err)
	}

	return &periphPin{pin: p}, nil
}

// periphPin adapts a periph gpio.PinIO to Pin.
type periphPin struct {
	pin gpio.PinIO
}

// Name returns the periph pin name.
func (p *periphPin) Name() string {
	return p.pin.Name()
}

// Read returns the current level.
func (p *periphPin) Read() Level {
	return p.pin.Read() == gpio.High
}

// WaitForRisingEdge waits in bounded slices so ctx can interrupt it; there is
// no overall timeout. If the driver reports no edge support (WaitForEdge
// returns immediately) it falls back to level polling.
func (p *periphPin) WaitForRisingEdge(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		started := time.Now()
		if p.pin.WaitForEdge(edgeWaitSlice) {
			return nil
		}

		if time.Since(started) < edgeWaitSlice/2 {
			return p.pollForRisingEdge(ctx)
		}
	}
}

// pollForRisingEdge samples the level until it reads high. The caller has
// just read low, so a rise that happened before polling started still counts.
func (p *periphPin) pollForRisingEdge(ctx context.Context) error {
	ticker := time.NewTicker(levelPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if p.Read() == High {
				return nil
			}
		}
	}
}

// Halt disables edge detection and halts the pin.
func (p *periphPin) Halt() error {
	return errors.Join(
		p.pin.In(gpio.PullNoChange, gpio.NoEdge),
		p.pin.Halt(),
	)
}
