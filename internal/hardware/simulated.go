package hardware

import (
	"context"
	"sync"
)

// Simulated is an in-memory driver. Pins must be registered up front; opening
// an unknown or already claimed pin fails the same way real hardware would.
type Simulated struct {
	mu   sync.Mutex
	pins map[string]*SimulatedPin
}

// NewSimulated returns a driver with the named pins registered, all low.
func NewSimulated(names ...string) *Simulated {
	s := &Simulated{
		pins: make(map[string]*SimulatedPin, len(names)),
	}

	for _, name := range names {
		s.pins[name] = &SimulatedPin{
			name:  name,
			edges: make(chan struct{}, 1),
		}
	}

	return s
}

// Pin returns the registered pin for scripting, or nil.
func (s *Simulated) Pin(name string) *SimulatedPin {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pins[name]
}

// Open claims a registered pin.
//
//nolint:ireturn // Driver contract returns the Pin interface.
func (s *Simulated) Open(name string) (Pin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pins[name]
	if !ok {
		return nil, ErrPinNotFound
	}

	if err := p.claim(); err != nil {
		return nil, err
	}

	return p, nil
}

// SimulatedPin is a scripted digital input.
type SimulatedPin struct {
	mu      sync.Mutex
	name    string
	level   Level
	script  []Level
	reads   int
	claimed bool
	edges   chan struct{}
}

// Script queues readings returned by subsequent Read calls. Once the queue is
// empty the last level keeps being returned.
func (p *SimulatedPin) Script(levels ...Level) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.script = append(p.script, levels...)
}

// Set forces the level and signals a rising edge on a low-to-high change.
func (p *SimulatedPin) Set(level Level) {
	p.mu.Lock()
	rising := p.level == Low && level == High
	p.level = level
	p.mu.Unlock()

	if rising {
		p.Rise()
	}
}

// Rise signals a rising edge without touching the scripted levels.
// At most one pending edge is kept, like a hardware edge latch.
func (p *SimulatedPin) Rise() {
	select {
	case p.edges <- struct{}{}:
	default:
	}
}

// Reads returns how many times the pin was read.
func (p *SimulatedPin) Reads() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.reads
}

// Claimed reports whether a driver currently holds the pin.
func (p *SimulatedPin) Claimed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.claimed
}

// Name returns the pin name.
func (p *SimulatedPin) Name() string {
	return p.name
}

// Read pops the next scripted level, or repeats the current one.
func (p *SimulatedPin) Read() Level {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.script) > 0 {
		p.level = p.script[0]
		p.script = p.script[1:]
	}

	p.reads++

	return p.level
}

// WaitForRisingEdge blocks until Rise or a low-to-high Set.
func (p *SimulatedPin) WaitForRisingEdge(ctx context.Context) error {
	select {
	case <-p.edges:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Halt releases the claim.
func (p *SimulatedPin) Halt() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.claimed = false

	return nil
}

// claim marks the pin as owned.
func (p *SimulatedPin) claim() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.claimed {
		return ErrPinBusy
	}

	p.claimed = true

	return nil
}
