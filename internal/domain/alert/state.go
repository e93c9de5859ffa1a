package alert

import "time"

// State is the outcome of one debounce window.
type State struct {
	// RawLevel is the most recent instantaneous reading (true = high).
	RawLevel bool
	// Confirmed is true only if every sample in the window read high.
	Confirmed bool
	// Samples is how many readings were taken before the window ended.
	Samples int
}

// Observe folds one reading into the window and reports whether sampling should continue.
// A low reading resets confirmation immediately.
func (s *State) Observe(high bool, required int) bool {
	s.RawLevel = high
	s.Samples++

	if !high {
		s.Confirmed = false

		return false
	}

	s.Confirmed = s.Samples >= required

	return !s.Confirmed
}

// Actor identifies the host and account the monitor runs as.
type Actor struct {
	// Hostname is the machine name where the monitor runs.
	Hostname string
	// Username is the system user owning the monitor process.
	Username string
}

// Clone returns a deep copy of the actor.
func (a *Actor) Clone() *Actor {
	if a == nil {
		return nil
	}

	cloned := *a

	return &cloned
}

// Event records a confirmed power-loss alert.
type Event struct {
	// Timestamp is when the alert was confirmed.
	Timestamp time.Time
	// Pin is the name of the alert pin.
	Pin string
	// Samples is the number of high samples that confirmed the alert.
	Samples int
	// Interval is the delay between samples.
	Interval time.Duration
	// Actor is the host and user the monitor ran as.
	Actor *Actor
	// DryRun is true when the shutdown was only logged.
	DryRun bool
	// ShutdownError holds the shutdown failure text, empty on success.
	ShutdownError string
}

// Clone returns a copy of the event to avoid leaking internal references.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}

	cloned := *e
	cloned.Actor = e.Actor.Clone()

	return &cloned
}
