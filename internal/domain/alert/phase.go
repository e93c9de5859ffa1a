package alert

// Phase is the lifecycle stage of the monitor.
type Phase string

const (
	// PhaseStarting covers configuration and pin initialization.
	PhaseStarting Phase = "starting"
	// PhaseWatching means the monitor is blocked waiting for a rising edge.
	PhaseWatching Phase = "watching"
	// PhaseConfirming means a debounce window is being sampled.
	PhaseConfirming Phase = "confirming"
	// PhaseShuttingDown means the alert was confirmed and shutdown was invoked.
	PhaseShuttingDown Phase = "shutting_down"
	// PhaseStopped means the monitor exited without shutting down.
	PhaseStopped Phase = "stopped"
)

// Healthy reports whether the monitor is actively guarding the pin.
func (p Phase) Healthy() bool {
	return p == PhaseWatching || p == PhaseConfirming
}

// String implements fmt.Stringer.
func (p Phase) String() string {
	return string(p)
}
