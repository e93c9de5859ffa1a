// Package alert contains the core domain types of the power-loss monitor.
//
// State is the debounce result for one sampling window, Event records a
// confirmed alert and the shutdown that followed, and Phase describes where
// the monitor is in its lifecycle.
package alert
