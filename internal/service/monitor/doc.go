// Package monitor implements the power-loss alert monitor.
//
// A Handle owns the claimed alert pin. ConfirmAlert samples it a fixed number
// of times at a fixed interval and gives up at the first low reading;
// WaitForRisingEdge blocks until the line goes high again. Monitor.Watch runs
// the edge-triggered debounce loop and, once an alert is confirmed, records
// it, announces it, releases the pin and halts the host exactly once.
package monitor
