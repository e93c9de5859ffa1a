// Package hardware abstracts the single digital input the monitor watches.
//
// Driver claims a pin by name and returns a Pin that can be read, waited on
// for a rising edge and halted. Periph talks to real GPIO through periph.io;
// Simulated keeps levels in memory so the daemon can run on a desktop and so
// tests can script exact sample sequences.
package hardware
