// Package notify announces a confirmed power-loss alert before the host halts.
//
// MQTT publishes the encoded event to a broker through Eclipse Paho; Noop is
// used when no broker is configured. Publication is best effort and bounded
// by a timeout so it never holds back the shutdown for long.
package notify
