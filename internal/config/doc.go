// Package config defines the power-alert settings and provides helpers to
// load, validate and save them in YAML format.
//
// Every field has a default, so a missing settings file is not an error: the
// daemon then watches GPIO15 (header pin 10) and halts with
// /sbin/shutdown -h now after ten high samples taken 100ms apart.
package config
