// Package logger wraps zap for the power-alert daemon: one console logger on
// stderr whose level follows the log_level setting, and context helpers that
// carry named, field-scoped loggers down the call chain.
package logger
