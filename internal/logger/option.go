package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// fixedLevelCore replaces the level check of the wrapped core, so a derived
// logger can be more verbose than the global one.
type fixedLevelCore struct {
	zapcore.Core

	// minLevel is the lowest level written through this core.
	minLevel zapcore.Level
}

// Enabled ignores the wrapped core's level.
func (c *fixedLevelCore) Enabled(l zapcore.Level) bool {
	return c.minLevel.Enabled(l)
}

// Check registers c itself so Write bypasses the wrapped core's level check.
//
//nolint:gocritic // AddCore requires ent to be passed by value.
func (c *fixedLevelCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(ent.Level) {
		return ce
	}

	return ce.AddCore(ent, c)
}

// With keeps the fixed level on child cores.
//
//nolint:ireturn,nolintlint // zapcore.Core is the zap contract.
func (c *fixedLevelCore) With(fields []zapcore.Field) zapcore.Core {
	return &fixedLevelCore{
		Core:     c.Core.With(fields),
		minLevel: c.minLevel,
	}
}

// WithLevel pins a derived logger to lvl regardless of the global level,
// e.g. debug output for a single pin read.
//
//nolint:ireturn,nolintlint // zap.Option is the zap contract.
func WithLevel(lvl zapcore.Level) zap.Option {
	return zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &fixedLevelCore{Core: core, minLevel: lvl}
	})
}
