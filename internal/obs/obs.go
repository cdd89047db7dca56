// Package obs centralizes the zap logger plumbing shared by the scheduler,
// algorithm, and cnc packages.
//
// Nothing in this package is on the critical path of a cost evaluation: the
// scheduler logs only on its clear-and-retry path, at Debug, which reduces
// to a no-op level check when the configured level excludes it. Callers that don't care
// about logging get a no-op logger (zap.NewNop()) rather than a forced
// stdout sink.
package obs

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.SugaredLogger at the given level. level accepts the
// standard zapcore level names ("debug", "info", "warn", "error"); an
// unrecognized name falls back to "warn".
func New(level string) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		cfg.Level.SetLevel(zapcore.WarnLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		// Config.Build only fails on a malformed encoder/sink config, which
		// zap.NewProductionConfig never produces.
		return zap.NewNop().Sugar()
	}

	return logger.Sugar()
}

// Nop returns a logger that discards everything, for callers that don't
// want scheduler/algorithm diagnostics.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
