// Package gclog provides the structured logger shared by the collector,
// the scheduler and the timer thread. It wraps go.uber.org/zap rather
// than the standard library's log package: the retrieval pack's server
// and infra repositories (perkeep, the NVIDIA device plugin, the
// Voskan-arena cache, jra3's system-agent) all reach for zap, so this
// module follows the ecosystem convention instead of the teacher's own
// stdlib log.Logger.
package gclog

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the sugared logger type passed into every long-lived
// component constructor (ObjectSpace, Sched, the timer thread).
type Logger = *zap.SugaredLogger

// New builds a production logger at the given level ("debug", "info",
// "warn", "error"). An empty level defaults to "info".
func New(level string) Logger {
	lvl := zapcore.InfoLevel
	if level != "" {
		_ = lvl.Set(level)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	logger, err := cfg.Build()
	if err != nil {
		// Logger construction failing means stderr itself is broken;
		// fall back to a bare core rather than aborting the process.
		logger = zap.New(zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.AddSync(os.Stderr),
			lvl,
		))
	}
	return logger.Sugar()
}

// Nop returns a logger that discards everything, for tests and for
// components built without explicit logging configured.
func Nop() Logger { return zap.NewNop().Sugar() }
