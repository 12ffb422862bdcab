// Package logging builds the zap loggers used across farescout.
// Every component receives a named child of one root logger so log
// lines can be traced back to the proxy pool, the browser session,
// the login flow and so on.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zapcore"
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = "info"

// New creates the root logger for the given component at the given
// level ("debug", "info", "warn", "error"). Output is a console
// encoder on stderr so anything the process writes to stdout stays
// clean for piping.
func New(component, level string) (*zap.Logger, error) {
	if level == "" {
		level = DefaultLevel
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.DisableStacktrace = true

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return logger.Named(component), nil
}
