// Package logging holds the process-wide diagnostic logger. Components log
// single-line notices through it fire-and-forget; until Init is called every
// message is dropped, which keeps library use quiet by default.
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

var logger = zap.NewNop().Sugar()

// Init configures the process logger. When logFile is non-empty, output goes
// there instead of stderr. verbose selects human-oriented development
// output.
func Init(logFile string, verbose bool) error {
	var cfg zap.Config
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	if logFile != "" {
		cfg.OutputPaths = []string{logFile}
		cfg.ErrorOutputPaths = []string{logFile}
	}

	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	logger = l.Sugar()
	return nil
}

// L returns the process logger.
func L() *zap.SugaredLogger {
	return logger
}

// Sync flushes buffered log entries; call before process exit.
func Sync() {
	_ = logger.Sync()
}
