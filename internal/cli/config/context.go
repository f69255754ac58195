package config

import (
	"context"
	"log/slog"
)

var currentConfig *Config

// GetCurrentConfig returns the configuration loaded by the most recent
// LoadConfig call, or nil when none has been loaded yet.
func GetCurrentConfig() *Config {
	return currentConfig
}

// loggerKey is the context key for the CLI logger.
type loggerKey struct{}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
