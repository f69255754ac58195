// Package testutil holds shared helpers for package tests.
package testutil

import (
	"log/slog"
	"strings"
	"testing"
)

// NewTestLogger returns a debug-level slog logger routed through t.Log,
// so pipeline output shows up with -v and on failures.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(tbWriter{tb: t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type tbWriter struct {
	tb testing.TB
}

func (w tbWriter) Write(p []byte) (int, error) {
	w.tb.Helper()
	w.tb.Log(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}
