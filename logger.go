// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package lumen

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active package logger.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger used by lumen and by the devices of all
// live contexts. By default lumen produces no log output.
//
// Pass nil to restore the silent default. A Context created with
// [WithLogger] keeps its own logger.
//
// Log levels used by lumen:
//   - [slog.LevelDebug]: resource creation and release, pipeline begin/end
//   - [slog.LevelWarn]: inactive uniforms, releases deferred past a pipeline
//   - [slog.LevelError]: device loss
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	claimedMu.Lock()
	devices := make([]Device, 0, len(claimed))
	for dev, c := range claimed {
		if c.opts.logger == nil {
			devices = append(devices, dev)
		}
	}
	claimedMu.Unlock()
	for _, dev := range devices {
		propagateLogger(dev, l)
	}
}

// Logger returns the current package logger. Backends call this to share
// the same configuration.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by devices that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

func propagateLogger(dev Device, l *slog.Logger) {
	if ls, ok := dev.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}
