// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rp

import (
	"log/slog"

	"github.com/gogpu/rp/internal/logging"
)

// SetLogger configures the logger for rp and all its sub-packages.
// By default, rp produces no log output. Call SetLogger to enable logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by rp:
//   - [slog.LevelDebug]: internal diagnostics (graph wiring, shader cache)
//   - [slog.LevelInfo]: important lifecycle events (setup, plugin activation)
//   - [slog.LevelWarn]: non-fatal issues (disabled stages, redefined defines)
//
// Example:
//
//	// Enable info-level logging to stderr:
//	rp.SetLogger(slog.Default())
//
//	// Enable debug-level logging for full diagnostics:
//	rp.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	logging.Set(l)
}

// Logger returns the current logger used by rp.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return logging.Logger()
}
