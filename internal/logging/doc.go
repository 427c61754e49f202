// Package logging assembles structured slog loggers and formatting helpers used
// across hrmq components.
//
// It owns the console/JSON handlers, centralizes level and output plumbing, and
// exposes attribute helpers so the queue engine and the upload ingestor tag log
// lines with job IDs, owners, and event types in one consistent shape. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
//
// Loggers are built once by the composition root (the CLI) and injected into
// components; nothing in this package holds process-wide state.
package logging
