// Package logging assembles the structured slog loggers used across
// jellymigrate.
//
// It owns the console and JSON handlers, level parsing and output plumbing,
// and exposes context helpers so migration code tags log lines with the run
// identifier and operation automatically. A no-op logger is provided for tests
// and wiring code that cannot fail.
package logging
