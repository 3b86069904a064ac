// Package logging builds the slog loggers used across the daemon and CLI.
//
// It provides attribute helper constructors so call sites stay terse, a no-op
// logger for tests and optional dependencies, and a shared level var so the
// debug-logging setting can be flipped at runtime without rebuilding handlers.
package logging
