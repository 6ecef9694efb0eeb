// Package logging builds the slog loggers used across callspool and defines
// the shared attribute helpers and field keys that keep log output uniform
// between the console and JSON handlers.
package logging
