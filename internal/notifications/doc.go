// Package notifications delivers operator mail for recovery and audit runs.
// SMTP is optional; without it the service degrades to a noop so callers never
// branch on configuration.
package notifications
