// Package config loads, normalizes, and validates the TOML configuration
// for callspool. Secrets may be overridden through environment variables so
// they never need to live in the config file.
package config
