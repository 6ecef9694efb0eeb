// Package webhook serves the provider's inbound push interface: the
// HMAC-SHA256 endpoint-validation handshake and recording-completed events,
// which feed the same single-recording ingestion path the fetcher uses.
package webhook
