// Package provider implements the telephony provider's recording API client.
//
// Listing and download calls retry with exponential backoff on transport
// errors and 5xx responses; 4xx responses fail immediately. Callers classify
// download failures at the call site rather than treating them as fatal.
package provider
