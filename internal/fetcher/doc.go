// Package fetcher ingests provider recordings into the blob spool and the
// ledger. It supports window-driven fetches with continuation checkpoints,
// ledger-driven reprocessing of pending rows, and the single-recording path
// used by the inbound webhook.
package fetcher
