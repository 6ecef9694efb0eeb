// Package ledger is the SQLite-backed system of record: one row per call
// recording tracking fetch and transcription state, the transcript rows
// written by the extraction pipeline, and the lease slots that guard the
// scheduled entry points against overlapping invocations.
//
// Recording rows are never deleted by this core; they form the audit trail.
// Accessors return nil, nil for absent rows so callers never branch on
// sentinel errors for the expected-absence case.
package ledger
