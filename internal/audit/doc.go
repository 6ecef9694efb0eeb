// Package audit detects partial transcription failures: transcripts marked
// SUCCESS whose text contains a known failure signature from the extraction
// model. Flagged rows become ERROR_DETECTED and their blobs are quarantined
// for the recovery orchestrator to re-queue.
package audit
