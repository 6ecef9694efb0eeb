package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"callspool/internal/blobstore"
	"callspool/internal/ledger"
	"callspool/internal/logging"
	"callspool/internal/notifications"
)

// Result aggregates one detector pass.
type Result struct {
	Scanned  int
	Flagged  int
	Details  []string
	Duration time.Duration
}

// Summary renders the pass as a human-readable line.
func (r Result) Summary() string {
	return fmt.Sprintf("audit: scanned %d, flagged %d in %s", r.Scanned, r.Flagged, r.Duration.Round(time.Millisecond))
}

// Detector finds transcripts that completed as SUCCESS but carry a known
// failure signature, flags their rows, and quarantines their blobs.
type Detector struct {
	store    *ledger.Store
	blobs    blobstore.Store
	notifier notifications.Service
	logger   *slog.Logger

	now func() time.Time
}

// NewDetector wires a detector from its collaborators.
func NewDetector(store *ledger.Store, blobs blobstore.Store, notifier notifications.Service, logger *slog.Logger) *Detector {
	return &Detector{
		store:    store,
		blobs:    blobs,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "audit"),
		now:      time.Now,
	}
}

// Run scans every SUCCESS row once. Flagged rows move to ERROR_DETECTED and
// their blobs to the error location, so a second run over the same data is a
// no-op. One notification is sent per pass when anything was flagged.
func (d *Detector) Run(ctx context.Context) (Result, error) {
	started := d.now()
	result := Result{}

	rows, err := d.store.ByTranscriptionStatus(ctx, ledger.TranscriptionSuccess)
	if err != nil {
		return result, fmt.Errorf("audit scan: %w", err)
	}

	for _, row := range rows {
		result.Scanned++
		logger := d.logger.With(logging.String(logging.FieldRecordID, row.RecordID))

		record, err := d.store.GetCallRecord(ctx, row.RecordID)
		if err != nil {
			result.Details = append(result.Details, fmt.Sprintf("%s: load transcript: %v", row.RecordID, err))
			logger.Warn("failed to load transcript", logging.Error(err))
			continue
		}
		if record == nil {
			continue
		}

		issue, ok := Match(record.FullTranscript)
		if !ok {
			continue
		}

		if err := d.store.SetTranscriptionStatus(ctx, row.RecordID, ledger.TranscriptionErrorDetected); err != nil {
			result.Details = append(result.Details, fmt.Sprintf("%s: flag row: %v", row.RecordID, err))
			logger.Error("failed to flag row", logging.Error(err))
			continue
		}
		result.Flagged++

		detail := fmt.Sprintf("%s: %s", row.RecordID, issue)
		if blobDetail := d.quarantineBlob(row.RecordID, logger); blobDetail != "" {
			detail += " (" + blobDetail + ")"
		}
		result.Details = append(result.Details, detail)
		logger.Warn("partial transcription failure detected", logging.String("issue", issue))
	}

	result.Duration = d.now().Sub(started)
	if result.Flagged > 0 && d.notifier != nil {
		if err := d.notifier.NotifyAuditFindings(ctx, result.Flagged, result.Details); err != nil {
			d.logger.Warn("failed to send audit notification", logging.Error(err))
		}
	}
	d.logger.Info("audit pass finished", logging.String("summary", result.Summary()))
	return result, nil
}

// quarantineBlob moves the recording's blob to the error location. A missing
// blob is reported but never blocks the status fix.
func (d *Detector) quarantineBlob(recordID string, logger *slog.Logger) string {
	blob, err := d.blobs.FindByRecordingID(recordID,
		blobstore.LocationSource, blobstore.LocationProcessing, blobstore.LocationCompleted)
	if err != nil {
		logger.Warn("blob search failed", logging.Error(err))
		return "blob search failed"
	}
	if blob == nil {
		return "blob not found"
	}
	if err := d.blobs.MoveWithFallback(blob.Name, blob.Location, blobstore.LocationError, ""); err != nil {
		logger.Warn("failed to quarantine blob",
			logging.String("blob", blob.Name),
			logging.Error(err))
		return "blob move failed"
	}
	return "blob moved to error"
}
