package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"callspool/internal/audit"
	"callspool/internal/blobstore"
	"callspool/internal/config"
	"callspool/internal/ledger"
	"callspool/internal/logging"
	"callspool/internal/notifications"
)

// Result aggregates one recovery operation. Per-item failures are recorded in
// Details and counted; they never abort the scan.
type Result struct {
	Total     int
	Recovered int
	Failed    int
	Details   []string
	Duration  time.Duration
}

func (r *Result) recovered(detail string) {
	r.Recovered++
	r.Details = append(r.Details, detail)
}

func (r *Result) failed(detail string) {
	r.Failed++
	r.Details = append(r.Details, detail)
}

// Summary renders the result as a human-readable line with counts and
// duration.
func (r Result) Summary(operation string) string {
	return fmt.Sprintf("%s: total %d, recovered %d, failed %d in %s",
		operation, r.Total, r.Recovered, r.Failed, r.Duration.Round(time.Millisecond))
}

// Outcome is the combined result of a full recovery run.
type Outcome struct {
	OK      bool
	Message string
}

// Orchestrator drives the drift-repair operations: interrupted items, errored
// items with a bounded retry, stale pending rows, and forced re-queues.
type Orchestrator struct {
	cfg      *config.Config
	store    *ledger.Store
	blobs    blobstore.Store
	detector *audit.Detector
	notifier notifications.Service
	logger   *slog.Logger

	now func() time.Time
}

// New wires an orchestrator from its collaborators. The detector may be nil
// when the caller only uses individual operations.
func New(
	cfg *config.Config,
	store *ledger.Store,
	blobs blobstore.Store,
	detector *audit.Detector,
	notifier notifications.Service,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		store:    store,
		blobs:    blobs,
		detector: detector,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "recovery"),
		now:      time.Now,
	}
}

// RecoverInterrupted moves blobs stuck in processing back to source and
// resets their rows to transcription PENDING. Rows already flagged
// INTERRUPTED are unioned into the candidate set even when no file remains.
func (o *Orchestrator) RecoverInterrupted(ctx context.Context) (Result, error) {
	started := o.now()
	result := Result{}

	blobs, err := o.blobs.List(blobstore.LocationProcessing)
	if err != nil {
		return result, fmt.Errorf("recover interrupted: list processing: %w", err)
	}

	seen := make(map[string]bool)
	for _, blob := range blobs {
		result.Total++
		recordID, ok := blobstore.RecordingIDFromName(blob.Name)
		if !ok {
			result.failed(fmt.Sprintf("%s: unrecognized blob name", blob.Name))
			continue
		}
		seen[recordID] = true

		if err := o.blobs.MoveWithFallback(blob.Name, blobstore.LocationProcessing, blobstore.LocationSource, ""); err != nil {
			result.failed(fmt.Sprintf("%s: move processing -> source: %v", recordID, err))
			continue
		}
		if err := o.resetRow(ctx, recordID); err != nil {
			result.failed(fmt.Sprintf("%s: reset row: %v", recordID, err))
			continue
		}
		result.recovered(fmt.Sprintf("%s: moved processing -> source", recordID))
	}

	rows, err := o.store.ByTranscriptionStatus(ctx, ledger.TranscriptionInterrupted)
	if err != nil {
		return result, fmt.Errorf("recover interrupted: query rows: %w", err)
	}
	for _, row := range rows {
		if seen[row.RecordID] {
			continue
		}
		result.Total++
		if err := o.store.SetTranscriptionStatus(ctx, row.RecordID, ledger.TranscriptionPending); err != nil {
			result.failed(fmt.Sprintf("%s: reset row: %v", row.RecordID, err))
			continue
		}
		result.recovered(fmt.Sprintf("%s: row reset without file", row.RecordID))
	}

	result.Duration = o.now().Sub(started)
	o.logger.Info("interrupted recovery finished", logging.String("summary", result.Summary("interrupted")))
	return result, nil
}

// resetRow puts a recording back in the transcription queue. A missing row is
// tolerated: the blob was already rescued and the ledger will catch up when
// the pipeline sees the file again.
func (o *Orchestrator) resetRow(ctx context.Context, recordID string) error {
	rec, err := o.store.Get(ctx, recordID)
	if err != nil {
		return err
	}
	if rec == nil {
		o.logger.Warn("no ledger row for rescued blob",
			logging.String(logging.FieldRecordID, recordID))
		return nil
	}
	return o.store.SetTranscriptionStatus(ctx, recordID, ledger.TranscriptionPending)
}

// RecoverErrored re-queues blobs in the error location that have not been
// retried before. Each file gets exactly one automatic retry: already-marked
// files are reported so operators see repeat failures, but stay put.
func (o *Orchestrator) RecoverErrored(ctx context.Context) (Result, error) {
	started := o.now()
	result := Result{}

	blobs, err := o.blobs.List(blobstore.LocationError)
	if err != nil {
		return result, fmt.Errorf("recover errored: list error: %w", err)
	}

	for _, blob := range blobs {
		result.Total++
		recordID, ok := blobstore.RecordingIDFromName(blob.Name)
		if !ok {
			result.failed(fmt.Sprintf("%s: unrecognized blob name", blob.Name))
			continue
		}
		if blobstore.HasMark(blob.Description, blobstore.MarkRetried) ||
			blobstore.HasMark(blob.Description, blobstore.MarkForceRetried) {
			result.Details = append(result.Details, fmt.Sprintf("%s: already retried, left in error", recordID))
			continue
		}

		if err := o.blobs.MoveWithFallback(blob.Name, blobstore.LocationError, blobstore.LocationSource, blobstore.MarkRetried); err != nil {
			result.failed(fmt.Sprintf("%s: move error -> source: %v", recordID, err))
			continue
		}
		if err := o.setStatusIfPresent(ctx, recordID, ledger.TranscriptionRetry); err != nil {
			result.failed(fmt.Sprintf("%s: mark row RETRY: %v", recordID, err))
			continue
		}
		result.recovered(fmt.Sprintf("%s: re-queued with retry mark", recordID))
	}

	result.Duration = o.now().Sub(started)
	o.logger.Info("errored recovery finished", logging.String("summary", result.Summary("errored")))
	return result, nil
}

// ResetPending flags rows stuck in transcription PENDING beyond the
// configured age and rescues their blobs back to source when one can be
// found. A missing blob resets the status only.
func (o *Orchestrator) ResetPending(ctx context.Context) (Result, error) {
	started := o.now()
	result := Result{}

	cutoff := o.now().Add(-o.cfg.PendingResetAge())
	rows, err := o.store.StalePendingTranscriptions(ctx, cutoff)
	if err != nil {
		return result, fmt.Errorf("reset pending: query rows: %w", err)
	}

	for _, row := range rows {
		result.Total++
		if err := o.store.SetTranscriptionStatus(ctx, row.RecordID, ledger.TranscriptionResetPending); err != nil {
			result.failed(fmt.Sprintf("%s: mark row RESET_PENDING: %v", row.RecordID, err))
			continue
		}

		blob, err := o.blobs.FindByRecordingID(row.RecordID,
			blobstore.LocationError, blobstore.LocationProcessing, blobstore.LocationCompleted)
		if err != nil {
			result.failed(fmt.Sprintf("%s: blob search: %v", row.RecordID, err))
			continue
		}
		if blob == nil {
			result.recovered(fmt.Sprintf("%s: status reset, no blob found", row.RecordID))
			continue
		}
		if err := o.blobs.MoveWithFallback(blob.Name, blob.Location, blobstore.LocationSource, ""); err != nil {
			result.failed(fmt.Sprintf("%s: move %s -> source: %v", row.RecordID, blob.Location, err))
			continue
		}
		result.recovered(fmt.Sprintf("%s: status reset, moved %s -> source", row.RecordID, blob.Location))
	}

	result.Duration = o.now().Sub(started)
	o.logger.Info("pending reset finished", logging.String("summary", result.Summary("pending-reset")))
	return result, nil
}

// ForceRecover re-queues every blob in the error location regardless of retry
// marks. Rows move to FORCE_RETRY. Operator-initiated only.
func (o *Orchestrator) ForceRecover(ctx context.Context) (Result, error) {
	started := o.now()
	result := Result{}

	blobs, err := o.blobs.List(blobstore.LocationError)
	if err != nil {
		return result, fmt.Errorf("force recover: list error: %w", err)
	}

	for _, blob := range blobs {
		result.Total++
		recordID, ok := blobstore.RecordingIDFromName(blob.Name)
		if !ok {
			result.failed(fmt.Sprintf("%s: unrecognized blob name", blob.Name))
			continue
		}
		if err := o.blobs.MoveWithFallback(blob.Name, blobstore.LocationError, blobstore.LocationSource, blobstore.MarkForceRetried); err != nil {
			result.failed(fmt.Sprintf("%s: move error -> source: %v", recordID, err))
			continue
		}
		if err := o.setStatusIfPresent(ctx, recordID, ledger.TranscriptionForceRetry); err != nil {
			result.failed(fmt.Sprintf("%s: mark row FORCE_RETRY: %v", recordID, err))
			continue
		}
		result.recovered(fmt.Sprintf("%s: force re-queued", recordID))
	}

	result.Duration = o.now().Sub(started)
	o.logger.Info("force recovery finished", logging.String("summary", result.Summary("force")))
	return result, nil
}

func (o *Orchestrator) setStatusIfPresent(ctx context.Context, recordID string, status ledger.TranscriptionStatus) error {
	rec, err := o.store.Get(ctx, recordID)
	if err != nil {
		return err
	}
	if rec == nil {
		o.logger.Warn("no ledger row for re-queued blob",
			logging.String(logging.FieldRecordID, recordID))
		return nil
	}
	return o.store.SetTranscriptionStatus(ctx, recordID, status)
}

// RunAll executes the full scheduled recovery pass: audit, pending reset,
// errored, then interrupted. A failing step is reported and does not stop the
// later steps. One summary notification covers the whole run.
func (o *Orchestrator) RunAll(ctx context.Context) Outcome {
	started := o.now()
	ok := true
	var parts []string
	var details []string

	if o.detector != nil {
		if auditResult, err := o.detector.Run(ctx); err != nil {
			ok = false
			parts = append(parts, fmt.Sprintf("audit failed: %v", err))
		} else {
			parts = append(parts, auditResult.Summary())
			details = append(details, auditResult.Details...)
		}
	}

	steps := []struct {
		name string
		run  func(context.Context) (Result, error)
	}{
		{"pending-reset", o.ResetPending},
		{"errored", o.RecoverErrored},
		{"interrupted", o.RecoverInterrupted},
	}
	for _, step := range steps {
		result, err := step.run(ctx)
		if err != nil {
			ok = false
			parts = append(parts, fmt.Sprintf("%s failed: %v", step.name, err))
			continue
		}
		if result.Failed > 0 {
			ok = false
		}
		parts = append(parts, result.Summary(step.name))
		details = append(details, result.Details...)
	}

	message := fmt.Sprintf("recovery run finished in %s: %s",
		o.now().Sub(started).Round(time.Millisecond), strings.Join(parts, "; "))
	if o.notifier != nil {
		if err := o.notifier.NotifyRecoverySummary(ctx, message, details); err != nil {
			o.logger.Warn("failed to send recovery notification", logging.Error(err))
		}
	}
	o.logger.Info("recovery run finished", logging.Bool("ok", ok), logging.String("message", message))
	return Outcome{OK: ok, Message: message}
}
