package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"callspool/internal/blobstore"
	"callspool/internal/config"
	"callspool/internal/ledger"
	"callspool/internal/logging"
	"callspool/internal/provider"
	"callspool/internal/services"
	"callspool/internal/state"
)

// Outcome is the result of one fetch entry point invocation.
type Outcome struct {
	Fetched   int
	Saved     int
	Continued bool
	Duration  time.Duration
}

// Summary renders the outcome as a human-readable line with counts and
// duration, suitable for logging or direct display.
func (o Outcome) Summary() string {
	text := fmt.Sprintf("fetched %d, saved %d in %s", o.Fetched, o.Saved, o.Duration.Round(time.Millisecond))
	if o.Continued {
		text += " (continued)"
	}
	return text
}

// Fetcher pages through the provider's recording listing, downloads and
// stores new recordings, and checkpoints itself when it nears the execution
// time budget.
type Fetcher struct {
	cfg         *config.Config
	store       *ledger.Store
	blobs       blobstore.Store
	api         provider.API
	dedup       *state.DedupCache
	checkpoints *state.CheckpointQueue
	logger      *slog.Logger

	timeBudget   time.Duration
	requestDelay time.Duration
	now          func() time.Time
	sleep        func(context.Context, time.Duration)
}

// New wires a fetcher from its collaborators.
func New(
	cfg *config.Config,
	store *ledger.Store,
	blobs blobstore.Store,
	api provider.API,
	dedup *state.DedupCache,
	checkpoints *state.CheckpointQueue,
	logger *slog.Logger,
) *Fetcher {
	return &Fetcher{
		cfg:          cfg,
		store:        store,
		blobs:        blobs,
		api:          api,
		dedup:        dedup,
		checkpoints:  checkpoints,
		logger:       logging.NewComponentLogger(logger, "fetcher"),
		timeBudget:   cfg.FetchTimeBudget(),
		requestDelay: cfg.RequestDelay(),
		now:          time.Now,
		sleep:        sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// FetchWindow pages through [from, to] starting at startPage. When elapsed
// time exceeds the soft budget after a page, a continuation checkpoint is
// pushed and the partial outcome reports Continued.
func (f *Fetcher) FetchWindow(ctx context.Context, from, to time.Time, startPage int) (Outcome, error) {
	started := f.now()
	outcome := Outcome{}
	if startPage < 1 {
		startPage = 1
	}

	f.logger.Info("fetch window started",
		logging.Time("from", from),
		logging.Time("to", to),
		logging.Int("start_page", startPage))

	page := startPage
	for {
		listing, err := f.api.ListRecordings(ctx, from, to, page)
		if err != nil {
			outcome.Duration = f.now().Sub(started)
			return outcome, services.Wrap(services.ErrExternalService, "fetcher", "fetch-window",
				fmt.Sprintf("list page %d", page), err)
		}

		for _, item := range listing.Recordings {
			outcome.Fetched++
			if f.ingest(ctx, item) {
				outcome.Saved++
			}
		}

		if !listing.HasMore {
			break
		}

		if elapsed := f.now().Sub(started); elapsed > f.timeBudget {
			if err := f.checkpoints.Push(state.Checkpoint{From: from, To: to, NextPage: page + 1}); err != nil {
				outcome.Duration = f.now().Sub(started)
				return outcome, fmt.Errorf("push continuation checkpoint: %w", err)
			}
			outcome.Continued = true
			f.logger.Info("fetch window interrupted by time budget",
				logging.Duration("elapsed", elapsed),
				logging.Int("next_page", page+1))
			break
		}

		f.sleep(ctx, f.requestDelay)
		if ctx.Err() != nil {
			outcome.Duration = f.now().Sub(started)
			return outcome, ctx.Err()
		}
		page++
	}

	outcome.Duration = f.now().Sub(started)
	f.logger.Info("fetch window finished", logging.String("summary", outcome.Summary()))
	return outcome, nil
}

// Resume pops one continuation checkpoint and continues its window. A nil
// checkpoint means there is nothing to resume and yields an empty outcome.
func (f *Fetcher) Resume(ctx context.Context) (Outcome, error) {
	cp, err := f.checkpoints.Pop()
	if err != nil {
		return Outcome{}, err
	}
	if cp == nil {
		f.logger.Info("no continuation checkpoint pending")
		return Outcome{}, nil
	}
	f.logger.Info("resuming interrupted fetch window",
		logging.Time("from", cp.From),
		logging.Time("to", cp.To),
		logging.Int("page", cp.NextPage))
	return f.FetchWindow(ctx, cp.From, cp.To, cp.NextPage)
}

// ProcessLedgerPending reprocesses rows whose fetch status is empty or
// PENDING, oldest recording timestamp first, without querying the provider
// listing. The ledger itself is the resume state, so exceeding the time
// budget just stops the scan.
func (f *Fetcher) ProcessLedgerPending(ctx context.Context, from, to *time.Time) (Outcome, error) {
	started := f.now()
	outcome := Outcome{}

	rows, err := f.store.PendingFetch(ctx, from, to)
	if err != nil {
		return outcome, err
	}
	f.logger.Info("processing ledger-pending rows", logging.Int("count", len(rows)))

	for _, row := range rows {
		outcome.Fetched++
		item := provider.Recording{
			ID:                  row.RecordID,
			StartTime:           row.RecordingTimestamp,
			DownloadURL:         row.DownloadURL,
			DurationSeconds:     row.DurationSeconds,
			SalesPhoneNumber:    row.SalesPhoneNumber,
			CustomerPhoneNumber: row.CustomerPhoneNumber,
		}
		if f.ingest(ctx, item) {
			outcome.Saved++
		}
		if elapsed := f.now().Sub(started); elapsed > f.timeBudget {
			outcome.Continued = true
			f.logger.Info("ledger-pending scan interrupted by time budget",
				logging.Duration("elapsed", elapsed))
			break
		}
	}

	outcome.Duration = f.now().Sub(started)
	return outcome, nil
}

// IngestOne runs the single-recording ingestion path shared with the inbound
// webhook.
func (f *Fetcher) IngestOne(ctx context.Context, recordID, downloadURL string, startTime time.Time) (Outcome, error) {
	started := f.now()
	outcome := Outcome{Fetched: 1}
	item := provider.Recording{
		ID:          strings.TrimSpace(recordID),
		StartTime:   startTime,
		DownloadURL: strings.TrimSpace(downloadURL),
	}
	if f.ingest(services.WithRecordID(ctx, item.ID), item) {
		outcome.Saved++
	}
	outcome.Duration = f.now().Sub(started)
	return outcome, nil
}

// ingest runs one download+store attempt and resolves the row's fetch status.
// Item-level failures are classified into the ledger, never returned.
func (f *Fetcher) ingest(ctx context.Context, item provider.Recording) bool {
	logger := f.logger.With(logging.String(logging.FieldRecordID, item.ID))

	if strings.TrimSpace(item.ID) == "" || strings.TrimSpace(item.DownloadURL) == "" {
		logger.Warn("skipping listing item with missing id or url",
			logging.String("download_url", item.DownloadURL))
		return false
	}

	if f.dedup.IsProcessed(item.ID) {
		if err := f.saveResult(ctx, item, ledger.FetchDuplicate); err != nil {
			logger.Error("failed to record duplicate", logging.Error(err))
		}
		return false
	}

	body, err := f.api.Download(ctx, item.DownloadURL)
	if err != nil {
		logger.Warn("download failed", logging.Error(err))
		if err := f.saveResult(ctx, item, ledger.FetchDownloadError); err != nil {
			logger.Error("failed to record download error", logging.Error(err))
		}
		return false
	}
	defer body.Close()

	name := blobstore.FormatName(f.cfg.Fetch.BlobPrefix, item.StartTime, item.ID, f.cfg.Fetch.BlobExtension)
	if err := f.blobs.Save(name, blobstore.LocationSource, body); err != nil {
		logger.Warn("blob save failed", logging.Error(err))
		if err := f.saveResult(ctx, item, ledger.FetchSaveError); err != nil {
			logger.Error("failed to record save error", logging.Error(err))
		}
		return false
	}

	if err := f.saveResult(ctx, item, ledger.FetchProcessed); err != nil {
		logger.Error("blob stored but ledger write failed", logging.Error(err))
		return false
	}
	// Marked only after a successful save: a crash in between re-saves
	// idempotently by overwriting the same blob name.
	if err := f.dedup.MarkProcessed(item.ID); err != nil {
		logger.Error("failed to mark recording as processed", logging.Error(err))
	}

	logger.Info("recording ingested", logging.String("blob", name))
	return true
}

func (f *Fetcher) saveResult(ctx context.Context, item provider.Recording, status ledger.FetchStatus) error {
	rec := &ledger.Recording{
		RecordID:            item.ID,
		RecordingTimestamp:  item.StartTime,
		DownloadURL:         item.DownloadURL,
		DurationSeconds:     item.DurationSeconds,
		SalesPhoneNumber:    item.SalesPhoneNumber,
		CustomerPhoneNumber: item.CustomerPhoneNumber,
		FetchStatus:         status,
	}
	if !item.StartTime.IsZero() {
		rec.CallDate = item.StartTime.Format("2006-01-02")
		rec.CallTime = item.StartTime.Format("15:04:05")
	}
	return f.store.SaveFetchResult(ctx, rec)
}
