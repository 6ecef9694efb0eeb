package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"callspool/internal/blobstore"
	"callspool/internal/ledger"
	"callspool/internal/logging"
	"callspool/internal/provider"
	"callspool/internal/state"
	"callspool/internal/testsupport"
)

type fakeAPI struct {
	pages         [][]provider.Recording
	listCalls     []int
	failDownloads map[string]bool
}

func (f *fakeAPI) ListRecordings(_ context.Context, _, _ time.Time, page int) (*provider.Page, error) {
	f.listCalls = append(f.listCalls, page)
	idx := page - 1
	if idx < 0 || idx >= len(f.pages) {
		return &provider.Page{}, nil
	}
	return &provider.Page{
		Recordings: f.pages[idx],
		HasMore:    idx+1 < len(f.pages),
	}, nil
}

func (f *fakeAPI) Download(_ context.Context, url string) (io.ReadCloser, error) {
	if f.failDownloads[url] {
		return nil, errors.New("download failed")
	}
	return io.NopCloser(strings.NewReader("audio-bytes")), nil
}

func makeRecordings(count int, start time.Time) []provider.Recording {
	items := make([]provider.Recording, 0, count)
	for i := 0; i < count; i++ {
		id := fmt.Sprintf("rec-%03d", i)
		items = append(items, provider.Recording{
			ID:              id,
			StartTime:       start.Add(time.Duration(i) * time.Minute),
			DownloadURL:     "https://example.test/" + id + ".mp3",
			DurationSeconds: 60,
		})
	}
	return items
}

type fixture struct {
	fetcher *Fetcher
	store   *ledger.Store
	blobs   *blobstore.Local
	dedup   *state.DedupCache
	queue   *state.CheckpointQueue
}

func newFixture(t *testing.T, api provider.API) *fixture {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	blobs := testsupport.MustOpenBlobs(t, cfg)

	dedup := state.NewDedupCache(filepath.Join(cfg.Paths.StateDir, "processed.json"), nil)
	queue := state.NewCheckpointQueue(filepath.Join(cfg.Paths.StateDir, "checkpoints.json"), nil)

	return &fixture{
		fetcher: New(cfg, store, blobs, api, dedup, queue, logging.NewNop()),
		store:   store,
		blobs:   blobs,
		dedup:   dedup,
		queue:   queue,
	}
}

func TestFetchWindowEndToEnd(t *testing.T) {
	start := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	items := makeRecordings(35, start)
	api := &fakeAPI{pages: [][]provider.Recording{items[:30], items[30:]}}
	fx := newFixture(t, api)
	fx.fetcher.requestDelay = 0

	outcome, err := fx.fetcher.FetchWindow(context.Background(), start.Add(-24*time.Hour), start, 1)
	if err != nil {
		t.Fatalf("FetchWindow: %v", err)
	}
	if outcome.Fetched != 35 || outcome.Saved != 35 || outcome.Continued {
		t.Fatalf("outcome = %+v", outcome)
	}
	if got := fx.dedup.Len(); got != 35 {
		t.Fatalf("dedup cache size = %d, want 35", got)
	}
	blobs, err := fx.blobs.List(blobstore.LocationSource)
	if err != nil || len(blobs) != 35 {
		t.Fatalf("source blobs = %d, %v", len(blobs), err)
	}
	rec, err := fx.store.Get(context.Background(), "rec-000")
	if err != nil || rec == nil {
		t.Fatalf("ledger row: %v, %v", rec, err)
	}
	if rec.FetchStatus != ledger.FetchProcessed {
		t.Fatalf("fetch status = %s", rec.FetchStatus)
	}
	if !strings.Contains(outcome.Summary(), "fetched 35, saved 35") {
		t.Fatalf("summary = %q", outcome.Summary())
	}
}

func TestIngestOneIsIdempotent(t *testing.T) {
	api := &fakeAPI{}
	fx := newFixture(t, api)
	start := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)

	first, err := fx.fetcher.IngestOne(context.Background(), "rec-1", "https://example.test/rec-1.mp3", start)
	if err != nil || first.Saved != 1 {
		t.Fatalf("first ingest = %+v, %v", first, err)
	}
	second, err := fx.fetcher.IngestOne(context.Background(), "rec-1", "https://example.test/rec-1.mp3", start)
	if err != nil || second.Saved != 0 {
		t.Fatalf("second ingest = %+v, %v", second, err)
	}

	rec, err := fx.store.Get(context.Background(), "rec-1")
	if err != nil || rec == nil {
		t.Fatalf("ledger row: %v, %v", rec, err)
	}
	if rec.FetchStatus != ledger.FetchDuplicate {
		t.Fatalf("fetch status after re-ingest = %s", rec.FetchStatus)
	}
	blobs, err := fx.blobs.List(blobstore.LocationSource)
	if err != nil || len(blobs) != 1 {
		t.Fatalf("source blobs = %d, %v", len(blobs), err)
	}
}

func TestIngestClassifiesFailures(t *testing.T) {
	start := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	api := &fakeAPI{
		pages: [][]provider.Recording{{
			{ID: "", DownloadURL: "https://example.test/anon.mp3", StartTime: start},
			{ID: "rec-ok", DownloadURL: "https://example.test/rec-ok.mp3", StartTime: start},
			{ID: "rec-bad", DownloadURL: "https://example.test/rec-bad.mp3", StartTime: start},
		}},
		failDownloads: map[string]bool{"https://example.test/rec-bad.mp3": true},
	}
	fx := newFixture(t, api)
	fx.fetcher.requestDelay = 0

	outcome, err := fx.fetcher.FetchWindow(context.Background(), start.Add(-time.Hour), start, 1)
	if err != nil {
		t.Fatalf("FetchWindow: %v", err)
	}
	if outcome.Fetched != 3 || outcome.Saved != 1 {
		t.Fatalf("outcome = %+v", outcome)
	}

	bad, err := fx.store.Get(context.Background(), "rec-bad")
	if err != nil || bad == nil {
		t.Fatalf("rec-bad row: %v, %v", bad, err)
	}
	if bad.FetchStatus != ledger.FetchDownloadError {
		t.Fatalf("rec-bad status = %s", bad.FetchStatus)
	}
	if fx.dedup.IsProcessed("rec-bad") {
		t.Fatal("failed download must not be dedup-marked")
	}
}

type failingBlobStore struct {
	blobstore.Store
}

func (failingBlobStore) Save(string, blobstore.Location, io.Reader) error {
	return errors.New("disk full")
}

func TestIngestRecordsSaveError(t *testing.T) {
	api := &fakeAPI{}
	fx := newFixture(t, api)
	fx.fetcher.blobs = failingBlobStore{fx.blobs}

	start := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	outcome, err := fx.fetcher.IngestOne(context.Background(), "rec-1", "https://example.test/rec-1.mp3", start)
	if err != nil || outcome.Saved != 0 {
		t.Fatalf("outcome = %+v, %v", outcome, err)
	}

	rec, err := fx.store.Get(context.Background(), "rec-1")
	if err != nil || rec == nil {
		t.Fatalf("ledger row: %v, %v", rec, err)
	}
	if rec.FetchStatus != ledger.FetchSaveError {
		t.Fatalf("fetch status = %s", rec.FetchStatus)
	}
	if fx.dedup.IsProcessed("rec-1") {
		t.Fatal("failed save must not be dedup-marked")
	}
}

func TestFetchWindowChecksBudgetAfterEachPage(t *testing.T) {
	start := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	items := makeRecordings(60, start)
	api := &fakeAPI{pages: [][]provider.Recording{items[:30], items[30:]}}
	fx := newFixture(t, api)
	fx.fetcher.requestDelay = 0
	fx.fetcher.timeBudget = 4 * time.Minute

	// Each clock read advances five minutes, so the first budget check after
	// page one is already over.
	clock := start
	fx.fetcher.now = func() time.Time {
		clock = clock.Add(5 * time.Minute)
		return clock
	}

	outcome, err := fx.fetcher.FetchWindow(context.Background(), start.Add(-24*time.Hour), start, 1)
	if err != nil {
		t.Fatalf("FetchWindow: %v", err)
	}
	if !outcome.Continued || outcome.Fetched != 30 {
		t.Fatalf("outcome = %+v", outcome)
	}
	if fx.queue.Len() != 1 {
		t.Fatalf("checkpoint queue length = %d", fx.queue.Len())
	}

	// Resume consumes the checkpoint and finishes the remaining page.
	fx.fetcher.now = time.Now
	resumed, err := fx.fetcher.Resume(context.Background())
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if resumed.Fetched != 30 || resumed.Saved != 30 {
		t.Fatalf("resumed outcome = %+v", resumed)
	}
	if got := api.listCalls[len(api.listCalls)-1]; got != 2 {
		t.Fatalf("resume started at page %d, want 2", got)
	}
	if fx.queue.Len() != 0 {
		t.Fatalf("checkpoint not consumed, queue length = %d", fx.queue.Len())
	}
}

func TestResumeWithoutCheckpointIsNoop(t *testing.T) {
	api := &fakeAPI{}
	fx := newFixture(t, api)

	outcome, err := fx.fetcher.Resume(context.Background())
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if outcome.Fetched != 0 || len(api.listCalls) != 0 {
		t.Fatalf("unexpected work: %+v, calls %v", outcome, api.listCalls)
	}
}

func TestProcessLedgerPendingOldestFirst(t *testing.T) {
	api := &fakeAPI{}
	fx := newFixture(t, api)

	base := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	for i := 2; i >= 0; i-- {
		err := fx.store.SaveFetchResult(context.Background(), &ledger.Recording{
			RecordID:           fmt.Sprintf("rec-%d", i),
			RecordingTimestamp: base.Add(time.Duration(i) * time.Hour),
			DownloadURL:        fmt.Sprintf("https://example.test/rec-%d.mp3", i),
			FetchStatus:        ledger.FetchPending,
		})
		if err != nil {
			t.Fatalf("seed row: %v", err)
		}
	}

	outcome, err := fx.fetcher.ProcessLedgerPending(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("ProcessLedgerPending: %v", err)
	}
	if outcome.Fetched != 3 || outcome.Saved != 3 {
		t.Fatalf("outcome = %+v", outcome)
	}
	for i := 0; i < 3; i++ {
		rec, err := fx.store.Get(context.Background(), fmt.Sprintf("rec-%d", i))
		if err != nil || rec == nil {
			t.Fatalf("row rec-%d: %v, %v", i, rec, err)
		}
		if rec.FetchStatus != ledger.FetchProcessed {
			t.Fatalf("rec-%d status = %s", i, rec.FetchStatus)
		}
	}
}
