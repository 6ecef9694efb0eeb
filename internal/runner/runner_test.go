package runner

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"callspool/internal/audit"
	"callspool/internal/fetcher"
	"callspool/internal/ledger"
	"callspool/internal/logging"
	"callspool/internal/notifications"
	"callspool/internal/provider"
	"callspool/internal/recovery"
	"callspool/internal/state"
	"callspool/internal/testsupport"
)

type fakeAPI struct {
	listCalls int
}

func (f *fakeAPI) ListRecordings(context.Context, time.Time, time.Time, int) (*provider.Page, error) {
	f.listCalls++
	return &provider.Page{}, nil
}

func (f *fakeAPI) Download(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("audio")), nil
}

type fixture struct {
	runner *Runner
	store  *ledger.Store
	flags  *state.Flags
	api    *fakeAPI
	queue  *state.CheckpointQueue
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	blobs := testsupport.MustOpenBlobs(t, cfg)

	api := &fakeAPI{}
	dedup := state.NewDedupCache(filepath.Join(cfg.Paths.StateDir, "processed.json"), nil)
	queue := state.NewCheckpointQueue(filepath.Join(cfg.Paths.StateDir, "checkpoints.json"), nil)
	flags := state.NewFlags(filepath.Join(cfg.Paths.StateDir, "flags.json"))

	f := fetcher.New(cfg, store, blobs, api, dedup, queue, logging.NewNop())
	notifier := notifications.NewService(cfg)
	detector := audit.NewDetector(store, blobs, notifier, logging.NewNop())
	orch := recovery.New(cfg, store, blobs, detector, notifier, logging.NewNop())

	return &fixture{
		runner: New(cfg, store, f, orch, detector, flags, queue, nil, logging.NewNop()),
		store:  store,
		flags:  flags,
		api:    api,
		queue:  queue,
	}
}

func TestFetchJobRunsUnderLease(t *testing.T) {
	fx := newFixture(t)
	if err := fx.runner.RunFetchJob(context.Background()); err != nil {
		t.Fatalf("RunFetchJob: %v", err)
	}
	if fx.api.listCalls != 1 {
		t.Fatalf("list calls = %d", fx.api.listCalls)
	}
}

func TestJobsSkipWhenProcessingDisabled(t *testing.T) {
	fx := newFixture(t)
	if err := fx.flags.SetProcessingEnabled(false); err != nil {
		t.Fatalf("disable processing: %v", err)
	}

	err := fx.runner.RunFetchJob(context.Background())
	if !errors.Is(err, ErrSkipped) {
		t.Fatalf("expected skip, got %v", err)
	}
	if fx.api.listCalls != 0 {
		t.Fatalf("fetch ran while disabled: %d calls", fx.api.listCalls)
	}
	if err := fx.runner.RunRecoveryJob(context.Background()); !errors.Is(err, ErrSkipped) {
		t.Fatalf("expected skip, got %v", err)
	}
}

func TestJobsSkipWhenLeaseHeldElsewhere(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	acquired, err := fx.store.AcquireLease(ctx, ledger.LeaseFetch, "other-holder", time.Hour)
	if err != nil || !acquired {
		t.Fatalf("seed lease: %t, %v", acquired, err)
	}

	if err := fx.runner.RunFetchJob(ctx); !errors.Is(err, ErrSkipped) {
		t.Fatalf("expected skip, got %v", err)
	}
	if fx.api.listCalls != 0 {
		t.Fatalf("fetch ran under foreign lease: %d calls", fx.api.listCalls)
	}

	// The recovery lease is independent, so recovery still runs.
	if err := fx.runner.RunRecoveryJob(ctx); err != nil {
		t.Fatalf("RunRecoveryJob: %v", err)
	}
}

func TestContinuationJobIsNoopWithoutCheckpoint(t *testing.T) {
	fx := newFixture(t)
	if err := fx.runner.RunContinuationJob(context.Background()); err != nil {
		t.Fatalf("RunContinuationJob: %v", err)
	}
	if fx.api.listCalls != 0 {
		t.Fatalf("unexpected provider calls: %d", fx.api.listCalls)
	}
}

func TestContinuationJobDrainsCheckpoint(t *testing.T) {
	fx := newFixture(t)
	err := fx.queue.Push(state.Checkpoint{
		From:     time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC),
		To:       time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC),
		NextPage: 3,
	})
	if err != nil {
		t.Fatalf("push checkpoint: %v", err)
	}

	if err := fx.runner.RunContinuationJob(context.Background()); err != nil {
		t.Fatalf("RunContinuationJob: %v", err)
	}
	if fx.api.listCalls != 1 {
		t.Fatalf("list calls = %d", fx.api.listCalls)
	}
	if fx.queue.Len() != 0 {
		t.Fatalf("checkpoint not consumed: %d", fx.queue.Len())
	}
}

func TestLeaseReleasedAfterJob(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	if err := fx.runner.RunFetchJob(ctx); err != nil {
		t.Fatalf("RunFetchJob: %v", err)
	}
	acquired, err := fx.store.AcquireLease(ctx, ledger.LeaseFetch, "other-holder", time.Hour)
	if err != nil || !acquired {
		t.Fatalf("lease not released: %t, %v", acquired, err)
	}
}
