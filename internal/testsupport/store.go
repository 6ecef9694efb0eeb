package testsupport

import (
	"context"
	"testing"
	"time"

	"callspool/internal/config"
	"callspool/internal/ledger"
)

// MustOpenStore opens a ledger.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()

	store, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedRecording writes one fetched recording row for tests.
func SeedRecording(t testing.TB, store *ledger.Store, recordID string, recordedAt time.Time, status ledger.FetchStatus) {
	t.Helper()

	err := store.SaveFetchResult(context.Background(), &ledger.Recording{
		RecordID:           recordID,
		RecordingTimestamp: recordedAt,
		DownloadURL:        "https://example.test/" + recordID + ".mp3",
		DurationSeconds:    60,
		FetchStatus:        status,
	})
	if err != nil {
		t.Fatalf("seed recording %s: %v", recordID, err)
	}
}
