package testsupport

import (
	"strings"
	"testing"
	"time"

	"callspool/internal/blobstore"
	"callspool/internal/config"
)

// MustOpenBlobs opens the local blob store under the config's spool dir.
func MustOpenBlobs(t testing.TB, cfg *config.Config) *blobstore.Local {
	t.Helper()

	blobs, err := blobstore.NewLocal(cfg.Paths.SpoolDir, nil)
	if err != nil {
		t.Fatalf("blobstore.NewLocal: %v", err)
	}
	return blobs
}

// SeedBlob writes one recording blob in the given location and returns its
// name.
func SeedBlob(t testing.TB, blobs *blobstore.Local, recordID string, capturedAt time.Time, location blobstore.Location) string {
	t.Helper()

	name := blobstore.FormatName("rec", capturedAt, recordID, ".mp3")
	if err := blobs.Save(name, location, strings.NewReader("audio-bytes")); err != nil {
		t.Fatalf("seed blob %s: %v", name, err)
	}
	return name
}
