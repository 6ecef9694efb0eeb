package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"callspool/internal/blobstore"
	"callspool/internal/fetcher"
	"callspool/internal/ledger"
	"callspool/internal/logging"
	"callspool/internal/provider"
	"callspool/internal/state"
	"callspool/internal/testsupport"
)

type fakeAPI struct{}

func (fakeAPI) ListRecordings(context.Context, time.Time, time.Time, int) (*provider.Page, error) {
	return &provider.Page{}, nil
}

func (fakeAPI) Download(_ context.Context, url string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("audio-bytes")), nil
}

func newTestServer(t *testing.T) (*Server, *ledger.Store, *blobstore.Local) {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithWebhookSecret("shared-secret"))
	store := testsupport.MustOpenStore(t, cfg)
	blobs := testsupport.MustOpenBlobs(t, cfg)

	dedup := state.NewDedupCache(filepath.Join(cfg.Paths.StateDir, "processed.json"), nil)
	queue := state.NewCheckpointQueue(filepath.Join(cfg.Paths.StateDir, "checkpoints.json"), nil)
	f := fetcher.New(cfg, store, blobs, fakeAPI{}, dedup, queue, logging.NewNop())

	srv := NewServer(cfg, f, logging.NewNop())
	if srv == nil {
		t.Fatal("expected server")
	}
	return srv, store, blobs
}

func postEvent(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandshakeRespondsWithDigest(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := postEvent(t, srv.Handler(), `{"event":"endpoint.url_validation","payload":{"plainToken":"abc123"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		PlainToken     string `json:"plainToken"`
		EncryptedToken string `json:"encryptedToken"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.PlainToken != "abc123" {
		t.Fatalf("plain token = %q", resp.PlainToken)
	}

	mac := hmac.New(sha256.New, []byte("shared-secret"))
	mac.Write([]byte("abc123"))
	if want := hex.EncodeToString(mac.Sum(nil)); resp.EncryptedToken != want {
		t.Fatalf("encrypted token = %q, want %q", resp.EncryptedToken, want)
	}
}

func TestRecordingCompletedIngests(t *testing.T) {
	srv, store, blobs := newTestServer(t)

	body := `{"event":"recording.completed","payload":{"id":"rec-7","downloadUrl":"https://example.test/rec-7.mp3","startTime":"2026-08-29T09:00:00Z"}}`
	rec := postEvent(t, srv.Handler(), body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	row, err := store.Get(context.Background(), "rec-7")
	if err != nil || row == nil {
		t.Fatalf("ledger row: %v, %v", row, err)
	}
	if row.FetchStatus != ledger.FetchProcessed {
		t.Fatalf("fetch status = %s", row.FetchStatus)
	}
	blob, err := blobs.FindByRecordingID("rec-7", blobstore.LocationSource)
	if err != nil || blob == nil {
		t.Fatalf("blob: %v, %v", blob, err)
	}
}

func TestRejectsUnknownEventsAndMethods(t *testing.T) {
	srv, _, _ := newTestServer(t)
	handler := srv.Handler()

	rec := postEvent(t, handler, `{"event":"something.else","payload":{}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown event status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	getRec := httptest.NewRecorder()
	handler.ServeHTTP(getRec, req)
	if getRec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET status = %d", getRec.Code)
	}

	rec = postEvent(t, handler, `{"event":"recording.completed","payload":{"id":"","downloadUrl":""}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing fields status = %d", rec.Code)
	}
}
