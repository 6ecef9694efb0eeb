package provider

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"callspool/internal/services"
)

func testClient(baseURL string, opts ...Option) *Client {
	opts = append([]Option{WithRetryBackoff(time.Millisecond, 50*time.Millisecond)}, opts...)
	return NewClient(Config{
		BaseURL: baseURL,
		APIKey:  "key",
	}, opts...)
}

func TestListRecordingsSendsWindowAndAuth(t *testing.T) {
	from := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/recordings" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("authorization = %q", got)
		}
		query := r.URL.Query()
		if query.Get("from") != from.Format(time.RFC3339) || query.Get("to") != to.Format(time.RFC3339) {
			t.Errorf("window = %q .. %q", query.Get("from"), query.Get("to"))
		}
		if query.Get("page") != "2" || query.Get("pageSize") != "30" {
			t.Errorf("paging = page %q size %q", query.Get("page"), query.Get("pageSize"))
		}
		io.WriteString(w, `{"recordings":[{"id":"r-1","startTime":"2026-08-28T13:00:00Z","downloadUrl":"https://example.test/r-1.mp3","duration":45}],"hasMore":true}`)
	}))
	defer server.Close()

	page, err := testClient(server.URL).ListRecordings(context.Background(), from, to, 2)
	if err != nil {
		t.Fatalf("ListRecordings: %v", err)
	}
	if len(page.Recordings) != 1 || page.Recordings[0].ID != "r-1" || !page.HasMore {
		t.Fatalf("page = %+v", page)
	}
}

func TestListRecordingsRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, `{"recordings":[],"hasMore":false}`)
	}))
	defer server.Close()

	page, err := testClient(server.URL).ListRecordings(context.Background(), time.Now().Add(-time.Hour), time.Now(), 1)
	if err != nil {
		t.Fatalf("ListRecordings: %v", err)
	}
	if page.HasMore {
		t.Fatalf("page = %+v", page)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("server calls = %d, want 3", got)
	}
}

func TestListRecordingsDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad window", http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := testClient(server.URL).ListRecordings(context.Background(), time.Now().Add(-time.Hour), time.Now(), 1)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("error classification: %v", err)
	}
	if !IsPermanent(err) {
		t.Fatalf("expected permanent classification: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("server calls = %d, want 1", got)
	}
}

func TestListRecordingsRequiresConfiguration(t *testing.T) {
	client := NewClient(Config{})
	_, err := client.ListRecordings(context.Background(), time.Now().Add(-time.Hour), time.Now(), 1)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestDownloadStreamsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "audio-bytes")
	}))
	defer server.Close()

	body, err := testClient(server.URL).Download(context.Background(), server.URL+"/r-1.mp3")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil || string(data) != "audio-bytes" {
		t.Fatalf("body = %q, %v", data, err)
	}
}

func TestDownloadClassifiesNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, err := testClient(server.URL).Download(context.Background(), server.URL+"/gone.mp3")
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsPermanent(err) {
		t.Fatalf("expected permanent classification: %v", err)
	}
}
