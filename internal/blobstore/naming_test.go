package blobstore

import (
	"testing"
	"time"
)

func TestFormatAndParseName(t *testing.T) {
	capturedAt := time.Date(2026, 8, 29, 15, 30, 0, 0, time.UTC)
	name := FormatName("rec", capturedAt, "abc-123", ".mp3")
	if name != "rec_20260829153000_abc-123.mp3" {
		t.Fatalf("FormatName = %q", name)
	}

	parsed, ok := ParseName(name)
	if !ok {
		t.Fatalf("ParseName(%q) failed", name)
	}
	if parsed.RecordingID != "abc-123" {
		t.Fatalf("recording id = %q", parsed.RecordingID)
	}
	if !parsed.CapturedAt.Equal(capturedAt) {
		t.Fatalf("captured at = %s, want %s", parsed.CapturedAt, capturedAt)
	}
	if parsed.Prefix != "rec" || parsed.Extension != ".mp3" {
		t.Fatalf("parsed = %+v", parsed)
	}
}

func TestParseNameRejectsForeignNames(t *testing.T) {
	for _, name := range []string{
		"notes.txt",
		"rec_2026_x.mp3",
		"rec_20260829153000.mp3",
		"rec_20260832999999_id.mp3", // invalid date
	} {
		if _, ok := ParseName(name); ok {
			t.Errorf("ParseName(%q) unexpectedly succeeded", name)
		}
	}
}

func TestMarkHelpers(t *testing.T) {
	desc := AppendMark("", MarkRetried)
	if desc != MarkRetried {
		t.Fatalf("AppendMark on empty = %q", desc)
	}
	desc = AppendMark(desc, MarkCopyRecovered)
	if !HasMark(desc, MarkRetried) || !HasMark(desc, MarkCopyRecovered) {
		t.Fatalf("marks missing in %q", desc)
	}
	// Appending an existing mark is a no-op.
	if again := AppendMark(desc, MarkRetried); again != desc {
		t.Fatalf("duplicate mark changed description: %q -> %q", desc, again)
	}
	if HasMark(desc, MarkForceRetried) {
		t.Fatalf("unexpected mark in %q", desc)
	}
}
