package report

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"callspool/internal/ledger"
	"callspool/internal/testsupport"
)

func TestWriteWorkbook(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	err := store.SaveFetchResult(ctx, &ledger.Recording{
		RecordID:           "rec-1",
		RecordingTimestamp: time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC),
		DownloadURL:        "https://example.test/rec-1.mp3",
		DurationSeconds:    45,
		FetchStatus:        ledger.FetchProcessed,
	})
	if err != nil {
		t.Fatalf("seed recording: %v", err)
	}
	err = store.UpsertCallRecord(ctx, &ledger.CallRecord{
		RecordID:       "rec-1",
		CallStatus:     "アポ獲得",
		FullTranscript: "会話の書き起こしです。",
	})
	if err != nil {
		t.Fatalf("seed call record: %v", err)
	}

	path := filepath.Join(dir, "export.xlsx")
	if err := WriteWorkbook(ctx, store, path); err != nil {
		t.Fatalf("WriteWorkbook: %v", err)
	}

	file, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer file.Close()

	rows, err := file.GetRows(recordingsSheet)
	if err != nil {
		t.Fatalf("read recordings sheet: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("recordings rows = %d, want header + 1", len(rows))
	}
	if rows[1][0] != "rec-1" || rows[1][9] != string(ledger.FetchProcessed) {
		t.Fatalf("recording row = %v", rows[1])
	}

	callRows, err := file.GetRows(callRecordsSheet)
	if err != nil {
		t.Fatalf("read call records sheet: %v", err)
	}
	if len(callRows) != 2 || callRows[1][0] != "rec-1" {
		t.Fatalf("call record rows = %v", callRows)
	}
	if callRows[1][7] != "アポ獲得" {
		t.Fatalf("call status cell = %q", callRows[1][7])
	}
}

func TestWriteWorkbookEmptyLedger(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	path := filepath.Join(t.TempDir(), "empty.xlsx")
	if err := WriteWorkbook(context.Background(), store, path); err != nil {
		t.Fatalf("WriteWorkbook: %v", err)
	}
	file, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer file.Close()
	rows, err := file.GetRows(recordingsSheet)
	if err != nil || len(rows) != 1 {
		t.Fatalf("rows = %v, %v", rows, err)
	}
}
