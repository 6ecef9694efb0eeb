package report

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"callspool/internal/ledger"
)

const (
	recordingsSheet  = "Recordings"
	callRecordsSheet = "CallRecords"
)

var recordingHeaders = []any{
	"record_id", "timestamp_recording", "download_url", "call_date", "call_time",
	"duration", "sales_phone_number", "customer_phone_number",
	"timestamp_fetch", "status_fetch", "timestamp_transcription", "status_transcription",
	"process_start", "process_end",
}

var callRecordHeaders = []any{
	"record_id", "call_date", "call_time", "sales_company", "sales_person",
	"customer_company", "customer_name", "call_status", "reason_for_refusal",
	"reason_for_appointment", "summary", "full_transcript",
}

// WriteWorkbook exports the ledger into an .xlsx workbook with one sheet for
// recordings and one for call records.
func WriteWorkbook(ctx context.Context, store *ledger.Store, path string) (err error) {
	recordings, err := store.AllRecordings(ctx)
	if err != nil {
		return err
	}
	callRecords, err := store.ListCallRecords(ctx)
	if err != nil {
		return err
	}

	file := excelize.NewFile()
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := file.SetSheetName(file.GetSheetName(0), recordingsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := file.NewSheet(callRecordsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	if err := writeRow(file, recordingsSheet, 1, recordingHeaders); err != nil {
		return err
	}
	for i, rec := range recordings {
		row := []any{
			rec.RecordID,
			formatTime(&rec.RecordingTimestamp),
			rec.DownloadURL,
			rec.CallDate,
			rec.CallTime,
			rec.DurationSeconds,
			rec.SalesPhoneNumber,
			rec.CustomerPhoneNumber,
			formatTime(rec.FetchTimestamp),
			string(rec.FetchStatus),
			formatTime(rec.TranscriptionTimestamp),
			string(rec.TranscriptionStatus),
			formatTime(rec.ProcessStart),
			formatTime(rec.ProcessEnd),
		}
		if err := writeRow(file, recordingsSheet, i+2, row); err != nil {
			return err
		}
	}

	if err := writeRow(file, callRecordsSheet, 1, callRecordHeaders); err != nil {
		return err
	}
	for i, record := range callRecords {
		row := []any{
			record.RecordID,
			record.CallDate,
			record.CallTime,
			record.SalesCompany,
			record.SalesPerson,
			record.CustomerCompany,
			record.CustomerName,
			record.CallStatus,
			record.ReasonForRefusal,
			record.ReasonForAppointment,
			record.Summary,
			record.FullTranscript,
		}
		if err := writeRow(file, callRecordsSheet, i+2, row); err != nil {
			return err
		}
	}

	if err := file.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeRow(file *excelize.File, sheet string, rowNumber int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNumber)
	if err != nil {
		return err
	}
	if err := file.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, rowNumber, err)
	}
	return nil
}

func formatTime(value *time.Time) string {
	if value == nil || value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}
