package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const callRecordColumns = "record_id, call_date, call_time, sales_company, sales_person, customer_company, customer_name, call_status, reason_for_refusal, reason_for_appointment, summary, full_transcript"

// GetCallRecord fetches the transcript row for a recording. Absence is nil, nil.
func (s *Store) GetCallRecord(ctx context.Context, recordID string) (*CallRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+callRecordColumns+` FROM call_records WHERE record_id = ?`, recordID)
	record, err := scanCallRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get call record: %w", err)
	}
	return record, nil
}

// ListCallRecords returns all call records ordered by record id.
func (s *Store) ListCallRecords(ctx context.Context) ([]*CallRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+callRecordColumns+` FROM call_records ORDER BY record_id`)
	if err != nil {
		return nil, fmt.Errorf("list call records: %w", err)
	}
	defer rows.Close()

	var records []*CallRecord
	for rows.Next() {
		record, err := scanCallRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// UpsertCallRecord writes the transcript row for a recording. In production
// this table is populated by the external extraction pipeline; the accessor
// exists for that collaborator and for tests.
func (s *Store) UpsertCallRecord(ctx context.Context, record *CallRecord) error {
	if record == nil {
		return errors.New("call record is nil")
	}
	if record.RecordID == "" {
		return errors.New("call record id is empty")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO call_records (`+callRecordColumns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(record_id) DO UPDATE SET
            call_date = excluded.call_date,
            call_time = excluded.call_time,
            sales_company = excluded.sales_company,
            sales_person = excluded.sales_person,
            customer_company = excluded.customer_company,
            customer_name = excluded.customer_name,
            call_status = excluded.call_status,
            reason_for_refusal = excluded.reason_for_refusal,
            reason_for_appointment = excluded.reason_for_appointment,
            summary = excluded.summary,
            full_transcript = excluded.full_transcript`,
		record.RecordID,
		nullableString(record.CallDate),
		nullableString(record.CallTime),
		nullableString(record.SalesCompany),
		nullableString(record.SalesPerson),
		nullableString(record.CustomerCompany),
		nullableString(record.CustomerName),
		nullableString(record.CallStatus),
		nullableString(record.ReasonForRefusal),
		nullableString(record.ReasonForAppointment),
		nullableString(record.Summary),
		nullableString(record.FullTranscript),
	)
	if err != nil {
		return fmt.Errorf("upsert call record: %w", err)
	}
	return nil
}

func scanCallRecord(scanner interface{ Scan(dest ...any) error }) (*CallRecord, error) {
	var (
		recordID             string
		callDate             sql.NullString
		callTime             sql.NullString
		salesCompany         sql.NullString
		salesPerson          sql.NullString
		customerCompany      sql.NullString
		customerName         sql.NullString
		callStatus           sql.NullString
		reasonForRefusal     sql.NullString
		reasonForAppointment sql.NullString
		summary              sql.NullString
		fullTranscript       sql.NullString
	)

	if err := scanner.Scan(
		&recordID,
		&callDate,
		&callTime,
		&salesCompany,
		&salesPerson,
		&customerCompany,
		&customerName,
		&callStatus,
		&reasonForRefusal,
		&reasonForAppointment,
		&summary,
		&fullTranscript,
	); err != nil {
		return nil, err
	}

	return &CallRecord{
		RecordID:             recordID,
		CallDate:             callDate.String,
		CallTime:             callTime.String,
		SalesCompany:         salesCompany.String,
		SalesPerson:          salesPerson.String,
		CustomerCompany:      customerCompany.String,
		CustomerName:         customerName.String,
		CallStatus:           callStatus.String,
		ReasonForRefusal:     reasonForRefusal.String,
		ReasonForAppointment: reasonForAppointment.String,
		Summary:              summary.String,
		FullTranscript:       fullTranscript.String,
	}, nil
}
