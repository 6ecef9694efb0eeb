package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const recordingColumns = "record_id, timestamp_recording, download_url, call_date, call_time, duration, sales_phone_number, customer_phone_number, timestamp_fetch, status_fetch, timestamp_transcription, status_transcription, process_start, process_end"

// SaveFetchResult upserts a recording row after one download+store attempt.
// On conflict the fetch columns are refreshed while the transcription columns
// keep whatever the pipeline has advanced them to.
func (s *Store) SaveFetchResult(ctx context.Context, rec *Recording) error {
	if rec == nil {
		return errors.New("recording is nil")
	}
	if rec.RecordID == "" {
		return errors.New("recording id is empty")
	}
	now := time.Now().UTC()
	if rec.FetchTimestamp == nil {
		rec.FetchTimestamp = &now
	}
	if rec.FetchStatus == "" {
		rec.FetchStatus = FetchPending
	}
	if rec.TranscriptionStatus == "" {
		rec.TranscriptionStatus = TranscriptionPending
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO recordings (
            record_id, timestamp_recording, download_url, call_date, call_time,
            duration, sales_phone_number, customer_phone_number,
            timestamp_fetch, status_fetch, status_transcription
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(record_id) DO UPDATE SET
            timestamp_recording = excluded.timestamp_recording,
            download_url = excluded.download_url,
            call_date = excluded.call_date,
            call_time = excluded.call_time,
            duration = excluded.duration,
            sales_phone_number = excluded.sales_phone_number,
            customer_phone_number = excluded.customer_phone_number,
            timestamp_fetch = excluded.timestamp_fetch,
            status_fetch = excluded.status_fetch`,
		rec.RecordID,
		formatTime(rec.RecordingTimestamp),
		nullableString(rec.DownloadURL),
		nullableString(rec.CallDate),
		nullableString(rec.CallTime),
		rec.DurationSeconds,
		nullableString(rec.SalesPhoneNumber),
		nullableString(rec.CustomerPhoneNumber),
		nullableTime(rec.FetchTimestamp),
		rec.FetchStatus,
		rec.TranscriptionStatus,
	)
	if err != nil {
		return fmt.Errorf("save fetch result: %w", err)
	}
	return nil
}

// Get fetches a recording row by identifier. Absence is nil, nil.
func (s *Store) Get(ctx context.Context, recordID string) (*Recording, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordingColumns+` FROM recordings WHERE record_id = ?`, recordID)
	rec, err := scanRecording(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recording: %w", err)
	}
	return rec, nil
}

// SetTranscriptionStatus updates one row's transcription status and stamps
// the transcription timestamp.
func (s *Store) SetTranscriptionStatus(ctx context.Context, recordID string, status TranscriptionStatus) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE recordings SET status_transcription = ?, timestamp_transcription = ? WHERE record_id = ?`,
		status,
		formatTime(time.Now()),
		recordID,
	)
	if err != nil {
		return fmt.Errorf("set transcription status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("recording %q not found", recordID)
	}
	return nil
}

// PendingFetch returns rows whose fetch status is empty or PENDING, oldest
// recording timestamp first. When from/to are non-nil the scan is limited to
// that recording-time window.
func (s *Store) PendingFetch(ctx context.Context, from, to *time.Time) ([]*Recording, error) {
	query := `SELECT ` + recordingColumns + ` FROM recordings
        WHERE (status_fetch IS NULL OR status_fetch = '' OR status_fetch = ?)`
	args := []any{FetchPending}
	if from != nil {
		query += ` AND timestamp_recording >= ?`
		args = append(args, formatTime(*from))
	}
	if to != nil {
		query += ` AND timestamp_recording <= ?`
		args = append(args, formatTime(*to))
	}
	query += ` ORDER BY timestamp_recording`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pending fetch: %w", err)
	}
	defer rows.Close()
	return collectRecordings(rows)
}

// AllRecordings returns every row, oldest recording timestamp first.
func (s *Store) AllRecordings(ctx context.Context) ([]*Recording, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordingColumns+` FROM recordings ORDER BY timestamp_recording`)
	if err != nil {
		return nil, fmt.Errorf("query recordings: %w", err)
	}
	defer rows.Close()
	return collectRecordings(rows)
}

// ByTranscriptionStatus returns rows matching any of the given statuses,
// oldest recording timestamp first.
func (s *Store) ByTranscriptionStatus(ctx context.Context, statuses ...TranscriptionStatus) ([]*Recording, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}
	query := `SELECT ` + recordingColumns + ` FROM recordings
        WHERE status_transcription IN (` + placeholders + `) ORDER BY timestamp_recording`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query by transcription status: %w", err)
	}
	defer rows.Close()
	return collectRecordings(rows)
}

// StalePendingTranscriptions returns rows still transcription-PENDING whose
// fetch (or recording) timestamp predates the cutoff.
func (s *Store) StalePendingTranscriptions(ctx context.Context, cutoff time.Time) ([]*Recording, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+recordingColumns+` FROM recordings
        WHERE status_transcription = ?
          AND COALESCE(timestamp_fetch, timestamp_recording) < ?
        ORDER BY timestamp_recording`,
		TranscriptionPending,
		formatTime(cutoff),
	)
	if err != nil {
		return nil, fmt.Errorf("query stale pending: %w", err)
	}
	defer rows.Close()
	return collectRecordings(rows)
}

// Stats returns row counts grouped by both status columns.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{
		Fetch:         make(map[FetchStatus]int),
		Transcription: make(map[TranscriptionStatus]int),
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status_fetch, status_transcription, COUNT(1) FROM recordings GROUP BY status_fetch, status_transcription`)
	if err != nil {
		return stats, fmt.Errorf("ledger stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var fetch sql.NullString
		var transcription sql.NullString
		var count int
		if err := rows.Scan(&fetch, &transcription, &count); err != nil {
			return stats, err
		}
		stats.Total += count
		if fetch.Valid && fetch.String != "" {
			stats.Fetch[FetchStatus(fetch.String)] += count
		}
		if transcription.Valid && transcription.String != "" {
			stats.Transcription[TranscriptionStatus(transcription.String)] += count
		}
	}
	return stats, rows.Err()
}

func collectRecordings(rows *sql.Rows) ([]*Recording, error) {
	var recs []*Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func scanRecording(scanner interface{ Scan(dest ...any) error }) (*Recording, error) {
	var (
		recordID           string
		recordingRaw       sql.NullString
		downloadURL        sql.NullString
		callDate           sql.NullString
		callTime           sql.NullString
		duration           sql.NullInt64
		salesPhone         sql.NullString
		customerPhone      sql.NullString
		fetchRaw           sql.NullString
		fetchStatus        sql.NullString
		transcriptionRaw   sql.NullString
		transcriptionState sql.NullString
		processStartRaw    sql.NullString
		processEndRaw      sql.NullString
	)

	if err := scanner.Scan(
		&recordID,
		&recordingRaw,
		&downloadURL,
		&callDate,
		&callTime,
		&duration,
		&salesPhone,
		&customerPhone,
		&fetchRaw,
		&fetchStatus,
		&transcriptionRaw,
		&transcriptionState,
		&processStartRaw,
		&processEndRaw,
	); err != nil {
		return nil, err
	}

	rec := &Recording{
		RecordID:            recordID,
		DownloadURL:         downloadURL.String,
		CallDate:            callDate.String,
		CallTime:            callTime.String,
		DurationSeconds:     int(duration.Int64),
		SalesPhoneNumber:    salesPhone.String,
		CustomerPhoneNumber: customerPhone.String,
		FetchStatus:         FetchStatus(fetchStatus.String),
		TranscriptionStatus: TranscriptionStatus(transcriptionState.String),
	}
	if recorded, err := parseTimeString(recordingRaw.String); err == nil {
		rec.RecordingTimestamp = recorded
	}
	rec.FetchTimestamp = timePointer(fetchRaw)
	rec.TranscriptionTimestamp = timePointer(transcriptionRaw)
	rec.ProcessStart = timePointer(processStartRaw)
	rec.ProcessEnd = timePointer(processEndRaw)
	return rec, nil
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
