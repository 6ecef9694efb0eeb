package ledger

import (
	"time"
)

// FetchStatus represents the outcome of one download+store attempt.
type FetchStatus string

const (
	FetchPending       FetchStatus = "PENDING"
	FetchProcessed     FetchStatus = "PROCESSED"
	FetchDuplicate     FetchStatus = "DUPLICATE"
	FetchDownloadError FetchStatus = "DOWNLOAD_ERROR"
	FetchSaveError     FetchStatus = "SAVE_ERROR"
)

// TranscriptionStatus represents the lifecycle of the transcription pipeline
// for one recording. It is advanced by the external batch pipeline and, on
// drift, by the recovery orchestrator and the partial failure detector.
type TranscriptionStatus string

const (
	TranscriptionPending       TranscriptionStatus = "PENDING"
	TranscriptionSuccess       TranscriptionStatus = "SUCCESS"
	TranscriptionError         TranscriptionStatus = "ERROR"
	TranscriptionRetry         TranscriptionStatus = "RETRY"
	TranscriptionForceRetry    TranscriptionStatus = "FORCE_RETRY"
	TranscriptionResetPending  TranscriptionStatus = "RESET_PENDING"
	TranscriptionErrorDetected TranscriptionStatus = "ERROR_DETECTED"
	TranscriptionInterrupted   TranscriptionStatus = "INTERRUPTED"
)

// Recording is one ledger row tracking a call recording's fetch and
// transcription state. At most one row exists per RecordID.
type Recording struct {
	RecordID               string
	RecordingTimestamp     time.Time
	DownloadURL            string
	CallDate               string
	CallTime               string
	DurationSeconds        int
	SalesPhoneNumber       string
	CustomerPhoneNumber    string
	FetchTimestamp         *time.Time
	FetchStatus            FetchStatus
	TranscriptionTimestamp *time.Time
	TranscriptionStatus    TranscriptionStatus
	ProcessStart           *time.Time
	ProcessEnd             *time.Time
}

// CallRecord holds the transcript and extracted fields written by the
// external extraction collaborator, keyed by the matching RecordID.
type CallRecord struct {
	RecordID             string
	CallDate             string
	CallTime             string
	SalesCompany         string
	SalesPerson          string
	CustomerCompany      string
	CustomerName         string
	CallStatus           string
	ReasonForRefusal     string
	ReasonForAppointment string
	Summary              string
	FullTranscript       string
}

// Stats aggregates row counts per status for diagnostics.
type Stats struct {
	Total         int
	Fetch         map[FetchStatus]int
	Transcription map[TranscriptionStatus]int
}
