package blobstore

import (
	"io"
	"strings"
)

// Location is one of the four lifecycle folders a blob can occupy.
type Location string

const (
	LocationSource     Location = "source"
	LocationProcessing Location = "processing"
	LocationCompleted  Location = "completed"
	LocationError      Location = "error"
)

// Locations returns the known locations in lifecycle order.
func Locations() []Location {
	return []Location{LocationSource, LocationProcessing, LocationCompleted, LocationError}
}

// Recovery marks appended to a blob's description. The "retried" mark is what
// bounds ordinary error recovery to a single retry per file; force recovery
// ignores it.
const (
	MarkRetried       = "retried"
	MarkForceRetried  = "force-retried"
	MarkCopyRecovered = "copy-recovered"
)

// Blob describes one stored recording file.
type Blob struct {
	Name        string
	Location    Location
	Size        int64
	Description string
}

// Store is the surface the orchestration components need from blob storage.
type Store interface {
	// Save writes a new blob into the location, replacing any same-named blob.
	Save(name string, location Location, r io.Reader) error
	// List returns the blobs currently in a location.
	List(location Location) ([]Blob, error)
	// Find returns the named blob in a location, or nil, nil when absent.
	Find(location Location, name string) (*Blob, error)
	// FindByRecordingID scans the given locations in order for a blob whose
	// name embeds the recording id. Absence is nil, nil.
	FindByRecordingID(recordingID string, locations ...Location) (*Blob, error)
	// Move relocates a blob between locations with a direct rename only.
	Move(name string, from, to Location) error
	// MoveWithFallback relocates a blob, falling back to copy-verify-trash
	// when the direct move fails. A non-empty note is appended to the blob's
	// description at the destination.
	MoveWithFallback(name string, from, to Location, note string) error
	// AppendNote appends a mark to the blob's description in place.
	AppendNote(name string, location Location, note string) error
}

// HasMark reports whether a description already carries the given mark.
func HasMark(description, mark string) bool {
	for _, part := range strings.Split(description, ",") {
		if strings.TrimSpace(part) == mark {
			return true
		}
	}
	return false
}

// AppendMark joins a mark onto an existing description, skipping duplicates.
func AppendMark(description, mark string) string {
	mark = strings.TrimSpace(mark)
	if mark == "" {
		return description
	}
	if HasMark(description, mark) {
		return description
	}
	if strings.TrimSpace(description) == "" {
		return mark
	}
	return description + "," + mark
}
