package blobstore

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const nameTimestampLayout = "20060102150405"

// blobNamePattern matches <prefix>_<YYYYMMDDHHMMSS>_<recordingId>.<ext>.
var blobNamePattern = regexp.MustCompile(`^([^_]+)_(\d{14})_(.+)\.([^.]+)$`)

// ParsedName is the information a blob filename carries so a ledger row can
// be located without a database lookup.
type ParsedName struct {
	Prefix      string
	CapturedAt  time.Time
	RecordingID string
	Extension   string
}

// FormatName builds the canonical blob filename for a recording.
func FormatName(prefix string, capturedAt time.Time, recordingID, extension string) string {
	if !strings.HasPrefix(extension, ".") && extension != "" {
		extension = "." + extension
	}
	return fmt.Sprintf("%s_%s_%s%s", prefix, capturedAt.UTC().Format(nameTimestampLayout), recordingID, extension)
}

// ParseName extracts the capture timestamp and recording id from a blob
// filename. Returns false when the name does not follow the convention.
func ParseName(name string) (ParsedName, bool) {
	match := blobNamePattern.FindStringSubmatch(name)
	if match == nil {
		return ParsedName{}, false
	}
	capturedAt, err := time.ParseInLocation(nameTimestampLayout, match[2], time.UTC)
	if err != nil {
		return ParsedName{}, false
	}
	return ParsedName{
		Prefix:      match[1],
		CapturedAt:  capturedAt,
		RecordingID: match[3],
		Extension:   "." + match[4],
	}, true
}

// RecordingIDFromName is a convenience wrapper returning just the embedded id.
func RecordingIDFromName(name string) (string, bool) {
	parsed, ok := ParseName(name)
	if !ok {
		return "", false
	}
	return parsed.RecordingID, true
}
