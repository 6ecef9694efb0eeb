package provider

import (
	"context"
	"io"
	"time"
)

// Recording is one item from the provider's recording listing.
type Recording struct {
	ID                  string    `json:"id"`
	StartTime           time.Time `json:"startTime"`
	DownloadURL         string    `json:"downloadUrl"`
	DurationSeconds     int       `json:"duration"`
	SalesPhoneNumber    string    `json:"salesPhoneNumber"`
	CustomerPhoneNumber string    `json:"customerPhoneNumber"`
}

// Page is one page of the recording listing.
type Page struct {
	Recordings []Recording `json:"recordings"`
	HasMore    bool        `json:"hasMore"`
}

// API is the surface the fetch scheduler needs from the telephony provider.
type API interface {
	// ListRecordings returns one page of recordings whose start time falls in
	// [from, to]. Pages are 1-based.
	ListRecordings(ctx context.Context, from, to time.Time, page int) (*Page, error)
	// Download streams the recording bytes behind a listing item's URL. The
	// caller owns the returned reader.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}
