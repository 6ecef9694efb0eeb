package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"callspool/internal/blobstore"
	"callspool/internal/ledger"
)

const (
	ansiBlue  = "\x1b[34m"
	ansiReset = "\x1b[0m"
)

var fetchStatusOrder = []ledger.FetchStatus{
	ledger.FetchPending,
	ledger.FetchProcessed,
	ledger.FetchDuplicate,
	ledger.FetchDownloadError,
	ledger.FetchSaveError,
}

var transcriptionStatusOrder = []ledger.TranscriptionStatus{
	ledger.TranscriptionPending,
	ledger.TranscriptionSuccess,
	ledger.TranscriptionError,
	ledger.TranscriptionRetry,
	ledger.TranscriptionForceRetry,
	ledger.TranscriptionResetPending,
	ledger.TranscriptionErrorDetected,
	ledger.TranscriptionInterrupted,
}

type statusPayload struct {
	ProcessingEnabled     bool           `json:"processingEnabled"`
	PendingCheckpoints    int            `json:"pendingCheckpoints"`
	DedupEntries          int            `json:"dedupEntries"`
	TotalRecordings       int            `json:"totalRecordings"`
	FetchStatuses         map[string]int `json:"fetchStatuses"`
	TranscriptionStatuses map[string]int `json:"transcriptionStatuses"`
	BlobCounts            map[string]int `json:"blobCounts"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show ledger, spool, and scheduler state",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.openApp(false)
			if err != nil {
				return err
			}
			defer app.Close()

			stats, err := app.store.Stats(cmd.Context())
			if err != nil {
				return err
			}

			blobCounts := make(map[string]int, len(blobstore.Locations()))
			for _, location := range blobstore.Locations() {
				entries, err := app.blobs.List(location)
				if err != nil {
					return err
				}
				blobCounts[string(location)] = len(entries)
			}

			payload := statusPayload{
				ProcessingEnabled:     app.flags.ProcessingEnabled(),
				PendingCheckpoints:    app.queue.Len(),
				DedupEntries:          app.dedup.Len(),
				TotalRecordings:       stats.Total,
				FetchStatuses:         make(map[string]int, len(stats.Fetch)),
				TranscriptionStatuses: make(map[string]int, len(stats.Transcription)),
				BlobCounts:            blobCounts,
			}
			for status, count := range stats.Fetch {
				payload.FetchStatuses[string(status)] = count
			}
			for status, count := range stats.Transcription {
				payload.TranscriptionStatuses[string(status)] = count
			}

			if asJSON {
				return writeJSON(cmd, payload)
			}
			renderStatus(cmd.OutOrStdout(), payload)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable JSON")
	return cmd
}

func renderStatus(out io.Writer, payload statusPayload) {
	for _, line := range sectionHeader("Callspool Status", shouldColorize(out)) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintf(out, "Processing enabled: %s\n", yesNo(payload.ProcessingEnabled))
	fmt.Fprintf(out, "Pending checkpoints: %d\n", payload.PendingCheckpoints)
	fmt.Fprintf(out, "Dedup cache entries: %d\n", payload.DedupEntries)
	fmt.Fprintf(out, "Recordings tracked: %d\n", payload.TotalRecordings)

	if payload.TotalRecordings > 0 {
		rows := make([][]string, 0, len(fetchStatusOrder))
		for _, status := range fetchStatusOrder {
			if count := payload.FetchStatuses[string(status)]; count > 0 {
				rows = append(rows, []string{string(status), strconv.Itoa(count)})
			}
		}
		for _, status := range transcriptionStatusOrder {
			if count := payload.TranscriptionStatuses[string(status)]; count > 0 {
				rows = append(rows, []string{"transcription " + string(status), strconv.Itoa(count)})
			}
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Status", "Count"},
			rows,
			[]columnAlignment{alignLeft, alignRight},
		))
	}

	blobRows := make([][]string, 0, len(blobstore.Locations()))
	for _, location := range blobstore.Locations() {
		blobRows = append(blobRows, []string{string(location), strconv.Itoa(payload.BlobCounts[string(location)])})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Location", "Blobs"},
		blobRows,
		[]columnAlignment{alignLeft, alignRight},
	))
}

func sectionHeader(title string, colorize bool) []string {
	rule := strings.Repeat("-", len(title))
	if colorize {
		return []string{ansiBlue + title + ansiReset, ansiBlue + rule + ansiReset}
	}
	return []string{title, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
