package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"callspool/internal/fetcher"
	"callspool/internal/ledger"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var fromFlag string
	var toFlag string
	var startPage int
	var fromLedger bool

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch recordings for a time window from the provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.openApp(false)
			if err != nil {
				return err
			}
			defer app.Close()

			var fromPtr, toPtr *time.Time
			if strings.TrimSpace(fromFlag) != "" {
				parsed, err := parseTimeFlag(fromFlag)
				if err != nil {
					return err
				}
				fromPtr = &parsed
			}
			if strings.TrimSpace(toFlag) != "" {
				parsed, err := parseTimeFlag(toFlag)
				if err != nil {
					return err
				}
				toPtr = &parsed
			}

			return app.withLease(cmd.Context(), ledger.LeaseFetch, func(jobCtx context.Context) error {
				var outcome fetcher.Outcome
				var err error
				if fromLedger {
					jobCtx = annotate(jobCtx, "fetch-ledger")
					outcome, err = app.fetcher.ProcessLedgerPending(jobCtx, fromPtr, toPtr)
				} else {
					jobCtx = annotate(jobCtx, "fetch-window")
					to := time.Now()
					if toPtr != nil {
						to = *toPtr
					}
					from := to.Add(-time.Duration(app.cfg.Fetch.WindowHours) * time.Hour)
					if fromPtr != nil {
						from = *fromPtr
					}
					if !from.Before(to) {
						return errors.New("--from must be before --to")
					}
					outcome, err = app.fetcher.FetchWindow(jobCtx, from, to, startPage)
				}
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, outcome.Summary())
				if outcome.Continued {
					fmt.Fprintln(out, "time budget reached before the window finished; run `callspool resume` to continue")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&fromFlag, "from", "", "Window start, RFC3339 or YYYY-MM-DD (default now minus fetch.window_hours)")
	cmd.Flags().StringVar(&toFlag, "to", "", "Window end, RFC3339 or YYYY-MM-DD (default now)")
	cmd.Flags().IntVar(&startPage, "page", 1, "Provider page to start from")
	cmd.Flags().BoolVar(&fromLedger, "ledger", false, "Re-download rows marked PENDING in the ledger instead of listing the provider")
	return cmd
}

func parseTimeFlag(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	if parsed, err := time.ParseInLocation("2006-01-02", value, time.Local); err == nil {
		return parsed, nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q (want RFC3339 or YYYY-MM-DD)", value)
}
