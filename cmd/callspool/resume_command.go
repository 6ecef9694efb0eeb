package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"callspool/internal/ledger"
)

func newResumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Continue an interrupted fetch from its saved checkpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.openApp(false)
			if err != nil {
				return err
			}
			defer app.Close()

			out := cmd.OutOrStdout()
			if app.queue.Len() == 0 {
				fmt.Fprintln(out, "no checkpoint to resume")
				return nil
			}

			return app.withLease(cmd.Context(), ledger.LeaseFetch, func(jobCtx context.Context) error {
				jobCtx = annotate(jobCtx, "continuation")
				outcome, err := app.fetcher.Resume(jobCtx)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, outcome.Summary())
				if outcome.Continued {
					fmt.Fprintln(out, "time budget reached again; another checkpoint is queued")
				}
				return nil
			})
		},
	}
}
