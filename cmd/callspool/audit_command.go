package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"callspool/internal/ledger"
)

func newAuditCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Scan finished transcripts for known failure signatures",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.openApp(false)
			if err != nil {
				return err
			}
			defer app.Close()

			return app.withLease(cmd.Context(), ledger.LeaseRecovery, func(jobCtx context.Context) error {
				jobCtx = annotate(jobCtx, "audit")
				result, err := app.detector.Run(jobCtx)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, result.Summary())
				for _, detail := range result.Details {
					fmt.Fprintf(out, "  %s\n", detail)
				}
				return nil
			})
		},
	}
}
