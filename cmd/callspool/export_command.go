package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"callspool/internal/config"
	"callspool/internal/report"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the ledger to an Excel workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.openApp(false)
			if err != nil {
				return err
			}
			defer app.Close()

			target := strings.TrimSpace(output)
			if target == "" {
				target = "callspool-report.xlsx"
			}
			expanded, err := config.ExpandPath(target)
			if err != nil {
				return err
			}

			if err := report.WriteWorkbook(cmd.Context(), app.store, expanded); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", expanded)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination workbook path (default callspool-report.xlsx)")
	return cmd
}
