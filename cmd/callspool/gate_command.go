package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGateCommand(ctx *commandContext) *cobra.Command {
	gateCmd := &cobra.Command{
		Use:   "gate",
		Short: "Inspect or toggle the processing gate",
	}

	gateCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show whether processing is enabled",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags, err := ctx.openFlags()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Processing enabled: %s\n", yesNo(flags.ProcessingEnabled()))
			return nil
		},
	})

	gateCmd.AddCommand(&cobra.Command{
		Use:   "enable",
		Short: "Allow scheduled and manual jobs to run",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags, err := ctx.openFlags()
			if err != nil {
				return err
			}
			if err := flags.SetProcessingEnabled(true); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Processing enabled")
			return nil
		},
	})

	gateCmd.AddCommand(&cobra.Command{
		Use:   "disable",
		Short: "Pause scheduled and manual jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags, err := ctx.openFlags()
			if err != nil {
				return err
			}
			if err := flags.SetProcessingEnabled(false); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Processing disabled; jobs will skip until re-enabled")
			return nil
		},
	})

	return gateCmd
}
