package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"callspool/internal/ledger"
	"callspool/internal/recovery"
)

type recoveryStep func(context.Context) (recovery.Result, error)

func newRecoverCommand(ctx *commandContext) *cobra.Command {
	recoverCmd := &cobra.Command{
		Use:   "recover",
		Short: "Repair drift between the spool locations and the ledger",
	}

	recoverCmd.AddCommand(newRecoverRunCommand(ctx))
	recoverCmd.AddCommand(newRecoverStepCommand(ctx, "interrupted", "interrupted",
		"Re-queue recordings stuck in the processing location",
		func(o *recovery.Orchestrator) recoveryStep { return o.RecoverInterrupted }))
	recoverCmd.AddCommand(newRecoverStepCommand(ctx, "errored", "errored",
		"Re-queue errored recordings, at most once each",
		func(o *recovery.Orchestrator) recoveryStep { return o.RecoverErrored }))
	recoverCmd.AddCommand(newRecoverStepCommand(ctx, "pending", "pending-reset",
		"Reset transcription rows stuck in PENDING past the configured age",
		func(o *recovery.Orchestrator) recoveryStep { return o.ResetPending }))
	recoverCmd.AddCommand(newRecoverStepCommand(ctx, "force", "force",
		"Re-queue every errored recording regardless of earlier retries",
		func(o *recovery.Orchestrator) recoveryStep { return o.ForceRecover }))

	return recoverCmd
}

func newRecoverRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the full recovery pass: audit, pending reset, errored, interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.openApp(false)
			if err != nil {
				return err
			}
			defer app.Close()

			return app.withLease(cmd.Context(), ledger.LeaseRecovery, func(jobCtx context.Context) error {
				jobCtx = annotate(jobCtx, "recovery")
				outcome := app.orch.RunAll(jobCtx)
				fmt.Fprintln(cmd.OutOrStdout(), outcome.Message)
				if !outcome.OK {
					return errors.New("recovery run reported failures")
				}
				return nil
			})
		},
	}
}

func newRecoverStepCommand(ctx *commandContext, use, operation, short string, pick func(*recovery.Orchestrator) recoveryStep) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.openApp(false)
			if err != nil {
				return err
			}
			defer app.Close()

			return app.withLease(cmd.Context(), ledger.LeaseRecovery, func(jobCtx context.Context) error {
				jobCtx = annotate(jobCtx, "recover-"+use)
				result, err := pick(app.orch)(jobCtx)
				if err != nil {
					return err
				}
				printRecoveryResult(cmd.OutOrStdout(), operation, result)
				return nil
			})
		},
	}
}

func printRecoveryResult(out io.Writer, operation string, result recovery.Result) {
	fmt.Fprintln(out, result.Summary(operation))
	for _, detail := range result.Details {
		fmt.Fprintf(out, "  %s\n", detail)
	}
}
