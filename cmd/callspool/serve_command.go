package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"callspool/internal/runner"
	"callspool/internal/webhook"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and webhook endpoint until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.openApp(true)
			if err != nil {
				return err
			}
			defer app.Close()

			hook := webhook.NewServer(app.cfg, app.fetcher, app.logger)
			r := runner.New(app.cfg, app.store, app.fetcher, app.orch, app.detector, app.flags, app.queue, hook, app.logger)

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return r.Run(runCtx)
		},
	}
}
