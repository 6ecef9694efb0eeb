package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"callspool/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification through the configured SMTP channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if strings.TrimSpace(cfg.Notifications.SMTPHost) == "" || len(cfg.Notifications.Recipients) == 0 {
				fmt.Fprintln(out, "Notifications are not configured; nothing sent")
				return nil
			}

			if err := notifications.NewService(cfg).TestNotification(cmd.Context()); err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			fmt.Fprintf(out, "Test notification sent to %s\n", strings.Join(cfg.Notifications.Recipients, ", "))
			return nil
		},
	}
}
