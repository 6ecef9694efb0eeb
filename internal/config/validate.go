package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateProvider(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validateRecovery(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	if c.Retention.Days < 1 {
		return errors.New("retention.days must be at least 1")
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.SpoolDir) == "" {
		return errors.New("paths.spool_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateProvider() error {
	if c.Provider.PageSize < 1 || c.Provider.PageSize > 100 {
		return errors.New("provider.page_size must be between 1 and 100")
	}
	if c.Provider.RequestDelayMillis < 0 {
		return errors.New("provider.request_delay_ms must not be negative")
	}
	if c.Provider.RequestTimeoutSeconds < 1 {
		return errors.New("provider.request_timeout_seconds must be at least 1")
	}
	if c.Provider.DownloadTimeoutSeconds < 1 {
		return errors.New("provider.download_timeout_seconds must be at least 1")
	}
	return nil
}

func (c *Config) validateFetch() error {
	if c.Fetch.WindowHours < 1 {
		return errors.New("fetch.window_hours must be at least 1")
	}
	if c.Fetch.TimeBudgetSeconds < 10 {
		return errors.New("fetch.time_budget_seconds must be at least 10")
	}
	if c.Fetch.BlobPrefix == "" {
		return errors.New("fetch.blob_prefix must be set")
	}
	if strings.ContainsAny(c.Fetch.BlobPrefix, "_/\\") {
		return fmt.Errorf("fetch.blob_prefix %q must not contain underscores or path separators", c.Fetch.BlobPrefix)
	}
	return nil
}

func (c *Config) validateRecovery() error {
	if c.Recovery.PendingResetMinutes < 1 {
		return errors.New("recovery.pending_reset_minutes must be at least 1")
	}
	if c.Recovery.LeaseTTLSeconds < 10 {
		return errors.New("recovery.lease_ttl_seconds must be at least 10")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if strings.TrimSpace(c.Notifications.SMTPHost) == "" {
		// Notifications are optional; the noop service takes over.
		return nil
	}
	if c.Notifications.SMTPPort < 1 || c.Notifications.SMTPPort > 65535 {
		return errors.New("notifications.smtp_port must be a valid TCP port")
	}
	if strings.TrimSpace(c.Notifications.From) == "" {
		return errors.New("notifications.from must be set when smtp_host is configured")
	}
	if len(c.Notifications.Recipients) == 0 {
		return errors.New("notifications.recipients must list at least one address when smtp_host is configured")
	}
	return nil
}

func (c *Config) validateSchedule() error {
	if c.Schedule.FetchIntervalMinutes < 1 {
		return errors.New("schedule.fetch_interval_minutes must be at least 1")
	}
	if c.Schedule.RecoveryIntervalMinutes < 1 {
		return errors.New("schedule.recovery_interval_minutes must be at least 1")
	}
	if c.Schedule.AuditIntervalMinutes < 1 {
		return errors.New("schedule.audit_interval_minutes must be at least 1")
	}
	if c.Schedule.ContinuationDelaySeconds < 1 {
		return errors.New("schedule.continuation_delay_seconds must be at least 1")
	}
	return nil
}
