package config

import (
	"os"
	"strings"
)

// Environment variables consulted for secrets so credentials can stay out of
// the config file (loaded from .env by the CLI before config resolution).
const (
	EnvProviderKey    = "CALLSPOOL_PROVIDER_KEY"
	EnvProviderSecret = "CALLSPOOL_PROVIDER_SECRET"
	EnvWebhookSecret  = "CALLSPOOL_WEBHOOK_SECRET"
	EnvSMTPPassword   = "CALLSPOOL_SMTP_PASSWORD"
)

func (c *Config) normalize() error {
	var err error
	if c.Paths.SpoolDir, err = expandPath(c.Paths.SpoolDir); err != nil {
		return err
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if strings.TrimSpace(c.Ledger.Path) != "" {
		if c.Ledger.Path, err = expandPath(c.Ledger.Path); err != nil {
			return err
		}
	}

	c.Provider.BaseURL = strings.TrimRight(strings.TrimSpace(c.Provider.BaseURL), "/")
	c.Fetch.BlobPrefix = strings.TrimSpace(c.Fetch.BlobPrefix)
	if ext := strings.TrimSpace(c.Fetch.BlobExtension); ext != "" && !strings.HasPrefix(ext, ".") {
		c.Fetch.BlobExtension = "." + ext
	}

	if v := os.Getenv(EnvProviderKey); v != "" {
		c.Provider.APIKey = v
	}
	if v := os.Getenv(EnvProviderSecret); v != "" {
		c.Provider.APISecret = v
	}
	if v := os.Getenv(EnvWebhookSecret); v != "" {
		c.Webhook.Secret = v
	}
	if v := os.Getenv(EnvSMTPPassword); v != "" {
		c.Notifications.SMTPPassword = v
	}
	return nil
}
