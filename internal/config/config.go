package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	SpoolDir string `toml:"spool_dir"`
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Ledger contains configuration for the SQLite ledger.
type Ledger struct {
	Path string `toml:"path"`
}

// Provider contains configuration for the telephony provider API.
type Provider struct {
	BaseURL                string `toml:"base_url"`
	APIKey                 string `toml:"api_key"`
	APISecret              string `toml:"api_secret"`
	PageSize               int    `toml:"page_size"`
	RequestDelayMillis     int    `toml:"request_delay_ms"`
	RequestTimeoutSeconds  int    `toml:"request_timeout_seconds"`
	DownloadTimeoutSeconds int    `toml:"download_timeout_seconds"`
}

// Fetch contains configuration for the fetch scheduler.
type Fetch struct {
	WindowHours       int    `toml:"window_hours"`
	TimeBudgetSeconds int    `toml:"time_budget_seconds"`
	BlobPrefix        string `toml:"blob_prefix"`
	BlobExtension     string `toml:"blob_extension"`
}

// Recovery contains configuration for the recovery orchestrator.
type Recovery struct {
	PendingResetMinutes int `toml:"pending_reset_minutes"`
	LeaseTTLSeconds     int `toml:"lease_ttl_seconds"`
}

// Notifications contains SMTP notification settings.
type Notifications struct {
	SMTPHost     string   `toml:"smtp_host"`
	SMTPPort     int      `toml:"smtp_port"`
	SMTPUsername string   `toml:"smtp_username"`
	SMTPPassword string   `toml:"smtp_password"`
	From         string   `toml:"from"`
	Recipients   []string `toml:"recipients"`
}

// Webhook contains configuration for the inbound provider webhook.
type Webhook struct {
	Bind   string `toml:"bind"`
	Secret string `toml:"secret"`
}

// Schedule contains serve-mode job intervals.
type Schedule struct {
	FetchIntervalMinutes     int `toml:"fetch_interval_minutes"`
	RecoveryIntervalMinutes  int `toml:"recovery_interval_minutes"`
	AuditIntervalMinutes     int `toml:"audit_interval_minutes"`
	ContinuationDelaySeconds int `toml:"continuation_delay_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Retention carries the retention window consumed by the external purge
// utility. Parsed and validated here; nothing in this core deletes data.
type Retention struct {
	Days int `toml:"days"`
}

// Config encapsulates all configuration values for callspool.
//
// Configuration sections by subsystem:
//   - Paths: spool, state, and log directories
//   - Ledger: SQLite database location
//   - Provider: telephony provider API connection
//   - Fetch: fetch window, time budget, blob naming
//   - Recovery: pending-reset age and lease TTL
//   - Notifications: SMTP settings for operator mail
//   - Webhook: inbound push endpoint bind and shared secret
//   - Schedule: serve-mode job intervals
//   - Logging: log format and level
//   - Retention: purge window surfaced to the external purge utility
type Config struct {
	Paths         Paths         `toml:"paths"`
	Ledger        Ledger        `toml:"ledger"`
	Provider      Provider      `toml:"provider"`
	Fetch         Fetch         `toml:"fetch"`
	Recovery      Recovery      `toml:"recovery"`
	Notifications Notifications `toml:"notifications"`
	Webhook       Webhook       `toml:"webhook"`
	Schedule      Schedule      `toml:"schedule"`
	Logging       Logging       `toml:"logging"`
	Retention     Retention     `toml:"retention"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/callspool/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("callspool.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories required for operation, including
// the four blob locations under the spool directory.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.StateDir, c.Paths.LogDir}
	dirs = append(dirs, c.BlobLocationDirs()...)
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// BlobLocationDirs returns the four lifecycle location directories in
// source, processing, completed, error order.
func (c *Config) BlobLocationDirs() []string {
	return []string{
		filepath.Join(c.Paths.SpoolDir, "source"),
		filepath.Join(c.Paths.SpoolDir, "processing"),
		filepath.Join(c.Paths.SpoolDir, "completed"),
		filepath.Join(c.Paths.SpoolDir, "error"),
	}
}

// LedgerPath returns the resolved SQLite database path.
func (c *Config) LedgerPath() string {
	if strings.TrimSpace(c.Ledger.Path) != "" {
		return c.Ledger.Path
	}
	return filepath.Join(c.Paths.StateDir, "ledger.db")
}

// FetchTimeBudget returns the soft execution budget for one fetch invocation.
func (c *Config) FetchTimeBudget() time.Duration {
	return time.Duration(c.Fetch.TimeBudgetSeconds) * time.Second
}

// PendingResetAge returns the age after which PENDING transcription rows are reset.
func (c *Config) PendingResetAge() time.Duration {
	return time.Duration(c.Recovery.PendingResetMinutes) * time.Minute
}

// LeaseTTL returns the lease expiry window.
func (c *Config) LeaseTTL() time.Duration {
	return time.Duration(c.Recovery.LeaseTTLSeconds) * time.Second
}

// RequestDelay returns the cooperative pause between provider calls.
func (c *Config) RequestDelay() time.Duration {
	return time.Duration(c.Provider.RequestDelayMillis) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
