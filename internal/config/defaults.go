package config

const (
	defaultSpoolDir                 = "~/.local/share/callspool/spool"
	defaultStateDir                 = "~/.local/share/callspool/state"
	defaultLogDir                   = "~/.local/share/callspool/logs"
	defaultProviderPageSize         = 30
	defaultRequestDelayMillis       = 500
	defaultRequestTimeoutSeconds    = 30
	defaultDownloadTimeoutSeconds   = 120
	defaultFetchWindowHours         = 24
	defaultTimeBudgetSeconds        = 240
	defaultBlobPrefix               = "rec"
	defaultBlobExtension            = ".mp3"
	defaultPendingResetMinutes      = 120
	defaultLeaseTTLSeconds          = 360
	defaultSMTPPort                 = 587
	defaultWebhookBind              = "127.0.0.1:8732"
	defaultFetchIntervalMinutes     = 60
	defaultRecoveryIntervalMinutes  = 180
	defaultAuditIntervalMinutes     = 360
	defaultContinuationDelaySeconds = 30
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
	defaultRetentionDays            = 90
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			SpoolDir: defaultSpoolDir,
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Provider: Provider{
			PageSize:               defaultProviderPageSize,
			RequestDelayMillis:     defaultRequestDelayMillis,
			RequestTimeoutSeconds:  defaultRequestTimeoutSeconds,
			DownloadTimeoutSeconds: defaultDownloadTimeoutSeconds,
		},
		Fetch: Fetch{
			WindowHours:       defaultFetchWindowHours,
			TimeBudgetSeconds: defaultTimeBudgetSeconds,
			BlobPrefix:        defaultBlobPrefix,
			BlobExtension:     defaultBlobExtension,
		},
		Recovery: Recovery{
			PendingResetMinutes: defaultPendingResetMinutes,
			LeaseTTLSeconds:     defaultLeaseTTLSeconds,
		},
		Notifications: Notifications{
			SMTPPort: defaultSMTPPort,
		},
		Webhook: Webhook{
			Bind: defaultWebhookBind,
		},
		Schedule: Schedule{
			FetchIntervalMinutes:     defaultFetchIntervalMinutes,
			RecoveryIntervalMinutes:  defaultRecoveryIntervalMinutes,
			AuditIntervalMinutes:     defaultAuditIntervalMinutes,
			ContinuationDelaySeconds: defaultContinuationDelaySeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Retention: Retention{
			Days: defaultRetentionDays,
		},
	}
}
