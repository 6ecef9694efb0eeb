package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"callspool/internal/audit"
	"callspool/internal/blobstore"
	"callspool/internal/config"
	"callspool/internal/fetcher"
	"callspool/internal/ledger"
	"callspool/internal/logging"
	"callspool/internal/notifications"
	"callspool/internal/provider"
	"callspool/internal/recovery"
	"callspool/internal/services"
	"callspool/internal/state"
)

// State files kept under paths.state_dir.
const (
	dedupStateFile      = "processed.json"
	checkpointStateFile = "checkpoints.json"
	gateStateFile       = "flags.json"
	logFileName         = "callspool.log"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) openFlags() (*state.Flags, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return state.NewFlags(filepath.Join(cfg.Paths.StateDir, gateStateFile)), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// app bundles the wired runtime components behind one open/close pair.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *ledger.Store
	blobs    *blobstore.Local
	dedup    *state.DedupCache
	queue    *state.CheckpointQueue
	flags    *state.Flags
	notifier notifications.Service
	fetcher  *fetcher.Fetcher
	detector *audit.Detector
	orch     *recovery.Orchestrator
}

// openApp wires the full component graph from the resolved configuration.
// One-shot commands log to the shared log file only; serve adds stdout.
func (c *commandContext) openApp(toStdout bool) (*app, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	outputs := []string{filepath.Join(cfg.Paths.LogDir, logFileName)}
	if toStdout {
		outputs = append([]string{"stdout"}, outputs...)
	}
	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
	})
	if err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}

	store, err := ledger.Open(cfg)
	if err != nil {
		return nil, err
	}

	blobs, err := blobstore.NewLocal(cfg.Paths.SpoolDir, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	api := provider.NewClient(provider.Config{
		BaseURL:                cfg.Provider.BaseURL,
		APIKey:                 cfg.Provider.APIKey,
		APISecret:              cfg.Provider.APISecret,
		PageSize:               cfg.Provider.PageSize,
		RequestTimeoutSeconds:  cfg.Provider.RequestTimeoutSeconds,
		DownloadTimeoutSeconds: cfg.Provider.DownloadTimeoutSeconds,
	})

	dedup := state.NewDedupCache(filepath.Join(cfg.Paths.StateDir, dedupStateFile), logger)
	queue := state.NewCheckpointQueue(filepath.Join(cfg.Paths.StateDir, checkpointStateFile), logger)
	flags := state.NewFlags(filepath.Join(cfg.Paths.StateDir, gateStateFile))

	notifier := notifications.NewService(cfg)
	f := fetcher.New(cfg, store, blobs, api, dedup, queue, logger)
	detector := audit.NewDetector(store, blobs, notifier, logger)
	orch := recovery.New(cfg, store, blobs, detector, notifier, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		blobs:    blobs,
		dedup:    dedup,
		queue:    queue,
		flags:    flags,
		notifier: notifier,
		fetcher:  f,
		detector: detector,
		orch:     orch,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close ledger", logging.Error(err))
	}
}

// withLease gates a one-shot job behind the processing flag and the named
// ledger lease so manual invocations cannot overlap a serve instance or a
// second terminal.
func (a *app) withLease(ctx context.Context, name string, fn func(context.Context) error) error {
	if !a.flags.ProcessingEnabled() {
		return fmt.Errorf("processing is disabled; run `callspool gate enable` first")
	}
	holder := uuid.NewString()
	acquired, err := a.store.AcquireLease(ctx, name, holder, a.cfg.LeaseTTL())
	if err != nil {
		return err
	}
	if !acquired {
		return fmt.Errorf("lease %q is held by another process; try again later", name)
	}
	defer func() {
		_ = a.store.ReleaseLease(context.Background(), name, holder)
	}()
	return fn(ctx)
}

// annotate stamps the job context with a fresh run id and operation name.
func annotate(ctx context.Context, operation string) context.Context {
	return services.WithOperation(services.WithRunID(ctx, uuid.NewString()), operation)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
