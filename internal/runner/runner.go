package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"callspool/internal/audit"
	"callspool/internal/config"
	"callspool/internal/fetcher"
	"callspool/internal/ledger"
	"callspool/internal/logging"
	"callspool/internal/recovery"
	"callspool/internal/services"
	"callspool/internal/state"
	"callspool/internal/webhook"
)

// ErrAlreadyRunning is returned when another serve instance holds the
// process lock.
var ErrAlreadyRunning = errors.New("another instance is already running")

// ErrSkipped marks a job that did not run: processing is gated off or
// another holder owns the lease.
var ErrSkipped = errors.New("job skipped")

// Runner is the serve-mode scheduler. It replaces the original external cron
// with in-process interval jobs for fetching, continuation draining,
// recovery, and auditing.
type Runner struct {
	cfg      *config.Config
	store    *ledger.Store
	fetcher  *fetcher.Fetcher
	orch     *recovery.Orchestrator
	detector *audit.Detector
	flags    *state.Flags
	queue    *state.CheckpointQueue
	webhook  *webhook.Server
	logger   *slog.Logger

	holder string
	now    func() time.Time
}

// New wires a runner from its collaborators. The webhook server may be nil.
func New(
	cfg *config.Config,
	store *ledger.Store,
	f *fetcher.Fetcher,
	orch *recovery.Orchestrator,
	detector *audit.Detector,
	flags *state.Flags,
	queue *state.CheckpointQueue,
	hook *webhook.Server,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		cfg:      cfg,
		store:    store,
		fetcher:  f,
		orch:     orch,
		detector: detector,
		flags:    flags,
		queue:    queue,
		webhook:  hook,
		logger:   logging.NewComponentLogger(logger, "runner"),
		holder:   uuid.NewString(),
		now:      time.Now,
	}
}

// Run blocks until ctx is canceled. Jobs run sequentially in the scheduler
// goroutine, so at most one job (and one continuation) is in flight.
func (r *Runner) Run(ctx context.Context) error {
	lock := flock.New(filepath.Join(r.cfg.Paths.StateDir, "callspool.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire process lock: %w", err)
	}
	if !locked {
		return ErrAlreadyRunning
	}
	defer func() {
		_ = lock.Unlock()
	}()

	if r.webhook != nil {
		if err := r.webhook.Start(ctx); err != nil {
			return err
		}
	}

	fetchTicker := time.NewTicker(time.Duration(r.cfg.Schedule.FetchIntervalMinutes) * time.Minute)
	defer fetchTicker.Stop()
	recoveryTicker := time.NewTicker(time.Duration(r.cfg.Schedule.RecoveryIntervalMinutes) * time.Minute)
	defer recoveryTicker.Stop()
	auditTicker := time.NewTicker(time.Duration(r.cfg.Schedule.AuditIntervalMinutes) * time.Minute)
	defer auditTicker.Stop()
	continuationTicker := time.NewTicker(time.Duration(r.cfg.Schedule.ContinuationDelaySeconds) * time.Second)
	defer continuationTicker.Stop()

	r.logger.Info("serve loop started",
		logging.Int("fetch_interval_minutes", r.cfg.Schedule.FetchIntervalMinutes),
		logging.Int("recovery_interval_minutes", r.cfg.Schedule.RecoveryIntervalMinutes),
		logging.Int("audit_interval_minutes", r.cfg.Schedule.AuditIntervalMinutes))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("serve loop stopping")
			return nil
		case <-fetchTicker.C:
			r.logJob("fetch", r.RunFetchJob(ctx))
		case <-continuationTicker.C:
			r.logJob("continuation", r.RunContinuationJob(ctx))
		case <-recoveryTicker.C:
			r.logJob("recovery", r.RunRecoveryJob(ctx))
		case <-auditTicker.C:
			r.logJob("audit", r.RunAuditJob(ctx))
		}
	}
}

func (r *Runner) logJob(name string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, ErrSkipped):
		r.logger.Debug("job skipped", logging.String(logging.FieldOperation, name), logging.Error(err))
	case errors.Is(err, context.Canceled):
	default:
		r.logger.Error("job failed", logging.String(logging.FieldOperation, name), logging.Error(err))
	}
}

// RunFetchJob fetches the sliding window ending now under the fetch lease.
func (r *Runner) RunFetchJob(ctx context.Context) error {
	release, err := r.guard(ctx, ledger.LeaseFetch)
	if err != nil {
		return err
	}
	defer release()

	ctx = services.WithOperation(services.WithRunID(ctx, uuid.NewString()), "fetch-window")
	to := r.now()
	from := to.Add(-time.Duration(r.cfg.Fetch.WindowHours) * time.Hour)
	outcome, err := r.fetcher.FetchWindow(ctx, from, to, 1)
	if err != nil {
		return err
	}
	r.logger.Info("scheduled fetch finished", logging.String("summary", outcome.Summary()))
	return nil
}

// RunContinuationJob drains one pending checkpoint under the fetch lease.
func (r *Runner) RunContinuationJob(ctx context.Context) error {
	if r.queue.Len() == 0 {
		return nil
	}
	release, err := r.guard(ctx, ledger.LeaseFetch)
	if err != nil {
		return err
	}
	defer release()

	ctx = services.WithOperation(services.WithRunID(ctx, uuid.NewString()), "continuation")
	outcome, err := r.fetcher.Resume(ctx)
	if err != nil {
		return err
	}
	r.logger.Info("continuation finished", logging.String("summary", outcome.Summary()))
	return nil
}

// RunRecoveryJob executes the full recovery pass under the recovery lease.
func (r *Runner) RunRecoveryJob(ctx context.Context) error {
	release, err := r.guard(ctx, ledger.LeaseRecovery)
	if err != nil {
		return err
	}
	defer release()

	ctx = services.WithOperation(services.WithRunID(ctx, uuid.NewString()), "recovery")
	outcome := r.orch.RunAll(ctx)
	if !outcome.OK {
		return fmt.Errorf("recovery run reported failures: %s", outcome.Message)
	}
	return nil
}

// RunAuditJob executes one detector pass under the recovery lease.
func (r *Runner) RunAuditJob(ctx context.Context) error {
	release, err := r.guard(ctx, ledger.LeaseRecovery)
	if err != nil {
		return err
	}
	defer release()

	ctx = services.WithOperation(services.WithRunID(ctx, uuid.NewString()), "audit")
	result, err := r.detector.Run(ctx)
	if err != nil {
		return err
	}
	r.logger.Info("scheduled audit finished", logging.String("summary", result.Summary()))
	return nil
}

// guard checks the processing gate and takes the named lease. The returned
// function releases the lease.
func (r *Runner) guard(ctx context.Context, leaseName string) (func(), error) {
	if !r.flags.ProcessingEnabled() {
		return nil, fmt.Errorf("%w: processing disabled", ErrSkipped)
	}
	acquired, err := r.store.AcquireLease(ctx, leaseName, r.holder, r.cfg.LeaseTTL())
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, fmt.Errorf("%w: lease %q held elsewhere", ErrSkipped, leaseName)
	}
	return func() {
		if err := r.store.ReleaseLease(context.Background(), leaseName, r.holder); err != nil {
			r.logger.Warn("failed to release lease",
				logging.String("lease", leaseName),
				logging.Error(err))
		}
	}, nil
}
