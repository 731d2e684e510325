package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/academia/internal/domain"
	"github.com/prn-tf/academia/internal/lock"
	"github.com/prn-tf/academia/internal/metrics"
	"github.com/prn-tf/academia/internal/repository"
)

// Reconciler repairs approved profiles whose domain profile is missing.
type Reconciler struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
	provisioner *Provisioner
	locker      lock.Locker
	metrics     *metrics.Metrics
	logger      zerolog.Logger
	config      ReconcileConfig

	// cursor is the last user id examined by a full batch. The next run
	// resumes after it so rows that keep failing cannot starve later ones.
	cursorMu sync.Mutex
	cursor   int64

	// Control
	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
}

// ReconcileConfig contains reconciliation settings.
type ReconcileConfig struct {
	// Enabled determines if reconciliation runs periodically in the server.
	Enabled bool

	// Interval is how often to run.
	Interval time.Duration

	// BatchSize is the maximum number of profiles repaired per run.
	BatchSize int

	// DryRun logs what would be repaired without writing.
	DryRun bool

	// LockTTL bounds how long one run holds the lock.
	LockTTL time.Duration

	// LockRetries is how many more times a run tries for a held lock before skipping.
	LockRetries int

	// LockRetryDelay is the wait between lock attempts.
	LockRetryDelay time.Duration
}

// DefaultReconcileConfig returns sensible defaults.
func DefaultReconcileConfig() ReconcileConfig {
	return ReconcileConfig{
		Enabled:   false,
		Interval:  1 * time.Hour,
		BatchSize: 500,
		DryRun:    false,
		LockTTL:   10 * time.Minute,

		LockRetries:    0,
		LockRetryDelay: 2 * time.Second,
	}
}

// NewReconciler creates a new Reconciler.
func NewReconciler(
	repos *repository.Repositories,
	provisioner *Provisioner,
	locker lock.Locker,
	m *metrics.Metrics,
	logger zerolog.Logger,
	config ReconcileConfig,
) *Reconciler {
	return &Reconciler{
		userRepo:    repos.User,
		profileRepo: repos.Profile,
		provisioner: provisioner,
		locker:      locker,
		metrics:     m,
		logger:      logger.With().Str("service", "reconcile").Logger(),
		config:      config,
		stopChan:    make(chan struct{}),
		doneChan:    make(chan struct{}),
	}
}

// Start begins the reconciliation scheduler.
func (r *Reconciler) Start() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.mu.Unlock()

	r.logger.Info().
		Dur("interval", r.config.Interval).
		Int("batch_size", r.config.BatchSize).
		Bool("dry_run", r.config.DryRun).
		Msg("starting profile reconciler")

	go r.runLoop()
}

// Stop stops the scheduler and waits for a running pass to finish.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()

	close(r.stopChan)
	<-r.doneChan

	r.logger.Info().Msg("profile reconciler stopped")
}

func (r *Reconciler) runLoop() {
	defer close(r.doneChan)

	r.run(context.Background(), r.config.DryRun)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.run(context.Background(), r.config.DryRun)
		case <-r.stopChan:
			return
		}
	}
}

// ReconcileResult contains the result of a reconciliation run.
type ReconcileResult struct {
	// Found is the number of inconsistencies seen.
	Found int

	// Repaired is the number of domain profiles created (or that would be, in a dry run).
	Repaired int

	// Errors is the number of failed repairs.
	Errors int

	// Skipped is true when another instance held the lock.
	Skipped bool

	DryRun   bool
	Duration time.Duration

	// Inconsistencies lists what was found.
	Inconsistencies []*domain.Inconsistency
}

// Audit lists approved profiles without their domain profile, at most one batch.
func (r *Reconciler) Audit(ctx context.Context) ([]*domain.Inconsistency, error) {
	return r.audit(ctx, 0)
}

func (r *Reconciler) audit(ctx context.Context, afterID int64) ([]*domain.Inconsistency, error) {
	found, err := r.profileRepo.ListUnprovisioned(ctx, afterID, r.config.BatchSize)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to list unprovisioned profiles")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return found, nil
}

// RunOnce executes a single reconciliation run with the configured dry-run mode.
func (r *Reconciler) RunOnce(ctx context.Context) ReconcileResult {
	return r.run(ctx, r.config.DryRun)
}

// RunDry executes a single run that reports without writing.
func (r *Reconciler) RunDry(ctx context.Context) ReconcileResult {
	return r.run(ctx, true)
}

func (r *Reconciler) run(ctx context.Context, dryRun bool) ReconcileResult {
	start := time.Now()
	result := ReconcileResult{DryRun: dryRun}

	lockKey := lock.Keys.ProfileReconcile()
	acquired, err := r.locker.AcquireWithRetry(ctx, lockKey, r.config.LockTTL, r.config.LockRetries, r.config.LockRetryDelay)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to acquire reconcile lock")
		result.Errors++
		result.Duration = time.Since(start)
		return result
	}
	if !acquired {
		r.logger.Debug().Msg("reconcile lock held by another process, skipping run")
		result.Skipped = true
		result.Duration = time.Since(start)
		return result
	}
	defer func() {
		if _, err := r.locker.Release(ctx, lockKey); err != nil {
			r.logger.Error().Err(err).Msg("failed to release reconcile lock")
		}
	}()

	found, next, err := r.nextBatch(ctx)
	if err != nil {
		result.Errors++
		result.Duration = time.Since(start)
		return result
	}
	if !dryRun {
		r.setCursor(next)
	}
	result.Found = len(found)
	result.Inconsistencies = found

	for _, inc := range found {
		if dryRun {
			r.logger.Info().
				Int64("user_id", inc.UserID).
				Str("username", inc.Username).
				Str("role", inc.Role.String()).
				Msg("[DRY RUN] would create missing domain profile")
			result.Repaired++
			continue
		}

		if err := r.repair(ctx, inc); err != nil {
			r.logger.Error().
				Err(err).
				Int64("user_id", inc.UserID).
				Str("role", inc.Role.String()).
				Msg("failed to repair profile")
			result.Errors++
			continue
		}
		result.Repaired++
	}

	result.Duration = time.Since(start)

	if r.metrics != nil && !dryRun {
		r.metrics.RecordReconcileRun(result.Duration, result.Found, result.Repaired)
	}

	r.logger.Info().
		Int("found", result.Found).
		Int("repaired", result.Repaired).
		Int("errors", result.Errors).
		Bool("dry_run", dryRun).
		Dur("duration", result.Duration).
		Msg("profile reconciliation completed")

	return result
}

// nextBatch lists one batch starting after the cursor, wrapping to the
// beginning when nothing is left past it. It also returns the cursor for the
// following run: the last id of a full batch, or zero once the end is reached.
func (r *Reconciler) nextBatch(ctx context.Context) ([]*domain.Inconsistency, int64, error) {
	r.cursorMu.Lock()
	after := r.cursor
	r.cursorMu.Unlock()

	found, err := r.audit(ctx, after)
	if err != nil {
		return nil, after, err
	}
	if len(found) == 0 && after > 0 {
		after = 0
		if found, err = r.audit(ctx, after); err != nil {
			return nil, after, err
		}
	}

	if r.config.BatchSize > 0 && len(found) >= r.config.BatchSize {
		return found, found[len(found)-1].UserID, nil
	}
	return found, 0, nil
}

func (r *Reconciler) setCursor(next int64) {
	r.cursorMu.Lock()
	r.cursor = next
	r.cursorMu.Unlock()
}

// repair creates the default domain profile for one inconsistency.
// Approval alone qualifies a profile; the active flag is not consulted.
func (r *Reconciler) repair(ctx context.Context, inc *domain.Inconsistency) error {
	user, err := r.userRepo.GetByID(ctx, inc.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	_, err = r.provisioner.ProvisionDefaults(ctx, user, inc.Role, SourceReconcile)
	return err
}
