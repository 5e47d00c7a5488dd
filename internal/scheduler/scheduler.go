// Package scheduler runs recurring maintenance for snapstream. Its one
// job today is the orphan sweep: HLS output directories whose video
// record no longer exists get removed once they are old enough.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/madhusudan785/SnapStream/internal/config"
	"github.com/madhusudan785/SnapStream/internal/models"
	"github.com/madhusudan785/SnapStream/internal/observability"
	"github.com/madhusudan785/SnapStream/internal/repository"
	"github.com/madhusudan785/SnapStream/internal/storage"
)

// SweepResult reports what one orphan sweep did.
type SweepResult struct {
	Scanned int
	Removed int
	Skipped int
	Errors  int
}

// Scheduler owns the cron loop and the orphan sweep.
type Scheduler struct {
	repo   repository.VideoRepository
	store  *storage.MediaStore
	cfg    config.CleanupConfig
	logger *slog.Logger

	cron    *cron.Cron
	entryID cron.EntryID
}

// New creates a Scheduler. The sweep is registered but not started.
func New(repo repository.VideoRepository, store *storage.MediaStore, cfg config.CleanupConfig) *Scheduler {
	return &Scheduler{
		repo:   repo,
		store:  store,
		cfg:    cfg,
		logger: slog.Default(),
		cron:   cron.New(),
	}
}

// WithLogger sets a custom logger.
func (s *Scheduler) WithLogger(logger *slog.Logger) *Scheduler {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Start registers the sweep with the cron expression from config and
// starts the cron loop. A disabled config makes Start a no-op.
func (s *Scheduler) Start() error {
	if !s.cfg.Enabled {
		s.logger.Debug("cleanup disabled, scheduler not started")
		return nil
	}

	id, err := s.cron.AddFunc(s.cfg.Cron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := s.Sweep(ctx); err != nil {
			observability.WithError(s.logger, err).Error("orphan sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("registering cleanup job: %w", err)
	}
	s.entryID = id
	s.cron.Start()

	s.logger.Info("scheduler started", "cron", s.cfg.Cron, "retention", s.cfg.Retention)
	return nil
}

// Stop stops the cron loop and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Sweep removes HLS output directories that no longer have a video
// record, once they are older than the configured retention. Output for
// known videos is never touched regardless of status.
func (s *Scheduler) Sweep(ctx context.Context) (*SweepResult, error) {
	done := observability.TimedOperation(ctx, s.logger, "orphan sweep")
	defer done()

	ids, err := s.store.ListHLSIDs()
	if err != nil {
		return nil, fmt.Errorf("listing hls output: %w", err)
	}

	result := &SweepResult{Scanned: len(ids)}
	cutoff := time.Now().Add(-s.cfg.Retention)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		ulid, err := models.ParseULID(id)
		if err == nil {
			video, err := s.repo.GetByID(ctx, ulid)
			if err != nil {
				return result, fmt.Errorf("looking up video %s: %w", id, err)
			}
			if video != nil {
				result.Skipped++
				continue
			}
		}

		modTime, err := s.store.HLSDirModTime(id)
		if err != nil {
			s.logger.Warn("statting orphaned output", "id", id, "error", err)
			result.Errors++
			continue
		}
		if modTime.After(cutoff) {
			result.Skipped++
			continue
		}

		if err := s.store.RemoveHLS(id); err != nil {
			s.logger.Warn("removing orphaned output", "id", id, "error", err)
			result.Errors++
			continue
		}
		s.logger.Info("removed orphaned hls output", "id", id)
		result.Removed++
	}

	s.logger.Debug("orphan sweep finished",
		"scanned", result.Scanned,
		"removed", result.Removed,
		"skipped", result.Skipped,
		"errors", result.Errors)
	return result, nil
}
