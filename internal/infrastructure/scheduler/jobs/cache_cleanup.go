package jobs

import (
	"context"
	"fmt"
	"log/slog"
)

// ══════════════════════════════════════════════════════════════════════════════
// CACHE CLEANUP JOB
// ══════════════════════════════════════════════════════════════════════════════

// CachePurger drops every cached dashboard view.
// Implemented by redis.DashboardCache.
type CachePurger interface {
	InvalidateAll(ctx context.Context) error
}

// CacheCleanupJob wipes the dashboard cache on a slow cadence. Regular
// invalidation happens on every sync and preference write; this job is the
// backstop for entries orphaned by removed accounts or changed view shapes.
type CacheCleanupJob struct {
	purger CachePurger
	logger *slog.Logger
}

// NewCacheCleanupJob creates the cleanup job.
func NewCacheCleanupJob(purger CachePurger, logger *slog.Logger) *CacheCleanupJob {
	if logger == nil {
		logger = slog.Default()
	}

	return &CacheCleanupJob{
		purger: purger,
		logger: logger,
	}
}

// Name returns the job name.
func (j *CacheCleanupJob) Name() string {
	return "cache_cleanup"
}

// Description returns a human-readable description.
func (j *CacheCleanupJob) Description() string {
	return "Wipes cached dashboard views to drop orphaned entries"
}

// Run executes the cleanup.
func (j *CacheCleanupJob) Run(ctx context.Context) error {
	if err := j.purger.InvalidateAll(ctx); err != nil {
		return fmt.Errorf("cache_cleanup: %w", err)
	}

	j.logger.Info("dashboard cache wiped")
	return nil
}
