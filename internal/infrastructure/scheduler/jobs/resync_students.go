// Package jobs contains the scheduled jobs of 42Connect: the periodic
// project re-sync from the Intra API and the stale dashboard cache cleanup.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Grihladin/42Connect/config"
	"github.com/Grihladin/42Connect/internal/application/command"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESYNC STUDENTS JOB
// ══════════════════════════════════════════════════════════════════════════════

// BulkSyncer runs the bulk re-sync. Implemented by command.SyncAllStudentsHandler.
type BulkSyncer interface {
	Handle(ctx context.Context, cmd command.SyncAllStudentsCommand) (*command.SyncAllStudentsResult, error)
}

// ResyncStudentsJob refreshes the project records of every known student.
// Per-student interval checks and locks live in the sync command, the job
// only drives the bulk run.
type ResyncStudentsJob struct {
	syncer   BulkSyncer
	features *config.FeatureFlags
	logger   *slog.Logger
	config   ResyncStudentsConfig

	lastStats atomic.Value // *ResyncStats
}

// ResyncStudentsConfig contains configuration for the re-sync job.
type ResyncStudentsConfig struct {
	// Concurrency is the number of students synced in parallel.
	Concurrency int

	// MaxFailureRate aborts the job with an error when exceeded, so the
	// scheduler surfaces a broken Intra integration instead of silently
	// looping. Range (0, 1]; zero means 0.5.
	MaxFailureRate float64
}

// DefaultResyncStudentsConfig returns sensible defaults.
func DefaultResyncStudentsConfig() ResyncStudentsConfig {
	return ResyncStudentsConfig{
		Concurrency:    3,
		MaxFailureRate: 0.5,
	}
}

// ResyncStats contains statistics from the last run.
type ResyncStats struct {
	StartedAt     time.Time
	CompletedAt   time.Time
	Duration      time.Duration
	TotalStudents int
	SyncedCount   int
	SkippedCount  int
	FailedCount   int
}

// NewResyncStudentsJob creates the job. features may be nil, which keeps
// the job always on.
func NewResyncStudentsJob(
	syncer BulkSyncer,
	features *config.FeatureFlags,
	logger *slog.Logger,
	cfg ResyncStudentsConfig,
) *ResyncStudentsJob {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	if cfg.MaxFailureRate <= 0 || cfg.MaxFailureRate > 1 {
		cfg.MaxFailureRate = 0.5
	}

	return &ResyncStudentsJob{
		syncer:   syncer,
		features: features,
		logger:   logger,
		config:   cfg,
	}
}

// Name returns the job name.
func (j *ResyncStudentsJob) Name() string {
	return "resync_students"
}

// Description returns a human-readable description.
func (j *ResyncStudentsJob) Description() string {
	return "Refreshes project records of all known students from the Intra API"
}

// Run executes the re-sync.
func (j *ResyncStudentsJob) Run(ctx context.Context) error {
	if j.features != nil && !j.features.IsEnabled(config.FeatureSyncBackground, nil) {
		j.logger.Info("background sync disabled by feature flag, skipping")
		return nil
	}

	result, err := j.syncer.Handle(ctx, command.SyncAllStudentsCommand{
		Concurrency: j.config.Concurrency,
	})
	if err != nil {
		return fmt.Errorf("resync_students: %w", err)
	}

	stats := &ResyncStats{
		StartedAt:     result.StartedAt,
		CompletedAt:   result.CompletedAt,
		Duration:      result.Duration,
		TotalStudents: result.TotalStudents,
		SyncedCount:   result.SyncedCount,
		SkippedCount:  result.SkippedCount,
		FailedCount:   result.FailedCount,
	}
	j.lastStats.Store(stats)

	for login, syncErr := range result.Errors {
		j.logger.Error("student re-sync failed", "login", login, "error", syncErr)
	}

	if result.TotalStudents > 0 {
		failureRate := float64(result.FailedCount) / float64(result.TotalStudents)
		if failureRate > j.config.MaxFailureRate {
			return fmt.Errorf("resync_students: %d of %d students failed",
				result.FailedCount, result.TotalStudents)
		}
	}

	return nil
}

// LastStats returns statistics from the last completed run, or nil.
func (j *ResyncStudentsJob) LastStats() *ResyncStats {
	stats := j.lastStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*ResyncStats)
}
