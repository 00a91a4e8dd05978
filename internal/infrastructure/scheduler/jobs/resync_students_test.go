package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Grihladin/42Connect/config"
	"github.com/Grihladin/42Connect/internal/application/command"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSyncer struct {
	calls  int
	result *command.SyncAllStudentsResult
	err    error
}

func (s *stubSyncer) Handle(_ context.Context, _ command.SyncAllStudentsCommand) (*command.SyncAllStudentsResult, error) {
	s.calls++
	return s.result, s.err
}

type stubPurger struct {
	calls int
	err   error
}

func (p *stubPurger) InvalidateAll(_ context.Context) error {
	p.calls++
	return p.err
}

func TestResyncStudentsJob_Run(t *testing.T) {
	syncer := &stubSyncer{
		result: &command.SyncAllStudentsResult{
			TotalStudents: 10,
			SyncedCount:   8,
			SkippedCount:  2,
			StartedAt:     time.Now(),
			CompletedAt:   time.Now(),
		},
	}
	job := NewResyncStudentsJob(syncer, nil, nil, DefaultResyncStudentsConfig())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, syncer.calls)

	stats := job.LastStats()
	require.NotNil(t, stats)
	assert.Equal(t, 10, stats.TotalStudents)
	assert.Equal(t, 8, stats.SyncedCount)
}

func TestResyncStudentsJob_FeatureDisabled(t *testing.T) {
	t.Setenv("FEATURE_SYNC_BACKGROUND", "false")

	syncer := &stubSyncer{}
	features := config.LoadFeatureFlags()
	job := NewResyncStudentsJob(syncer, features, nil, DefaultResyncStudentsConfig())

	require.NoError(t, job.Run(context.Background()))
	assert.Zero(t, syncer.calls, "disabled job must not call the syncer")
}

func TestResyncStudentsJob_FailureRateExceeded(t *testing.T) {
	syncer := &stubSyncer{
		result: &command.SyncAllStudentsResult{
			TotalStudents: 4,
			FailedCount:   3,
			Errors: map[string]error{
				"a": errors.New("boom"),
				"b": errors.New("boom"),
				"c": errors.New("boom"),
			},
		},
	}
	job := NewResyncStudentsJob(syncer, nil, nil, DefaultResyncStudentsConfig())

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 of 4")
}

func TestResyncStudentsJob_SyncerError(t *testing.T) {
	syncer := &stubSyncer{err: errors.New("database unreachable")}
	job := NewResyncStudentsJob(syncer, nil, nil, DefaultResyncStudentsConfig())

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, job.LastStats())
}

func TestCacheCleanupJob_Run(t *testing.T) {
	purger := &stubPurger{}
	job := NewCacheCleanupJob(purger, nil)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, purger.calls)

	purger.err = errors.New("redis down")
	assert.Error(t, job.Run(context.Background()))
}
