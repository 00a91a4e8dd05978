package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
	runs int
	err  error
}

func (j *stubJob) Name() string        { return j.name }
func (j *stubJob) Description() string { return "stub job" }

func (j *stubJob) Run(_ context.Context) error {
	j.runs++
	return j.err
}

func TestScheduler_Register(t *testing.T) {
	s := New(Config{})

	job := &stubJob{name: "resync"}
	require.NoError(t, s.Register(job, Every(time.Minute)))

	err := s.Register(job, Every(time.Minute))
	assert.ErrorIs(t, err, ErrJobAlreadyExists)

	assert.ErrorIs(t, s.Register(nil, Every(time.Minute)), ErrNilJob)
	assert.ErrorIs(t, s.Register(&stubJob{name: "other"}, nil), ErrNilSchedule)
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(Config{})
	job := &stubJob{name: "resync"}
	require.NoError(t, s.Register(job, Every(time.Hour)))

	result, err := s.RunNow(context.Background(), "resync")

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, job.runs)

	_, err = s.RunNow(context.Background(), "unknown")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestScheduler_RunNow_RecordsFailure(t *testing.T) {
	s := New(Config{})
	job := &stubJob{name: "resync", err: errors.New("intra is down")}
	require.NoError(t, s.Register(job, Every(time.Hour)))

	result, err := s.RunNow(context.Background(), "resync")

	require.Error(t, err)
	assert.False(t, result.Success)

	snap := s.GetMetrics().Snapshot()
	assert.Equal(t, int64(1), snap.TotalExecutions)
	assert.Equal(t, int64(1), snap.TotalFailures)

	infos := s.ListJobs()
	require.Len(t, infos, 1)
	assert.Equal(t, int64(1), infos[0].FailCount)
}

func TestScheduler_Lifecycle(t *testing.T) {
	s := New(Config{})

	assert.ErrorIs(t, s.Stop(), ErrNotRunning)

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyRunning)

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
}

func TestIntervalSchedule(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	plain := Every(30 * time.Minute)
	assert.Equal(t, now.Add(30*time.Minute), plain.Next(now))
	assert.Equal(t, "@every 30m0s", plain.String())

	jittered := EveryWithJitter(30*time.Minute, 5*time.Minute)
	next := jittered.Next(now)
	assert.True(t, !next.Before(now.Add(30*time.Minute)))
	assert.True(t, next.Before(now.Add(35*time.Minute)))
}
