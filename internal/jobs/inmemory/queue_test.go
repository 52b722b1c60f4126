package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvloznov/statement-analyzer/internal/jobs"
	"github.com/dvloznov/statement-analyzer/internal/logger"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), zerolog.Nop()))
	t.Cleanup(cancel)
	return ctx
}

func waitForStatus(t *testing.T, store *Store, jobID string, want jobs.JobStatus) *jobs.AnalyzeStatementJob {
	t.Helper()
	var job *jobs.AnalyzeStatementJob
	require.Eventually(t, func() bool {
		j, err := store.GetJob(context.Background(), jobID)
		if err != nil {
			return false
		}
		job = j
		return j.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func TestQueue_ProcessesJob(t *testing.T) {
	ctx := testContext(t)
	store := NewStore()
	q := NewQueue(10, store, WithWorkers(2))
	t.Cleanup(func() { _ = q.Close() })

	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		j := job.(*jobs.AnalyzeStatementJob)
		j.RunID = "run-" + j.Source
		return nil
	}))

	job := &jobs.AnalyzeStatementJob{Source: "gs://statements/jan.pdf"}
	require.NoError(t, q.PublishAnalyzeStatement(ctx, job))
	assert.NotEmpty(t, job.JobID)
	assert.Equal(t, jobs.DefaultMaxRetries, job.MaxRetries)

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.Equal(t, "run-gs://statements/jan.pdf", done.RunID)
	assert.NotNil(t, done.StartedAt)
	assert.NotNil(t, done.CompletedAt)
}

func TestQueue_RetriesTransientFailure(t *testing.T) {
	ctx := testContext(t)
	store := NewStore()
	q := NewQueue(10, store, WithBackoff(time.Millisecond))
	t.Cleanup(func() { _ = q.Close() })

	var attempts int32
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		if atomic.AddInt32(&attempts, 1) == 1 {
			return errors.New("storage unavailable")
		}
		return nil
	}))

	job := &jobs.AnalyzeStatementJob{Source: "jan.pdf"}
	require.NoError(t, q.PublishAnalyzeStatement(ctx, job))

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.Equal(t, 1, done.RetryCount)
	assert.Empty(t, done.Error)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestQueue_PermanentFailureIsNotRetried(t *testing.T) {
	ctx := testContext(t)
	store := NewStore()
	q := NewQueue(10, store, WithBackoff(time.Millisecond))
	t.Cleanup(func() { _ = q.Close() })

	var attempts int32
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		atomic.AddInt32(&attempts, 1)
		return jobs.Permanent(errors.New("Only PDF files are supported"))
	}))

	job := &jobs.AnalyzeStatementJob{Source: "notes.txt"}
	require.NoError(t, q.PublishAnalyzeStatement(ctx, job))

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	assert.Equal(t, 0, done.RetryCount)
	assert.Equal(t, "Only PDF files are supported", done.Error)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestQueue_ExhaustsRetries(t *testing.T) {
	ctx := testContext(t)
	store := NewStore()
	q := NewQueue(10, store, WithBackoff(time.Millisecond), WithMaxRetries(2))
	t.Cleanup(func() { _ = q.Close() })

	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		return errors.New("boom")
	}))

	job := &jobs.AnalyzeStatementJob{Source: "jan.pdf"}
	require.NoError(t, q.PublishAnalyzeStatement(ctx, job))

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	assert.Equal(t, 2, done.RetryCount)
	assert.Equal(t, "boom", done.Error)
}

func TestQueue_PanicFailsJob(t *testing.T) {
	ctx := testContext(t)
	store := NewStore()
	q := NewQueue(10, store)
	t.Cleanup(func() { _ = q.Close() })

	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		panic("nil map")
	}))

	job := &jobs.AnalyzeStatementJob{Source: "jan.pdf"}
	require.NoError(t, q.PublishAnalyzeStatement(ctx, job))

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	assert.Contains(t, done.Error, "panicked")
}

func TestQueue_ClosedRejectsPublish(t *testing.T) {
	q := NewQueue(1, NewStore())
	require.NoError(t, q.Close())

	err := q.PublishAnalyzeStatement(context.Background(), &jobs.AnalyzeStatementJob{Source: "jan.pdf"})
	assert.Error(t, err)
	assert.Error(t, q.Start(context.Background(), nil))
}
