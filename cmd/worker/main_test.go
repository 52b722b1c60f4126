package main

import (
	"context"
	"testing"
	"time"

	"github.com/dvloznov/statement-analyzer/internal/jobs"
	"github.com/dvloznov/statement-analyzer/internal/jobs/inmemory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountDone(t *testing.T) {
	all := []*jobs.AnalyzeStatementJob{
		{Status: jobs.JobStatusCompleted},
		{Status: jobs.JobStatusFailed},
		{Status: jobs.JobStatusRetrying},
		{Status: jobs.JobStatusPending},
	}
	assert.Equal(t, 2, countDone(all))
}

func TestWaitForJobs_ReturnsWhenAllFinished(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStore()
	require.NoError(t, store.SaveJob(ctx, &jobs.AnalyzeStatementJob{JobID: "a", Status: jobs.JobStatusCompleted, CreatedAt: time.Now()}))
	require.NoError(t, store.SaveJob(ctx, &jobs.AnalyzeStatementJob{JobID: "b", Status: jobs.JobStatusFailed, CreatedAt: time.Now()}))

	all := waitForJobs(ctx, store, 2)
	assert.Len(t, all, 2)
}

func TestWaitForJobs_StopsOnCancel(t *testing.T) {
	store := inmemory.NewStore()
	require.NoError(t, store.SaveJob(context.Background(), &jobs.AnalyzeStatementJob{JobID: "a", Status: jobs.JobStatusRunning, CreatedAt: time.Now()}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	all := waitForJobs(ctx, store, 1)
	require.Len(t, all, 1)
	assert.Equal(t, jobs.JobStatusRunning, all[0].Status)
}
