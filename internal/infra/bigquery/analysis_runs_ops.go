package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/statement-analyzer/internal/logger"
	"google.golang.org/api/iterator"
)

// StartAnalysisRunWithClient inserts a new analysis_runs row with status=RUNNING.
func StartAnalysisRunWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, runID, source string) error {
	q := client.Query(fmt.Sprintf(`
		INSERT %s (
			run_id,
			source,
			started_ts,
			status
		)
		VALUES (
			@run_id,
			@source,
			@started_ts,
			@status
		)
	`, ds.Table(analysisRunsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
		{Name: "source", Value: source},
		{Name: "started_ts", Value: time.Now()},
		{Name: "status", Value: RunStatusRunning},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("StartAnalysisRun: %w", err)
	}
	return nil
}

// MarkAnalysisRunSucceededWithClient sets status=SUCCESS, finished_ts and the run's counters.
func MarkAnalysisRunSucceededWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, runID string, stats RunStats) error {
	diagnostics := bigquery.NullJSON{JSONVal: stats.Diagnostics, Valid: stats.Diagnostics != ""}

	q := client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = NULL,
		    transaction_count = @transaction_count,
		    llm_calls = @llm_calls,
		    estimated_cost = @estimated_cost,
		    diagnostics = @diagnostics
		WHERE run_id = @run_id
	`, ds.Table(analysisRunsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: RunStatusSuccess},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "transaction_count", Value: int64(stats.TransactionCount)},
		{Name: "llm_calls", Value: int64(stats.LLMCalls)},
		{Name: "estimated_cost", Value: stats.EstimatedCost},
		{Name: "diagnostics", Value: diagnostics},
		{Name: "run_id", Value: runID},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("MarkAnalysisRunSucceeded: %w", err)
	}
	return nil
}

// MarkAnalysisRunFailedWithClient sets status=FAILED, finished_ts and
// error_message. Failures are logged, not returned.
func MarkAnalysisRunFailedWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, runID string, reason string) {
	log := logger.FromContext(ctx)

	if len(reason) > maxErrorLen {
		reason = reason[:maxErrorLen]
	}

	q := client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE run_id = @run_id
	`, ds.Table(analysisRunsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: RunStatusFailed},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: reason},
		{Name: "run_id", Value: runID},
	}

	if err := runDML(ctx, q); err != nil {
		log.Error().
			Err(err).
			Str("run_id", runID).
			Msg("MarkAnalysisRunFailed: update failed")
	}
}

// GetAnalysisRunWithClient reads one run. It returns (nil, nil) when the run does not exist.
func GetAnalysisRunWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, runID string) (*AnalysisRunRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			run_id,
			source,
			started_ts,
			finished_ts,
			status,
			error_message,
			transaction_count,
			llm_calls,
			estimated_cost,
			diagnostics
		FROM %s
		WHERE run_id = @run_id
		LIMIT 1
	`, ds.Table(analysisRunsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetAnalysisRun: query read: %w", err)
	}

	var row AnalysisRunRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetAnalysisRun: iter next: %w", err)
	}
	return &row, nil
}

// runDML runs a DML statement and waits for it. DML avoids the streaming
// buffer, so the rows can be updated right away.
func runDML(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}
