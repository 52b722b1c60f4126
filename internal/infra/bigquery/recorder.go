package bigquery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/statement-analyzer/internal/analyzer"
	"github.com/dvloznov/statement-analyzer/internal/logger"
	"github.com/dvloznov/statement-analyzer/internal/usage"
	"github.com/google/uuid"
)

// RunRecorder implements analyzer.Recorder on top of a RunRepository.
type RunRecorder struct {
	repo      RunRepository
	modelName string
	now       func() time.Time
	newID     func() string
}

// NewRunRecorder returns a recorder that tags model outputs with modelName.
func NewRunRecorder(repo RunRepository, modelName string) *RunRecorder {
	return &RunRecorder{
		repo:      repo,
		modelName: modelName,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// StartRun inserts the RUNNING row.
func (r *RunRecorder) StartRun(ctx context.Context, runID, source string) error {
	return r.repo.StartAnalysisRun(ctx, runID, source)
}

// FinishRun stores a successful run's transactions and raw classifier output
// and marks it SUCCESS, or marks a failed run FAILED with its error message.
func (r *RunRecorder) FinishRun(ctx context.Context, result *analyzer.Result) error {
	log := logger.FromContext(ctx)

	if !result.Success {
		r.repo.MarkAnalysisRunFailed(ctx, result.RunID, result.Error)
		return nil
	}

	rows, err := ToTransactionRows(result.RunID, result.Transactions, r.now())
	if err != nil {
		r.repo.MarkAnalysisRunFailed(ctx, result.RunID, err.Error())
		return fmt.Errorf("FinishRun: %w", err)
	}
	if err := r.repo.InsertTransactions(ctx, rows); err != nil {
		r.repo.MarkAnalysisRunFailed(ctx, result.RunID, err.Error())
		return fmt.Errorf("FinishRun: %w", err)
	}

	if result.RawModelOutput != "" {
		row := &ModelOutputRow{
			OutputID:  r.newID(),
			RunID:     result.RunID,
			Stage:     usage.StageCategorization,
			ModelName: r.modelName,
			RawText:   result.RawModelOutput,
			CreatedTS: r.now(),
		}
		if json.Valid([]byte(result.RawModelOutput)) {
			row.RawJSON = bigquery.NullJSON{JSONVal: result.RawModelOutput, Valid: true}
		}
		if err := r.repo.InsertModelOutput(ctx, row); err != nil {
			log.Error().Err(err).Str("run_id", result.RunID).Msg("Failed to store model output")
		}
	}

	stats := RunStats{
		TransactionCount: len(result.Transactions),
		LLMCalls:         result.SystemMetrics.TotalCalls,
		EstimatedCost:    result.SystemMetrics.EstimatedCost,
	}
	if result.Diagnostics != nil {
		if b, err := json.Marshal(result.Diagnostics); err == nil {
			stats.Diagnostics = string(b)
		}
	}
	if err := r.repo.MarkAnalysisRunSucceeded(ctx, result.RunID, stats); err != nil {
		return fmt.Errorf("FinishRun: %w", err)
	}

	log.Info().
		Str("run_id", result.RunID).
		Int("transactions", len(rows)).
		Msg("Stored analysis run")
	return nil
}

var _ analyzer.Recorder = (*RunRecorder)(nil)
