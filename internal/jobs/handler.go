package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/statement-analyzer/internal/analyzer"
	"github.com/dvloznov/statement-analyzer/internal/logger"
)

// StatementAnalyzer is the part of analyzer.Analyzer a job needs.
type StatementAnalyzer interface {
	AnalyzeFile(ctx context.Context, source string, opts analyzer.Options) (*analyzer.Result, error)
}

// NewAnalyzeHandler returns a JobHandler that analyzes each job's source.
// Rejected inputs and failed documents are permanent; anything else, such
// as an unreachable bucket, is retried by the queue.
func NewAnalyzeHandler(a StatementAnalyzer) JobHandler {
	return func(ctx context.Context, job Job) error {
		analyzeJob, ok := job.(*AnalyzeStatementJob)
		if !ok {
			return Permanent(fmt.Errorf("unexpected job type: %T", job))
		}

		log := logger.FromContext(ctx).With().
			Str("job_id", analyzeJob.JobID).
			Str("source", analyzeJob.Source).
			Logger()
		log.Info().Msg("Processing analysis job")

		result, err := a.AnalyzeFile(ctx, analyzeJob.Source, analyzer.Options{AIInsights: analyzeJob.AIInsights})
		if err != nil {
			var inputErr *analyzer.InputError
			if errors.As(err, &inputErr) {
				return Permanent(err)
			}
			return fmt.Errorf("analyzing %s: %w", analyzeJob.Source, err)
		}

		analyzeJob.RunID = result.RunID
		if !result.Success {
			return Permanent(errors.New(result.Error))
		}

		log.Info().
			Str("run_id", result.RunID).
			Int("transactions", len(result.Transactions)).
			Int("llm_calls", result.SystemMetrics.TotalCalls).
			Msg("Analysis job completed")
		return nil
	}
}
