package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
)

type AnalysisRunRow struct {
	RunID  string `bigquery:"run_id"` // REQUIRED
	Source string `bigquery:"source"` // REQUIRED

	StartedTS  time.Time              `bigquery:"started_ts"`  // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE

	Status       string              `bigquery:"status"`        // REQUIRED
	ErrorMessage bigquery.NullString `bigquery:"error_message"` // NULLABLE

	TransactionCount bigquery.NullInt64   `bigquery:"transaction_count"` // NULLABLE
	LLMCalls         bigquery.NullInt64   `bigquery:"llm_calls"`         // NULLABLE
	EstimatedCost    bigquery.NullFloat64 `bigquery:"estimated_cost"`    // NULLABLE

	Diagnostics bigquery.NullJSON `bigquery:"diagnostics"` // NULLABLE
}

// RunStats is what a finished run records about itself.
type RunStats struct {
	TransactionCount int
	LLMCalls         int
	EstimatedCost    float64
	Diagnostics      string // JSON, may be empty
}
