package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
)

type ModelOutputRow struct {
	OutputID string `bigquery:"output_id"` // REQUIRED
	RunID    string `bigquery:"run_id"`    // REQUIRED
	Stage    string `bigquery:"stage"`     // REQUIRED: categorization | insights

	ModelName string `bigquery:"model_name"` // REQUIRED

	RawText string            `bigquery:"raw_text"` // REQUIRED, undecoded model answer
	RawJSON bigquery.NullJSON `bigquery:"raw_json"` // NULLABLE, set when the answer parsed as JSON

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}
