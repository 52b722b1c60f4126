package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// InsertModelOutputWithClient inserts one row into model_outputs. Uses DML
// INSERT to avoid streaming buffer issues.
func InsertModelOutputWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, row *ModelOutputRow) error {
	q := client.Query(fmt.Sprintf(`
		INSERT INTO %s (
			output_id, run_id, stage,
			model_name, raw_text, raw_json,
			created_ts
		)
		VALUES (
			@output_id, @run_id, @stage,
			@model_name, @raw_text, @raw_json,
			@created_ts
		)
	`, ds.Table(modelOutputsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "output_id", Value: row.OutputID},
		{Name: "run_id", Value: row.RunID},
		{Name: "stage", Value: row.Stage},
		{Name: "model_name", Value: row.ModelName},
		{Name: "raw_text", Value: row.RawText},
		{Name: "raw_json", Value: row.RawJSON},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("InsertModelOutput: %w", err)
	}
	return nil
}
