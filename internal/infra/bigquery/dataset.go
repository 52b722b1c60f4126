// Package bigquery persists analysis runs, their transactions and raw model
// outputs in BigQuery.
package bigquery

import "fmt"

const (
	analysisRunsTable = "analysis_runs"
	transactionsTable = "transactions"
	modelOutputsTable = "model_outputs"
	dateFormat        = "2006-01-02"
	maxErrorLen       = 2000
)

// Run statuses stored in analysis_runs.status.
const (
	RunStatusRunning = "RUNNING"
	RunStatusSuccess = "SUCCESS"
	RunStatusFailed  = "FAILED"
)

// Dataset locates the tables of one deployment.
type Dataset struct {
	ProjectID string
	DatasetID string
}

// Table returns the fully qualified, backquoted name of table for use in SQL.
func (d Dataset) Table(table string) string {
	return fmt.Sprintf("`%s.%s.%s`", d.ProjectID, d.DatasetID, table)
}
