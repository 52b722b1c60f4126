package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// RunRepository is the storage contract for analysis runs.
type RunRepository interface {
	StartAnalysisRun(ctx context.Context, runID, source string) error
	MarkAnalysisRunSucceeded(ctx context.Context, runID string, stats RunStats) error
	MarkAnalysisRunFailed(ctx context.Context, runID, reason string)
	InsertTransactions(ctx context.Context, rows []*TransactionRow) error
	InsertModelOutput(ctx context.Context, row *ModelOutputRow) error
	GetAnalysisRun(ctx context.Context, runID string) (*AnalysisRunRow, error)
	ListTransactionsByRun(ctx context.Context, runID string) ([]*TransactionRow, error)
}

// BigQueryRunRepository is the concrete implementation of RunRepository
// that interacts with BigQuery. It holds a shared BigQuery client to avoid
// creating a new connection for each operation.
type BigQueryRunRepository struct {
	client *bigquery.Client
	ds     Dataset
}

// NewBigQueryRunRepository creates a repository with a shared client.
func NewBigQueryRunRepository(ctx context.Context, projectID, datasetID string) (*BigQueryRunRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryRunRepository: creating client: %w", err)
	}
	return &BigQueryRunRepository{
		client: client,
		ds:     Dataset{ProjectID: projectID, DatasetID: datasetID},
	}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryRunRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *BigQueryRunRepository) StartAnalysisRun(ctx context.Context, runID, source string) error {
	return StartAnalysisRunWithClient(ctx, r.client, r.ds, runID, source)
}

func (r *BigQueryRunRepository) MarkAnalysisRunSucceeded(ctx context.Context, runID string, stats RunStats) error {
	return MarkAnalysisRunSucceededWithClient(ctx, r.client, r.ds, runID, stats)
}

func (r *BigQueryRunRepository) MarkAnalysisRunFailed(ctx context.Context, runID, reason string) {
	MarkAnalysisRunFailedWithClient(ctx, r.client, r.ds, runID, reason)
}

func (r *BigQueryRunRepository) InsertTransactions(ctx context.Context, rows []*TransactionRow) error {
	return InsertTransactionsWithClient(ctx, r.client, r.ds, rows)
}

func (r *BigQueryRunRepository) InsertModelOutput(ctx context.Context, row *ModelOutputRow) error {
	return InsertModelOutputWithClient(ctx, r.client, r.ds, row)
}

func (r *BigQueryRunRepository) GetAnalysisRun(ctx context.Context, runID string) (*AnalysisRunRow, error) {
	return GetAnalysisRunWithClient(ctx, r.client, r.ds, runID)
}

func (r *BigQueryRunRepository) ListTransactionsByRun(ctx context.Context, runID string) ([]*TransactionRow, error) {
	return ListTransactionsByRunWithClient(ctx, r.client, r.ds, runID)
}

var _ RunRepository = (*BigQueryRunRepository)(nil)
