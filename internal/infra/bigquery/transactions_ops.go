package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// InsertTransactionsWithClient streams a batch of rows into the transactions table.
func InsertTransactionsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, rows []*TransactionRow) error {
	if len(rows) == 0 {
		return nil
	}

	table := client.DatasetInProject(ds.ProjectID, ds.DatasetID).Table(transactionsTable)
	if err := table.Inserter().Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertTransactions: inserting rows: %w", err)
	}
	return nil
}

// ListTransactionsByRunWithClient returns a run's transactions in statement order.
func ListTransactionsByRunWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, runID string) ([]*TransactionRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			transaction_id,
			run_id,
			position,
			transaction_date,
			amount,
			direction,
			balance_after,
			raw_description,
			category_name,
			confidence,
			category_source,
			reasoning,
			pattern,
			raw_line,
			created_ts
		FROM %s
		WHERE run_id = @run_id
		ORDER BY position
	`, ds.Table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListTransactionsByRun: query read: %w", err)
	}

	var rows []*TransactionRow
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListTransactionsByRun: iter next: %w", err)
		}
		rows = append(rows, &r)
	}
	return rows, nil
}
