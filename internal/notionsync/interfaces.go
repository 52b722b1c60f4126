package notionsync

import (
	"context"

	"github.com/dvloznov/statement-analyzer/internal/infra/bigquery"
	"github.com/jomei/notionapi"
)

// NotionService defines the subset of the Notion API the exporter needs.
type NotionService interface {
	// CreatePage creates a new page in a Notion database with the given properties.
	CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)

	// QueryDatabase queries a Notion database with the given filter.
	QueryDatabase(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
}

// TransactionSource lists the stored transactions of one analysis run.
type TransactionSource interface {
	ListTransactionsByRun(ctx context.Context, runID string) ([]*bigquery.TransactionRow, error)
}
