// Package notionsync exports analyzed transactions to a Notion database.
package notionsync

import (
	"context"
	"fmt"

	"github.com/dvloznov/statement-analyzer/internal/logger"
	"github.com/jomei/notionapi"
)

const (
	// BatchSize defines the number of transactions processed per logged batch.
	BatchSize = 100
)

// SyncStats counts what an export did.
type SyncStats struct {
	Created int
	Skipped int
	Failed  int
	Total   int
}

// SyncRun exports the transactions of one persisted run as pages in the
// Notion database. Transactions whose ID already appears in the database
// are skipped, so running it twice creates no duplicates.
func SyncRun(ctx context.Context, repo TransactionSource, notionClient NotionService, notionDBID, runID string, dryRun bool) (SyncStats, error) {
	log := logger.FromContext(ctx).With().Str("run_id", runID).Logger()

	log.Info().Bool("dry_run", dryRun).Msg("Starting transaction sync to Notion")

	transactions, err := repo.ListTransactionsByRun(ctx, runID)
	if err != nil {
		return SyncStats{}, fmt.Errorf("SyncRun: querying transactions: %w", err)
	}
	stats := SyncStats{Total: len(transactions)}
	if len(transactions) == 0 {
		return stats, fmt.Errorf("SyncRun: no transactions stored for run %s", runID)
	}

	log.Info().Int("transaction_count", len(transactions)).Msg("Retrieved transactions from BigQuery")

	notionPages, err := queryAllNotionPages(ctx, notionClient, notionDBID)
	if err != nil {
		return stats, fmt.Errorf("SyncRun: querying Notion pages: %w", err)
	}

	existing := make(map[string]bool, len(notionPages))
	for _, page := range notionPages {
		if txID := extractTransactionID(page); txID != "" {
			existing[txID] = true
		}
	}

	for i := 0; i < len(transactions); i += BatchSize {
		end := i + BatchSize
		if end > len(transactions) {
			end = len(transactions)
		}

		batch := transactions[i:end]
		log.Debug().
			Int("batch_start", i).
			Int("batch_end", end).
			Msg("Processing batch")

		for _, tx := range batch {
			if existing[tx.TransactionID] {
				stats.Skipped++
				continue
			}

			if dryRun {
				log.Info().
					Str("transaction_id", tx.TransactionID).
					Str("category", tx.CategoryName).
					Msg("[DRY RUN] Would create Notion page")
				stats.Created++
				continue
			}

			if _, err := notionClient.CreatePage(ctx, notionDBID, TransactionToNotionProperties(tx)); err != nil {
				log.Warn().
					Err(err).
					Str("transaction_id", tx.TransactionID).
					Msg("Failed to create Notion page")
				stats.Failed++
				continue
			}
			existing[tx.TransactionID] = true
			stats.Created++
		}
	}

	log.Info().
		Int("created", stats.Created).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Int("total", stats.Total).
		Msg("Transaction sync completed")

	return stats, nil
}

// queryAllNotionPages queries all pages from a Notion database, following pagination.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: 100,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}
