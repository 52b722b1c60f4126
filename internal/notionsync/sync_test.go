package notionsync

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	bq "github.com/dvloznov/statement-analyzer/internal/infra/bigquery"
	"github.com/dvloznov/statement-analyzer/internal/logger"
	"github.com/jomei/notionapi"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockNotionService is a mock implementation of NotionService for testing.
type MockNotionService struct {
	CreatePageFunc func(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)

	pages   []notionapi.Page
	created []notionapi.Properties
	queries int
}

func (m *MockNotionService) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	if m.CreatePageFunc != nil {
		return m.CreatePageFunc(ctx, databaseID, properties)
	}
	m.created = append(m.created, properties)
	return &notionapi.Page{}, nil
}

// QueryDatabase returns one stored page per call to exercise pagination.
func (m *MockNotionService) QueryDatabase(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	m.queries++
	if len(m.pages) == 0 {
		return &notionapi.DatabaseQueryResponse{}, nil
	}
	i := 0
	if filter.StartCursor != "" {
		i = 1
	}
	return &notionapi.DatabaseQueryResponse{
		Results:    m.pages[i : i+1],
		HasMore:    i+1 < len(m.pages),
		NextCursor: "next",
	}, nil
}

type MockTransactionSource struct {
	rows []*bq.TransactionRow
	err  error
}

func (m *MockTransactionSource) ListTransactionsByRun(ctx context.Context, runID string) ([]*bq.TransactionRow, error) {
	return m.rows, m.err
}

func storedRows() []*bq.TransactionRow {
	return []*bq.TransactionRow{
		{
			TransactionID:   "run-1-txn_1",
			RunID:           "run-1",
			TransactionDate: civil.Date{Year: 2024, Month: time.January, Day: 15},
			Amount:          big.NewRat(575, 100),
			Direction:       "debit",
			RawDescription:  "STARBUCKS STORE 1234",
			CategoryName:    "food_dining",
			Confidence:      0.95,
			CategorySource:  "deterministic",
		},
		{
			TransactionID:   "run-1-txn_2",
			RunID:           "run-1",
			TransactionDate: civil.Date{Year: 2024, Month: time.January, Day: 16},
			Amount:          big.NewRat(40, 1),
			Direction:       "debit",
			RawDescription:  "ZELLE TO J SMITH",
			CategoryName:    "other",
			Confidence:      0.7,
			CategorySource:  "llm",
			Reasoning:       bigquery.NullString{StringVal: "person to person transfer", Valid: true},
		},
	}
}

func pageWithTransactionID(id string) notionapi.Page {
	return notionapi.Page{
		Properties: notionapi.Properties{
			PropTransactionID: &notionapi.RichTextProperty{
				RichText: []notionapi.RichText{{PlainText: id}},
			},
		},
	}
}

func quietContext() context.Context {
	return logger.WithContext(context.Background(), zerolog.Nop())
}

func TestTransactionToNotionProperties(t *testing.T) {
	rows := storedRows()

	props := TransactionToNotionProperties(rows[1])

	title := props[PropDescription].(notionapi.TitleProperty)
	assert.Equal(t, "ZELLE TO J SMITH", title.Title[0].Text.Content)
	assert.Equal(t, "run-1-txn_2", props[PropTransactionID].(notionapi.RichTextProperty).RichText[0].Text.Content)
	assert.Equal(t, 40.0, props[PropAmount].(notionapi.NumberProperty).Number)
	assert.Equal(t, "debit", props[PropDirection].(notionapi.SelectProperty).Select.Name)
	assert.Equal(t, "other", props[PropCategory].(notionapi.SelectProperty).Select.Name)
	assert.Equal(t, "llm", props[PropSource].(notionapi.SelectProperty).Select.Name)
	assert.Equal(t, 0.7, props[PropConfidence].(notionapi.NumberProperty).Number)
	assert.Equal(t, "person to person transfer", props[PropReasoning].(notionapi.RichTextProperty).RichText[0].Text.Content)

	date := props[PropDate].(notionapi.DateProperty)
	assert.Equal(t, time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC), time.Time(*date.Date.Start))

	_, hasReasoning := TransactionToNotionProperties(rows[0])[PropReasoning]
	assert.False(t, hasReasoning)
}

func TestSyncRun_CreatesMissingPages(t *testing.T) {
	notion := &MockNotionService{}
	repo := &MockTransactionSource{rows: storedRows()}

	stats, err := SyncRun(quietContext(), repo, notion, "db-1", "run-1", false)
	require.NoError(t, err)

	assert.Equal(t, SyncStats{Created: 2, Total: 2}, stats)
	assert.Len(t, notion.created, 2)
}

func TestSyncRun_SkipsExistingTransactions(t *testing.T) {
	notion := &MockNotionService{
		pages: []notionapi.Page{
			pageWithTransactionID("unrelated"),
			pageWithTransactionID("run-1-txn_1"),
		},
	}
	repo := &MockTransactionSource{rows: storedRows()}

	stats, err := SyncRun(quietContext(), repo, notion, "db-1", "run-1", false)
	require.NoError(t, err)

	assert.Equal(t, 2, notion.queries)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Created)
	require.Len(t, notion.created, 1)
	created := notion.created[0][PropTransactionID].(notionapi.RichTextProperty)
	assert.Equal(t, "run-1-txn_2", created.RichText[0].Text.Content)
}

func TestSyncRun_DryRunCreatesNothing(t *testing.T) {
	notion := &MockNotionService{}
	repo := &MockTransactionSource{rows: storedRows()}

	stats, err := SyncRun(quietContext(), repo, notion, "db-1", "run-1", true)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Created)
	assert.Empty(t, notion.created)
}

func TestSyncRun_CreateFailureIsCounted(t *testing.T) {
	notion := &MockNotionService{
		CreatePageFunc: func(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
			return nil, errors.New("rate limited")
		},
	}
	repo := &MockTransactionSource{rows: storedRows()}

	stats, err := SyncRun(quietContext(), repo, notion, "db-1", "run-1", false)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Failed)
	assert.Equal(t, 0, stats.Created)
}

func TestSyncRun_Errors(t *testing.T) {
	_, err := SyncRun(quietContext(), &MockTransactionSource{}, &MockNotionService{}, "db-1", "run-1", false)
	assert.ErrorContains(t, err, "no transactions stored")

	_, err = SyncRun(quietContext(), &MockTransactionSource{err: errors.New("boom")}, &MockNotionService{}, "db-1", "run-1", false)
	assert.ErrorContains(t, err, "boom")
}
