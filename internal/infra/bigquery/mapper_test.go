package bigquery

import (
	"math/big"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/statement-analyzer/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTransactions() []domain.Transaction {
	return []domain.Transaction{
		{
			ID: "txn_1", Date: "2024-02-01", Description: "DUNKIN DONUTS", Amount: 4.50, IsDebit: true, Balance: 1851.92,
			Category: domain.CategoryFoodDining, Confidence: 0.95, Source: domain.SourceDeterministic,
			Pattern: "chase", RawLine: "02/01/2024 DUNKIN DONUTS 8901 -$4.50 $1,851.92",
		},
		{
			ID: "txn_2", Date: "2024-02-03", Description: "ZELLE TO J SMITH", Amount: 40, IsDebit: true,
			Category: domain.CategoryOther, Confidence: 0.3, Source: domain.SourceFallback, Reasoning: "unavailable",
		},
	}
}

func TestToTransactionRows(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	rows, err := ToTransactionRows("run-1", sampleTransactions(), now)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, "run-1-txn_1", first.TransactionID)
	assert.Equal(t, int64(0), first.Position)
	assert.Equal(t, civil.Date{Year: 2024, Month: time.February, Day: 1}, first.TransactionDate)
	assert.Equal(t, 0, first.Amount.Cmp(big.NewRat(9, 2)))
	assert.Equal(t, 0, first.BalanceAfter.Cmp(big.NewRat(185192, 100)))
	assert.Equal(t, "debit", first.Direction)
	assert.Equal(t, "deterministic", first.CategorySource)
	assert.False(t, first.Reasoning.Valid)
	assert.True(t, first.Pattern.Valid)
	assert.Equal(t, now, first.CreatedTS)

	second := rows[1]
	assert.Equal(t, int64(1), second.Position)
	assert.Nil(t, second.BalanceAfter)
	assert.Equal(t, "unavailable", second.Reasoning.StringVal)
}

func TestToTransactionRows_InvalidDate(t *testing.T) {
	txs := []domain.Transaction{{ID: "txn_1", Date: "13/45/2024"}}

	_, err := ToTransactionRows("run-1", txs, time.Now())
	assert.Error(t, err)
}

func TestTransactionRowRoundTrip(t *testing.T) {
	txs := sampleTransactions()
	rows, err := ToTransactionRows("run-1", txs, time.Now())
	require.NoError(t, err)

	for i, row := range rows {
		assert.Equal(t, txs[i], FromTransactionRow(row))
	}
}

func TestDatasetTable(t *testing.T) {
	ds := Dataset{ProjectID: "acme-prod", DatasetID: "statements"}
	assert.Equal(t, "`acme-prod.statements.analysis_runs`", ds.Table(analysisRunsTable))
}
