package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED, unique within the run
	RunID         string `bigquery:"run_id"`         // REQUIRED
	Position      int64  `bigquery:"position"`       // REQUIRED, statement order

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED

	Amount       *big.Rat `bigquery:"amount"`        // REQUIRED NUMERIC, magnitude
	Direction    string   `bigquery:"direction"`     // REQUIRED: debit | credit
	BalanceAfter *big.Rat `bigquery:"balance_after"` // NULLABLE NUMERIC

	RawDescription string `bigquery:"raw_description"` // REQUIRED

	CategoryName   string              `bigquery:"category_name"`   // REQUIRED
	Confidence     float64             `bigquery:"confidence"`      // REQUIRED
	CategorySource string              `bigquery:"category_source"` // REQUIRED: deterministic | llm | fallback
	Reasoning      bigquery.NullString `bigquery:"reasoning"`       // NULLABLE

	Pattern bigquery.NullString `bigquery:"pattern"`  // NULLABLE
	RawLine bigquery.NullString `bigquery:"raw_line"` // NULLABLE

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}
