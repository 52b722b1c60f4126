package bigquery

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/statement-analyzer/internal/domain"
)

// ToTransactionRows maps a run's transactions to rows, keeping their order
// in Position. Transaction IDs are prefixed with the run ID so they are
// unique across runs.
func ToTransactionRows(runID string, txs []domain.Transaction, now time.Time) ([]*TransactionRow, error) {
	rows := make([]*TransactionRow, 0, len(txs))
	for i, tx := range txs {
		date, err := civil.ParseDate(tx.Date)
		if err != nil {
			return nil, fmt.Errorf("ToTransactionRows: transaction %s: invalid date %q: %w", tx.ID, tx.Date, err)
		}

		row := &TransactionRow{
			TransactionID:   runID + "-" + tx.ID,
			RunID:           runID,
			Position:        int64(i),
			TransactionDate: date,
			Amount:          ratFromFloat(tx.Amount),
			Direction:       tx.Direction(),
			RawDescription:  tx.Description,
			CategoryName:    tx.Category,
			Confidence:      tx.Confidence,
			CategorySource:  string(tx.Source),
			Reasoning:       nullString(tx.Reasoning),
			Pattern:         nullString(tx.Pattern),
			RawLine:         nullString(tx.RawLine),
			CreatedTS:       now,
		}
		if tx.Balance != 0 {
			row.BalanceAfter = ratFromFloat(tx.Balance)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// FromTransactionRow maps a stored row back to a transaction.
func FromTransactionRow(row *TransactionRow) domain.Transaction {
	tx := domain.Transaction{
		ID:          strings.TrimPrefix(row.TransactionID, row.RunID+"-"),
		Date:        row.TransactionDate.String(),
		Description: row.RawDescription,
		IsDebit:     row.Direction == "debit",
		Category:    row.CategoryName,
		Confidence:  row.Confidence,
		Source:      domain.Source(row.CategorySource),
		Reasoning:   row.Reasoning.StringVal,
		Pattern:     row.Pattern.StringVal,
		RawLine:     row.RawLine.StringVal,
	}
	if row.Amount != nil {
		tx.Amount, _ = row.Amount.Float64()
	}
	if row.BalanceAfter != nil {
		tx.Balance, _ = row.BalanceAfter.Float64()
	}
	return tx
}

// ratFromFloat goes through the shortest decimal form so 5.67 is stored as 567/100.
func ratFromFloat(v float64) *big.Rat {
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(v, 'f', -1, 64))
	if !ok {
		return new(big.Rat)
	}
	return r
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}
