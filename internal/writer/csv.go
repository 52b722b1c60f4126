// Package writer exports analyzed transactions to files.
package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/dvloznov/statement-analyzer/internal/domain"
	"github.com/shopspring/decimal"
)

var csvHeader = []string{"Date", "Description", "Direction", "Amount", "Balance", "Category", "Confidence", "Source", "Reasoning"}

// CSVWriter writes categorized transactions as CSV.
type CSVWriter struct {
	// RunID, when set, is written as a leading "# Run ID" row.
	RunID string
}

// WriteToFile writes transactions to a CSV file at the given path.
func (w *CSVWriter) WriteToFile(path string, txs []domain.Transaction) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("WriteToFile: creating %q: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("WriteToFile: closing %q: %w", path, cerr)
		}
	}()

	return w.Write(f, txs)
}

// Write writes transactions, in their given order, to out.
func (w *CSVWriter) Write(out io.Writer, txs []domain.Transaction) error {
	cw := csv.NewWriter(out)

	if w.RunID != "" {
		if err := cw.Write([]string{"# Run ID", w.RunID}); err != nil {
			return fmt.Errorf("Write: writing run id: %w", err)
		}
	}
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("Write: writing header: %w", err)
	}

	for _, tx := range txs {
		row := []string{
			tx.Date,
			tx.Description,
			tx.Direction(),
			formatAmount(tx.Amount),
			formatBalance(tx.Balance),
			tx.Category,
			decimal.NewFromFloat(tx.Confidence).StringFixed(2),
			string(tx.Source),
			tx.Reasoning,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("Write: writing row %s: %w", tx.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("Write: flushing: %w", err)
	}
	return nil
}

func formatAmount(amount float64) string {
	return decimal.NewFromFloat(amount).StringFixed(2)
}

// formatBalance leaves the cell empty for statements without a running balance.
func formatBalance(balance float64) string {
	if balance == 0 {
		return ""
	}
	return formatAmount(balance)
}
