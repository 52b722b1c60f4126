package pipeline

import (
	"testing"
	"time"

	"github.com/dvloznov/statement-analyzer/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionParser_ParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    domain.Transaction
		pattern string
	}{
		{
			name: "chase with store number",
			line: "02/01/2024 DUNKIN DONUTS 8901 -$4.50 $1,851.92",
			want: domain.Transaction{
				Date: "2024-02-01", Description: "DUNKIN DONUTS", Amount: 4.50, IsDebit: true, Balance: 1851.92,
			},
			pattern: PatternChase,
		},
		{
			name: "wells fargo with reference code",
			line: "03-01-2024 BURGER KING #4521 $8.99 $2,136.68",
			want: domain.Transaction{
				Date: "2024-03-01", Description: "BURGER KING", Amount: 8.99, IsDebit: true, Balance: 2136.68,
			},
			pattern: PatternWellsFargo,
		},
		{
			name: "explicit plus sign is credit",
			line: "01/15/2024 PAYROLL ACME CORP +$2,500.00 $4,994.33",
			want: domain.Transaction{
				Date: "2024-01-15", Description: "PAYROLL ACME CORP", Amount: 2500, IsDebit: false, Balance: 4994.33,
			},
			pattern: PatternChase,
		},
		{
			name: "credit keyword without sign",
			line: "1/5/2024 INTEREST PAID 1.25 $500.00",
			want: domain.Transaction{
				Date: "2024-01-05", Description: "INTEREST PAID", Amount: 1.25, IsDebit: false, Balance: 500,
			},
			pattern: PatternChase,
		},
		{
			name: "debit keyword wins over credit keyword",
			line: "04-02-2024 CREDIT CARD PAYMENT $120.00 $880.00",
			want: domain.Transaction{
				Date: "2024-04-02", Description: "CREDIT CARD PAYMENT", Amount: 120, IsDebit: true, Balance: 880,
			},
			pattern: PatternWellsFargo,
		},
		{
			name: "no direction hint defaults to debit",
			line: "04-03-2024 ACME HARDWARE $15.00 $865.00",
			want: domain.Transaction{
				Date: "2024-04-03", Description: "ACME HARDWARE", Amount: 15, IsDebit: true, Balance: 865,
			},
			pattern: PatternWellsFargo,
		},
	}

	p := NewTransactionParser(nil, Lenient)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := p.ParseLine(tt.line)
			require.True(t, ok)

			assert.Equal(t, tt.want.Date, got.Date)
			assert.Equal(t, tt.want.Description, got.Description)
			assert.InDelta(t, tt.want.Amount, got.Amount, 1e-9)
			assert.Equal(t, tt.want.IsDebit, got.IsDebit)
			assert.InDelta(t, tt.want.Balance, got.Balance, 1e-9)
			assert.Equal(t, tt.pattern, got.Pattern)
			assert.Equal(t, domain.CategoryUncategorized, got.Category)
			assert.Equal(t, domain.SourceDeterministic, got.Source)
			assert.Zero(t, got.Confidence)
			assert.Equal(t, tt.line, got.RawLine)
		})
	}
}

func TestTransactionParser_NoMatch(t *testing.T) {
	p := NewTransactionParser(nil, Lenient)

	_, ok := p.ParseLine("REFERENCE NUMBER ONLY")
	assert.False(t, ok)

	_, ok = p.ParseLine("2024-01-02 STARBUCKS $5.00 $10.00")
	assert.False(t, ok)
}

func TestTransactionParser_ParseLines(t *testing.T) {
	p := NewTransactionParser(nil, Lenient)

	report := p.ParseLines([]string{
		"01/02/2024 STARBUCKS STORE 1234 -$5.67 $2,494.33",
		"NOT A TRANSACTION 01/02/2024",
		"02/01/2024 DUNKIN DONUTS 8901 -$4.50 $1,851.92",
	})

	require.Len(t, report.Transactions, 2)
	assert.Equal(t, "txn_1", report.Transactions[0].ID)
	assert.Equal(t, "txn_2", report.Transactions[1].ID)
	assert.Equal(t, "STARBUCKS STORE", report.Transactions[0].Description)
	assert.Equal(t, 3, report.LinesFound)
	assert.Equal(t, 2, report.Parsed)
	assert.Equal(t, 1, report.NoMatch)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, Lenient, report.Mode)

	require.Len(t, report.Lines, 3)
	assert.Equal(t, NoMatch, report.Lines[1].Outcome)
}

func TestTransactionParser_BadFields(t *testing.T) {
	badDate := "13/45/2024 COFFEE HOUSE -$3.00 $100.00"
	badAmount := "01/02/2024 ACME ,, $5.00"

	t.Run("lenient substitutes defaults", func(t *testing.T) {
		p := NewTransactionParser(nil, Lenient)
		p.now = func() time.Time { return time.Date(2024, 6, 7, 12, 0, 0, 0, time.UTC) }

		report := p.ParseLines([]string{badDate, badAmount})

		require.Len(t, report.Transactions, 2)
		assert.Equal(t, "2024-06-07", report.Transactions[0].Date)
		assert.InDelta(t, 3.0, report.Transactions[0].Amount, 1e-9)
		assert.Zero(t, report.Transactions[1].Amount)
		assert.Equal(t, 0, report.Skipped)
	})

	t.Run("strict drops and counts", func(t *testing.T) {
		p := NewTransactionParser(nil, Strict)

		report := p.ParseLines([]string{badDate, badAmount, "02/01/2024 DUNKIN DONUTS 8901 -$4.50 $1,851.92"})

		require.Len(t, report.Transactions, 1)
		assert.Equal(t, "txn_1", report.Transactions[0].ID)
		assert.Equal(t, 2, report.Skipped)
		assert.Equal(t, Strict, report.Mode)
		assert.Equal(t, BadField, report.Lines[0].Outcome)
		assert.Contains(t, report.Lines[0].Reason, "bad date")
		assert.Equal(t, BadField, report.Lines[1].Outcome)
		assert.Contains(t, report.Lines[1].Reason, "bad amount")
	})
}

func TestTransactionParser_AmountNeverNegative(t *testing.T) {
	p := NewTransactionParser(nil, Lenient)
	lines := []string{
		"01/02/2024 SHOP -$5.67 $2,494.33",
		"01/02/2024 SHOP +$5.67 $2,494.33",
		"01/02/2024 SHOP -1,000.00 -5.00",
		"01-02-2024 SHOP 12.00 $2,494.33",
	}
	for _, tx := range p.ParseLines(lines).Transactions {
		assert.GreaterOrEqual(t, tx.Amount, 0.0, tx.RawLine)
	}
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"02/01/2024", "2024-02-01"},
		{"2/1/2024", "2024-02-01"},
		{"03-01-2024", "2024-03-01"},
		{"3-1-2024", "2024-03-01"},
		{"2024-02-01", "2024-02-01"},
		{"2024-2-1", "2024-02-01"},
		{"01-Feb-2024", "2024-02-01"},
		{"01-FEB-2024", "2024-02-01"},
		{"1-Feb-2024", "2024-02-01"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeDate(tt.in)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := NormalizeDate("13/45/2024")
	assert.False(t, ok)
}

func TestCleanDescription(t *testing.T) {
	assert.Equal(t, "BURGER KING", cleanDescription("  BURGER   KING #4521 "))
	assert.Equal(t, "AMAZON MKTP", cleanDescription("AMAZON *MK12 MKTP"))
}

func TestParseMode_String(t *testing.T) {
	assert.Equal(t, "lenient", Lenient.String())
	assert.Equal(t, "strict", Strict.String())
	assert.Equal(t, "bad_field", BadField.String())
}
