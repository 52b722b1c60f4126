package domain

// Source tags which stage assigned a transaction's category.
type Source string

const (
	SourceDeterministic Source = "deterministic"
	SourceLLM           Source = "llm"
	SourceFallback      Source = "fallback"
)

// Transaction is one statement line after parsing. It is created by the
// transaction parser and then filled in by the categorizer and the fallback
// classifier. Amount is always a magnitude; direction lives in IsDebit.
type Transaction struct {
	ID          string  `json:"id"`
	Date        string  `json:"date"` // YYYY-MM-DD
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	IsDebit     bool    `json:"is_debit"`
	Balance     float64 `json:"balance"` // 0 when the statement has no running balance

	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Source     Source  `json:"source"`
	Reasoning  string  `json:"reasoning,omitempty"`

	Pattern string `json:"pattern"`
	RawLine string `json:"raw_line,omitempty"`
}

// IsCategorized reports whether a category other than the sentinel has been assigned.
func (t Transaction) IsCategorized() bool {
	return t.Category != "" && t.Category != CategoryUncategorized
}

// Direction returns "debit" or "credit".
func (t Transaction) Direction() string {
	if t.IsDebit {
		return "debit"
	}
	return "credit"
}
