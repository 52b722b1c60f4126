package pipeline

import (
	"context"

	"github.com/dvloznov/statement-analyzer/internal/domain"
)

// Extractor turns a document into one page-annotated text blob.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// Classifier categorizes a batch of transactions with one external call.
// A nil or empty response is treated the same as an error.
type Classifier interface {
	Classify(ctx context.Context, req Request) (*Response, error)
}

// Completer sends one prompt to a language model and returns its text answer.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// RequestItem is one transaction offered to the classifier. IDs are
// positional within the request (txn_0, txn_1, ...).
type RequestItem struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	IsDebit     bool    `json:"is_debit"`
	Date        string  `json:"date"`
}

// Request is a classification batch and the categories the classifier may use.
type Request struct {
	Items      []RequestItem
	Vocabulary []domain.VocabularyEntry
}

// Categorization is the classifier's answer for one item.
type Categorization struct {
	TransactionID string  `json:"transaction_id"`
	Category      string  `json:"category"`
	Confidence    float64 `json:"confidence"`
	Reasoning     string  `json:"reasoning"`
}

// Response is the classifier's answer for a whole batch.
type Response struct {
	Categorizations []Categorization `json:"categorizations"`
	// Raw is the undecoded model output, kept for auditing.
	Raw string `json:"-"`
}
