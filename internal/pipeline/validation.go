package pipeline

import (
	"fmt"
	"strings"

	"github.com/dvloznov/statement-analyzer/internal/domain"
)

// CategoryValidator checks classifier output against the category vocabulary.
type CategoryValidator struct {
	categories map[string]bool // normalized vocabulary names
}

// NewCategoryValidator builds a validator from the vocabulary offered to the classifier.
func NewCategoryValidator(vocabulary []domain.VocabularyEntry) *CategoryValidator {
	v := &CategoryValidator{categories: make(map[string]bool, len(vocabulary))}
	for _, e := range vocabulary {
		v.categories[normalizeCategory(e.Name)] = true
	}
	return v
}

// ValidateCategory returns the canonical category name, or an error when
// category is not in the vocabulary.
func (v *CategoryValidator) ValidateCategory(category string) (string, error) {
	norm := normalizeCategory(category)
	if !v.categories[norm] {
		return "", fmt.Errorf("invalid category: %q (normalized: %q)", category, norm)
	}
	return norm, nil
}

// ValidateResponse checks every item of a classifier response and returns a
// copy with canonical category names. Any invalid item fails the whole response.
func (v *CategoryValidator) ValidateResponse(resp *Response) (*Response, error) {
	if resp == nil || len(resp.Categorizations) == 0 {
		return nil, fmt.Errorf("ValidateResponse: empty response")
	}
	out := &Response{Categorizations: make([]Categorization, 0, len(resp.Categorizations))}
	for i, c := range resp.Categorizations {
		if strings.TrimSpace(c.TransactionID) == "" {
			return nil, fmt.Errorf("ValidateResponse: item %d: missing transaction_id", i)
		}
		if c.Confidence < 0 || c.Confidence > 1 {
			return nil, fmt.Errorf("ValidateResponse: item %d (%s): confidence %v out of range [0,1]", i, c.TransactionID, c.Confidence)
		}
		cat, err := v.ValidateCategory(c.Category)
		if err != nil {
			return nil, fmt.Errorf("ValidateResponse: item %d (%s): %w", i, c.TransactionID, err)
		}
		c.Category = cat
		out.Categorizations = append(out.Categorizations, c)
	}
	return out, nil
}

// normalizeCategory lowercases and trims a category name for comparison.
func normalizeCategory(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
