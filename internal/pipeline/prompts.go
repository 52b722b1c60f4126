package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dvloznov/statement-analyzer/internal/domain"
)

// buildClassifierSystemPrompt lists the allowed categories and the exact
// response shape the classifier must return.
func buildClassifierSystemPrompt(vocabulary []domain.VocabularyEntry) string {
	var b strings.Builder
	b.WriteString("You are a financial transaction categorizer.\n\n")
	b.WriteString("Categorize transactions into these categories ONLY:\n")
	for _, e := range vocabulary {
		fmt.Fprintf(&b, "- %s: %s\n", e.Name, e.Description)
	}
	b.WriteString("\nRules:\n")
	b.WriteString("1. Choose the MOST APPROPRIATE category from the list above.\n")
	b.WriteString("2. If unclear, use the 'other' category.\n")
	b.WriteString("3. Provide a confidence score between 0 and 1 (1 = very confident, 0.5 = uncertain).\n")
	b.WriteString("4. Give brief reasoning for your choice.\n\n")
	b.WriteString("Return ONLY valid raw JSON with this exact structure:\n")
	b.WriteString(`{"categorizations": [{"transaction_id": "txn_0", "category": "food_dining", "confidence": 0.85, "reasoning": "Coffee shop purchase"}]}`)
	b.WriteString("\nDo NOT wrap the response in code fences.\n")
	return b.String()
}

// buildClassifierUserPrompt encodes the batch as indented JSON.
func buildClassifierUserPrompt(items []RequestItem) (string, error) {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", fmt.Errorf("buildClassifierUserPrompt: marshal items: %w", err)
	}
	return "Categorize these unclear transactions:\n" + string(data), nil
}
