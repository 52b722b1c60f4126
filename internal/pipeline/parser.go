package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
)

// wireCategorization mirrors Categorization with pointer fields so that
// absent keys can be told apart from zero values.
type wireCategorization struct {
	TransactionID *string  `json:"transaction_id"`
	Category      *string  `json:"category"`
	Confidence    *float64 `json:"confidence"`
	Reasoning     *string  `json:"reasoning"`
}

type wireResponse struct {
	Categorizations []wireCategorization `json:"categorizations"`
}

// decodeClassifierResponse extracts the JSON object from raw model text and
// decodes it. Unknown fields are ignored; every item must carry all four
// fields, otherwise the whole response is rejected.
func decodeClassifierResponse(raw string) (*Response, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("decodeClassifierResponse: empty response from model")
	}

	clean := cleanModelJSON(raw)

	var wire wireResponse
	if err := json.Unmarshal([]byte(clean), &wire); err != nil {
		return nil, fmt.Errorf("decodeClassifierResponse: unmarshal JSON: %w", err)
	}

	resp := &Response{
		Categorizations: make([]Categorization, 0, len(wire.Categorizations)),
		Raw:             raw,
	}
	for i, w := range wire.Categorizations {
		if missing := w.missingFields(); len(missing) > 0 {
			return nil, fmt.Errorf("decodeClassifierResponse: item %d: missing %s", i, strings.Join(missing, ", "))
		}
		resp.Categorizations = append(resp.Categorizations, Categorization{
			TransactionID: *w.TransactionID,
			Category:      *w.Category,
			Confidence:    *w.Confidence,
			Reasoning:     *w.Reasoning,
		})
	}
	return resp, nil
}

func (w wireCategorization) missingFields() []string {
	var missing []string
	if w.TransactionID == nil {
		missing = append(missing, "transaction_id")
	}
	if w.Category == nil {
		missing = append(missing, "category")
	}
	if w.Confidence == nil {
		missing = append(missing, "confidence")
	}
	if w.Reasoning == nil {
		missing = append(missing, "reasoning")
	}
	return missing
}

// cleanModelJSON strips Markdown fences and any prose around the first JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	// Remove trailing ``` if present.
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// Keep only from the first '{' to the last '}'.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
