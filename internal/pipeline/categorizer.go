package pipeline

import (
	"regexp"
	"strings"

	"github.com/dvloznov/statement-analyzer/internal/domain"
)

// Match is the categorizer's verdict for one description.
type Match struct {
	Category   string
	Confidence float64
	Keyword    string
}

// Matched reports whether a rule fired.
func (m Match) Matched() bool {
	return m.Category != domain.CategoryUncategorized
}

var (
	longNumber = regexp.MustCompile(`\d{4,}`)

	brandKeywords   = map[string]bool{"starbucks": true, "walmart": true, "amazon": true, "netflix": true}
	storeKeywords   = map[string]bool{"gas station": true, "grocery": true, "pharmacy": true}
	genericKeywords = map[string]bool{"restaurant": true, "cafe": true, "market": true}
)

// Categorizer assigns categories by first keyword match over an ordered rule table.
type Categorizer struct {
	rules []CategoryRule
}

// NewCategorizer copies rules into a new Categorizer. A nil slice selects DefaultRules.
// Keywords are lowercased; the order of rules and keywords is kept.
func NewCategorizer(rules []CategoryRule) *Categorizer {
	if rules == nil {
		rules = DefaultRules()
	}
	own := make([]CategoryRule, len(rules))
	for i, r := range rules {
		kws := make([]string, len(r.Keywords))
		for j, kw := range r.Keywords {
			kws[j] = strings.ToLower(kw)
		}
		own[i] = CategoryRule{Category: r.Category, Keywords: kws}
	}
	return &Categorizer{rules: own}
}

// Categorize returns the first rule whose keyword occurs in the cleaned
// description, or (uncategorized, 0).
func (c *Categorizer) Categorize(description string) Match {
	clean := cleanForMatching(description)
	for _, r := range c.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(clean, kw) {
				return Match{Category: r.Category, Confidence: keywordConfidence(kw), Keyword: kw}
			}
		}
	}
	return Match{Category: domain.CategoryUncategorized}
}

// CategorizeAll returns a copy of txs with uncategorized transactions
// categorized where a rule matches. Already categorized transactions are
// left as they are.
func (c *Categorizer) CategorizeAll(txs []domain.Transaction) []domain.Transaction {
	out := make([]domain.Transaction, len(txs))
	copy(out, txs)
	for i := range out {
		if out[i].IsCategorized() {
			continue
		}
		m := c.Categorize(out[i].Description)
		if !m.Matched() {
			out[i].Category = domain.CategoryUncategorized
			continue
		}
		out[i].Category = m.Category
		out[i].Confidence = m.Confidence
		out[i].Source = domain.SourceDeterministic
	}
	return out
}

func cleanForMatching(description string) string {
	s := strings.ToLower(strings.TrimSpace(description))
	s = referenceCode.ReplaceAllString(s, "")
	s = longNumber.ReplaceAllString(s, "")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func keywordConfidence(kw string) float64 {
	switch {
	case brandKeywords[kw]:
		return 0.95
	case storeKeywords[kw]:
		return 0.90
	case genericKeywords[kw]:
		return 0.75
	default:
		return 0.80
	}
}
