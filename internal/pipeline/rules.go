package pipeline

import (
	"errors"
	"fmt"
	"os"

	"github.com/dvloznov/statement-analyzer/internal/domain"
	"gopkg.in/yaml.v3"
)

// CategoryRule maps one category to its keywords. Keyword order matters:
// the first keyword found in a description decides the match.
type CategoryRule struct {
	Category string   `yaml:"category" json:"category"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// DefaultRules returns the built-in keyword table. Rules are tried in order.
func DefaultRules() []CategoryRule {
	return []CategoryRule{
		{domain.CategoryFoodDining, []string{
			"starbucks", "dunkin", "dunkin donuts", "coffee", "cafe",
			"mcdonalds", "burger king", "subway", "kfc", "taco bell",
			"chipotle", "panera", "panda express", "pizza hut", "dominos",
			"restaurant", "bistro", "grill", "kitchen", "diner", "eatery",
			"food truck", "catering", "bakery",
			"uber eats", "doordash", "grubhub", "postmates", "food delivery",
		}},
		{domain.CategoryGroceries, []string{
			"walmart", "target", "costco", "sams club", "sam's club",
			"kroger", "safeway", "publix", "wegmans", "giant", "stop shop",
			"whole foods", "trader joe", "aldi", "food lion", "harris teeter",
			"market", "grocery", "supermarket", "supercenter", "food store",
		}},
		{domain.CategoryTransportation, []string{
			"shell", "exxon", "chevron", "bp", "mobil", "citgo", "arco",
			"gas station", "fuel", "gasoline", "petrol",
			"uber", "lyft", "taxi", "cab", "rideshare",
			"metro", "mta", "transit", "bus", "train", "subway",
			"parking", "garage", "meter",
			"airline", "airport", "flight", "car rental", "hertz", "enterprise",
		}},
		{domain.CategoryShopping, []string{
			"amazon", "ebay", "etsy", "best buy", "apple store", "microsoft",
			"home depot", "lowes", "macys", "kohls", "tj maxx", "marshalls",
			"ross", "old navy", "gap", "nike", "adidas", "mall", "outlet",
		}},
		{domain.CategoryBillsUtilities, []string{
			"electric", "power", "energy", "utility", "water", "sewer",
			"gas bill", "internet", "cable", "phone", "wireless",
			"verizon", "att", "at&t", "comcast", "spectrum", "xfinity",
			"municipal", "city of", "county of",
		}},
		{domain.CategoryEntertainment, []string{
			"netflix", "spotify", "hulu", "disney", "amazon prime",
			"apple music", "youtube", "gaming", "steam", "playstation",
			"xbox", "nintendo", "movie", "theater", "cinema", "concert",
		}},
		{domain.CategoryHealthcare, []string{
			"cvs", "walgreens", "rite aid", "pharmacy", "medical",
			"doctor", "dentist", "hospital", "clinic", "health",
		}},
		{domain.CategoryATMCash, []string{
			"atm", "withdrawal", "cash advance", "cash back", "cashout",
		}},
		{domain.CategoryIncome, []string{
			"direct deposit", "salary", "payroll", "interest", "dividend",
			"refund", "tax refund", "deposit", "credit",
		}},
		{domain.CategoryFees, []string{
			"fee", "charge", "penalty", "overdraft", "maintenance",
			"service charge", "foreign", "atm fee",
		}},
	}
}

type rulesFile struct {
	Rules []CategoryRule `yaml:"rules"`
}

// LoadRules reads an ordered rule table from a YAML file of the form
//
//	rules:
//	  - category: food_dining
//	    keywords: [starbucks, coffee]
//
// Every category must belong to the closed category set.
func LoadRules(path string) ([]CategoryRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadRules: reading %s: %w", path, err)
	}

	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("LoadRules: parsing %s: %w", path, err)
	}
	if err := ValidateRules(f.Rules); err != nil {
		return nil, fmt.Errorf("LoadRules: %s: %w", path, err)
	}
	return f.Rules, nil
}

// ValidateRules rejects empty tables, unknown categories and empty keywords.
func ValidateRules(rules []CategoryRule) error {
	if len(rules) == 0 {
		return errors.New("no rules defined")
	}
	for i, r := range rules {
		if !domain.IsKnownCategory(r.Category) {
			return fmt.Errorf("rule %d: unknown category %q", i, r.Category)
		}
		if len(r.Keywords) == 0 {
			return fmt.Errorf("rule %d (%s): no keywords", i, r.Category)
		}
		for _, kw := range r.Keywords {
			if kw == "" {
				return fmt.Errorf("rule %d (%s): empty keyword", i, r.Category)
			}
		}
	}
	return nil
}
