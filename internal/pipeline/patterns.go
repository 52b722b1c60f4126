package pipeline

import "regexp"

// FormatPattern is one statement line layout. Group indexes are 1-based
// submatch positions; BalanceGroup is 0 when the layout has no balance.
type FormatPattern struct {
	Name         string
	Regexp       *regexp.Regexp
	DateGroup    int
	DescGroup    int
	AmountGroup  int
	BalanceGroup int
}

// Pattern names, in priority order.
const (
	PatternChase      = "chase"
	PatternWellsFargo = "wells_fargo"
	PatternGeneric    = "generic"
)

// storeNumber tolerates store or reference numbers between the description
// and the amount, e.g. "DUNKIN DONUTS 8901" or "BURGER KING #4521".
const storeNumber = `(?:\s+[#*]?\d+)*`

// DefaultPatterns returns the built-in layouts in priority order. The first
// pattern that matches a line wins.
func DefaultPatterns() []FormatPattern {
	return []FormatPattern{
		{
			// 02/01/2024 DUNKIN DONUTS 8901 -$4.50 $1,851.92
			Name:         PatternChase,
			Regexp:       regexp.MustCompile(`(\d{1,2}/\d{1,2}/\d{4})\s+([^-+$\d]+?)` + storeNumber + `\s+([-+]?\$?[\d,]+\.?\d*)\s+\$?([\d,]+\.?\d*)`),
			DateGroup:    1,
			DescGroup:    2,
			AmountGroup:  3,
			BalanceGroup: 4,
		},
		{
			// 03-01-2024 BURGER KING #4521 $8.99 $2,136.68
			Name:         PatternWellsFargo,
			Regexp:       regexp.MustCompile(`(\d{1,2}-\d{1,2}-\d{4})\s+([^$\d]+?)` + storeNumber + `\s+\$?([\d,]+\.?\d*)\s+\$?([\d,]+\.?\d*)`),
			DateGroup:    1,
			DescGroup:    2,
			AmountGroup:  3,
			BalanceGroup: 4,
		},
		{
			// 01/02/2024 STARBUCKS STORE 1234 -$5.67 $2,494.33
			Name:         PatternGeneric,
			Regexp:       regexp.MustCompile(`(\d{1,2}/\d{1,2}/\d{4})\s+([A-Za-z][^-+$\d]*?)` + storeNumber + `\s+([-+]?\$?[\d,]+\.?\d*)\s+\$?([\d,]+\.?\d*)`),
			DateGroup:    1,
			DescGroup:    2,
			AmountGroup:  3,
			BalanceGroup: 4,
		},
	}
}
