package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/statement-analyzer/internal/domain"
)

// ParseMode controls what happens when a line matches a pattern but its date
// or amount cannot be parsed.
type ParseMode int

const (
	// Lenient substitutes the current date for a bad date and 0 for a bad amount.
	Lenient ParseMode = iota
	// Strict drops the line and counts it as skipped.
	Strict
)

func (m ParseMode) String() string {
	if m == Strict {
		return "strict"
	}
	return "lenient"
}

// LineOutcome is the result of parsing one candidate line.
type LineOutcome int

const (
	Parsed LineOutcome = iota
	NoMatch
	BadField
)

func (o LineOutcome) String() string {
	switch o {
	case Parsed:
		return "parsed"
	case NoMatch:
		return "no_match"
	case BadField:
		return "bad_field"
	default:
		return fmt.Sprintf("LineOutcome(%d)", int(o))
	}
}

// LineResult records what happened to one candidate line.
type LineResult struct {
	Line    string      `json:"line"`
	Outcome LineOutcome `json:"-"`
	Pattern string      `json:"pattern,omitempty"`
	Reason  string      `json:"reason,omitempty"`
}

// ParseReport is the output of ParseLines.
type ParseReport struct {
	Transactions []domain.Transaction
	Lines        []LineResult
	LinesFound   int
	Parsed       int
	NoMatch      int
	Skipped      int
	Mode         ParseMode
}

// Input layouts tried in order. Single-digit layouts also accept zero-padded values.
var dateLayouts = []string{
	"1/2/2006",
	"1-2-2006",
	"2006-1-2",
	"2-Jan-2006",
}

var (
	debitKeywords  = []string{"withdrawal", "purchase", "payment", "fee", "charge"}
	creditKeywords = []string{"deposit", "interest", "refund", "credit", "salary"}

	whitespaceRun = regexp.MustCompile(`\s+`)
	referenceCode = regexp.MustCompile(`[#*]\w*`)
	moneyNoise    = strings.NewReplacer("$", "", ",", "")
)

// TransactionParser turns candidate lines into transactions using an ordered
// list of format patterns.
type TransactionParser struct {
	patterns []FormatPattern
	mode     ParseMode
	now      func() time.Time
}

// NewTransactionParser returns a parser over patterns. A nil slice selects DefaultPatterns.
func NewTransactionParser(patterns []FormatPattern, mode ParseMode) *TransactionParser {
	if patterns == nil {
		patterns = DefaultPatterns()
	}
	return &TransactionParser{patterns: patterns, mode: mode, now: time.Now}
}

// Mode returns the parse mode in effect.
func (p *TransactionParser) Mode() ParseMode {
	return p.mode
}

// ParseLines parses every line and numbers the resulting transactions
// txn_1, txn_2, ... in source order.
func (p *TransactionParser) ParseLines(lines []string) ParseReport {
	report := ParseReport{
		LinesFound: len(lines),
		Mode:       p.mode,
		Lines:      make([]LineResult, 0, len(lines)),
	}
	for _, line := range lines {
		tx, res := p.parse(line)
		report.Lines = append(report.Lines, res)
		switch res.Outcome {
		case Parsed:
			tx.ID = fmt.Sprintf("txn_%d", len(report.Transactions)+1)
			report.Transactions = append(report.Transactions, tx)
			report.Parsed++
		case NoMatch:
			report.NoMatch++
		case BadField:
			report.Skipped++
		}
	}
	return report
}

// ParseLine parses one line. It reports false when no pattern matched or,
// in strict mode, when a field could not be parsed. The returned transaction
// has no ID.
func (p *TransactionParser) ParseLine(line string) (domain.Transaction, bool) {
	tx, res := p.parse(line)
	return tx, res.Outcome == Parsed
}

func (p *TransactionParser) parse(line string) (domain.Transaction, LineResult) {
	res := LineResult{Line: line, Outcome: NoMatch}
	for _, pat := range p.patterns {
		m := pat.Regexp.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		tx, err := p.extract(pat, m, line)
		if err != nil {
			// A later pattern may still read the line cleanly.
			res.Outcome = BadField
			res.Pattern = pat.Name
			res.Reason = err.Error()
			continue
		}
		return tx, LineResult{Line: line, Outcome: Parsed, Pattern: pat.Name}
	}
	return domain.Transaction{}, res
}

func (p *TransactionParser) extract(pat FormatPattern, m []string, line string) (domain.Transaction, error) {
	date, ok := NormalizeDate(m[pat.DateGroup])
	if !ok {
		if p.mode == Strict {
			return domain.Transaction{}, fmt.Errorf("bad date %q", m[pat.DateGroup])
		}
		date = p.now().Format("2006-01-02")
	}

	rawAmount := m[pat.AmountGroup]
	amount, err := parseAmount(rawAmount)
	if err != nil {
		if p.mode == Strict {
			return domain.Transaction{}, fmt.Errorf("bad amount %q", rawAmount)
		}
		amount = 0
	}

	var balance float64
	if pat.BalanceGroup > 0 && pat.BalanceGroup < len(m) {
		if b, err := parseAmount(m[pat.BalanceGroup]); err == nil {
			balance = b
		}
	}

	if amount < 0 {
		amount = -amount
	}

	return domain.Transaction{
		Date:        date,
		Description: cleanDescription(m[pat.DescGroup]),
		Amount:      amount,
		IsDebit:     isDebit(rawAmount, line),
		Balance:     balance,
		Category:    domain.CategoryUncategorized,
		Confidence:  0,
		Source:      domain.SourceDeterministic,
		Pattern:     pat.Name,
		RawLine:     line,
	}, nil
}

// NormalizeDate parses s with each supported layout in turn and returns it as YYYY-MM-DD.
func NormalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

func parseAmount(s string) (float64, error) {
	return strconv.ParseFloat(moneyNoise.Replace(strings.TrimSpace(s)), 64)
}

func cleanDescription(s string) string {
	s = whitespaceRun.ReplaceAllString(strings.TrimSpace(s), " ")
	s = referenceCode.ReplaceAllString(s, "")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// isDebit infers direction: an explicit sign on the amount wins, then debit
// keywords anywhere in the line, then credit keywords. Everything else is a debit.
func isDebit(rawAmount, line string) bool {
	if strings.HasPrefix(rawAmount, "-") || strings.HasPrefix(rawAmount, "+") {
		return strings.HasPrefix(rawAmount, "-")
	}
	lower := strings.ToLower(line)
	for _, kw := range debitKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	for _, kw := range creditKeywords {
		if strings.Contains(lower, kw) {
			return false
		}
	}
	return true
}
