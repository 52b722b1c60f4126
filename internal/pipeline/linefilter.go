package pipeline

import (
	"regexp"
	"strings"
)

// skipPatterns match header, footer and separator lines. They are applied to
// the lowercased, trimmed line.
var skipPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(account|statement|balance|date|description|amount)`),
	regexp.MustCompile(`^(page \d+|statement period|issue date)`),
	regexp.MustCompile(`^(previous balance|ending balance|current balance)`),
	regexp.MustCompile(`^(note:|total|summary)`),
	regexp.MustCompile(`^(paid in|paid out|detail|payment type)`),
	regexp.MustCompile(`^-+$`),
	regexp.MustCompile(`^=+$`),
}

var (
	dateToken   = regexp.MustCompile(`\d{1,2}[/-]\d{1,2}[/-]\d{4}`)
	amountToken = regexp.MustCompile(`\$?[\d,]+\.?\d*`)
	wordToken   = regexp.MustCompile(`[A-Za-z]{3,}`)

	rowPrefix  = regexp.MustCompile(`^ROW_\d+:\s*`)
	markerLine = regexp.MustCompile(`^--- (PAGE \d+ (TABLE \d+|TEXT|CHARS)|END (TABLE \d+|PAGE \d+ TEXT|CHARS)) ---$`)
	tabRun     = regexp.MustCompile(`\t+`)
)

// LineFilter selects the lines of an extracted text blob that plausibly
// describe a transaction.
type LineFilter struct{}

// NewLineFilter returns a LineFilter.
func NewLineFilter() *LineFilter {
	return &LineFilter{}
}

// Filter returns candidate transaction lines in source order. Duplicates are kept.
func (f *LineFilter) Filter(text string) []string {
	var out []string
	for _, raw := range strings.Split(text, "\n") {
		line := normalizeLine(raw)
		if line == "" {
			continue
		}
		if isHeaderOrFooter(line) {
			continue
		}
		if looksLikeTransaction(line) {
			out = append(out, line)
		}
	}
	return out
}

// normalizeLine trims a line, drops extractor markers and flattens table rows
// so that they go through the same heuristics as positional text.
func normalizeLine(raw string) string {
	line := strings.TrimSpace(raw)
	if line == "" || markerLine.MatchString(line) {
		return ""
	}
	if rowPrefix.MatchString(line) {
		line = rowPrefix.ReplaceAllString(line, "")
		line = strings.TrimSpace(tabRun.ReplaceAllString(line, " "))
	}
	return line
}

func isHeaderOrFooter(line string) bool {
	lower := strings.ToLower(line)
	for _, p := range skipPatterns {
		if p.MatchString(lower) {
			return true
		}
	}
	return false
}

// looksLikeTransaction requires a date, an amount and some descriptive text.
func looksLikeTransaction(line string) bool {
	return dateToken.MatchString(line) &&
		amountToken.MatchString(line) &&
		wordToken.MatchString(line)
}
