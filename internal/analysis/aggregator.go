// Package analysis turns categorized transactions into a spending report.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/dvloznov/statement-analyzer/internal/domain"
	"github.com/dvloznov/statement-analyzer/internal/logger"
	"github.com/dvloznov/statement-analyzer/internal/metrics"
	"github.com/dvloznov/statement-analyzer/internal/usage"
	"github.com/shopspring/decimal"
)

const (
	// daysPerPeriod is the assumed statement length for daily averages.
	daysPerPeriod = 30
	topMerchants  = 5
	maxInsights   = 5
	// concentrationThreshold is the share of spending above which the top
	// category gets a warning.
	concentrationThreshold = 30.0
)

var merchantSuffix = regexp.MustCompile(`[#\d]*$`)

// Completer sends one prompt to a language model and returns its text answer.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Options selects optional report parts.
type Options struct {
	AIInsights bool
}

// Summary holds whole-statement totals. Money values are rounded to cents.
type Summary struct {
	TotalTransactions    int     `json:"total_transactions"`
	TotalSpent           float64 `json:"total_spent"`
	TotalIncome          float64 `json:"total_income"`
	NetChange            float64 `json:"net_change"`
	AverageTransaction   float64 `json:"average_transaction"`
	AverageDailySpending float64 `json:"average_daily_spending"`
	DebitCount           int     `json:"debit_count"`
	CreditCount          int     `json:"credit_count"`
}

// TransactionRef identifies a notable transaction in the report.
type TransactionRef struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
	Category    string  `json:"category,omitempty"`
}

// CategoryBreakdown is the spending in one category.
type CategoryBreakdown struct {
	Category              string         `json:"category"`
	Total                 float64        `json:"total"`
	Percentage            float64        `json:"percentage"`
	TransactionCount      int            `json:"transaction_count"`
	AveragePerTransaction float64        `json:"average_per_transaction"`
	LargestTransaction    TransactionRef `json:"largest_transaction"`
}

// MerchantTotal is the spending at one merchant.
type MerchantTotal struct {
	Name  string  `json:"name"`
	Total float64 `json:"total"`
}

// SpendingPatterns is empty when the statement has no debits.
type SpendingPatterns struct {
	TopMerchants              []MerchantTotal `json:"top_merchants,omitempty"`
	LargestSinglePurchase     *TransactionRef `json:"largest_single_purchase,omitempty"`
	UniqueMerchants           int             `json:"unique_merchants"`
	AverageTransactionsPerDay float64         `json:"average_transactions_per_day"`
}

// Report is the aggregator's output.
type Report struct {
	Summary           Summary             `json:"financial_summary"`
	CategoryBreakdown []CategoryBreakdown `json:"category_breakdown"`
	SpendingPatterns  SpendingPatterns    `json:"spending_patterns"`
	BasicInsights     []string            `json:"basic_insights"`
	AIInsights        []string            `json:"ai_insights,omitempty"`
	GeneratedAt       time.Time           `json:"report_generated_at"`
	TotalAnalyzed     int                 `json:"total_transactions_analyzed"`
}

// Aggregator computes reports. The completer is optional and only used when
// AI insights are requested.
type Aggregator struct {
	completer Completer
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewAggregator returns an Aggregator. c may be nil.
func NewAggregator(c Completer, m *metrics.Metrics) *Aggregator {
	return &Aggregator{completer: c, metrics: m, now: time.Now}
}

// Analyze builds a report for txs. It makes at most one external call.
func (a *Aggregator) Analyze(ctx context.Context, txs []domain.Transaction, opts Options) *Report {
	log := logger.FromContext(ctx)

	summary := summarize(txs)
	breakdown := breakdownByCategory(txs)
	patterns := spendingPatterns(txs)

	report := &Report{
		Summary:           summary,
		CategoryBreakdown: breakdown,
		SpendingPatterns:  patterns,
		BasicInsights:     basicInsights(summary, breakdown),
		GeneratedAt:       a.now(),
		TotalAnalyzed:     len(txs),
	}

	if opts.AIInsights && a.completer != nil {
		report.AIInsights = a.aiInsights(ctx, summary, breakdown, patterns)
	}

	log.Info().
		Float64("total_spent", summary.TotalSpent).
		Float64("total_income", summary.TotalIncome).
		Int("categories", len(breakdown)).
		Int("ai_insights", len(report.AIInsights)).
		Msg("Generated analysis")
	return report
}

func summarize(txs []domain.Transaction) Summary {
	spent, income := decimal.Zero, decimal.Zero
	var s Summary
	for _, tx := range txs {
		amt := decimal.NewFromFloat(tx.Amount)
		if tx.IsDebit {
			spent = spent.Add(amt)
			s.DebitCount++
		} else {
			income = income.Add(amt)
			s.CreditCount++
		}
	}

	s.TotalTransactions = len(txs)
	s.TotalSpent = money(spent)
	s.TotalIncome = money(income)
	s.NetChange = money(income.Sub(spent))
	if s.DebitCount > 0 {
		s.AverageTransaction = money(spent.Div(decimal.NewFromInt(int64(s.DebitCount))))
		s.AverageDailySpending = money(spent.Div(decimal.NewFromInt(daysPerPeriod)))
	}
	return s
}

func breakdownByCategory(txs []domain.Transaction) []CategoryBreakdown {
	type bucket struct {
		total   decimal.Decimal
		count   int
		largest domain.Transaction
	}

	spent := decimal.Zero
	buckets := make(map[string]*bucket)
	var order []string
	for _, tx := range txs {
		if !tx.IsDebit {
			continue
		}
		amt := decimal.NewFromFloat(tx.Amount)
		spent = spent.Add(amt)

		b, ok := buckets[tx.Category]
		if !ok {
			b = &bucket{total: decimal.Zero, largest: tx}
			buckets[tx.Category] = b
			order = append(order, tx.Category)
		}
		b.total = b.total.Add(amt)
		b.count++
		if tx.Amount > b.largest.Amount {
			b.largest = tx
		}
	}

	out := make([]CategoryBreakdown, 0, len(order))
	for _, cat := range order {
		b := buckets[cat]
		var pct float64
		if spent.IsPositive() {
			pct, _ = b.total.Div(spent).Mul(decimal.NewFromInt(100)).Round(2).Float64()
		}
		out = append(out, CategoryBreakdown{
			Category:              cat,
			Total:                 money(b.total),
			Percentage:            pct,
			TransactionCount:      b.count,
			AveragePerTransaction: money(b.total.Div(decimal.NewFromInt(int64(b.count)))),
			LargestTransaction: TransactionRef{
				Description: b.largest.Description,
				Amount:      b.largest.Amount,
				Date:        b.largest.Date,
			},
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return out
}

func spendingPatterns(txs []domain.Transaction) SpendingPatterns {
	var debits []domain.Transaction
	for _, tx := range txs {
		if tx.IsDebit {
			debits = append(debits, tx)
		}
	}
	if len(debits) == 0 {
		return SpendingPatterns{}
	}

	totals := make(map[string]decimal.Decimal)
	var names []string
	largest := debits[0]
	for _, tx := range debits {
		name := MerchantName(tx.Description)
		if _, ok := totals[name]; !ok {
			names = append(names, name)
			totals[name] = decimal.Zero
		}
		totals[name] = totals[name].Add(decimal.NewFromFloat(tx.Amount))
		if tx.Amount > largest.Amount {
			largest = tx
		}
	}

	merchants := make([]MerchantTotal, 0, len(names))
	for _, n := range names {
		merchants = append(merchants, MerchantTotal{Name: n, Total: money(totals[n])})
	}
	sort.SliceStable(merchants, func(i, j int) bool { return merchants[i].Total > merchants[j].Total })
	if len(merchants) > topMerchants {
		merchants = merchants[:topMerchants]
	}

	perDay, _ := decimal.NewFromInt(int64(len(debits))).Div(decimal.NewFromInt(daysPerPeriod)).Round(2).Float64()
	return SpendingPatterns{
		TopMerchants: merchants,
		LargestSinglePurchase: &TransactionRef{
			Description: largest.Description,
			Amount:      largest.Amount,
			Date:        largest.Date,
			Category:    largest.Category,
		},
		UniqueMerchants:           len(totals),
		AverageTransactionsPerDay: perDay,
	}
}

// MerchantName strips trailing store numbers and reference marks from a description.
func MerchantName(description string) string {
	return strings.TrimSpace(merchantSuffix.ReplaceAllString(description, ""))
}

func basicInsights(s Summary, breakdown []CategoryBreakdown) []string {
	var out []string
	if s.TotalSpent > 0 {
		out = append(out,
			fmt.Sprintf("You spent $%.2f across %d transactions", s.TotalSpent, s.DebitCount),
			fmt.Sprintf("Average spending per transaction: $%.2f", s.AverageTransaction),
			fmt.Sprintf("Average daily spending: $%.2f", s.AverageDailySpending),
		)
	}
	if len(breakdown) > 0 {
		top := breakdown[0]
		out = append(out, fmt.Sprintf("Your top spending category is %s at %.1f%% of total", top.Category, top.Percentage))
		if top.Percentage > concentrationThreshold {
			out = append(out, fmt.Sprintf("Warning: %s represents a large portion of your spending", top.Category))
		}
	}
	if s.NetChange > 0 {
		out = append(out, fmt.Sprintf("Positive cash flow: +$%.2f", s.NetChange))
	} else {
		out = append(out, fmt.Sprintf("Negative cash flow: $%.2f", s.NetChange))
	}
	return out
}

const insightsSystemPrompt = `You are a personal finance advisor. Analyze this spending data and provide 3-5 personalized insights and recommendations. Be specific and actionable.

Focus on:
1. Spending patterns and potential areas for improvement
2. Budget allocation suggestions
3. Specific actionable recommendations

Keep insights concise and practical.`

func (a *Aggregator) aiInsights(ctx context.Context, s Summary, breakdown []CategoryBreakdown, p SpendingPatterns) []string {
	log := logger.FromContext(ctx)

	top := breakdown
	if len(top) > 5 {
		top = top[:5]
	}
	data, err := json.MarshalIndent(map[string]interface{}{
		"spending_summary":  s,
		"top_categories":    top,
		"spending_patterns": p,
	}, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode insight request")
		return nil
	}

	text, err := a.completer.Complete(ctx, insightsSystemPrompt,
		"Analyze this spending data and provide personalized insights:\n"+string(data))
	usage.FromContext(ctx).Record(usage.StageInsights, err == nil)
	a.metrics.RecordLLMCall(metrics.StageInsights)
	if err != nil {
		log.Error().Err(err).Msg("AI insights failed")
		return nil
	}

	var insights []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			insights = append(insights, line)
		}
		if len(insights) == maxInsights {
			break
		}
	}
	return insights
}

func money(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}
