// Package usage counts external model calls and their estimated cost for a
// single analysis run. A Usage travels on the context so that concurrent
// runs in one process never share counters.
package usage

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// Stages that may call an external model.
const (
	StageCategorization = "categorization"
	StageInsights       = "insights"
)

type contextKey struct{}

// Usage is a per-run call and cost counter. A nil *Usage records nothing.
type Usage struct {
	mu          sync.Mutex
	costPerCall decimal.Decimal
	calls       map[string]int
	cost        decimal.Decimal
}

// Summary is a point-in-time copy of a Usage.
type Summary struct {
	TotalCalls          int     `json:"total_llm_calls"`
	EstimatedCost       float64 `json:"estimated_cost"`
	CategorizationCalls int     `json:"categorization_calls"`
	InsightCalls        int     `json:"insight_calls"`
}

// New returns an empty counter that charges costPerCall for every answered call.
func New(costPerCall float64) *Usage {
	return &Usage{
		costPerCall: decimal.NewFromFloat(costPerCall),
		calls:       make(map[string]int),
	}
}

// WithUsage returns a copy of ctx carrying u.
func WithUsage(ctx context.Context, u *Usage) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// FromContext returns the run's counter, or nil when ctx carries none.
func FromContext(ctx context.Context) *Usage {
	u, _ := ctx.Value(contextKey{}).(*Usage)
	return u
}

// Record counts one call made for stage. The call is counted even when it
// failed; cost is only charged when the model answered.
func (u *Usage) Record(stage string, answered bool) {
	if u == nil {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls[stage]++
	if answered {
		u.cost = u.cost.Add(u.costPerCall)
	}
}

// Calls returns the number of calls recorded for stage.
func (u *Usage) Calls(stage string) int {
	if u == nil {
		return 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls[stage]
}

// Summary returns the current totals.
func (u *Usage) Summary() Summary {
	if u == nil {
		return Summary{}
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	total := 0
	for _, n := range u.calls {
		total += n
	}
	cost, _ := u.cost.Round(6).Float64()
	return Summary{
		TotalCalls:          total,
		EstimatedCost:       cost,
		CategorizationCalls: u.calls[StageCategorization],
		InsightCalls:        u.calls[StageInsights],
	}
}
