// Package metrics exposes Prometheus counters for statement analysis.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	defaultMetrics *Metrics
	defaultOnce    sync.Once
)

// Outcome and stage label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeInput   = "input_error"

	StageCategorization = "categorization"
	StageInsights       = "insights"

	ReasonUnavailable = "unavailable"
	ReasonIncomplete  = "incomplete"
)

// Metrics holds the analyzer's Prometheus collectors.
//
// Metrics:
//   - statement_analyzer_analyses_total{outcome} - finished analyses
//   - statement_analyzer_llm_calls_total{stage} - external model calls
//   - statement_analyzer_fallback_transactions_total{reason} - transactions given a default category
//   - statement_analyzer_parsed_lines_total{outcome} - candidate lines by parse outcome
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	AnalysesTotal             *prometheus.CounterVec
	LLMCallsTotal             *prometheus.CounterVec
	FallbackTransactionsTotal *prometheus.CounterVec
	ParsedLinesTotal          *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AnalysesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "statement_analyzer_analyses_total",
				Help: "Total number of statement analyses by outcome",
			},
			[]string{"outcome"},
		),
		LLMCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "statement_analyzer_llm_calls_total",
				Help: "Total number of external language-model calls by stage",
			},
			[]string{"stage"}, // "categorization" or "insights"
		),
		FallbackTransactionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "statement_analyzer_fallback_transactions_total",
				Help: "Transactions assigned a default category by the fallback classifier",
			},
			[]string{"reason"},
		),
		ParsedLinesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "statement_analyzer_parsed_lines_total",
				Help: "Candidate transaction lines by parse outcome",
			},
			[]string{"outcome"}, // "parsed", "no_match", "bad_field"
		),
	}
}

// Default returns the process-wide collectors registered with the default
// Prometheus registry. Registration happens once.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// RecordAnalysis counts one finished analysis.
func (m *Metrics) RecordAnalysis(outcome string) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(outcome).Inc()
}

// RecordLLMCall counts one external call made for stage.
func (m *Metrics) RecordLLMCall(stage string) {
	if m == nil {
		return
	}
	m.LLMCallsTotal.WithLabelValues(stage).Inc()
}

// RecordFallback counts n transactions defaulted for reason.
func (m *Metrics) RecordFallback(reason string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.FallbackTransactionsTotal.WithLabelValues(reason).Add(float64(n))
}

// RecordParsedLine counts one candidate line with the given parse outcome.
func (m *Metrics) RecordParsedLine(outcome string) {
	if m == nil {
		return
	}
	m.ParsedLinesTotal.WithLabelValues(outcome).Inc()
}
