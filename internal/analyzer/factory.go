package analyzer

import (
	"context"
	"fmt"

	"github.com/dvloznov/statement-analyzer/internal/analysis"
	"github.com/dvloznov/statement-analyzer/internal/config"
	"github.com/dvloznov/statement-analyzer/internal/extractor"
	"github.com/dvloznov/statement-analyzer/internal/metrics"
	"github.com/dvloznov/statement-analyzer/internal/pipeline"
)

// NewCompleter returns the model client selected by cfg, or nil for provider "none".
func NewCompleter(ctx context.Context, cfg config.LLMConfig) (pipeline.Completer, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		c, err := pipeline.NewGeminiCompleter(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("NewCompleter: %w", err)
		}
		return c, nil
	case config.ProviderAnthropic:
		return pipeline.NewAnthropicCompleter(cfg.APIKey, cfg.Model), nil
	case config.ProviderNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("NewCompleter: unknown provider %q", cfg.Provider)
	}
}

// NewFromConfig wires every stage from cfg. Extra options are applied after
// the ones derived from cfg.
func NewFromConfig(ctx context.Context, cfg *config.Config, m *metrics.Metrics, opts ...Option) (*Analyzer, error) {
	rules := pipeline.DefaultRules()
	if cfg.Rules.CategoriesFile != "" {
		loaded, err := pipeline.LoadRules(cfg.Rules.CategoriesFile)
		if err != nil {
			return nil, fmt.Errorf("NewFromConfig: %w", err)
		}
		rules = loaded
	}

	mode := pipeline.Lenient
	if cfg.Parser.Strict {
		mode = pipeline.Strict
	}

	completer, err := NewCompleter(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("NewFromConfig: %w", err)
	}

	var classifier pipeline.Classifier
	var insights analysis.Completer
	if completer != nil {
		classifier = pipeline.NewCompleterClassifier(completer)
		insights = completer
	}

	documents := pipeline.NewDocumentProcessor(pipeline.NewDocumentPipeline(
		extractor.New(),
		pipeline.NewLineFilter(),
		pipeline.NewTransactionParser(pipeline.DefaultPatterns(), mode),
		pipeline.NewCategorizer(rules),
		pipeline.WithStepMetrics(m),
	))
	fallback := pipeline.NewFallbackClassifier(classifier,
		pipeline.WithTimeout(cfg.LLM.Timeout),
		pipeline.WithMetrics(m),
	)

	base := []Option{
		WithMetrics(m),
		WithLimits(cfg.Limits.MaxFileBytes, cfg.Limits.MaxTransactions),
		WithCostPerCall(cfg.LLM.CostPerCall),
	}
	return New(documents, fallback, analysis.NewAggregator(insights, m), append(base, opts...)...), nil
}
