package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/statement-analyzer/internal/logger"
	"github.com/dvloznov/statement-analyzer/internal/metrics"
)

type stepConfig struct {
	metrics *metrics.Metrics
}

// StepOption configures the document pipeline.
type StepOption func(*stepConfig)

// WithStepMetrics records parse outcomes in m.
func WithStepMetrics(m *metrics.Metrics) StepOption {
	return func(c *stepConfig) { c.metrics = m }
}

// Step 1: ExtractTextStep extracts the text blob from the document bytes.
type ExtractTextStep struct {
	Extractor Extractor
}

func (s *ExtractTextStep) Execute(ctx context.Context, state *PipelineState) error {
	text, err := s.Extractor.Extract(ctx, state.Data)
	if err != nil {
		return err
	}
	state.Text = text

	log := logger.FromContext(ctx)
	log.Info().Str("document", state.DocumentName).Int("characters", len(text)).Msg("Extracted text")
	return nil
}

// Step 2: FilterLinesStep keeps the lines that look like transactions.
type FilterLinesStep struct {
	Filter *LineFilter
}

func (s *FilterLinesStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Lines = s.Filter.Filter(state.Text)

	log := logger.FromContext(ctx)
	log.Info().Int("candidate_lines", len(state.Lines)).Msg("Filtered transaction lines")
	return nil
}

// Step 3: ParseTransactionsStep parses candidate lines into transactions.
type ParseTransactionsStep struct {
	Parser  *TransactionParser
	Metrics *metrics.Metrics
}

func (s *ParseTransactionsStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Parser == nil {
		return fmt.Errorf("ParseTransactionsStep: no parser configured")
	}
	state.Report = s.Parser.ParseLines(state.Lines)
	state.Transactions = state.Report.Transactions

	for _, l := range state.Report.Lines {
		s.Metrics.RecordParsedLine(l.Outcome.String())
	}

	log := logger.FromContext(ctx)
	for _, l := range state.Report.Lines {
		if l.Outcome != Parsed {
			log.Debug().Str("outcome", l.Outcome.String()).Str("reason", l.Reason).Str("line", l.Line).Msg("Line not parsed")
		}
	}
	log.Info().
		Int("parsed", state.Report.Parsed).
		Int("no_match", state.Report.NoMatch).
		Int("skipped", state.Report.Skipped).
		Str("mode", state.Report.Mode.String()).
		Msg("Parsed transactions")
	return nil
}

// Step 4: CategorizeStep applies the keyword rules.
type CategorizeStep struct {
	Categorizer *Categorizer
}

func (s *CategorizeStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Transactions = s.Categorizer.CategorizeAll(state.Transactions)

	categorized := 0
	for _, tx := range state.Transactions {
		if tx.IsCategorized() {
			categorized++
		}
	}

	log := logger.FromContext(ctx)
	log.Info().
		Int("categorized", categorized).
		Int("needs_llm", len(state.Transactions)-categorized).
		Msg("Applied keyword categorization")
	return nil
}
