package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/statement-analyzer/internal/domain"
)

// PipelineStep represents a single step in the document pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	DocumentName string
	Data         []byte
	Text         string
	Lines        []string
	Report       ParseReport
	Transactions []domain.Transaction
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// NewDocumentPipeline creates the standard 4-step pipeline that turns a
// statement into deterministically categorized transactions.
func NewDocumentPipeline(extractor Extractor, filter *LineFilter, parser *TransactionParser, categorizer *Categorizer, opts ...StepOption) *Pipeline {
	var cfg stepConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewPipeline(
		&ExtractTextStep{Extractor: extractor},
		&FilterLinesStep{Filter: filter},
		&ParseTransactionsStep{Parser: parser, Metrics: cfg.metrics},
		&CategorizeStep{Categorizer: categorizer},
	)
}
