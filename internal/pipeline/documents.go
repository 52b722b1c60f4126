package pipeline

import (
	"context"
	"errors"

	"github.com/dvloznov/statement-analyzer/internal/domain"
	"github.com/dvloznov/statement-analyzer/internal/extractor"
	"github.com/dvloznov/statement-analyzer/internal/logger"
)

// Diagnostics summarizes how a document went through the pipeline.
type Diagnostics struct {
	LinesFound                   int     `json:"lines_found"`
	SuccessfullyParsed           int     `json:"successfully_parsed"`
	ParseSuccessRate             float64 `json:"parse_success_rate"`
	CategorizedDeterministically int     `json:"categorized_deterministically"`
	NeedsLLM                     int     `json:"needs_llm"`
	NoMatch                      int     `json:"no_match"`
	Skipped                      int     `json:"skipped"`
	Mode                         string  `json:"mode"`
}

// DocumentResult is the per-document output. Success is false only when the
// document could not be read; zero transactions is a successful, empty result.
type DocumentResult struct {
	Success      bool                 `json:"success"`
	Error        string               `json:"error,omitempty"`
	Transactions []domain.Transaction `json:"transactions"`
	Lines        []string             `json:"raw_transaction_lines,omitempty"`
	Diagnostics  *Diagnostics         `json:"diagnostics,omitempty"`

	// Err is the underlying failure, for errors.Is checks.
	Err error `json:"-"`
}

// DocumentProcessor runs the document pipeline and packages its output.
type DocumentProcessor struct {
	pipeline *Pipeline
}

// NewDocumentProcessor wraps a document pipeline built with NewDocumentPipeline.
func NewDocumentProcessor(p *Pipeline) *DocumentProcessor {
	return &DocumentProcessor{pipeline: p}
}

// Process extracts, parses and keyword-categorizes one document. It never
// returns an error: failures are reported in the result.
func (d *DocumentProcessor) Process(ctx context.Context, name string, data []byte) DocumentResult {
	log := logger.FromContext(ctx)

	state := &PipelineState{DocumentName: name, Data: data}
	if err := d.pipeline.Execute(ctx, state); err != nil {
		log.Error().Err(err).Str("document", name).Msg("Document processing failed")
		return DocumentResult{
			Success:      false,
			Error:        failureReason(err),
			Transactions: []domain.Transaction{},
			Err:          err,
		}
	}

	diag := &Diagnostics{
		LinesFound:         state.Report.LinesFound,
		SuccessfullyParsed: state.Report.Parsed,
		NoMatch:            state.Report.NoMatch,
		Skipped:            state.Report.Skipped,
		Mode:               state.Report.Mode.String(),
	}
	if diag.LinesFound > 0 {
		diag.ParseSuccessRate = float64(diag.SuccessfullyParsed) / float64(diag.LinesFound)
	}
	for _, tx := range state.Transactions {
		if tx.IsCategorized() {
			diag.CategorizedDeterministically++
		} else {
			diag.NeedsLLM++
		}
	}

	txs := state.Transactions
	if txs == nil {
		txs = []domain.Transaction{}
	}
	return DocumentResult{
		Success:      true,
		Transactions: txs,
		Lines:        state.Lines,
		Diagnostics:  diag,
	}
}

// failureReason turns a pipeline error into a short user-facing reason.
func failureReason(err error) string {
	switch {
	case errors.Is(err, extractor.ErrNoText):
		return extractor.ErrNoText.Error()
	case errors.Is(err, extractor.ErrOpen):
		return extractor.ErrOpen.Error()
	default:
		return err.Error()
	}
}
