package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/statement-analyzer/internal/domain"
	"github.com/dvloznov/statement-analyzer/internal/logger"
	"github.com/dvloznov/statement-analyzer/internal/metrics"
	"github.com/dvloznov/statement-analyzer/internal/usage"
)

// Default category assignments used when the classifier cannot answer.
const (
	IncompleteConfidence  = 0.5
	IncompleteReasoning   = "incomplete response"
	UnavailableConfidence = 0.3
	UnavailableReasoning  = "unavailable"
)

// FallbackReport describes what the fallback classifier did with one batch.
type FallbackReport struct {
	Requested   int    // uncategorized transactions in the batch
	Calls       int    // external calls made: 0 or 1
	LLM         int    // categorized from the response
	Incomplete  int    // missing from an otherwise valid response
	Unavailable int    // defaulted because the call or its validation failed
	RawResponse string // undecoded model output, when there was one
	Err         error  // the failure that triggered the wholesale default
}

// FallbackClassifier resolves every uncategorized transaction with at most
// one external call per batch. It never returns an error: any failure is
// logged and replaced by a default category.
type FallbackClassifier struct {
	classifier Classifier
	vocabulary []domain.VocabularyEntry
	validator  *CategoryValidator
	timeout    time.Duration
	metrics    *metrics.Metrics
}

// FallbackOption configures a FallbackClassifier.
type FallbackOption func(*FallbackClassifier)

// WithTimeout bounds the external call.
func WithTimeout(d time.Duration) FallbackOption {
	return func(f *FallbackClassifier) { f.timeout = d }
}

// WithMetrics records calls and defaults in m.
func WithMetrics(m *metrics.Metrics) FallbackOption {
	return func(f *FallbackClassifier) { f.metrics = m }
}

// WithVocabulary replaces the default category vocabulary.
func WithVocabulary(v []domain.VocabularyEntry) FallbackOption {
	return func(f *FallbackClassifier) { f.vocabulary = v }
}

// NewFallbackClassifier returns a FallbackClassifier using c. A nil c means
// no classifier is configured: every uncategorized transaction gets the
// unavailable default and no call is made.
func NewFallbackClassifier(c Classifier, opts ...FallbackOption) *FallbackClassifier {
	f := &FallbackClassifier{
		classifier: c,
		vocabulary: domain.DefaultVocabulary(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.validator = NewCategoryValidator(f.vocabulary)
	return f
}

// Apply returns a copy of txs in which no transaction is uncategorized.
// Output order equals input order.
func (f *FallbackClassifier) Apply(ctx context.Context, txs []domain.Transaction) []domain.Transaction {
	out, _ := f.ApplyWithReport(ctx, txs)
	return out
}

// ApplyWithReport is Apply plus a description of the outcome.
func (f *FallbackClassifier) ApplyWithReport(ctx context.Context, txs []domain.Transaction) ([]domain.Transaction, FallbackReport) {
	log := logger.FromContext(ctx)

	out := make([]domain.Transaction, len(txs))
	copy(out, txs)

	var pending []int
	for i := range out {
		if !out[i].IsCategorized() {
			pending = append(pending, i)
		}
	}

	report := FallbackReport{Requested: len(pending)}
	if len(pending) == 0 {
		log.Debug().Int("transactions", len(out)).Msg("All transactions categorized, no classifier call needed")
		return out, report
	}

	if f.classifier == nil {
		report.Err = fmt.Errorf("no classifier configured")
		f.applyUnavailable(out, pending, &report)
		log.Warn().Int("transactions", len(pending)).Msg("No classifier configured, applying default category")
		return out, report
	}

	req := Request{
		Items:      make([]RequestItem, len(pending)),
		Vocabulary: f.vocabulary,
	}
	for n, i := range pending {
		req.Items[n] = RequestItem{
			ID:          fmt.Sprintf("txn_%d", n),
			Description: out[i].Description,
			Amount:      out[i].Amount,
			IsDebit:     out[i].IsDebit,
			Date:        out[i].Date,
		}
	}

	log.Info().Int("transactions", len(pending)).Msg("Classifying uncategorized transactions")

	resp, err := f.classify(ctx, req)
	report.Calls = 1
	if resp != nil {
		report.RawResponse = resp.Raw
	}
	usage.FromContext(ctx).Record(usage.StageCategorization, err == nil && resp != nil)
	f.metrics.RecordLLMCall(metrics.StageCategorization)

	if err == nil {
		resp, err = f.validator.ValidateResponse(resp)
	}
	if err != nil {
		report.Err = err
		f.applyUnavailable(out, pending, &report)
		log.Error().Err(err).Int("transactions", len(pending)).Msg("Classifier failed, applying default category")
		return out, report
	}

	answers := make(map[string]Categorization, len(resp.Categorizations))
	for _, c := range resp.Categorizations {
		answers[c.TransactionID] = c
	}

	for n, i := range pending {
		c, ok := answers[req.Items[n].ID]
		if !ok {
			out[i].Category = domain.CategoryOther
			out[i].Confidence = IncompleteConfidence
			out[i].Source = domain.SourceFallback
			out[i].Reasoning = IncompleteReasoning
			report.Incomplete++
			continue
		}
		out[i].Category = c.Category
		out[i].Confidence = c.Confidence
		out[i].Source = domain.SourceLLM
		out[i].Reasoning = c.Reasoning
		report.LLM++
	}
	f.metrics.RecordFallback(metrics.ReasonIncomplete, report.Incomplete)

	log.Info().
		Int("llm", report.LLM).
		Int("incomplete", report.Incomplete).
		Msg("Applied classifier response")

	return out, report
}

func (f *FallbackClassifier) classify(ctx context.Context, req Request) (resp *Response, err error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			resp, err = nil, fmt.Errorf("classifier panicked: %v", r)
		}
	}()

	resp, err = f.classifier.Classify(ctx, req)
	if err == nil && resp == nil {
		err = fmt.Errorf("classifier returned no response")
	}
	return resp, err
}

func (f *FallbackClassifier) applyUnavailable(out []domain.Transaction, pending []int, report *FallbackReport) {
	for _, i := range pending {
		out[i].Category = domain.CategoryOther
		out[i].Confidence = UnavailableConfidence
		out[i].Source = domain.SourceFallback
		out[i].Reasoning = UnavailableReasoning
	}
	report.Unavailable = len(pending)
	f.metrics.RecordFallback(metrics.ReasonUnavailable, len(pending))
}
