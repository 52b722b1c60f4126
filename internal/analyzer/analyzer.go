// Package analyzer runs a statement end to end: input checks, the document
// pipeline, the fallback classifier and the aggregator.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/storage"
	"github.com/dvloznov/statement-analyzer/internal/analysis"
	"github.com/dvloznov/statement-analyzer/internal/domain"
	"github.com/dvloznov/statement-analyzer/internal/gcsuploader"
	"github.com/dvloznov/statement-analyzer/internal/logger"
	"github.com/dvloznov/statement-analyzer/internal/metrics"
	"github.com/dvloznov/statement-analyzer/internal/pipeline"
	"github.com/dvloznov/statement-analyzer/internal/usage"
	"github.com/google/uuid"
)

const (
	DefaultMaxFileBytes    = 10 * 1024 * 1024
	DefaultMaxTransactions = 500
	DefaultCostPerCall     = 0.002
	defaultCachedResults   = 100
)

// Options selects optional parts of one analysis.
type Options struct {
	AIInsights bool
}

// Result is the outcome of one analysis. On failure only Success, Error,
// RunID, Source and the zero SystemMetrics are set.
type Result struct {
	Success       bool                  `json:"success"`
	Error         string                `json:"error,omitempty"`
	RunID         string                `json:"run_id"`
	Source        string                `json:"source"`
	Analysis      *analysis.Report      `json:"analysis,omitempty"`
	Transactions  []domain.Transaction  `json:"transactions,omitempty"`
	Diagnostics   *pipeline.Diagnostics `json:"diagnostics,omitempty"`
	SystemMetrics usage.Summary         `json:"system_metrics"`
	SessionState  *SessionState         `json:"session_state,omitempty"`

	// RawModelOutput is the classifier's undecoded answer, if a call was made.
	RawModelOutput string    `json:"-"`
	StartedAt      time.Time `json:"-"`
	Err            error     `json:"-"`
}

// SessionState accumulates usage across the analyses of one process.
type SessionState struct {
	AnalysesPerformed int        `json:"analyses_performed"`
	TotalLLMCalls     int        `json:"total_llm_calls"`
	TotalCost         float64    `json:"total_cost"`
	LastAnalysis      *time.Time `json:"last_analysis,omitempty"`
}

// Storage is the subset of gcsuploader.StorageService used to read gs:// sources.
type Storage interface {
	ObjectSize(ctx context.Context, gcsURI string) (int64, error)
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)
}

// Recorder persists runs. Failures are logged and never fail the analysis.
type Recorder interface {
	StartRun(ctx context.Context, runID, source string) error
	FinishRun(ctx context.Context, result *Result) error
}

// Analyzer is safe for concurrent use. Each run has its own usage counter;
// only the session state and the result cache are shared.
type Analyzer struct {
	documents  *pipeline.DocumentProcessor
	fallback   *pipeline.FallbackClassifier
	aggregator *analysis.Aggregator

	storage  Storage
	recorder Recorder
	metrics  *metrics.Metrics

	maxFileBytes    int64
	maxTransactions int
	costPerCall     float64

	mu      sync.Mutex
	session SessionState
	results map[string]*Result
	order   []string
	cache   int

	now      func() time.Time
	newRunID func() string
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithStorage enables gs:// sources.
func WithStorage(s Storage) Option {
	return func(a *Analyzer) { a.storage = s }
}

// WithRecorder persists every run that passes the input gate.
func WithRecorder(r Recorder) Option {
	return func(a *Analyzer) { a.recorder = r }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Analyzer) { a.metrics = m }
}

// WithLimits overrides the file size and transaction count limits. Zero keeps the default.
func WithLimits(maxFileBytes int64, maxTransactions int) Option {
	return func(a *Analyzer) {
		if maxFileBytes > 0 {
			a.maxFileBytes = maxFileBytes
		}
		if maxTransactions > 0 {
			a.maxTransactions = maxTransactions
		}
	}
}

func WithCostPerCall(cost float64) Option {
	return func(a *Analyzer) { a.costPerCall = cost }
}

// WithResultCache sets how many recent results Lookup can return.
func WithResultCache(n int) Option {
	return func(a *Analyzer) { a.cache = n }
}

// New returns an Analyzer built from its three stages.
func New(documents *pipeline.DocumentProcessor, fallback *pipeline.FallbackClassifier, aggregator *analysis.Aggregator, opts ...Option) *Analyzer {
	a := &Analyzer{
		documents:       documents,
		fallback:        fallback,
		aggregator:      aggregator,
		maxFileBytes:    DefaultMaxFileBytes,
		maxTransactions: DefaultMaxTransactions,
		costPerCall:     DefaultCostPerCall,
		results:         make(map[string]*Result),
		cache:           defaultCachedResults,
		now:             time.Now,
		newRunID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalyzeFile analyzes a local PDF or a gs:// object. An *InputError is
// returned when the source is rejected, and a wrapped storage error when a
// gs:// object exists but cannot be reached. Every later failure is reported
// in the Result with Success false.
func (a *Analyzer) AnalyzeFile(ctx context.Context, source string, opts Options) (*Result, error) {
	if gcsuploader.IsGCSURI(source) {
		return a.analyzeGCS(ctx, source, opts)
	}

	info, err := os.Stat(source)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, a.reject(ctx, errFileNotFound(source))
	}
	if err != nil {
		return nil, a.reject(ctx, errUnreadable(source, err))
	}
	if err := a.checkInput(source, info.Size()); err != nil {
		return nil, a.reject(ctx, err)
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, a.reject(ctx, errUnreadable(source, err))
	}
	return a.run(ctx, source, data, opts), nil
}

// AnalyzeBytes analyzes an in-memory document, such as an HTTP upload. name
// is used for the extension check and for logging.
func (a *Analyzer) AnalyzeBytes(ctx context.Context, name string, data []byte, opts Options) (*Result, error) {
	if err := a.checkInput(name, int64(len(data))); err != nil {
		return nil, a.reject(ctx, err)
	}
	return a.run(ctx, name, data, opts), nil
}

func (a *Analyzer) analyzeGCS(ctx context.Context, uri string, opts Options) (*Result, error) {
	if a.storage == nil {
		return nil, a.reject(ctx, errUnreadable(uri, fmt.Errorf("no storage configured")))
	}
	if _, _, err := gcsuploader.ParseURI(uri, false); err != nil {
		return nil, a.reject(ctx, errUnreadable(uri, err))
	}

	size, err := a.storage.ObjectSize(ctx, uri)
	if err != nil {
		return nil, a.storageFailure(ctx, uri, fmt.Errorf("analyzeGCS: reading size of %s: %w", uri, err))
	}
	if err := a.checkInput(uri, size); err != nil {
		return nil, a.reject(ctx, err)
	}

	data, err := a.storage.FetchFromGCS(ctx, uri)
	if err != nil {
		return nil, a.storageFailure(ctx, uri, fmt.Errorf("analyzeGCS: fetching %s: %w", uri, err))
	}
	return a.run(ctx, uri, data, opts), nil
}

// storageFailure turns a missing object into an *InputError. Any other
// storage error is returned as is so callers can retry it.
func (a *Analyzer) storageFailure(ctx context.Context, uri string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return a.reject(ctx, errFileNotFound(uri))
	}
	log := logger.FromContext(ctx)
	log.Error().Err(err).Str("source", uri).Msg("Storage unavailable")
	a.metrics.RecordAnalysis(metrics.OutcomeFailure)
	return err
}

// checkInput applies the extension and size rules, in that order.
func (a *Analyzer) checkInput(name string, size int64) *InputError {
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return errNotPDF(name)
	}
	if size > a.maxFileBytes {
		return errTooLarge(name, a.maxFileBytes)
	}
	if size == 0 {
		return errEmpty(name)
	}
	return nil
}

func (a *Analyzer) reject(ctx context.Context, err *InputError) error {
	log := logger.FromContext(ctx)
	log.Warn().Str("source", err.Source).Str("reason", err.Reason).Msg("Rejected input")
	a.metrics.RecordAnalysis(metrics.OutcomeInput)
	return err
}

func (a *Analyzer) run(ctx context.Context, source string, data []byte, opts Options) *Result {
	runID := a.newRunID()
	ctx = logger.WithRunID(ctx, runID)
	log := logger.FromContext(ctx)

	u := usage.New(a.costPerCall)
	ctx = usage.WithUsage(ctx, u)

	result := &Result{RunID: runID, Source: source, StartedAt: a.now()}

	log.Info().
		Str("source", source).
		Int("bytes", len(data)).
		Bool("ai_insights", opts.AIInsights).
		Msg("Starting analysis")

	if a.recorder != nil {
		if err := a.recorder.StartRun(ctx, runID, source); err != nil {
			log.Error().Err(err).Msg("Failed to record analysis start")
		}
	}

	a.process(ctx, result, source, data, opts)
	result.SystemMetrics = u.Summary()

	if result.Success {
		a.metrics.RecordAnalysis(metrics.OutcomeSuccess)
		result.SessionState = a.updateSession(result.SystemMetrics)
		log.Info().
			Int("transactions", len(result.Transactions)).
			Int("llm_calls", result.SystemMetrics.TotalCalls).
			Float64("estimated_cost", result.SystemMetrics.EstimatedCost).
			Msg("Analysis complete")
	} else {
		a.metrics.RecordAnalysis(metrics.OutcomeFailure)
		log.Warn().Str("error", result.Error).Msg("Analysis failed")
	}

	if a.recorder != nil {
		if err := a.recorder.FinishRun(ctx, result); err != nil {
			log.Error().Err(err).Msg("Failed to record analysis result")
		}
	}
	a.remember(result)
	return result
}

func (a *Analyzer) process(ctx context.Context, result *Result, source string, data []byte, opts Options) {
	doc := a.documents.Process(ctx, source, data)
	if !doc.Success {
		result.Error = fmt.Sprintf(msgDocumentFailure, doc.Error)
		result.Err = doc.Err
		return
	}
	result.Diagnostics = doc.Diagnostics

	switch n := len(doc.Transactions); {
	case n == 0:
		result.Error = msgNoTransactions
		result.Err = ErrNoTransactions
		return
	case n > a.maxTransactions:
		result.Error = msgTooMany
		result.Err = fmt.Errorf("%w: %d > %d", ErrTooManyTransactions, n, a.maxTransactions)
		return
	}

	txs, report := a.fallback.ApplyWithReport(ctx, doc.Transactions)
	result.RawModelOutput = report.RawResponse

	result.Analysis = a.aggregator.Analyze(ctx, txs, analysis.Options{AIInsights: opts.AIInsights})
	result.Transactions = txs
	result.Success = true
}

func (a *Analyzer) updateSession(s usage.Summary) *SessionState {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	a.session.AnalysesPerformed++
	a.session.TotalLLMCalls += s.TotalCalls
	a.session.TotalCost += s.EstimatedCost
	a.session.LastAnalysis = &now

	snapshot := a.session
	return &snapshot
}

// Session returns a copy of the session state.
func (a *Analyzer) Session() SessionState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

func (a *Analyzer) remember(r *Result) {
	if a.cache <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.results[r.RunID] = r
	a.order = append(a.order, r.RunID)
	for len(a.order) > a.cache {
		delete(a.results, a.order[0])
		a.order = a.order[1:]
	}
}

// Lookup returns a recent result by run ID.
func (a *Analyzer) Lookup(runID string) (*Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	r, ok := a.results[runID]
	if !ok {
		return nil, ErrRunNotFound
	}
	return r, nil
}
