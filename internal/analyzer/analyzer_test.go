package analyzer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/dvloznov/statement-analyzer/internal/analysis"
	"github.com/dvloznov/statement-analyzer/internal/config"
	"github.com/dvloznov/statement-analyzer/internal/domain"
	"github.com/dvloznov/statement-analyzer/internal/extractor"
	"github.com/dvloznov/statement-analyzer/internal/logger"
	"github.com/dvloznov/statement-analyzer/internal/metrics"
	"github.com/dvloznov/statement-analyzer/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statement = `--- PAGE 1 TEXT ---
01/02/2024 STARBUCKS STORE 1234 -$5.67 $2,494.33
01/05/2024 PAYROLL DEPOSIT ACME CORP +$2,500.00 $4,994.33
02/03/2024 ZELLE TO J SMITH -$40.00 $4,954.33
--- END PAGE 1 TEXT ---
`

type MockExtractor struct {
	ExtractFunc func(ctx context.Context, data []byte) (string, error)
}

func (m *MockExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	return m.ExtractFunc(ctx, data)
}

type MockClassifier struct {
	mu    sync.Mutex
	calls int
}

func (m *MockClassifier) Classify(ctx context.Context, req pipeline.Request) (*pipeline.Response, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	resp := &pipeline.Response{Raw: `{"categorizations": []}`}
	for _, item := range req.Items {
		resp.Categorizations = append(resp.Categorizations, pipeline.Categorization{
			TransactionID: item.ID,
			Category:      domain.CategoryOther,
			Confidence:    0.7,
			Reasoning:     "person-to-person transfer",
		})
	}
	return resp, nil
}

type MockStorage struct {
	ObjectSizeFunc   func(ctx context.Context, uri string) (int64, error)
	FetchFromGCSFunc func(ctx context.Context, uri string) ([]byte, error)
}

func (m *MockStorage) ObjectSize(ctx context.Context, uri string) (int64, error) {
	return m.ObjectSizeFunc(ctx, uri)
}

func (m *MockStorage) FetchFromGCS(ctx context.Context, uri string) ([]byte, error) {
	return m.FetchFromGCSFunc(ctx, uri)
}

type MockRecorder struct {
	started  []string
	finished []*Result
}

func (m *MockRecorder) StartRun(ctx context.Context, runID, source string) error {
	m.started = append(m.started, runID)
	return nil
}

func (m *MockRecorder) FinishRun(ctx context.Context, result *Result) error {
	m.finished = append(m.finished, result)
	return errors.New("table not found")
}

func staticText(text string) *MockExtractor {
	return &MockExtractor{ExtractFunc: func(ctx context.Context, data []byte) (string, error) {
		return text, nil
	}}
}

func newTestAnalyzer(ex pipeline.Extractor, c pipeline.Classifier, opts ...Option) *Analyzer {
	documents := pipeline.NewDocumentProcessor(pipeline.NewDocumentPipeline(
		ex,
		pipeline.NewLineFilter(),
		pipeline.NewTransactionParser(nil, pipeline.Lenient),
		pipeline.NewCategorizer(nil),
	))
	a := New(documents, pipeline.NewFallbackClassifier(c), analysis.NewAggregator(nil, nil), opts...)
	n := 0
	var mu sync.Mutex
	a.newRunID = func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("run-%d", n)
	}
	return a
}

func quietContext() context.Context {
	return logger.WithContext(context.Background(), zerolog.Nop())
}

func writePDF(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func TestAnalyzer_AnalyzeFile(t *testing.T) {
	classifier := &MockClassifier{}
	a := newTestAnalyzer(staticText(statement), classifier)
	path := writePDF(t, "statement.pdf", []byte("%PDF-1.4"))

	result, err := a.AnalyzeFile(quietContext(), path, Options{})
	require.NoError(t, err)

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, path, result.Source)
	require.Len(t, result.Transactions, 3)

	// input order is preserved
	assert.Equal(t, "txn_1", result.Transactions[0].ID)
	assert.Equal(t, domain.SourceDeterministic, result.Transactions[0].Source)
	assert.Equal(t, domain.CategoryOther, result.Transactions[2].Category)
	assert.Equal(t, domain.SourceLLM, result.Transactions[2].Source)

	assert.Equal(t, 1, classifier.calls)
	assert.Equal(t, 1, result.SystemMetrics.TotalCalls)
	assert.Equal(t, 1, result.SystemMetrics.CategorizationCalls)
	assert.Equal(t, 0, result.SystemMetrics.InsightCalls)
	assert.Equal(t, 0.002, result.SystemMetrics.EstimatedCost)
	assert.Equal(t, `{"categorizations": []}`, result.RawModelOutput)

	require.NotNil(t, result.Analysis)
	assert.Equal(t, 45.67, result.Analysis.Summary.TotalSpent)
	require.NotNil(t, result.Diagnostics)
	assert.Equal(t, 2, result.Diagnostics.CategorizedDeterministically)

	require.NotNil(t, result.SessionState)
	assert.Equal(t, 1, result.SessionState.AnalysesPerformed)
	assert.NotNil(t, result.SessionState.LastAnalysis)

	cached, err := a.Lookup("run-1")
	require.NoError(t, err)
	assert.Same(t, result, cached)
}

func TestAnalyzer_InputErrors(t *testing.T) {
	a := newTestAnalyzer(staticText(statement), &MockClassifier{})
	dir := t.TempDir()

	textFile := filepath.Join(dir, "statement.txt")
	require.NoError(t, os.WriteFile(textFile, []byte("hello"), 0600))
	emptyFile := filepath.Join(dir, "empty.pdf")
	require.NoError(t, os.WriteFile(emptyFile, nil, 0600))
	missing := filepath.Join(dir, "missing.pdf")

	tests := []struct {
		name   string
		path   string
		reason string
	}{
		{"missing file", missing, "File not found: " + missing},
		{"not a pdf", textFile, "Only PDF files are supported"},
		{"empty", emptyFile, "File is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := a.AnalyzeFile(quietContext(), tt.path, Options{})
			assert.Nil(t, result)

			var inputErr *InputError
			require.True(t, errors.As(err, &inputErr))
			assert.Equal(t, tt.reason, inputErr.Reason)
		})
	}

	assert.Equal(t, 0, a.Session().AnalysesPerformed)
}

func TestAnalyzer_AnalyzeBytes_TooLarge(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	a := newTestAnalyzer(staticText(statement), &MockClassifier{}, WithMetrics(m))

	_, err := a.AnalyzeBytes(quietContext(), "big.PDF", make([]byte, DefaultMaxFileBytes+1), Options{})

	var inputErr *InputError
	require.True(t, errors.As(err, &inputErr))
	assert.Equal(t, "File too large (>10MB)", inputErr.Reason)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues(metrics.OutcomeInput)))
}

func TestAnalyzer_TooLargeMessageForSmallLimits(t *testing.T) {
	tests := []struct {
		limit int64
		want  string
	}{
		{512 * 1024, "File too large (>512KB)"},
		{900, "File too large (>900 bytes)"},
		{3 * 1024 * 1024, "File too large (>3MB)"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			a := newTestAnalyzer(staticText(statement), &MockClassifier{}, WithLimits(tt.limit, 0))

			_, err := a.AnalyzeBytes(quietContext(), "stmt.pdf", make([]byte, tt.limit+1), Options{})

			var inputErr *InputError
			require.True(t, errors.As(err, &inputErr))
			assert.Equal(t, tt.want, inputErr.Reason)
		})
	}
}

func TestAnalyzer_ProcessingFailures(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		extErr  error
		opts    []Option
		wantMsg string
		wantErr error
	}{
		{
			name:    "extraction failure",
			extErr:  fmt.Errorf("Extract: %w", extractor.ErrNoText),
			wantMsg: "Document processing failed: no text in PDF",
			wantErr: extractor.ErrNoText,
		},
		{
			name:    "no transactions",
			text:    "--- PAGE 1 TEXT ---\nThank you for banking with us\n--- END PAGE 1 TEXT ---\n",
			wantMsg: "No transactions found in document",
			wantErr: ErrNoTransactions,
		},
		{
			name:    "too many transactions",
			text:    statement,
			opts:    []Option{WithLimits(0, 2)},
			wantMsg: "Too many transactions - please split file",
			wantErr: ErrTooManyTransactions,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := &MockExtractor{ExtractFunc: func(ctx context.Context, data []byte) (string, error) {
				return tt.text, tt.extErr
			}}
			classifier := &MockClassifier{}
			m := metrics.New(prometheus.NewRegistry())
			a := newTestAnalyzer(ex, classifier, append(tt.opts, WithMetrics(m))...)

			result, err := a.AnalyzeBytes(quietContext(), "statement.pdf", []byte("%PDF"), Options{})
			require.NoError(t, err)

			assert.False(t, result.Success)
			assert.Equal(t, tt.wantMsg, result.Error)
			assert.True(t, errors.Is(result.Err, tt.wantErr), "got %v", result.Err)
			assert.Empty(t, result.Transactions)
			assert.Zero(t, result.SystemMetrics.TotalCalls)
			assert.Zero(t, classifier.calls)
			assert.Equal(t, 0, a.Session().AnalysesPerformed)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues(metrics.OutcomeFailure)))
		})
	}
}

func TestAnalyzer_GCSSource(t *testing.T) {
	var fetched string
	store := &MockStorage{
		ObjectSizeFunc: func(ctx context.Context, uri string) (int64, error) { return 8, nil },
		FetchFromGCSFunc: func(ctx context.Context, uri string) ([]byte, error) {
			fetched = uri
			return []byte("%PDF-1.4"), nil
		},
	}
	a := newTestAnalyzer(staticText(statement), &MockClassifier{}, WithStorage(store))

	result, err := a.AnalyzeFile(quietContext(), "gs://statements/2024/jan.pdf", Options{})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "gs://statements/2024/jan.pdf", fetched)
}

func TestAnalyzer_GCSSizeGate(t *testing.T) {
	store := &MockStorage{
		ObjectSizeFunc: func(ctx context.Context, uri string) (int64, error) { return DefaultMaxFileBytes + 1, nil },
		FetchFromGCSFunc: func(ctx context.Context, uri string) ([]byte, error) {
			t.Fatal("object fetched despite size gate")
			return nil, nil
		},
	}
	a := newTestAnalyzer(staticText(statement), &MockClassifier{}, WithStorage(store))

	_, err := a.AnalyzeFile(quietContext(), "gs://statements/huge.pdf", Options{})
	var inputErr *InputError
	require.True(t, errors.As(err, &inputErr))
	assert.Equal(t, "File too large (>10MB)", inputErr.Reason)
}

func TestAnalyzer_GCSStorageErrors(t *testing.T) {
	timeout := errors.New("dial tcp: i/o timeout")

	tests := []struct {
		name      string
		sizeErr   error
		fetchErr  error
		wantInput bool
		wantErrIs error
	}{
		{
			name:      "missing object is rejected",
			sizeErr:   storage.ErrObjectNotExist,
			wantInput: true,
		},
		{
			name:      "unreachable bucket on size check",
			sizeErr:   timeout,
			wantErrIs: timeout,
		},
		{
			name:      "object deleted before download",
			fetchErr:  fmt.Errorf("FetchFromGCS: reading object: %w", storage.ErrObjectNotExist),
			wantInput: true,
		},
		{
			name:      "download interrupted",
			fetchErr:  timeout,
			wantErrIs: timeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &MockStorage{
				ObjectSizeFunc: func(ctx context.Context, uri string) (int64, error) { return 8, tt.sizeErr },
				FetchFromGCSFunc: func(ctx context.Context, uri string) ([]byte, error) {
					return []byte("%PDF-1.4"), tt.fetchErr
				},
			}
			a := newTestAnalyzer(staticText(statement), &MockClassifier{}, WithStorage(store))

			result, err := a.AnalyzeFile(quietContext(), "gs://statements/jan.pdf", Options{})
			require.Error(t, err)
			assert.Nil(t, result)

			var inputErr *InputError
			assert.Equal(t, tt.wantInput, errors.As(err, &inputErr))
			if tt.wantInput {
				assert.Equal(t, "File not found: gs://statements/jan.pdf", inputErr.Reason)
			} else {
				assert.ErrorIs(t, err, tt.wantErrIs)
			}
		})
	}
}

func TestAnalyzer_GCSWithoutStorage(t *testing.T) {
	a := newTestAnalyzer(staticText(statement), &MockClassifier{})

	_, err := a.AnalyzeFile(quietContext(), "gs://statements/jan.pdf", Options{})
	var inputErr *InputError
	assert.True(t, errors.As(err, &inputErr))
}

func TestAnalyzer_ConcurrentRunsKeepSeparateUsage(t *testing.T) {
	classifier := &MockClassifier{}
	a := newTestAnalyzer(staticText(statement), classifier)

	const runs = 10
	results := make([]*Result, runs)
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := a.AnalyzeBytes(quietContext(), "statement.pdf", []byte("%PDF"), Options{})
			if err == nil {
				results[i] = r
			}
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, 1, r.SystemMetrics.TotalCalls)
	}
	session := a.Session()
	assert.Equal(t, runs, session.AnalysesPerformed)
	assert.Equal(t, runs, session.TotalLLMCalls)
	assert.InDelta(t, 0.02, session.TotalCost, 1e-9)
}

func TestAnalyzer_RecorderFailureDoesNotFailRun(t *testing.T) {
	rec := &MockRecorder{}
	a := newTestAnalyzer(staticText(statement), &MockClassifier{}, WithRecorder(rec))

	result, err := a.AnalyzeBytes(quietContext(), "statement.pdf", []byte("%PDF"), Options{})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, []string{"run-1"}, rec.started)
	require.Len(t, rec.finished, 1)
	assert.Same(t, result, rec.finished[0])
}

func TestAnalyzer_ResultCacheEvictsOldest(t *testing.T) {
	a := newTestAnalyzer(staticText(statement), &MockClassifier{}, WithResultCache(1))

	for i := 0; i < 2; i++ {
		_, err := a.AnalyzeBytes(quietContext(), "statement.pdf", []byte("%PDF"), Options{})
		require.NoError(t, err)
	}

	_, err := a.Lookup("run-1")
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = a.Lookup("run-2")
	assert.NoError(t, err)
}

func TestNewCompleter(t *testing.T) {
	c, err := NewCompleter(context.Background(), config.LLMConfig{Provider: config.ProviderNone})
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = NewCompleter(context.Background(), config.LLMConfig{Provider: config.ProviderAnthropic, APIKey: "sk-test"})
	require.NoError(t, err)
	assert.NotNil(t, c)

	_, err = NewCompleter(context.Background(), config.LLMConfig{Provider: "oracle"})
	assert.Error(t, err)
}

func TestNewFromConfig_NoProvider(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Provider = config.ProviderNone

	a, err := NewFromConfig(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(DefaultMaxFileBytes), a.maxFileBytes)
	assert.Equal(t, DefaultMaxTransactions, a.maxTransactions)
}
