package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/statement-analyzer/internal/jobs"
	"github.com/dvloznov/statement-analyzer/internal/logger"
	"github.com/google/uuid"
)

const (
	defaultWorkers = 5
	defaultBackoff = time.Second
)

// Queue is an in-memory implementation of job publisher and consumer.
// It uses Go channels for job distribution and is safe for concurrent use.
// Jobs are lost on restart.
type Queue struct {
	jobChan   chan *jobs.AnalyzeStatementJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	store     jobs.JobStore
	closed    bool

	workers    int
	maxRetries int
	backoff    time.Duration
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithWorkers sets the number of concurrent workers started by Start.
func WithWorkers(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

// WithMaxRetries sets the retry budget for jobs published without one.
func WithMaxRetries(n int) QueueOption {
	return func(q *Queue) {
		if n >= 0 {
			q.maxRetries = n
		}
	}
}

// WithBackoff sets the base retry delay; attempt n waits n*d.
func WithBackoff(d time.Duration) QueueOption {
	return func(q *Queue) { q.backoff = d }
}

// NewQueue creates a new in-memory job queue.
// bufferSize determines how many jobs can be queued before PublishAnalyzeStatement blocks.
func NewQueue(bufferSize int, store jobs.JobStore, opts ...QueueOption) *Queue {
	q := &Queue{
		jobChan:    make(chan *jobs.AnalyzeStatementJob, bufferSize),
		closeChan:  make(chan struct{}),
		store:      store,
		workers:    defaultWorkers,
		maxRetries: jobs.DefaultMaxRetries,
		backoff:    defaultBackoff,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// PublishAnalyzeStatement implements the Publisher interface.
func (q *Queue) PublishAnalyzeStatement(ctx context.Context, job *jobs.AnalyzeStatementJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return fmt.Errorf("queue is closed")
	}

	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = q.maxRetries
	}

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("failed to save job: %w", err)
		}
	}

	select {
	case q.jobChan <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return fmt.Errorf("queue is closed")
	}
}

// Start implements the Consumer interface. It starts the worker pool and
// returns immediately.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return fmt.Errorf("queue is closed")
	}
	q.mu.RUnlock()

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}
	return nil
}

func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			if job == nil {
				return
			}
			q.processJob(ctx, job, handler)
		}
	}
}

// processJob executes a single job with retry logic.
func (q *Queue) processJob(ctx context.Context, job *jobs.AnalyzeStatementJob, handler jobs.JobHandler) {
	log := logger.FromContext(ctx).With().Str("job_id", job.JobID).Logger()

	job.Status = jobs.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}

	err := q.run(ctx, job, handler)

	completedAt := time.Now()
	job.CompletedAt = &completedAt

	retry := false
	switch {
	case err == nil:
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
	case !jobs.IsPermanent(err) && job.RetryCount < job.MaxRetries:
		job.Error = err.Error()
		job.RetryCount++
		job.Status = jobs.JobStatusRetrying
		retry = true
	default:
		job.Error = err.Error()
		job.Status = jobs.JobStatusFailed
		log.Error().Err(err).Msg("Job failed")
	}

	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}
	if !retry {
		return
	}

	// The job is not touched again by this worker once the timer is armed.
	backoff := time.Duration(job.RetryCount) * q.backoff
	log.Warn().Err(err).Int("retry", job.RetryCount).Dur("backoff", backoff).Msg("Job failed, retrying")
	time.AfterFunc(backoff, func() {
		job.Status = jobs.JobStatusPending
		job.StartedAt = nil
		job.CompletedAt = nil
		if err := q.PublishAnalyzeStatement(ctx, job); err != nil {
			log.Error().Err(err).Msg("Failed to re-enqueue job")
		}
	})
}

// run calls handler, turning a panic into a permanent failure.
func (q *Queue) run(ctx context.Context, job *jobs.AnalyzeStatementJob, handler jobs.JobHandler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = jobs.Permanent(fmt.Errorf("job handler panicked: %v", r))
		}
	}()
	return handler(ctx, job)
}

// Stop implements the Consumer interface.
// It stops the queue and waits for all in-flight jobs to complete.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements the Publisher interface.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
