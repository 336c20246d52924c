// Package queue implements the event dispatcher: a set of named,
// independent work queues with bounded worker concurrency, exponential
// backoff retries, bounded attempt budgets, and dead-letter retention.
//
// Queues are in-process (one buffered channel plus a fixed worker pool
// per queue), which matches the single-process deployment of this
// service. Durability of the business effect does not live here: the
// webhook-replay queue drives persisted WebhookLog rows, so a crash
// loses at most the in-flight attempt, never the ability to replay.
// Each queue is fully independent of the others; a slow or backed-up
// queue cannot block enqueue into another.
//
// Observability: every completion, failure, retry, and dead-letter is
// logged and counted (see metrics.go), and each attempt runs under an
// OpenTelemetry span.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Enqueue errors.
var (
	// ErrQueueClosed is returned when enqueueing after Close.
	ErrQueueClosed = errors.New("queue: closed")

	// ErrQueueFull is returned when the queue buffer is saturated. Callers
	// on the webhook path treat this as an internal failure so the source
	// platform retries the delivery.
	ErrQueueFull = errors.New("queue: buffer full")

	// ErrNoHandler is returned at enqueue time for job names no handler
	// was registered for.
	ErrNoHandler = errors.New("queue: no handler for job")
)

// Job is one unit of work flowing through a queue.
type Job struct {
	// ID identifies the job across retries (stable per enqueue).
	ID string
	// Name selects the registered handler (e.g. "order-confirmation").
	Name string
	// Payload is the handler-specific input. Jobs never leave the process,
	// so payloads stay native Go values.
	Payload any
	// Attempt is 1 on the first run and increments per retry.
	Attempt int
	// EnqueuedAt is when the job was first accepted.
	EnqueuedAt time.Time
}

// HandlerFunc processes one job attempt. A nil return completes the job;
// an error triggers the queue's retry policy.
type HandlerFunc func(ctx context.Context, job Job) error

// ExhaustedFunc observes a job that has spent its full attempt budget.
// It runs after the job is added to the dead-letter ring.
type ExhaustedFunc func(job Job, err error)

// Options tunes one queue. Zero values fall back to the defaults noted
// per field.
type Options struct {
	Workers       int           // concurrent workers (default 2)
	MaxAttempts   int           // attempt budget incl. the first run (default 5)
	BackoffBase   time.Duration // first retry delay, doubled per attempt (default 2s)
	BackoffMax    time.Duration // backoff ceiling (default 5m)
	Buffer        int           // channel capacity (default 256)
	DeadLetterMax int           // dead-letter ring size (default 100)

	// OnExhausted, when set, is invoked once per dead-lettered job.
	OnExhausted ExhaustedFunc
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 2
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = 2 * time.Second
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 5 * time.Minute
	}
	if o.Buffer <= 0 {
		o.Buffer = 256
	}
	if o.DeadLetterMax <= 0 {
		o.DeadLetterMax = 100
	}
	return o
}

// DeadJob is a job retained after exhausting its attempt budget.
type DeadJob struct {
	Job      Job       `json:"job"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

// Queue is one named work queue. Construct with New, register handlers
// with Handle, then Start. Safe for concurrent use.
type Queue struct {
	name string
	opts Options
	log  zerolog.Logger

	mu       sync.Mutex
	handlers map[string]HandlerFunc
	dead     []DeadJob
	closed   bool

	jobs   chan Job
	tracer trace.Tracer

	g      *errgroup.Group
	cancel context.CancelFunc

	// pending counts accepted-but-unfinished jobs, including those parked
	// in a backoff timer, so Close can drain completely.
	pending sync.WaitGroup
}

// New constructs a queue with the given name and options. Start must be
// called before jobs are processed.
func New(name string, opts Options) *Queue {
	opts = opts.withDefaults()
	return &Queue{
		name:     name,
		opts:     opts,
		log:      log.With().Str("queue", name).Logger(),
		handlers: make(map[string]HandlerFunc),
		jobs:     make(chan Job, opts.Buffer),
		tracer:   otel.Tracer("queue"),
	}
}

// Handle registers fn for the given job name. Registration must finish
// before Start.
func (q *Queue) Handle(jobName string, fn HandlerFunc) {
	q.mu.Lock()
	q.handlers[jobName] = fn
	q.mu.Unlock()
}

// Start launches the worker pool. Workers run until Close.
func (q *Queue) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	q.g, ctx = errgroup.WithContext(ctx)
	for i := 0; i < q.opts.Workers; i++ {
		q.g.Go(func() error {
			q.worker(ctx)
			return nil
		})
	}
}

// Enqueue accepts a job for asynchronous processing and returns once the
// job is queued, not once it is processed. It never blocks on a full
// buffer; saturation surfaces as ErrQueueFull so the caller can fail the
// request and let the upstream retry.
func (q *Queue) Enqueue(jobName string, payload any) (string, error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return "", ErrQueueClosed
	}
	if _, ok := q.handlers[jobName]; !ok {
		q.mu.Unlock()
		return "", fmt.Errorf("%w: %q", ErrNoHandler, jobName)
	}
	q.mu.Unlock()

	job := Job{
		ID:         uuid.NewString(),
		Name:       jobName,
		Payload:    payload,
		Attempt:    1,
		EnqueuedAt: time.Now().UTC(),
	}
	q.pending.Add(1)
	select {
	case q.jobs <- job:
		jobsEnqueued.WithLabelValues(q.name, jobName).Inc()
		return job.ID, nil
	default:
		q.pending.Done()
		return "", fmt.Errorf("%w: %s", ErrQueueFull, q.name)
	}
}

// worker pulls jobs until the queue shuts down.
func (q *Queue) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.jobs:
			q.process(ctx, job)
		}
	}
}

// process runs a single attempt and applies the retry policy.
func (q *Queue) process(ctx context.Context, job Job) {
	q.mu.Lock()
	fn := q.handlers[job.Name]
	q.mu.Unlock()

	ctx, span := q.tracer.Start(ctx, "queue.process",
		trace.WithAttributes(
			attribute.String("queue.name", q.name),
			attribute.String("queue.job", job.Name),
			attribute.Int("queue.attempt", job.Attempt),
		))
	defer span.End()

	jobsInflight.WithLabelValues(q.name).Inc()
	start := time.Now()
	err := fn(ctx, job)
	jobDuration.WithLabelValues(q.name, job.Name).Observe(time.Since(start).Seconds())
	jobsInflight.WithLabelValues(q.name).Dec()

	if err == nil {
		jobsProcessed.WithLabelValues(q.name, job.Name).Inc()
		q.log.Debug().Str("job", job.Name).Str("job_id", job.ID).Int("attempt", job.Attempt).Msg("job completed")
		q.pending.Done()
		return
	}

	span.RecordError(err)
	jobsFailed.WithLabelValues(q.name, job.Name).Inc()

	if job.Attempt >= q.opts.MaxAttempts {
		q.deadLetter(job, err)
		q.pending.Done()
		return
	}

	delay := q.backoff(job.Attempt)
	q.log.Warn().Err(err).
		Str("job", job.Name).
		Str("job_id", job.ID).
		Int("attempt", job.Attempt).
		Dur("retry_in", delay).
		Msg("job failed, scheduling retry")
	jobsRetried.WithLabelValues(q.name, job.Name).Inc()

	job.Attempt++
	time.AfterFunc(delay, func() {
		select {
		case q.jobs <- job:
		case <-ctx.Done():
			q.pending.Done()
		}
	})
}

// backoff returns the delay before retry attempt+1: base * 2^(attempt-1),
// capped at BackoffMax.
func (q *Queue) backoff(attempt int) time.Duration {
	d := q.opts.BackoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= q.opts.BackoffMax {
			return q.opts.BackoffMax
		}
	}
	if d > q.opts.BackoffMax {
		d = q.opts.BackoffMax
	}
	return d
}

// deadLetter retains an exhausted job for inspection and notifies the
// OnExhausted hook. The ring is bounded: the oldest entry is evicted once
// DeadLetterMax is reached.
func (q *Queue) deadLetter(job Job, err error) {
	q.log.Error().Err(err).
		Str("job", job.Name).
		Str("job_id", job.ID).
		Int("attempts", job.Attempt).
		Msg("job exhausted retry budget, dead-lettered")
	jobsDeadLettered.WithLabelValues(q.name, job.Name).Inc()

	q.mu.Lock()
	q.dead = append(q.dead, DeadJob{Job: job, Error: err.Error(), FailedAt: time.Now().UTC()})
	if len(q.dead) > q.opts.DeadLetterMax {
		q.dead = q.dead[len(q.dead)-q.opts.DeadLetterMax:]
	}
	hook := q.opts.OnExhausted
	q.mu.Unlock()

	if hook != nil {
		hook(job, err)
	}
}

// DeadLetters returns a copy of the retained exhausted jobs, newest last.
func (q *Queue) DeadLetters() []DeadJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]DeadJob, len(q.dead))
	copy(out, q.dead)
	return out
}

// Name returns the queue name.
func (q *Queue) Name() string { return q.name }

// Close stops accepting new jobs, waits for accepted jobs (including
// parked retries) to finish, then stops the workers. The context bounds
// the wait; on expiry remaining jobs are abandoned.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.pending.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	if q.cancel != nil {
		q.cancel()
		_ = q.g.Wait()
	}
	return err
}
