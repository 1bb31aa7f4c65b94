package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
)

// ErrStalled marks a job whose worker stopped heartbeating and which
// could not be re-queued.
var ErrStalled = fmt.Errorf("job stalled: worker heartbeat lost")

// Kind identifies a job type with a registered processor.
type Kind string

// Job is the unit of background work. ID doubles as the idempotency key:
// at most one active job per ID is accepted.
type Job struct {
	ID         string
	Kind       Kind
	Payload    any
	Priority   int
	EnqueuedAt time.Time
}

// ProcessorFunc executes one job attempt.
type ProcessorFunc func(ctx context.Context, job Job) error

// Event is emitted on job completion or terminal failure.
type Event struct {
	JobID    string
	Kind     Kind
	Err      error
	Attempts int
}

// EventFunc consumes completion/failure events.
type EventFunc func(Event)

type registration struct {
	fn       ProcessorFunc
	attempts uint
	delay    time.Duration
}

type task struct {
	job      Job
	attempts int
}

// Queue is a worker-pool task queue with at-least-once delivery, bounded
// retries with exponential backoff, and heartbeat-based stall detection.
type Queue struct {
	logger  *slog.Logger
	workers int
	timeout time.Duration

	stallThreshold time.Duration
	stallInterval  time.Duration

	ch   chan *task
	wg   sync.WaitGroup
	once sync.Once
	stop chan struct{}

	mu         sync.Mutex
	procs      map[Kind]registration
	active     map[string]struct{}  // all jobs queued or running
	heartbeats map[string]time.Time // running jobs only
	running    map[string]*task
	events     []EventFunc
	closed     bool
}

type Option func(*Queue)

func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.ch = make(chan *task, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func WithStallDetection(threshold, interval time.Duration) Option {
	return func(q *Queue) {
		if threshold > 0 {
			q.stallThreshold = threshold
		}
		if interval > 0 {
			q.stallInterval = interval
		}
	}
}

func New(logger *slog.Logger, opts ...Option) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		logger:         logger,
		workers:        4,
		timeout:        10 * time.Minute,
		stallThreshold: 2 * time.Minute,
		stallInterval:  30 * time.Second,
		ch:             make(chan *task, 256),
		stop:           make(chan struct{}),
		procs:          make(map[Kind]registration),
		active:         make(map[string]struct{}),
		heartbeats:     make(map[string]time.Time),
		running:        make(map[string]*task),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

// RegisterOption tunes one job kind's delivery.
type RegisterOption func(*registration)

// WithAttempts sets the maximum delivery attempts for the kind.
// Entity-mutating kinds are registered with 1 to avoid duplicate writes.
func WithAttempts(n uint) RegisterOption {
	return func(r *registration) {
		if n > 0 {
			r.attempts = n
		}
	}
}

// WithRetryDelay sets the base delay for exponential backoff between attempts.
func WithRetryDelay(d time.Duration) RegisterOption {
	return func(r *registration) {
		if d > 0 {
			r.delay = d
		}
	}
}

// Register installs the processor for a job kind.
func (q *Queue) Register(kind Kind, fn ProcessorFunc, opts ...RegisterOption) {
	reg := registration{fn: fn, attempts: 1, delay: 2 * time.Second}
	for _, o := range opts {
		o(&reg)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.procs[kind] = reg
	q.logger.Info("processor registered", "kind", kind, "attempts", reg.attempts)
}

// OnEvent subscribes to completion/failure events. Must be called before
// jobs are enqueued.
func (q *Queue) OnEvent(fn EventFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, fn)
}

// Enqueue accepts a job for background execution. A job ID that is already
// queued or running is rejected, keeping one active job per session.
func (q *Queue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return fmt.Errorf("queue is shutting down")
	}
	if _, ok := q.procs[job.Kind]; !ok {
		q.mu.Unlock()
		return fmt.Errorf("no processor registered for kind %q", job.Kind)
	}
	if _, dup := q.active[job.ID]; dup {
		q.mu.Unlock()
		return fmt.Errorf("job %s already active", job.ID)
	}
	q.active[job.ID] = struct{}{}
	q.mu.Unlock()

	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}
	t := &task{job: job}
	select {
	case q.ch <- t:
		q.logger.Info("job enqueued", "job_id", job.ID, "kind", job.Kind, "priority", job.Priority)
	default:
		q.logger.Warn("queue full, applying backpressure", "job_id", job.ID)
		q.ch <- t
	}
	return nil
}

func (q *Queue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)
				for t := range q.ch {
					q.execute(workerID, t)
				}
				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
		go q.stallLoop()
	})
}

func (q *Queue) execute(workerID int, t *task) {
	q.mu.Lock()
	reg, ok := q.procs[t.job.Kind]
	if !ok {
		q.mu.Unlock()
		q.logger.Error("no processor for job", "job_id", t.job.ID, "kind", t.job.Kind)
		return
	}
	q.running[t.job.ID] = t
	q.heartbeats[t.job.ID] = time.Now()
	q.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	beatDone := make(chan struct{})
	go q.beat(t.job.ID, beatDone)

	err := retry.Do(
		func() error {
			t.attempts++
			return reg.fn(ctx, t.job)
		},
		retry.Attempts(reg.attempts),
		retry.Delay(reg.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	close(beatDone)
	cancel()

	q.mu.Lock()
	delete(q.running, t.job.ID)
	delete(q.heartbeats, t.job.ID)
	delete(q.active, t.job.ID)
	subs := make([]EventFunc, len(q.events))
	copy(subs, q.events)
	q.mu.Unlock()

	if err != nil {
		q.logger.Error("job failed", "worker_id", workerID, "job_id", t.job.ID, "kind", t.job.Kind, "attempts", t.attempts, "error", err)
	} else {
		q.logger.Info("job completed", "worker_id", workerID, "job_id", t.job.ID, "kind", t.job.Kind, "attempts", t.attempts)
	}
	ev := Event{JobID: t.job.ID, Kind: t.job.Kind, Err: err, Attempts: t.attempts}
	for _, fn := range subs {
		fn(ev)
	}
}

// beat refreshes the job's heartbeat while its processor runs. If the
// worker goroutine dies, beats stop and the stall detector takes over.
func (q *Queue) beat(jobID string, done <-chan struct{}) {
	interval := q.stallThreshold / 4
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			q.mu.Lock()
			if _, ok := q.heartbeats[jobID]; ok {
				q.heartbeats[jobID] = time.Now()
			}
			q.mu.Unlock()
		}
	}
}

// Shutdown stops intake and drains the pool.
func (q *Queue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	close(q.stop)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
