package scheduler

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// Handler executes one delivery attempt for an order. A nil return ends
// the job (the handler may have recorded a business rejection itself); a
// non-nil return is treated as transient and triggers a delayed requeue
// until the attempt bound is reached.
type Handler interface {
	ProcessOrder(ctx context.Context, orderID string) error
}

// ExhaustedFunc runs after the final failed attempt. It is the sole place
// a transient failure becomes a persisted terminal state.
type ExhaustedFunc func(ctx context.Context, orderID string, attempts int, lastErr error)

// Config holds scheduler configuration.
type Config struct {
	Logger      *slog.Logger
	Handler     Handler
	OnExhausted ExhaustedFunc

	Concurrency int           // worker goroutines, default 10
	MaxAttempts int           // total attempts per job, default 3
	BaseDelay   time.Duration // first retry delay, default 1s
	RateLimit   int           // dispatches per window, default 100
	RateWindow  time.Duration // default 60s
	QueueSize   int           // ready queue buffer, default 256

	CompletedRetention int           // keep at most N completed jobs, default 1000
	CompletedMaxAge    time.Duration // or drop completed jobs older than this, default 24h
	FailedRetention    int           // keep at most N failed jobs, default 5000
}

// job is the unit of delivery: a non-owning reference to an order plus
// retry accounting. Exactly one worker executes a given job at a time.
type job struct {
	orderID    string
	attempt    int // delivery attempts so far
	runAt      time.Time
	backoff    *backoff.ExponentialBackOff
	enqueuedAt time.Time
}

// finishedJob is what retention keeps after a job reaches its terminal
// outcome, for inspection only.
type finishedJob struct {
	orderID    string
	attempts   int
	err        string
	finishedAt time.Time
}

// Scheduler delivers each submitted order to the handler with
// at-least-once semantics: a bounded worker pool drains a shared ready
// queue, failed attempts are requeued with exponential backoff up to the
// attempt bound, and dispatch is throttled by a shared rate limiter.
//
// An order that is queued, delayed, or in flight is owned by exactly one
// job, so attempts for the same order never overlap.
type Scheduler struct {
	logger      *slog.Logger
	handler     Handler
	onExhausted ExhaustedFunc

	concurrency int
	maxAttempts int
	baseDelay   time.Duration
	limiter     *rate.Limiter

	ready chan *job

	dmu     sync.Mutex
	delayed delayQueue
	wake    chan struct{}

	pmu     sync.Mutex
	pending map[string]struct{}

	fmu       sync.Mutex
	completed []finishedJob
	failed    []finishedJob

	completedRetention int
	completedMaxAge    time.Duration
	failedRetention    int

	wg       sync.WaitGroup
	stopChan chan struct{}
}

// New creates a scheduler. Start must be called before Enqueue delivers
// anything.
func New(cfg *Config) *Scheduler {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 10
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	baseDelay := cfg.BaseDelay
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	rateLimit := cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = 100
	}
	rateWindow := cfg.RateWindow
	if rateWindow <= 0 {
		rateWindow = time.Minute
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	completedRetention := cfg.CompletedRetention
	if completedRetention <= 0 {
		completedRetention = 1000
	}
	completedMaxAge := cfg.CompletedMaxAge
	if completedMaxAge <= 0 {
		completedMaxAge = 24 * time.Hour
	}
	failedRetention := cfg.FailedRetention
	if failedRetention <= 0 {
		failedRetention = 5000
	}

	return &Scheduler{
		logger:             cfg.Logger,
		handler:            cfg.Handler,
		onExhausted:        cfg.OnExhausted,
		concurrency:        concurrency,
		maxAttempts:        maxAttempts,
		baseDelay:          baseDelay,
		limiter:            rate.NewLimiter(rate.Every(rateWindow/time.Duration(rateLimit)), rateLimit),
		ready:              make(chan *job, queueSize),
		wake:               make(chan struct{}, 1),
		pending:            make(map[string]struct{}),
		completedRetention: completedRetention,
		completedMaxAge:    completedMaxAge,
		failedRetention:    failedRetention,
		stopChan:           make(chan struct{}),
	}
}

// Start spawns the worker pool, the delay dispatcher, and the retention
// janitor.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting scheduler",
		slog.Int("concurrency", s.concurrency),
		slog.Int("max_attempts", s.maxAttempts),
		slog.Duration("base_delay", s.baseDelay),
	)

	for i := 0; i < s.concurrency; i++ {
		s.wg.Add(1)
		go s.workerLoop(ctx, i)
	}

	s.wg.Add(1)
	go s.dispatchLoop(ctx)

	s.wg.Add(1)
	go s.janitorLoop(ctx)
}

// Stop waits for all workers to finish their current job and exit.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler...")
	close(s.stopChan)
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

// Enqueue submits a job for the order. An order already queued, delayed,
// or in flight is not accepted again; the duplicate submission is a no-op.
func (s *Scheduler) Enqueue(ctx context.Context, orderID string) error {
	s.pmu.Lock()
	if _, exists := s.pending[orderID]; exists {
		s.pmu.Unlock()
		s.logger.Debug("Order already scheduled, ignoring duplicate",
			slog.String("order_id", orderID),
		)
		return nil
	}
	s.pending[orderID] = struct{}{}
	s.pmu.Unlock()

	j := &job{
		orderID:    orderID,
		runAt:      time.Now(),
		backoff:    s.newBackOff(),
		enqueuedAt: time.Now(),
	}

	select {
	case s.ready <- j:
		queueDepthMetric.Inc()
		return nil
	case <-ctx.Done():
		s.release(orderID)
		return ctx.Err()
	case <-s.stopChan:
		s.release(orderID)
		return fmt.Errorf("scheduler is stopped")
	}
}

func (s *Scheduler) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.baseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// workerLoop draws jobs from the ready queue and executes them one at a
// time, throttled by the shared rate limiter.
func (s *Scheduler) workerLoop(ctx context.Context, workerNum int) {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		case j := <-s.ready:
			queueDepthMetric.Dec()

			if err := s.limiter.Wait(ctx); err != nil {
				s.release(j.orderID)
				return
			}

			s.runJob(ctx, workerNum, j)
		}
	}
}

func (s *Scheduler) runJob(ctx context.Context, workerNum int, j *job) {
	j.attempt++
	inflightWorkersMetric.Inc()
	defer inflightWorkersMetric.Dec()

	s.logger.Debug("Worker picked up job",
		slog.Int("worker_num", workerNum),
		slog.String("order_id", j.orderID),
		slog.Int("attempt", j.attempt),
	)

	err := s.handler.ProcessOrder(ctx, j.orderID)
	if err == nil {
		jobsProcessedMetric.WithLabelValues("completed").Inc()
		s.finish(j, "")
		return
	}

	// Transient trace only: retry bookkeeping never reaches the order's
	// execution log.
	s.logger.Warn("Job attempt failed",
		slog.String("order_id", j.orderID),
		slog.Int("attempt", j.attempt),
		slog.Int("max_attempts", s.maxAttempts),
		slog.String("error", err.Error()),
	)

	if j.attempt >= s.maxAttempts {
		jobsProcessedMetric.WithLabelValues("exhausted").Inc()
		if s.onExhausted != nil {
			s.onExhausted(ctx, j.orderID, j.attempt, err)
		}
		s.finish(j, err.Error())
		return
	}

	jobsProcessedMetric.WithLabelValues("retried").Inc()
	s.requeue(j)
}

// requeue schedules the job's next attempt after its backoff delay. The
// order stays owned by this job, so no other worker can pick it up in the
// meantime.
func (s *Scheduler) requeue(j *job) {
	delay := j.backoff.NextBackOff()
	if delay == backoff.Stop {
		delay = s.baseDelay
	}
	j.runAt = time.Now().Add(delay)

	s.logger.Debug("Requeueing job",
		slog.String("order_id", j.orderID),
		slog.Int("attempt", j.attempt),
		slog.Duration("delay", delay),
	)

	s.dmu.Lock()
	heap.Push(&s.delayed, j)
	s.dmu.Unlock()
	delayedJobsMetric.Inc()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// dispatchLoop moves due jobs from the delay queue onto the ready queue.
func (s *Scheduler) dispatchLoop(ctx context.Context) {
	defer s.wg.Done()

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		var due []*job

		s.dmu.Lock()
		now := time.Now()
		for s.delayed.Len() > 0 && !s.delayed[0].runAt.After(now) {
			due = append(due, heap.Pop(&s.delayed).(*job))
		}
		wait := time.Hour
		if s.delayed.Len() > 0 {
			wait = time.Until(s.delayed[0].runAt)
		}
		s.dmu.Unlock()

		for _, j := range due {
			delayedJobsMetric.Dec()
			select {
			case s.ready <- j:
				queueDepthMetric.Inc()
			case <-s.stopChan:
				return
			case <-ctx.Done():
				return
			}
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		case <-s.wake:
		case <-timer.C:
		}
	}
}

// finish records the job's terminal outcome and releases its order.
func (s *Scheduler) finish(j *job, errMsg string) {
	record := finishedJob{
		orderID:    j.orderID,
		attempts:   j.attempt,
		err:        errMsg,
		finishedAt: time.Now(),
	}

	s.fmu.Lock()
	if errMsg == "" {
		s.completed = append(s.completed, record)
	} else {
		s.failed = append(s.failed, record)
	}
	s.fmu.Unlock()

	s.release(j.orderID)
}

func (s *Scheduler) release(orderID string) {
	s.pmu.Lock()
	delete(s.pending, orderID)
	s.pmu.Unlock()
}

// janitorLoop prunes retained job records on a fixed cadence. Retention
// is a housekeeping policy, not correctness-critical.
func (s *Scheduler) janitorLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.prune(time.Now())
		}
	}
}

func (s *Scheduler) prune(now time.Time) {
	s.fmu.Lock()
	defer s.fmu.Unlock()

	cutoff := now.Add(-s.completedMaxAge)
	kept := s.completed[:0]
	for _, record := range s.completed {
		if record.finishedAt.After(cutoff) {
			kept = append(kept, record)
		}
	}
	s.completed = kept

	if excess := len(s.completed) - s.completedRetention; excess > 0 {
		s.completed = append(s.completed[:0], s.completed[excess:]...)
	}
	if excess := len(s.failed) - s.failedRetention; excess > 0 {
		s.failed = append(s.failed[:0], s.failed[excess:]...)
	}
}

// Counts returns how many completed and failed job records are retained.
func (s *Scheduler) Counts() (completed, failed int) {
	s.fmu.Lock()
	defer s.fmu.Unlock()
	return len(s.completed), len(s.failed)
}
