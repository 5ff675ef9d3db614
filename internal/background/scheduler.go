package background

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"cryptoacademy-backend/pkg/logger"
)

type SchedulerConfig struct {
	WorkerCount int
	QueueSize   int
}

type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

// Job is a unit of work executed by the scheduler's worker pool. Run must
// return once ctx is done.
type Job struct {
	Name        string
	Run         func(ctx context.Context) error
	Delay       time.Duration
	Timeout     time.Duration
	RetryPolicy RetryPolicy
}

var (
	ErrSchedulerNotStarted = errors.New("scheduler not started")
	ErrJobAlreadyScheduled = errors.New("job already scheduled")
	ErrQueueFull           = errors.New("scheduler queue is full")
	ErrSchedulerStopped    = errors.New("scheduler is shutting down")
)

// Scheduler runs jobs on a fixed pool of workers fed by a bounded queue.
// Scheduling never blocks the caller.
type Scheduler struct {
	config SchedulerConfig

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool

	queue chan queuedJob

	workers  sync.WaitGroup
	inFlight sync.WaitGroup

	pending map[string]struct{}
}

type queuedJob struct {
	job     Job
	attempt int
	unique  bool
}

var (
	metricsOnce  sync.Once
	jobRuns      *prometheus.CounterVec
	jobDuration  *prometheus.HistogramVec
	jobLastOK    *prometheus.GaugeVec
	jobsRejected *prometheus.CounterVec
	queueDepth   prometheus.Gauge
)

func initMetrics() {
	metricsOnce.Do(func() {
		jobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cryptoacademy",
			Subsystem: "background",
			Name:      "job_runs_total",
			Help:      "Total background job executions",
		}, []string{"job", "status"})

		jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cryptoacademy",
			Subsystem: "background",
			Name:      "job_duration_seconds",
			Help:      "Duration of background job executions",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"})

		jobLastOK = promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "cryptoacademy",
			Subsystem: "background",
			Name:      "job_last_success_timestamp",
			Help:      "Unix timestamp of the last successful background job execution",
		}, []string{"job"})

		jobsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cryptoacademy",
			Subsystem: "background",
			Name:      "jobs_rejected_total",
			Help:      "Jobs that could not be queued",
		}, []string{"job", "reason"})

		queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "cryptoacademy",
			Subsystem: "background",
			Name:      "queue_depth",
			Help:      "Jobs waiting for a worker",
		})
	})
}

func NewScheduler(cfg SchedulerConfig) *Scheduler {
	initMetrics()

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 32
	}

	return &Scheduler{
		config:  cfg,
		queue:   make(chan queuedJob, cfg.QueueSize),
		pending: make(map[string]struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = true

	for i := 0; i < s.config.WorkerCount; i++ {
		s.workers.Add(1)
		go s.work()
	}
}

func (s *Scheduler) work() {
	defer s.workers.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case queued := <-s.queue:
			queueDepth.Set(float64(len(s.queue)))
			s.process(queued)
		}
	}
}

func (s *Scheduler) process(queued queuedJob) {
	s.inFlight.Add(1)
	defer s.inFlight.Done()

	if !s.wait(queued.job.Delay) {
		s.finish(queued, context.Canceled)
		return
	}

	err := s.run(queued)
	if err != nil && s.shouldRetry(queued, err) {
		retry := queued
		retry.attempt++
		retry.job.Delay = queued.job.RetryPolicy.Backoff
		if s.push(retry) == nil {
			return
		}
	}
	s.finish(queued, err)
}

// wait sleeps for delay and reports false when the scheduler stopped first.
func (s *Scheduler) wait(delay time.Duration) bool {
	if delay <= 0 {
		return true
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *Scheduler) run(queued queuedJob) (runErr error) {
	start := time.Now()
	status := "success"
	fields := map[string]interface{}{"job": queued.job.Name, "attempt": queued.attempt}

	ctx := s.ctx
	if queued.job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, queued.job.Timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			runErr = fmt.Errorf("panic: %v", r)
			status = "failure"
			logger.Error(runErr, "Background job panicked", fields)
		}
		jobDuration.WithLabelValues(queued.job.Name).Observe(time.Since(start).Seconds())
		jobRuns.WithLabelValues(queued.job.Name, status).Inc()
		if status == "success" {
			jobLastOK.WithLabelValues(queued.job.Name).Set(float64(time.Now().Unix()))
		}
	}()

	if err := ctx.Err(); err != nil {
		status = "canceled"
		return err
	}

	if err := queued.job.Run(ctx); err != nil {
		status = "failure"
		if errors.Is(err, context.Canceled) {
			status = "canceled"
		}
		return err
	}
	return nil
}

func (s *Scheduler) shouldRetry(queued queuedJob, err error) bool {
	if queued.job.RetryPolicy.MaxRetries <= 0 || errors.Is(err, context.Canceled) {
		return false
	}
	return queued.attempt <= queued.job.RetryPolicy.MaxRetries
}

func (s *Scheduler) push(queued queuedJob) error {
	if s.ctx.Err() != nil {
		return ErrSchedulerStopped
	}
	select {
	case s.queue <- queued:
		queueDepth.Set(float64(len(s.queue)))
		return nil
	default:
		return ErrQueueFull
	}
}

func (s *Scheduler) finish(queued queuedJob, runErr error) {
	if queued.unique {
		s.release(queued.job.Name)
	}

	fields := map[string]interface{}{"job": queued.job.Name, "attempt": queued.attempt}
	switch {
	case runErr == nil:
		logger.Debug("Background job completed", fields)
	case errors.Is(runErr, context.Canceled):
		logger.Warn("Background job canceled", fields)
	default:
		logger.Error(runErr, "Background job failed", fields)
	}
}

func (s *Scheduler) release(name string) {
	s.mu.Lock()
	delete(s.pending, name)
	s.mu.Unlock()
}

func (s *Scheduler) Schedule(job Job) error {
	return s.schedule(job, false)
}

// ScheduleUnique queues the job unless a job with the same name is already
// queued or running, in which case ErrJobAlreadyScheduled is returned.
func (s *Scheduler) ScheduleUnique(job Job) error {
	return s.schedule(job, true)
}

func (s *Scheduler) schedule(job Job, unique bool) error {
	if job.Name == "" {
		return errors.New("job name is required")
	}
	if job.Run == nil {
		return errors.New("job runner is required")
	}

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return ErrSchedulerNotStarted
	}
	if unique {
		if _, exists := s.pending[job.Name]; exists {
			s.mu.Unlock()
			return ErrJobAlreadyScheduled
		}
		s.pending[job.Name] = struct{}{}
	}
	s.mu.Unlock()

	if err := s.push(queuedJob{job: job, attempt: 1, unique: unique}); err != nil {
		if unique {
			s.release(job.Name)
		}
		reason := "full"
		if errors.Is(err, ErrSchedulerStopped) {
			reason = "stopped"
		}
		jobsRejected.WithLabelValues(job.Name, reason).Inc()
		return err
	}
	return nil
}

// Every schedules job as a unique job on each tick until the scheduler stops.
// The first run is queued immediately.
func (s *Scheduler) Every(interval time.Duration, job Job) error {
	if interval <= 0 {
		return errors.New("interval must be positive")
	}

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return ErrSchedulerNotStarted
	}
	ctx := s.ctx
	s.mu.Unlock()

	s.workers.Add(1)
	go func() {
		defer s.workers.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			if err := s.ScheduleUnique(job); err != nil && !errors.Is(err, ErrJobAlreadyScheduled) {
				logger.Warn("Failed to queue periodic job", map[string]interface{}{"job": job.Name, "error": err.Error()})
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return nil
}

func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.workers.Wait()
		s.inFlight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PendingJobCount returns the number of unique jobs queued or running.
func (s *Scheduler) PendingJobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
