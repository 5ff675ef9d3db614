package background

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func startScheduler(t *testing.T, cfg SchedulerConfig) *Scheduler {
	t.Helper()
	s := NewScheduler(cfg)
	s.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

func TestScheduleRequiresStart(t *testing.T) {
	s := NewScheduler(SchedulerConfig{})
	err := s.Schedule(Job{Name: "noop", Run: func(context.Context) error { return nil }})
	if !errors.Is(err, ErrSchedulerNotStarted) {
		t.Fatalf("expected ErrSchedulerNotStarted, got %v", err)
	}
}

func TestScheduleRunsJob(t *testing.T) {
	s := startScheduler(t, SchedulerConfig{WorkerCount: 1})

	done := make(chan struct{})
	if err := s.Schedule(Job{Name: "ping", Run: func(context.Context) error {
		close(done)
		return nil
	}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected job to run")
	}
}

func TestScheduleUniqueRejectsDuplicates(t *testing.T) {
	s := startScheduler(t, SchedulerConfig{WorkerCount: 1})

	release := make(chan struct{})
	started := make(chan struct{})
	job := Job{Name: "leaderboard:invalidate", Run: func(ctx context.Context) error {
		close(started)
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}}

	if err := s.ScheduleUnique(job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-started

	if err := s.ScheduleUnique(job); !errors.Is(err, ErrJobAlreadyScheduled) {
		t.Fatalf("expected ErrJobAlreadyScheduled, got %v", err)
	}
	if got := s.PendingJobCount(); got != 1 {
		t.Fatalf("expected 1 pending job, got %d", got)
	}
	close(release)

	deadline := time.Now().Add(time.Second)
	for s.PendingJobCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected unique job to be released")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestScheduleRetriesFailedJob(t *testing.T) {
	s := startScheduler(t, SchedulerConfig{WorkerCount: 1})

	var attempts int32
	done := make(chan struct{})
	err := s.Schedule(Job{
		Name:        "flaky",
		RetryPolicy: RetryPolicy{MaxRetries: 2},
		Run: func(context.Context) error {
			if atomic.AddInt32(&attempts, 1) < 3 {
				return errors.New("try again")
			}
			close(done)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected job to succeed after retries, attempts=%d", atomic.LoadInt32(&attempts))
	}
}

func TestScheduleFailsFastWhenQueueFull(t *testing.T) {
	s := NewScheduler(SchedulerConfig{WorkerCount: 1, QueueSize: 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	block := make(chan struct{})
	defer close(block)
	started := make(chan struct{})
	blocker := Job{Name: "blocker", Run: func(ctx context.Context) error {
		close(started)
		select {
		case <-block:
		case <-ctx.Done():
		}
		return nil
	}}
	if err := s.Schedule(blocker); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-started

	noop := Job{Name: "noop", Run: func(context.Context) error { return nil }}
	if err := s.Schedule(noop); err != nil {
		t.Fatalf("expected queued job, got %v", err)
	}
	if err := s.Schedule(noop); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestEveryQueuesImmediately(t *testing.T) {
	s := startScheduler(t, SchedulerConfig{WorkerCount: 1})

	ran := make(chan struct{}, 1)
	err := s.Every(time.Hour, Job{Name: "courses:reconcile-lesson-counts", Run: func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatalf("expected periodic job to run once immediately")
	}
}
