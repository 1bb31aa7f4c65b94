package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func waitForEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job event")
		return Event{}
	}
}

func TestJobRunsRegisteredProcessor(t *testing.T) {
	q := New(testLogger(), WithWorkers(2))
	defer q.Shutdown(context.Background())

	events := make(chan Event, 1)
	q.OnEvent(func(ev Event) { events <- ev })

	var got atomic.Value
	q.Register("create", func(_ context.Context, job Job) error {
		got.Store(job.Payload.(string))
		return nil
	})

	if err := q.Enqueue(context.Background(), Job{ID: "j1", Kind: "create", Payload: "hello"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	ev := waitForEvent(t, events)
	if ev.Err != nil {
		t.Fatalf("job error: %v", ev.Err)
	}
	if ev.JobID != "j1" || ev.Attempts != 1 {
		t.Errorf("event = %+v", ev)
	}
	if got.Load() != "hello" {
		t.Errorf("payload = %v", got.Load())
	}
}

func TestEnqueueRejectsUnregisteredKind(t *testing.T) {
	q := New(testLogger())
	defer q.Shutdown(context.Background())

	if err := q.Enqueue(context.Background(), Job{ID: "j1", Kind: "unknown"}); err == nil {
		t.Fatal("expected error for unregistered kind")
	}
}

func TestEnqueueRejectsDuplicateActiveJob(t *testing.T) {
	q := New(testLogger(), WithWorkers(1))
	defer q.Shutdown(context.Background())

	release := make(chan struct{})
	q.Register("create", func(_ context.Context, _ Job) error {
		<-release
		return nil
	})

	if err := q.Enqueue(context.Background(), Job{ID: "j1", Kind: "create"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := q.Enqueue(context.Background(), Job{ID: "j1", Kind: "create"}); err == nil {
		t.Fatal("expected duplicate rejection while job active")
	}
	close(release)
}

func TestSameIDAllowedAfterCompletion(t *testing.T) {
	q := New(testLogger(), WithWorkers(1))
	defer q.Shutdown(context.Background())

	events := make(chan Event, 2)
	q.OnEvent(func(ev Event) { events <- ev })
	q.Register("create", func(_ context.Context, _ Job) error { return nil })

	if err := q.Enqueue(context.Background(), Job{ID: "j1", Kind: "create"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	waitForEvent(t, events)

	if err := q.Enqueue(context.Background(), Job{ID: "j1", Kind: "create"}); err != nil {
		t.Fatalf("re-enqueue after completion: %v", err)
	}
	waitForEvent(t, events)
}

func TestRetriesUpToMaxAttempts(t *testing.T) {
	q := New(testLogger(), WithWorkers(1))
	defer q.Shutdown(context.Background())

	events := make(chan Event, 1)
	q.OnEvent(func(ev Event) { events <- ev })

	var calls atomic.Int32
	q.Register("notify", func(_ context.Context, _ Job) error {
		if calls.Add(1) < 3 {
			return errors.New("transient")
		}
		return nil
	}, WithAttempts(3), WithRetryDelay(time.Millisecond))

	if err := q.Enqueue(context.Background(), Job{ID: "j1", Kind: "notify"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	ev := waitForEvent(t, events)
	if ev.Err != nil {
		t.Fatalf("expected success after retries, got %v", ev.Err)
	}
	if ev.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", ev.Attempts)
	}
}

func TestMutatingKindRunsExactlyOnce(t *testing.T) {
	q := New(testLogger(), WithWorkers(1))
	defer q.Shutdown(context.Background())

	events := make(chan Event, 1)
	q.OnEvent(func(ev Event) { events <- ev })

	var calls atomic.Int32
	q.Register("create", func(_ context.Context, _ Job) error {
		calls.Add(1)
		return errors.New("persist failed")
	}, WithAttempts(1))

	if err := q.Enqueue(context.Background(), Job{ID: "j1", Kind: "create"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	ev := waitForEvent(t, events)
	if ev.Err == nil {
		t.Fatal("expected failure event")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("processor ran %d times, want exactly 1", n)
	}
}

func TestConcurrentJobsAllComplete(t *testing.T) {
	q := New(testLogger(), WithWorkers(4), WithQueueSize(64))
	defer q.Shutdown(context.Background())

	const jobs = 20
	var wg sync.WaitGroup
	wg.Add(jobs)
	q.OnEvent(func(_ Event) { wg.Done() })

	var done atomic.Int32
	q.Register("update", func(_ context.Context, _ Job) error {
		done.Add(1)
		return nil
	})

	for i := 0; i < jobs; i++ {
		if err := q.Enqueue(context.Background(), Job{ID: fmt.Sprintf("j%d", i), Kind: "update"}); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	finished := make(chan struct{})
	go func() { wg.Wait(); close(finished) }()
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for jobs")
	}
	if n := done.Load(); n != jobs {
		t.Errorf("completed %d jobs, want %d", n, jobs)
	}
}

func TestShutdownDrainsQueuedJobs(t *testing.T) {
	q := New(testLogger(), WithWorkers(1))

	var calls atomic.Int32
	q.Register("create", func(_ context.Context, _ Job) error {
		time.Sleep(10 * time.Millisecond)
		calls.Add(1)
		return nil
	})

	for i := 0; i < 5; i++ {
		if err := q.Enqueue(context.Background(), Job{ID: fmt.Sprintf("j%d", i), Kind: "create"}); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	q.Shutdown(context.Background())
	if n := calls.Load(); n != 5 {
		t.Errorf("drained %d jobs, want 5", n)
	}
	if err := q.Enqueue(context.Background(), Job{ID: "late", Kind: "create"}); err == nil {
		t.Fatal("expected enqueue after shutdown to fail")
	}
}

func TestProcessTimeoutCancelsContext(t *testing.T) {
	q := New(testLogger(), WithWorkers(1), WithProcessTimeout(20*time.Millisecond))
	defer q.Shutdown(context.Background())

	events := make(chan Event, 1)
	q.OnEvent(func(ev Event) { events <- ev })

	q.Register("create", func(ctx context.Context, _ Job) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return nil
		}
	})

	if err := q.Enqueue(context.Background(), Job{ID: "j1", Kind: "create"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	ev := waitForEvent(t, events)
	if !errors.Is(ev.Err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", ev.Err)
	}
}
