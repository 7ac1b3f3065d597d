package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeRetrier struct {
	mu      sync.Mutex
	pending int
	calls   int
}

func (f *fakeRetrier) RetryPending(ctx context.Context) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	stored := f.pending
	f.pending = 0
	return stored
}

func (f *fakeRetrier) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending
}

func (f *fakeRetrier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestRunOnce(t *testing.T) {
	r := &fakeRetrier{pending: 2}
	job := NewPersistRetryJob(r, "@every 1m", time.Second, zap.NewNop())

	if got := job.RunOnce(context.Background()); got != 2 {
		t.Fatalf("expected 2 stored, got %d", got)
	}
	if got := job.RunOnce(context.Background()); got != 0 {
		t.Fatalf("expected nothing to retry, got %d", got)
	}
	if r.callCount() != 1 {
		t.Fatalf("empty queue should not call the retrier, got %d calls", r.callCount())
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	job := NewPersistRetryJob(&fakeRetrier{}, "not a schedule", time.Second, zap.NewNop())
	if err := job.Start(); err == nil {
		t.Fatalf("expected invalid schedule error")
	}
}

func TestStartDisabledWithoutSchedule(t *testing.T) {
	job := NewPersistRetryJob(&fakeRetrier{}, "", time.Second, zap.NewNop())
	if err := job.Start(); err != nil {
		t.Fatalf("expected disabled job to start cleanly, got %v", err)
	}
	job.Stop()
}

func TestScheduledRun(t *testing.T) {
	r := &fakeRetrier{pending: 1}
	job := NewPersistRetryJob(r, "@every 1s", time.Second, zap.NewNop())
	if err := job.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer job.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if r.callCount() > 0 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("expected scheduled retry to run")
}
