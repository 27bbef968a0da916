package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestFlush(t *testing.T) {
	t.Run("returns only after running tasks finish", func(t *testing.T) {
		pool := NewPool(2, 10)
		pool.Start()
		defer pool.Shutdown(time.Second)

		var done atomic.Int32
		for i := 0; i < 6; i++ {
			err := pool.Submit(Task{
				Label: "slow-write",
				Run: func(ctx context.Context) error {
					time.Sleep(30 * time.Millisecond)
					done.Add(1)
					return nil
				},
			})
			if err != nil {
				t.Fatalf("Submit: %v", err)
			}
		}

		if err := pool.Flush(2 * time.Second); err != nil {
			t.Fatalf("Flush: %v", err)
		}
		if got := done.Load(); got != 6 {
			t.Errorf("tasks finished before Flush returned = %d, want 6", got)
		}
	})

	t.Run("times out while work is still pending", func(t *testing.T) {
		pool := NewPool(1, 10)
		pool.Start()

		release := make(chan struct{})
		_ = pool.Submit(Task{
			Label: "stuck-write",
			Run: func(ctx context.Context) error {
				<-release
				return nil
			},
		})

		if err := pool.Flush(50 * time.Millisecond); err == nil {
			t.Error("expected a timeout error with a task still running")
		}

		close(release)
		if err := pool.Flush(time.Second); err != nil {
			t.Errorf("Flush after release: %v", err)
		}
		pool.Shutdown(time.Second)
	})

	t.Run("rejected submissions do not count as pending", func(t *testing.T) {
		pool := NewPool(1, 1)
		pool.Start()
		defer pool.Shutdown(time.Second)

		release := make(chan struct{})
		block := Task{
			Label: "blocker",
			Run: func(ctx context.Context) error {
				<-release
				return nil
			},
		}

		// first occupies the worker, second fills the queue
		if err := pool.Submit(block); err != nil {
			t.Fatalf("Submit: %v", err)
		}
		// the worker may not have picked up the first task yet; wait for
		// the queue slot to open
		deadline := time.Now().Add(time.Second)
		for len(pool.jobs) > 0 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		if err := pool.Submit(block); err != nil {
			t.Fatalf("Submit: %v", err)
		}

		if err := pool.Submit(block); err == nil {
			t.Fatal("expected backpressure rejection with a full queue")
		}

		close(release)
		if err := pool.Flush(2 * time.Second); err != nil {
			t.Errorf("Flush: %v", err)
		}
	})
}
