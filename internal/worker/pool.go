package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Task is one unit of persistence work. Label identifies it in logs;
// Run does the write. Tasks for different users are independent, which is
// what makes the pool safe for the recalculation pass.
type Task struct {
	Label string
	Run   func(ctx context.Context) error
}

// Pool manages a pool of workers for per-user persistence during
// population-wide passes. A failing task is logged and skipped; the pass
// as a whole is idempotent and safely re-runnable.
type Pool struct {
	jobs        chan Task
	workerCount int
	taskTimeout time.Duration
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	metrics     *PoolMetrics

	// pending counts accepted tasks that have not finished yet, queued or
	// running; Flush waits on it
	pending atomic.Int64
}

// PoolMetrics tracks worker pool performance
type PoolMetrics struct {
	mu              sync.RWMutex
	processed       int64
	failed          int64
	backpressure    int64
	totalProcessing time.Duration
}

// NewPool creates a new worker pool
func NewPool(workerCount, queueSize int) *Pool {
	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		jobs:        make(chan Task, queueSize),
		workerCount: workerCount,
		taskTimeout: 5 * time.Second,
		ctx:         ctx,
		cancel:      cancel,
		metrics:     &PoolMetrics{},
	}
}

// Start initializes and starts all worker goroutines
func (p *Pool) Start() {
	log.Printf("🚀 Starting worker pool with %d workers and queue size %d", p.workerCount, cap(p.jobs))

	for i := 1; i <= p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	log.Printf("✓ Worker pool started successfully")
}

// worker is the main worker loop that processes jobs
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			log.Printf("Worker #%d shutting down", id)
			return

		case task, ok := <-p.jobs:
			if !ok {
				return
			}
			p.processTask(id, task)
			p.pending.Add(-1)
		}
	}
}

// processTask runs a single task with panic recovery so one bad record
// can never take a worker down mid-pass
func (p *Pool) processTask(workerID int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("⚠️  Worker #%d PANIC recovered: %v (%s)", workerID, r, task.Label)
			p.metrics.incrementFailed()
		}
	}()

	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), p.taskTimeout)
	defer cancel()

	err := task.Run(ctx)
	processingTime := time.Since(startTime)

	if err != nil {
		log.Printf("❌ Worker #%d failed: %s: %v (took %v)", workerID, task.Label, err, processingTime)
		p.metrics.incrementFailed()
		return
	}

	p.metrics.recordSuccess(processingTime)
}

// Submit attempts to add a task to the queue with backpressure handling
func (p *Pool) Submit(task Task) error {
	// counted before the send so a fast worker can never drive pending
	// below the true in-flight total
	p.pending.Add(1)

	select {
	case p.jobs <- task:
		return nil

	default:
		p.pending.Add(-1)
		log.Printf("⚠️  BACKPRESSURE WARNING: queue full, dropping task %s", task.Label)
		p.metrics.incrementBackpressure()
		return fmt.Errorf("worker pool queue full (backpressure)")
	}
}

// Flush blocks until every accepted task, queued or running, has finished,
// or the timeout passes. The recalculation endpoint uses it so reported
// changes are persisted before the response goes out.
func (p *Pool) Flush(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		pending := p.pending.Load()
		if pending == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("flush timeout with %d tasks pending", pending)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// Shutdown gracefully stops the worker pool
func (p *Pool) Shutdown(timeout time.Duration) error {
	log.Printf("🛑 Shutting down worker pool...")

	close(p.jobs)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Printf("✓ All workers finished processing remaining jobs")
		p.printMetrics()
		return nil

	case <-time.After(timeout):
		p.cancel()
		log.Printf("⚠️  Worker pool shutdown timed out after %v", timeout)
		return fmt.Errorf("shutdown timeout exceeded")
	}
}

// GetMetrics returns a snapshot of the pool metrics
func (p *Pool) GetMetrics() map[string]interface{} {
	p.metrics.mu.RLock()
	defer p.metrics.mu.RUnlock()

	avgProcessing := time.Duration(0)
	if p.metrics.processed > 0 {
		avgProcessing = p.metrics.totalProcessing / time.Duration(p.metrics.processed)
	}

	return map[string]interface{}{
		"processed":           p.metrics.processed,
		"failed":              p.metrics.failed,
		"backpressure_events": p.metrics.backpressure,
		"avg_processing_time": avgProcessing.String(),
		"queue_utilization":   fmt.Sprintf("%d/%d", len(p.jobs), cap(p.jobs)),
	}
}

// printMetrics logs the final metrics
func (p *Pool) printMetrics() {
	metrics := p.GetMetrics()
	log.Printf("📊 Worker Pool Metrics:")
	log.Printf("   - Processed: %v", metrics["processed"])
	log.Printf("   - Failed: %v", metrics["failed"])
	log.Printf("   - Backpressure Events: %v", metrics["backpressure_events"])
	log.Printf("   - Avg Processing Time: %v", metrics["avg_processing_time"])
}

// Metrics helper methods
func (pm *PoolMetrics) recordSuccess(duration time.Duration) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.processed++
	pm.totalProcessing += duration
}

func (pm *PoolMetrics) incrementFailed() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.failed++
}

func (pm *PoolMetrics) incrementBackpressure() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.backpressure++
}
