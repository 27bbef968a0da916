package jobs

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"backend/internal/service"
)

// RecalcScheduler triggers the population-wide rank recalculation on a
// fixed interval. The pass itself is idempotent, so an overlapping or
// re-triggered run is harmless.
type RecalcScheduler struct {
	ranks   *service.RankService
	stopCh  chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool

	// Metrics
	totalRuns  atomic.Int64
	errorCount atomic.Int64
	lastRun    atomic.Int64 // unix seconds

	interval time.Duration
}

// SchedulerConfig holds configuration for the recalculation scheduler
type SchedulerConfig struct {
	Interval time.Duration // Default: 1h
}

// NewRecalcScheduler creates a new recalculation scheduler
func NewRecalcScheduler(ranks *service.RankService, config SchedulerConfig) *RecalcScheduler {
	if config.Interval == 0 {
		config.Interval = time.Hour
	}

	return &RecalcScheduler{
		ranks:    ranks,
		stopCh:   make(chan struct{}),
		interval: config.Interval,
	}
}

// Start begins the scheduling loop
func (rs *RecalcScheduler) Start(ctx context.Context) error {
	if rs.running.Load() {
		return fmt.Errorf("scheduler already running")
	}

	rs.running.Store(true)

	log.Printf("🚀 Rank Recalculation Scheduler Started")
	log.Printf("   - Interval: %v", rs.interval)

	rs.wg.Add(1)
	go rs.loop(ctx)

	return nil
}

// Stop gracefully stops the scheduler
func (rs *RecalcScheduler) Stop() {
	if !rs.running.Load() {
		return
	}

	log.Println("⏹️ Stopping Rank Recalculation Scheduler...")
	rs.running.Store(false)
	close(rs.stopCh)
	rs.wg.Wait()

	log.Printf("✓ Scheduler stopped after %d runs (%d failed)", rs.totalRuns.Load(), rs.errorCount.Load())
}

// loop runs recalculation on every tick until stopped
func (rs *RecalcScheduler) loop(ctx context.Context) {
	defer rs.wg.Done()

	ticker := time.NewTicker(rs.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-rs.stopCh:
			return
		case <-ticker.C:
			rs.runOnce(ctx)
		}
	}
}

// runOnce executes one recalculation pass with metrics
func (rs *RecalcScheduler) runOnce(ctx context.Context) {
	start := time.Now()
	rs.totalRuns.Add(1)
	rs.lastRun.Store(start.Unix())

	changes, err := rs.ranks.RecalculateAll(ctx)
	if err != nil {
		rs.errorCount.Add(1)
		log.Printf("❌ Scheduled recalculation failed: %v", err)
		return
	}

	promotions, demotions := 0, 0
	for _, ch := range changes {
		switch ch.Change {
		case "promotion":
			promotions++
		case "demotion":
			demotions++
		}
	}

	log.Printf("✓ Scheduled recalculation: %d users, %d promotions, %d demotions in %v",
		len(changes), promotions, demotions, time.Since(start))
}

// GetMetrics returns a snapshot of scheduler metrics
func (rs *RecalcScheduler) GetMetrics() map[string]interface{} {
	return map[string]interface{}{
		"running":    rs.running.Load(),
		"total_runs": rs.totalRuns.Load(),
		"failed":     rs.errorCount.Load(),
		"last_run":   rs.lastRun.Load(),
	}
}
