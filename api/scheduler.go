/*
scheduler.go - Automated accrual reconciliation

PURPOSE:
  Periodically rewrites every owner's accrual counters from the per-date
  ledger for the current month, so drift from deleted months or manual
  store edits never outlives one interval. At a month boundary the
  previous month is reconciled once more before moving on.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on start
  - Each run is recorded by the engine's RunStore for audit

USAGE:
  scheduler := NewReconciliationScheduler(engine, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: Reconcile endpoint (manual reconciliation)
  - attendance/summary.go: ReconcileAll
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/overtime-engine/attendance"
)

// ReconciliationScheduler reconciles accruals on a ticker.
type ReconciliationScheduler struct {
	Engine        *attendance.Engine
	Logger        *zap.Logger
	CheckInterval time.Duration
	Enabled       bool

	now       func() time.Time
	runMu     sync.Mutex // guards lastYear and lastMonth
	lastMonth time.Month
	lastYear  int

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewReconciliationScheduler creates a new scheduler.
func NewReconciliationScheduler(engine *attendance.Engine, logger *zap.Logger) *ReconciliationScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconciliationScheduler{
		Engine:        engine,
		Logger:        logger,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		now:           time.Now,
	}
}

// Start begins the scheduler.
func (rs *ReconciliationScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		rs.Logger.Info("reconciliation scheduler disabled")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.stop = make(chan struct{})
	rs.wg.Add(1)

	go rs.run()

	rs.Logger.Info("reconciliation scheduler started", zap.Duration("interval", rs.CheckInterval))
}

// Stop stops the scheduler and waits for a running check to finish.
func (rs *ReconciliationScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		rs.Logger.Info("reconciliation scheduler stopped")
	}
}

func (rs *ReconciliationScheduler) run() {
	defer rs.wg.Done()

	rs.RunNow()

	for {
		select {
		case <-rs.ticker.C:
			rs.RunNow()
		case <-rs.stop:
			return
		}
	}
}

// RunNow reconciles the current month for every owner, and the previous
// month too when the month changed since the last run.
func (rs *ReconciliationScheduler) RunNow() {
	rs.runMu.Lock()
	defer rs.runMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), rs.timeout())
	defer cancel()

	now := rs.now()
	year, month := now.Year(), now.Month()

	if rs.lastYear != 0 && (rs.lastYear != year || rs.lastMonth != month) {
		rs.reconcile(ctx, rs.lastYear, rs.lastMonth)
	}
	rs.reconcile(ctx, year, month)
	rs.lastYear, rs.lastMonth = year, month
}

func (rs *ReconciliationScheduler) reconcile(ctx context.Context, year int, month time.Month) {
	runs, err := rs.Engine.ReconcileAll(ctx, year, month)

	corrected := 0
	for _, run := range runs {
		corrected += run.Corrected
	}
	if err != nil {
		rs.Logger.Error("scheduled reconciliation failed",
			zap.Int("year", year), zap.Int("month", int(month)),
			zap.Int("owners", len(runs)), zap.Error(err))
		return
	}
	rs.Logger.Info("scheduled reconciliation complete",
		zap.Int("year", year), zap.Int("month", int(month)),
		zap.Int("owners", len(runs)), zap.Int("corrected", corrected))
}

// timeout bounds one run so a stuck store can't pile up ticks.
func (rs *ReconciliationScheduler) timeout() time.Duration {
	if rs.CheckInterval > 0 && rs.CheckInterval < 5*time.Minute {
		return rs.CheckInterval
	}
	return 5 * time.Minute
}

// GetNextRunTime returns when the next scheduled check will occur.
func (rs *ReconciliationScheduler) GetNextRunTime() time.Time {
	return rs.now().Add(rs.CheckInterval)
}
