/*
scheduler.go - Automated ledger repair scheduler

PURPOSE:
  Periodically re-freezes recent past days so ledger entries exist even
  when an out punch's inline freeze failed or a day ended with no out
  punch at all. This is the safety net behind the best-effort freeze on
  the ingestion path.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Each pass repairs a trailing window of civil days ending yesterday
  - Individual subject-day failures are logged and skipped, never fatal

CONFIGURATION:
  - CheckInterval: How often to run (default: 1 hour)
  - LookbackDays:  How many past days each pass covers (default: 3)
  - Enabled:       Whether the scheduler is active (default: true)

USAGE:
  scheduler := NewRepairScheduler(service)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - attendance/repair.go: The repair pass itself
  - handlers.go: RepairLedger endpoint (manual repair)
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/FluxxCC/OJTonTrack-sub001/attendance"
	"github.com/FluxxCC/OJTonTrack-sub001/engine"
)

// RepairScheduler re-freezes recent days on a timer.
type RepairScheduler struct {
	Service       *attendance.Service
	CheckInterval time.Duration
	LookbackDays  int
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRepairScheduler creates a new scheduler.
func NewRepairScheduler(svc *attendance.Service) *RepairScheduler {
	return &RepairScheduler{
		Service:       svc,
		CheckInterval: 1 * time.Hour,
		LookbackDays:  3,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (rs *RepairScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	log.Printf("[Scheduler] Started with check interval: %v", rs.CheckInterval)
}

// Stop stops the scheduler.
func (rs *RepairScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (rs *RepairScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.repair()

	for {
		select {
		case <-rs.ticker.C:
			rs.repair()
		case <-rs.stop:
			return
		}
	}
}

func (rs *RepairScheduler) repair() {
	ctx := context.Background()
	loc := rs.Service.Location()

	to := engine.CivilDateOf(time.Now().In(loc), loc).AddDays(-1)
	from := to.AddDays(-(rs.LookbackDays - 1))

	report, err := rs.Service.RepairLedger(ctx, from, to)
	if err != nil {
		log.Printf("[Scheduler] Repair pass failed: %v", err)
		return
	}

	if report.EntriesFrozen > 0 || report.Failures > 0 {
		log.Printf("[Scheduler] Repaired %s..%s: %d subjects, %d entries frozen, %d failures",
			from, to, report.SubjectsScanned, report.EntriesFrozen, report.Failures)
	}
}
