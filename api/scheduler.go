/*
scheduler.go - Periodic late-fee sweeps

PURPOSE:
  Runs billing.Accruer on a cron schedule so overdue invoices pick up their
  daily late fees without anyone calling the API.

DESIGN:
  - robfig/cron/v3 drives the schedule (default "@every 1h")
  - One sweep runs immediately on Start
  - A tick that fires while the previous sweep is still running is skipped;
    across processes the accruer's run-lock serializes sweeps
  - A missing rate fails the run (recorded by the accruer) and the next
    tick tries again

CONFIGURATION:
  - Schedule: cron spec or "@every <duration>" (SWEEP_SCHEDULE)
  - Enabled:  whether the scheduler is active (default: true)

USAGE:
  scheduler := NewLateFeeScheduler(accruer)
  if err := scheduler.Start(); err != nil { ... }
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: SweepLateFees endpoint (manual sweep)
  - billing/accrual.go: Accruer
*/

package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/warp/freight-engine/billing"
	"github.com/warp/freight-engine/generic"
	"github.com/warp/freight-engine/logging"
)

// DefaultSweepSchedule is used when no schedule is configured.
const DefaultSweepSchedule = "@every 1h"

// LateFeeScheduler triggers late-fee sweeps on a schedule.
type LateFeeScheduler struct {
	Accruer  *billing.Accruer
	Schedule string
	Enabled  bool
	Logger   zerolog.Logger

	now    func() time.Time
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewLateFeeScheduler creates an enabled scheduler with the default schedule.
func NewLateFeeScheduler(accruer *billing.Accruer) *LateFeeScheduler {
	return &LateFeeScheduler{
		Accruer:  accruer,
		Schedule: DefaultSweepSchedule,
		Enabled:  true,
		Logger:   logging.WithComponent("scheduler"),
		now:      time.Now,
	}
}

// WithNow overrides the clock passed to the accruer.
func (s *LateFeeScheduler) WithNow(now func() time.Time) *LateFeeScheduler {
	s.now = now
	return s
}

// Start begins the scheduler. It fails only for an unparsable schedule.
func (s *LateFeeScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.Logger.Info().Msg("late fee scheduler disabled, not starting")
		return nil
	}
	if s.cron != nil {
		return nil
	}

	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(s.Schedule, s.tick); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.Schedule, err)
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.cron = c
	c.Start()

	// Run immediately on start
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runOnce(s.ctx)
	}()

	s.Logger.Info().Str("schedule", s.Schedule).Msg("late fee scheduler started")
	return nil
}

// Stop waits for a running sweep to finish and stops the schedule.
func (s *LateFeeScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return
	}
	s.cancel()
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.cron = nil
	s.Logger.Info().Msg("late fee scheduler stopped")
}

// RunNow triggers an immediate sweep (for admin and tests).
func (s *LateFeeScheduler) RunNow(ctx context.Context) ([]billing.Invoice, error) {
	return s.Accruer.Accrue(ctx, s.now())
}

// NextRun returns when the next scheduled sweep will occur, or the zero
// time when the scheduler is not running.
func (s *LateFeeScheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return time.Time{}
	}
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *LateFeeScheduler) tick() {
	s.wg.Add(1)
	defer s.wg.Done()
	s.runOnce(s.ctx)
}

func (s *LateFeeScheduler) runOnce(ctx context.Context) {
	updated, err := s.Accruer.Accrue(ctx, s.now())
	switch {
	case err == nil:
		s.Logger.Debug().Int("updated", len(updated)).Msg("scheduled sweep completed")
	case ctx.Err() != nil:
		// Shutting down.
	case generic.IsRetryable(err):
		s.Logger.Warn().Err(err).Msg("scheduled sweep skipped, retrying next cycle")
	default:
		s.Logger.Error().Err(err).Msg("scheduled sweep failed")
	}
}
