package schedule

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Job is one scheduled unit of work, e.g. pipeline.RunOnce.
type Job func(ctx context.Context) error

// Scheduler runs Job once per Interval, aligned to UTC boundaries (24h → midnight).
// A tick that fires while the previous run is still in flight is skipped; missed ticks are not replayed.
type Scheduler struct {
	Interval   time.Duration
	RunOnStart bool
	Job        Job
	Logger     *zap.Logger

	running atomic.Bool
	wg      sync.WaitGroup
}

// NextAligned returns the first multiple of interval (counted from the zero time, in UTC) after now.
func NextAligned(now time.Time, interval time.Duration) time.Time {
	now = now.UTC()
	return now.Truncate(interval).Add(interval)
}

// Run blocks until ctx is cancelled, then waits for an in-flight run to return.
func (s *Scheduler) Run(ctx context.Context) {
	defer s.wg.Wait()

	// Run immediately once at startup
	if s.RunOnStart {
		s.trigger(ctx)
	}

	next := NextAligned(time.Now(), s.Interval)
	s.Logger.Info("scheduler started", zap.Duration("interval", s.Interval), zap.Time("next_run", next))

	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		s.Logger.Info("scheduler stopped")
		return
	case <-timer.C:
	}

	// Then run once every interval
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		s.trigger(ctx)

		select {
		case <-ctx.Done():
			s.Logger.Info("scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}

// trigger starts a run unless one is in flight. It reports whether a run was started.
func (s *Scheduler) trigger(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.Logger.Warn("tick skipped: previous run still in flight")
		return false
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)

		if err := s.Job(ctx); err != nil {
			s.Logger.Warn("scheduled run failed", zap.Error(err))
		}
	}()
	return true
}
