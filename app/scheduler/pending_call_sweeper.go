// Package scheduler runs periodic maintenance jobs over the call ledger
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	businessflow "github.com/victorycadets/admissions-agent/business_flow"
)

// StaleCallSweeper is the slice of CallLedgerFlow the sweeper depends on
type StaleCallSweeper interface {
	FailStalePendingCalls(ctx context.Context, maxAge time.Duration) (int, error)
}

// PendingCallSweeper marks calls that never received a final status callback as failed
type PendingCallSweeper struct {
	flow     StaleCallSweeper
	interval time.Duration
	maxAge   time.Duration
	logger   *zap.Logger
	cron     *cron.Cron
}

var _ StaleCallSweeper = (businessflow.CallLedgerFlow)(nil)

func NewPendingCallSweeper(flow StaleCallSweeper, interval, maxAge time.Duration, logger *zap.Logger) *PendingCallSweeper {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if maxAge <= 0 {
		maxAge = 2 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PendingCallSweeper{
		flow:     flow,
		interval: interval,
		maxAge:   maxAge,
		logger:   logger,
		cron:     cron.New(),
	}
}

// Schedule returns the cron expression the sweeper runs on
func (s *PendingCallSweeper) Schedule() string {
	return fmt.Sprintf("@every %s", s.interval)
}

// Start registers the sweep job and starts the cron runner
func (s *PendingCallSweeper) Start() error {
	if _, err := s.cron.AddFunc(s.Schedule(), s.RunOnce); err != nil {
		return fmt.Errorf("failed to schedule pending call sweep: %w", err)
	}
	s.cron.Start()
	s.logger.Info("Pending call sweeper started",
		zap.String("schedule", s.Schedule()),
		zap.Duration("max_age", s.maxAge))
	return nil
}

// Stop halts the runner and waits for an in-flight sweep to finish
func (s *PendingCallSweeper) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Pending call sweeper stopped")
}

// RunOnce performs a single sweep
func (s *PendingCallSweeper) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := s.flow.FailStalePendingCalls(ctx, s.maxAge)
	if err != nil {
		s.logger.Error("Pending call sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("Marked stale pending calls as failed", zap.Int("count", n))
	}
}
