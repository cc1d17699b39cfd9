// Package scheduler runs the periodic price refresh.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
)

// Refresher refreshes prices and rebuilds daily values. Implemented by service.SystemService.
type Refresher interface {
	RefreshAll(ctx context.Context) (*model.RefreshResult, error)
}

// Scheduler wraps a cron runner with a single refresh job.
type Scheduler struct {
	cron      *cron.Cron
	refresher Refresher
	timeout   time.Duration
	logger    *zap.Logger
}

// New registers the refresh job on spec, a standard five-field cron expression
// evaluated in UTC. Overlapping runs are skipped and panics are recovered.
func New(spec string, refresher Refresher, timeout time.Duration, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	cl := cronLogger{logger: logger.Named("cron")}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	s := &Scheduler{
		cron:      c,
		refresher: refresher,
		timeout:   timeout,
		logger:    logger,
	}
	if _, err := c.AddFunc(spec, s.RunOnce); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.logger.Info("scheduled price refresh", zap.Time("next", e.Next))
	}
}

// Stop prevents new runs and waits for a running job until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce performs a single refresh with the configured timeout.
func (s *Scheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	started := time.Now()
	result, err := s.refresher.RefreshAll(ctx)
	if err != nil {
		s.logger.Error("scheduled refresh failed", zap.Error(err))
		return
	}
	s.logger.Info("scheduled refresh finished",
		zap.Int("refreshed", result.Refreshed),
		zap.Int("failed", len(result.Failed)),
		zap.Duration("duration", time.Since(started)),
	)
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
