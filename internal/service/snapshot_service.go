package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/repository"
)

// SnapshotService maintains the materialized daily value series.
//
// Reads are served from the daily_portfolio_value table when it has rows and
// fall back to an on-demand calculation otherwise. Rebuilds resume from an
// in-memory checkpoint of the calculators, so appending transactions dated
// after the last snapshot replays only those transactions.
type SnapshotService struct {
	valuation      *ValuationService
	dailyValueRepo *repository.DailyValueRepository
	logger         *zap.Logger
	mu             sync.Mutex
	checkpoint     *LedgerCheckpoint
}

// NewSnapshotService creates a new SnapshotService with the provided dependencies.
func NewSnapshotService(
	valuation *ValuationService,
	dailyValueRepo *repository.DailyValueRepository,
	logger *zap.Logger,
) *SnapshotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotService{
		valuation:      valuation,
		dailyValueRepo: dailyValueRepo,
		logger:         logger,
	}
}

// Rebuild brings the stored series up to date through today. Concurrent
// rebuilds are serialized.
//
// Snapshots after the checkpoint are upserted when the ledger only grew past
// it; any other change replaces the whole series.
//
// Returns the number of snapshots stored.
func (s *SnapshotService) Rebuild(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rebuild(ctx, s.checkpoint)
}

// RebuildAll discards the checkpoint and recalculates the full series.
// Used after a price refresh, which can move the value of past dates.
func (s *SnapshotService) RebuildAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rebuild(ctx, nil)
}

func (s *SnapshotService) rebuild(ctx context.Context, checkpoint *LedgerCheckpoint) (int, error) {
	started := time.Now()
	values, next, full, err := s.valuation.CalculateDailyValuesSince(ctx, checkpoint, time.Time{})
	if err != nil {
		return 0, fmt.Errorf("failed to calculate daily values: %w", err)
	}

	if full {
		err = s.dailyValueRepo.ReplaceDailyValues(ctx, values)
	} else {
		err = s.dailyValueRepo.UpsertDailyValues(ctx, values)
	}
	if err != nil {
		s.checkpoint = nil
		return 0, err
	}
	s.checkpoint = next

	stored := len(values)
	if !full {
		if stored, err = s.dailyValueRepo.CountDailyValues(ctx); err != nil {
			return 0, err
		}
	}

	s.logger.Info("rebuilt daily values",
		zap.Int("days", len(values)),
		zap.Int("stored", stored),
		zap.Bool("full", full),
		zap.Duration("duration", time.Since(started)),
	)
	return stored, nil
}

// GetHistory returns snapshots with startDate <= date <= endDate; zero dates leave
// that side open.
//
// The materialized table is read first. When it is empty the series is
// calculated on demand and filtered to the requested range, without persisting it.
func (s *SnapshotService) GetHistory(ctx context.Context, startDate, endDate time.Time) ([]model.DailyPortfolioValue, error) {
	history := []model.DailyPortfolioValue{}
	err := s.dailyValueRepo.GetDailyValues(ctx, startDate, endDate, func(v model.DailyPortfolioValue) error {
		history = append(history, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(history) > 0 {
		return history, nil
	}

	count, err := s.dailyValueRepo.CountDailyValues(ctx)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		// Materialized rows exist, just none in the range.
		return history, nil
	}

	s.logger.Debug("no materialized daily values, calculating on demand")
	values, err := s.valuation.CalculateDailyValues(ctx, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate daily values: %w", err)
	}
	for _, v := range values {
		if !startDate.IsZero() && v.Date.Before(model.Day(startDate)) {
			continue
		}
		history = append(history, v)
	}
	return history, nil
}
