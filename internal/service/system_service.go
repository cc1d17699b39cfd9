package service

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/database"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/version"
)

// PriceRefresher re-fetches recent prices. Implemented by MarketDataService.
type PriceRefresher interface {
	RefreshPrices(ctx context.Context, symbols []string, days int) (int, []string, error)
}

// DailyValueRebuilder recomputes the materialized daily values. Implemented by SnapshotService.
type DailyValueRebuilder interface {
	RebuildAll(ctx context.Context) (int, error)
}

// SystemService handles system-related operations
type SystemService struct {
	db               *sql.DB
	transactions     TransactionSource
	prices           PriceRefresher
	snapshots        DailyValueRebuilder
	benchmarkSymbols []string
	refreshDays      int
	logger           *zap.Logger
}

// NewSystemService creates a new SystemService.
// refreshDays is the look-back window of RefreshAll; values below 1 default to 7.
func NewSystemService(
	db *sql.DB,
	transactions TransactionSource,
	prices PriceRefresher,
	snapshots DailyValueRebuilder,
	benchmarkSymbols []string,
	refreshDays int,
	logger *zap.Logger,
) *SystemService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if refreshDays < 1 {
		refreshDays = 7
	}
	return &SystemService{
		db:               db,
		transactions:     transactions,
		prices:           prices,
		snapshots:        snapshots,
		benchmarkSymbols: benchmarkSymbols,
		refreshDays:      refreshDays,
		logger:           logger,
	}
}

// CheckHealth checks the health of the system
func (s *SystemService) CheckHealth(ctx context.Context) error {
	return database.HealthCheck(ctx, s.db)
}

// GetVersionInfo reports the application version, the applied schema version
// and whether migrations are still pending.
func (s *SystemService) GetVersionInfo(ctx context.Context) (model.VersionInfo, error) {
	dbVersion, pending, err := database.SchemaVersion(ctx, s.db)
	if err != nil {
		return model.VersionInfo{}, err
	}

	info := model.VersionInfo{
		AppVersion:      version.Version,
		DbVersion:       strconv.FormatInt(dbVersion, 10),
		MigrationNeeded: pending,
		Features: map[string]bool{
			"fifo":                true,
			"average_cost":        true,
			"benchmark":           true,
			"dca_simulation":      true,
			"csv_import":          true,
			"behavioral_analysis": true,
			"materialized_values": dbVersion >= 3,
		},
	}
	if pending {
		msg := "Database schema is behind the application; restart to apply pending migrations"
		info.MigrationMessage = &msg
	}
	return info, nil
}

// RefreshAll refreshes recent prices of every traded symbol and the default
// benchmarks, then rebuilds the daily values.
//
// Individual symbol failures are reported in the result; only a failure to read
// the ledger, an interrupted refresh or a failed rebuild return an error.
func (s *SystemService) RefreshAll(ctx context.Context) (*model.RefreshResult, error) {
	held, err := s.transactions.GetAllSymbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list symbols: %w", err)
	}

	symbols := make([]string, 0, len(held)+len(s.benchmarkSymbols))
	for _, sym := range append(held, s.benchmarkSymbols...) {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" || sym == model.CashSymbol || slices.Contains(symbols, sym) {
			continue
		}
		symbols = append(symbols, sym)
	}

	refreshed, failed, err := s.prices.RefreshPrices(ctx, symbols, s.refreshDays)
	if err != nil {
		return nil, err
	}

	days, err := s.snapshots.RebuildAll(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Info("refresh complete",
		zap.Int("symbols", len(symbols)),
		zap.Int("refreshed", refreshed),
		zap.Strings("failed", failed),
		zap.Int("daily_values", days),
	)
	return &model.RefreshResult{
		Symbols:     symbols,
		Refreshed:   refreshed,
		Failed:      failed,
		DailyValues: days,
	}, nil
}
