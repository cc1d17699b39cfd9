package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/performance"
)

// BenchmarkService compares the portfolio against market indices and runs DCA simulations.
type BenchmarkService struct {
	valuation      *ValuationService
	prices         PriceSource
	defaultSymbols []string
	defaultPrimary string
	logger         *zap.Logger
	now            func() time.Time
}

// NewBenchmarkService creates a new BenchmarkService.
// defaultSymbols and defaultPrimary are used when a comparison request names none.
func NewBenchmarkService(
	valuation *ValuationService,
	prices PriceSource,
	defaultSymbols []string,
	defaultPrimary string,
	logger *zap.Logger,
) *BenchmarkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BenchmarkService{
		valuation:      valuation,
		prices:         prices,
		defaultSymbols: defaultSymbols,
		defaultPrimary: strings.ToUpper(strings.TrimSpace(defaultPrimary)),
		logger:         logger,
		now:            time.Now,
	}
}

// Compare measures the portfolio against each benchmark symbol over the window
// from the first transaction date to endDate (today when zero).
//
// The portfolio side reports the geometric TWR, Modified Dietz and the simple
// return against peak invested capital. Each benchmark reports its lump-sum
// return and a replay of the portfolio's own cash flows into the benchmark.
// Benchmarks are computed concurrently, one goroutine per symbol.
//
// Alpha = portfolio TWR - primary lump-sum return.
// CashFlowAlpha = portfolio simple return - primary cash-flow-weighted return.
//
// An empty ledger yields a zeroed result with empty dates and no benchmarks.
// A benchmark whose prices cannot be loaded is reported with zero returns;
// only cancellation of ctx aborts the comparison.
func (s *BenchmarkService) Compare(ctx context.Context, symbols []string, primary string, endDate time.Time) (*model.BenchmarkComparisonResult, error) {
	symbols, primary = s.resolveSymbols(symbols, primary)
	if endDate.IsZero() {
		endDate = s.now()
	}
	endDate = model.Day(endDate)

	result := &model.BenchmarkComparisonResult{
		Portfolio:        zeroPortfolioPerformance(),
		Benchmarks:       []model.BenchmarkResult{},
		PrimaryBenchmark: primary,
		Alpha:            decimal.Zero,
		CashFlowAlpha:    decimal.Zero,
	}

	values, err := s.valuation.CalculateDailyValuesThrough(ctx, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate daily values: %w", err)
	}
	if len(values) == 0 {
		return result, nil
	}

	start := values[0].Date
	end := values[len(values)-1].Date
	result.StartDate = start.Format("2006-01-02")
	result.EndDate = end.Format("2006-01-02")

	result.Portfolio = model.PortfolioPerformance{
		TWR:           performance.GeometricTWR(values),
		ModifiedDietz: performance.ModifiedDietz(values),
		SimpleReturn:  performance.SimpleReturn(values),
		FinalValue:    values[len(values)-1].MarketValue,
	}

	// A week of lead-in gives a start date on a weekend or holiday a prior close.
	priceStart := start.AddDate(0, 0, -7)

	benchmarks := make([]model.BenchmarkResult, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	for i, symbol := range symbols {
		g.Go(func() error {
			prices, err := loadSeries(gctx, s.prices, s.logger, symbol, priceStart, end)
			if err != nil {
				return err
			}
			if len(prices) == 0 {
				s.logger.Warn("no benchmark prices", zap.String("symbol", symbol))
			}
			benchmarks[i] = benchmarkResult(symbol, prices, values, start, end)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("benchmark comparison interrupted: %w", err)
	}
	result.Benchmarks = benchmarks

	for _, b := range benchmarks {
		if b.Symbol != primary {
			continue
		}
		result.Alpha = result.Portfolio.TWR.CumulativeReturn.Sub(b.LumpSumReturn)
		result.CashFlowAlpha = result.Portfolio.SimpleReturn.Return.Sub(b.CashFlowWeighted.Return)
	}

	return result, nil
}

// DCA simulates investing amount into symbol every frequency stride between start and end.
//
// Returns apperrors.ErrInvalidDateRange when end is before start and
// apperrors.ErrMissingRequiredField when symbol is empty or amount is not positive.
func (s *BenchmarkService) DCA(ctx context.Context, symbol string, amount decimal.Decimal, frequency model.DCAFrequency, start, end time.Time) (*model.DCAResult, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" || !amount.IsPositive() {
		return nil, apperrors.ErrMissingRequiredField
	}
	if end.IsZero() {
		end = s.now()
	}
	start, end = model.Day(start), model.Day(end)
	if end.Before(start) {
		return nil, apperrors.ErrInvalidDateRange
	}

	prices, err := loadSeries(ctx, s.prices, s.logger, symbol, start.AddDate(0, 0, -7), end)
	if err != nil {
		return nil, err
	}

	result := performance.SimulateDCA(prices, amount, frequency, start, end)
	result.Symbol = symbol
	return &result, nil
}

func (s *BenchmarkService) resolveSymbols(symbols []string, primary string) ([]string, string) {
	if len(symbols) == 0 {
		symbols = s.defaultSymbols
	}

	seen := make(map[string]bool, len(symbols))
	resolved := make([]string, 0, len(symbols)+1)
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		resolved = append(resolved, sym)
	}

	primary = strings.ToUpper(strings.TrimSpace(primary))
	if primary == "" {
		primary = s.defaultPrimary
		if !seen[primary] && len(resolved) > 0 {
			primary = resolved[0]
		}
	}
	if primary != "" && !seen[primary] {
		resolved = append(resolved, primary)
	}
	return resolved, primary
}

func benchmarkResult(symbol string, prices []model.HistoricalPrice, values []model.DailyPortfolioValue, start, end time.Time) model.BenchmarkResult {
	startPrice, endPrice, lumpSum := performance.LumpSumReturn(prices, start, end)
	return model.BenchmarkResult{
		Symbol:           symbol,
		StartPrice:       startPrice,
		EndPrice:         endPrice,
		LumpSumReturn:    lumpSum,
		CashFlowWeighted: performance.CashFlowWeightedBenchmark(values, prices),
	}
}

func zeroPortfolioPerformance() model.PortfolioPerformance {
	return model.PortfolioPerformance{
		TWR:           performance.GeometricTWR(nil),
		ModifiedDietz: decimal.Zero,
		SimpleReturn:  performance.SimpleReturn(nil),
		FinalValue:    decimal.Zero,
	}
}
