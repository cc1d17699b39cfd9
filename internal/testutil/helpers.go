package testutil

import (
	"context"
	"database/sql"
	"errors"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/calculator"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/repository"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/service"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/yahoo"
)

// NewTestMarketDataService wires a MarketDataService over db and the given Yahoo client.
func NewTestMarketDataService(t *testing.T, db *sql.DB, client yahoo.Client) *service.MarketDataService {
	t.Helper()

	return service.NewMarketDataService(
		repository.NewPriceRepository(db),
		repository.NewAssetRepository(db),
		client,
		nil,
		2,
		zaptest.NewLogger(t),
	)
}

// NewTestValuationService wires a FIFO ValuationService over the transaction table of db.
func NewTestValuationService(t *testing.T, db *sql.DB, prices service.PriceSource) *service.ValuationService {
	t.Helper()

	return service.NewValuationService(
		repository.NewTransactionRepository(db),
		prices,
		calculator.MethodFIFO,
		zaptest.NewLogger(t),
	)
}

// NewTestSnapshotService wires a SnapshotService over db.
func NewTestSnapshotService(t *testing.T, db *sql.DB, prices service.PriceSource) *service.SnapshotService {
	t.Helper()

	return service.NewSnapshotService(
		NewTestValuationService(t, db, prices),
		repository.NewDailyValueRepository(db),
		zaptest.NewLogger(t),
	)
}

// NewTestTransactionService wires a TransactionService whose mutations rebuild
// snapshots priced from prices. A nil prices disables the rebuild.
func NewTestTransactionService(t *testing.T, db *sql.DB, prices service.PriceSource) *service.TransactionService {
	t.Helper()

	var snapshots *service.SnapshotService
	if prices != nil {
		snapshots = NewTestSnapshotService(t, db, prices)
	}
	return service.NewTransactionService(
		repository.NewTransactionRepository(db),
		snapshots,
		zaptest.NewLogger(t),
	)
}

// NewTestBenchmarkService wires a BenchmarkService with SPY as the only default benchmark.
func NewTestBenchmarkService(t *testing.T, db *sql.DB, prices service.PriceSource) *service.BenchmarkService {
	t.Helper()

	return service.NewBenchmarkService(
		NewTestValuationService(t, db, prices),
		prices,
		[]string{"SPY"},
		"SPY",
		zaptest.NewLogger(t),
	)
}

// NewTestPortfolioService wires a FIFO PortfolioService; asset types come from assets.
func NewTestPortfolioService(t *testing.T, db *sql.DB, prices service.LatestPriceSource, assets service.AssetTypeLookup) *service.PortfolioService {
	t.Helper()

	return service.NewPortfolioService(
		repository.NewTransactionRepository(db),
		prices,
		assets,
		calculator.MethodFIFO,
		zaptest.NewLogger(t),
	)
}

// NewTestReportService wires a ReportService over db.
func NewTestReportService(t *testing.T, db *sql.DB, assets service.AssetTypeLookup) *service.ReportService {
	t.Helper()

	return service.NewReportService(repository.NewTransactionRepository(db), assets, zaptest.NewLogger(t))
}

// NewTestAnalyticsService wires an AnalyticsService whose daily bars and
// latest prices both come from prices.
func NewTestAnalyticsService(t *testing.T, db *sql.DB, prices *StaticPriceSource) *service.AnalyticsService {
	t.Helper()

	return service.NewAnalyticsService(repository.NewTransactionRepository(db), prices, prices, zaptest.NewLogger(t))
}

// NewTestSystemService wires a SystemService whose refresh goes through a
// MarketDataService backed by client.
func NewTestSystemService(t *testing.T, db *sql.DB, client yahoo.Client) *service.SystemService {
	t.Helper()

	market := NewTestMarketDataService(t, db, client)
	return service.NewSystemService(
		db,
		repository.NewTransactionRepository(db),
		market,
		NewTestSnapshotService(t, db, market),
		[]string{"SPY"},
		7,
		zaptest.NewLogger(t),
	)
}

// MakeID returns a fresh UUID string.
func MakeID() string {
	return uuid.New().String()
}

// MakeSymbol returns base followed by a random suffix, e.g. "TEST4KQ".
func MakeSymbol(base string) string {
	return strings.ToUpper(base) + randomAlphanumeric(3)
}

func randomAlphanumeric(length int) string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))] //nolint:gosec // test data only
	}
	return string(b)
}

// D parses a decimal literal and panics on malformed input.
func D(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Date parses a "2006-01-02" literal as midnight UTC and panics on malformed input.
func Date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

// AssertDecimal fails the test when got is not numerically equal to want.
func AssertDecimal(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()

	if !got.Equal(D(want)) {
		t.Errorf("%s = %s, want %s", name, got.String(), want)
	}
}

// Prices builds bars for symbol from alternating date and close literals:
//
//	testutil.Prices("SPY", "2024-01-01", "100", "2024-01-02", "101")
func Prices(symbol string, dateClose ...string) []model.HistoricalPrice {
	if len(dateClose)%2 != 0 {
		panic("testutil.Prices needs date/close pairs")
	}
	prices := make([]model.HistoricalPrice, 0, len(dateClose)/2)
	for i := 0; i < len(dateClose); i += 2 {
		prices = append(prices, NewHistoricalPrice(symbol).OnDate(dateClose[i]).WithClose(dateClose[i+1]).Value())
	}
	return prices
}

// FlatPrices builds a bar for every calendar day from start for days days, all closing at closePrice.
func FlatPrices(symbol, start string, days int, closePrice string) []model.HistoricalPrice {
	first := Date(start)
	prices := make([]model.HistoricalPrice, 0, days)
	for i := 0; i < days; i++ {
		prices = append(prices, NewHistoricalPrice(symbol).
			OnDate(first.AddDate(0, 0, i).Format("2006-01-02")).
			WithClose(closePrice).
			Value())
	}
	return prices
}

// StaticPriceSource serves fixed price series keyed by symbol.
// It implements service.PriceSource and service.LatestPriceSource.
type StaticPriceSource struct {
	Series map[string][]model.HistoricalPrice
}

// NewStaticPriceSource indexes the given bars by symbol.
func NewStaticPriceSource(prices ...[]model.HistoricalPrice) *StaticPriceSource {
	s := &StaticPriceSource{Series: map[string][]model.HistoricalPrice{}}
	for _, series := range prices {
		for _, p := range series {
			s.Series[p.Symbol] = append(s.Series[p.Symbol], p)
		}
	}
	for symbol := range s.Series {
		sort.Slice(s.Series[symbol], func(i, j int) bool {
			return s.Series[symbol][i].Date.Before(s.Series[symbol][j].Date)
		})
	}
	return s
}

// GetHistoricalPrices returns the bars of symbol within [startDate, endDate].
func (s *StaticPriceSource) GetHistoricalPrices(_ context.Context, symbol string, startDate, endDate time.Time) ([]model.HistoricalPrice, error) {
	out := []model.HistoricalPrice{}
	for _, p := range s.Series[strings.ToUpper(symbol)] {
		if p.Date.Before(model.Day(startDate)) || p.Date.After(model.Day(endDate)) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// GetHistoricalPricesBatch returns GetHistoricalPrices for each symbol.
func (s *StaticPriceSource) GetHistoricalPricesBatch(ctx context.Context, symbols []string, startDate, endDate time.Time) (map[string][]model.HistoricalPrice, error) {
	out := make(map[string][]model.HistoricalPrice, len(symbols))
	for _, symbol := range symbols {
		prices, _ := s.GetHistoricalPrices(ctx, symbol, startDate, endDate)
		out[strings.ToUpper(symbol)] = prices
	}
	return out, nil
}

// GetLatestPrice returns the last bar of symbol or apperrors.ErrPriceNotFound.
func (s *StaticPriceSource) GetLatestPrice(_ context.Context, symbol string) (model.HistoricalPrice, error) {
	series := s.Series[strings.ToUpper(symbol)]
	if len(series) == 0 {
		return model.HistoricalPrice{}, apperrors.ErrPriceNotFound
	}
	return series[len(series)-1], nil
}

// ErrUpstreamDown is returned by FlakyPriceSource for failing symbols.
var ErrUpstreamDown = errors.New("upstream down")

// FlakyPriceSource serves a StaticPriceSource but fails every lookup of the
// symbols in Fail. A batch naming any failing symbol fails as a whole.
// LastBatchStart reports the window of the most recent batch lookup.
type FlakyPriceSource struct {
	*StaticPriceSource
	Fail map[string]bool

	mu          sync.Mutex
	batchStarts []time.Time
}

// NewFlakyPriceSource wraps prices and fails the given symbols.
func NewFlakyPriceSource(prices *StaticPriceSource, fail ...string) *FlakyPriceSource {
	f := &FlakyPriceSource{StaticPriceSource: prices, Fail: map[string]bool{}}
	for _, symbol := range fail {
		f.Fail[strings.ToUpper(symbol)] = true
	}
	return f
}

// GetHistoricalPrices fails for symbols in Fail and delegates otherwise.
func (f *FlakyPriceSource) GetHistoricalPrices(ctx context.Context, symbol string, startDate, endDate time.Time) ([]model.HistoricalPrice, error) {
	if f.Fail[strings.ToUpper(symbol)] {
		return nil, ErrUpstreamDown
	}
	return f.StaticPriceSource.GetHistoricalPrices(ctx, symbol, startDate, endDate)
}

// GetHistoricalPricesBatch fails when any symbol is in Fail and delegates otherwise.
func (f *FlakyPriceSource) GetHistoricalPricesBatch(ctx context.Context, symbols []string, startDate, endDate time.Time) (map[string][]model.HistoricalPrice, error) {
	f.mu.Lock()
	f.batchStarts = append(f.batchStarts, startDate)
	f.mu.Unlock()

	for _, symbol := range symbols {
		if f.Fail[strings.ToUpper(symbol)] {
			return nil, ErrUpstreamDown
		}
	}
	return f.StaticPriceSource.GetHistoricalPricesBatch(ctx, symbols, startDate, endDate)
}

// LastBatchStart returns the start date of the most recent batch lookup.
func (f *FlakyPriceSource) LastBatchStart() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.batchStarts) == 0 {
		return time.Time{}
	}
	return f.batchStarts[len(f.batchStarts)-1]
}

// StaticAssetTypes implements service.AssetTypeLookup from a fixed map.
// Unknown symbols are reported as model.AssetTypeUnknown.
type StaticAssetTypes map[string]string

// GetAssetType returns the configured type of symbol.
func (s StaticAssetTypes) GetAssetType(_ context.Context, symbol string) string {
	if t, ok := s[strings.ToUpper(symbol)]; ok {
		return t
	}
	return model.AssetTypeUnknown
}
