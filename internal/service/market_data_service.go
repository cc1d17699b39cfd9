package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/repository"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/yahoo"
)

// DefaultSymbolAliases maps friendly names to Yahoo tickers.
var DefaultSymbolAliases = map[string]string{
	"US10Y": "^TNX",
	"US2Y":  "^IRX",
	"US30Y": "^TYX",
	"VIX":   "^VIX",
	"DXY":   "DX-Y.NYB",
	"GOLD":  "GC=F",
	"OIL":   "CL=F",
	"BTC":   "BTC-USD",
	"ETH":   "ETH-USD",
}

const (
	// tradingDaysPerYear and cacheCoverage drive the cache completeness heuristic:
	// a range is served from cache when it holds at least 60% of the expected trading days.
	tradingDaysPerYear = 252
	cacheCoverage      = 0.6

	defaultFetchConcurrency = 4
)

// MarketDataService serves daily price history from the sqlite cache, falling
// back to Yahoo Finance when the cache looks incomplete.
//
// Concurrent misses for the same symbol and range share one upstream request.
// Upstream failures never surface as errors: callers get whatever the cache
// holds, possibly an empty series.
type MarketDataService struct {
	priceRepo   *repository.PriceRepository
	assetRepo   *repository.AssetRepository
	client      yahoo.Client
	aliases     map[string]string
	concurrency int
	logger      *zap.Logger
	group       singleflight.Group
}

// NewMarketDataService creates a new MarketDataService.
// aliases override or extend DefaultSymbolAliases; a non-positive concurrency selects the default of 4.
func NewMarketDataService(
	priceRepo *repository.PriceRepository,
	assetRepo *repository.AssetRepository,
	client yahoo.Client,
	aliases map[string]string,
	concurrency int,
	logger *zap.Logger,
) *MarketDataService {
	merged := make(map[string]string, len(DefaultSymbolAliases)+len(aliases))
	for k, v := range DefaultSymbolAliases {
		merged[k] = v
	}
	for k, v := range aliases {
		merged[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	if concurrency <= 0 {
		concurrency = defaultFetchConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarketDataService{
		priceRepo:   priceRepo,
		assetRepo:   assetRepo,
		client:      client,
		aliases:     merged,
		concurrency: concurrency,
		logger:      logger,
	}
}

// NormalizeSymbol upper-cases symbol and resolves friendly aliases to Yahoo tickers.
func (s *MarketDataService) NormalizeSymbol(symbol string) string {
	upper := strings.ToUpper(strings.TrimSpace(symbol))
	if alias, ok := s.aliases[upper]; ok {
		return alias
	}
	return upper
}

// GetHistoricalPrices returns daily bars for symbol with startDate <= date <= endDate.
//
// The cache is consulted first. When it holds fewer bars than the completeness
// heuristic expects, the range is fetched from Yahoo, persisted and re-read.
// A failed fetch falls back to the cached bars.
//
// Returns:
//   - []model.HistoricalPrice: bars sorted by date, never nil
//   - error: only when ctx is cancelled or the cache cannot be read
func (s *MarketDataService) GetHistoricalPrices(ctx context.Context, symbol string, startDate, endDate time.Time) ([]model.HistoricalPrice, error) {
	resolved := s.NormalizeSymbol(symbol)
	startDate, endDate = model.Day(startDate), model.Day(endDate)
	if resolved == "" || resolved == model.CashSymbol || endDate.Before(startDate) {
		return []model.HistoricalPrice{}, nil
	}

	cached, err := s.priceRepo.GetHistoricalPrices(ctx, resolved, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to read price cache for %s: %w", resolved, err)
	}
	if cacheComplete(len(cached), startDate, endDate) {
		return cached, nil
	}

	key := resolved + "|" + startDate.Format("2006-01-02") + "|" + endDate.Format("2006-01-02")
	v, err, shared := s.group.Do(key, func() (any, error) {
		return s.fetchAndStore(ctx, resolved, startDate, endDate)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.Warn("price fetch failed, serving cached prices",
			zap.String("symbol", resolved),
			zap.Time("start", startDate),
			zap.Time("end", endDate),
			zap.Int("cached", len(cached)),
			zap.Error(err),
		)
		return cached, nil
	}
	if shared {
		s.logger.Debug("shared in-flight price fetch", zap.String("symbol", resolved))
	}

	prices := v.([]model.HistoricalPrice)
	out := make([]model.HistoricalPrice, len(prices))
	copy(out, prices)
	return out, nil
}

// GetHistoricalPricesBatch fetches several symbols concurrently, bounded by the
// configured concurrency. The result is keyed by the upper-cased input symbol.
func (s *MarketDataService) GetHistoricalPricesBatch(ctx context.Context, symbols []string, startDate, endDate time.Time) (map[string][]model.HistoricalPrice, error) {
	result := make(map[string][]model.HistoricalPrice, len(symbols))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	seen := make(map[string]bool, len(symbols))
	for _, symbol := range symbols {
		key := strings.ToUpper(strings.TrimSpace(symbol))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		g.Go(func() error {
			prices, err := s.GetHistoricalPrices(gctx, key, startDate, endDate)
			if err != nil {
				return err
			}
			mu.Lock()
			result[key] = prices
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to fetch price batch: %w", err)
	}
	return result, nil
}

// GetPriceHistory wraps GetHistoricalPrices in the API response shape.
func (s *MarketDataService) GetPriceHistory(ctx context.Context, symbol string, startDate, endDate time.Time) (model.PriceHistory, error) {
	prices, err := s.GetHistoricalPrices(ctx, symbol, startDate, endDate)
	if err != nil {
		return model.PriceHistory{}, err
	}
	return model.PriceHistory{Symbol: s.NormalizeSymbol(symbol), Prices: prices}, nil
}

// GetLatestPrice returns the most recent daily bar of symbol.
// Yahoo's last five trading days are fetched and cached; on failure the newest
// cached bar is used. Returns apperrors.ErrPriceNotFound when neither has data.
func (s *MarketDataService) GetLatestPrice(ctx context.Context, symbol string) (model.HistoricalPrice, error) {
	resolved := s.NormalizeSymbol(symbol)
	if resolved == "" || resolved == model.CashSymbol {
		return model.HistoricalPrice{}, apperrors.ErrPriceNotFound
	}

	chart, err := s.fetchRecent(ctx, resolved)
	if err == nil && len(chart.Indicators) > 0 {
		prices := chart.HistoricalPrices(resolved)
		if err := s.priceRepo.UpsertPrices(ctx, prices); err != nil {
			s.logger.Warn("failed to cache latest prices", zap.String("symbol", resolved), zap.Error(err))
		}
		return prices[len(prices)-1], nil
	}
	if err != nil {
		s.logger.Warn("latest price fetch failed, using cache", zap.String("symbol", resolved), zap.Error(err))
	}

	latest, cacheErr := s.priceRepo.GetLatestPrice(ctx, resolved)
	if cacheErr != nil {
		return model.HistoricalPrice{}, cacheErr
	}
	return latest, nil
}

// GetAssetType classifies symbol from the asset_info cache or, on a miss, from
// the instrument type Yahoo reports. Anything that is neither an equity nor an
// ETF, and every lookup failure, is model.AssetTypeUnknown. Failures are not cached.
func (s *MarketDataService) GetAssetType(ctx context.Context, symbol string) string {
	resolved := s.NormalizeSymbol(symbol)
	if resolved == "" || resolved == model.CashSymbol {
		return model.AssetTypeUnknown
	}

	info, err := s.assetRepo.GetAssetInfo(ctx, resolved)
	if err == nil {
		return info.AssetType
	}
	if !errors.Is(err, apperrors.ErrSymbolNotFound) {
		s.logger.Warn("failed to read asset info", zap.String("symbol", resolved), zap.Error(err))
	}

	chart, err := s.fetchRecent(ctx, resolved)
	if err != nil {
		s.logger.Warn("asset type lookup failed", zap.String("symbol", resolved), zap.Error(err))
		return model.AssetTypeUnknown
	}

	return s.storeAssetInfo(ctx, resolved, chart)
}

// RefreshPrices re-fetches the last days calendar days of every symbol and
// writes them to the cache, bypassing the completeness heuristic.
//
// Returns:
//   - int: number of symbols refreshed successfully
//   - []string: symbols whose fetch failed
//   - error: only when ctx is cancelled
func (s *MarketDataService) RefreshPrices(ctx context.Context, symbols []string, days int) (int, []string, error) {
	end := model.Day(time.Now())
	start := end.AddDate(0, 0, -days)

	var mu sync.Mutex
	refreshed := 0
	failed := []string{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	seen := make(map[string]bool, len(symbols))
	for _, symbol := range symbols {
		resolved := s.NormalizeSymbol(symbol)
		if resolved == "" || resolved == model.CashSymbol || seen[resolved] {
			continue
		}
		seen[resolved] = true

		g.Go(func() error {
			_, err := s.fetchAndStore(gctx, resolved, start, end)
			if ctxErr := gctx.Err(); ctxErr != nil {
				return ctxErr
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Warn("price refresh failed", zap.String("symbol", resolved), zap.Error(err))
				failed = append(failed, resolved)
				return nil
			}
			refreshed++
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return refreshed, failed, fmt.Errorf("price refresh interrupted: %w", err)
	}
	return refreshed, failed, nil
}

// fetchAndStore downloads the range from Yahoo, persists it and returns the
// cached bars for the range.
func (s *MarketDataService) fetchAndStore(ctx context.Context, symbol string, startDate, endDate time.Time) ([]model.HistoricalPrice, error) {
	resp, err := s.client.QueryYahooSymbolByDateRange(ctx, symbol, startDate, endDate)
	if err != nil {
		return nil, err
	}
	chart, err := s.client.ParseChart(resp)
	if err != nil {
		return nil, err
	}

	inRange := make([]model.HistoricalPrice, 0, len(chart.Indicators))
	for _, p := range chart.HistoricalPrices(symbol) {
		if p.Date.Before(startDate) || p.Date.After(endDate) {
			continue
		}
		inRange = append(inRange, p)
	}

	if err := s.priceRepo.UpsertPrices(ctx, inRange); err != nil {
		return nil, err
	}
	s.storeAssetInfo(ctx, symbol, chart)

	s.logger.Debug("fetched prices",
		zap.String("symbol", symbol),
		zap.Int("bars", len(inRange)),
	)

	return s.priceRepo.GetHistoricalPrices(ctx, symbol, startDate, endDate)
}

func (s *MarketDataService) fetchRecent(ctx context.Context, symbol string) (yahoo.PriceChart, error) {
	resp, err := s.client.QueryYahooFiveDaySymbol(ctx, symbol)
	if err != nil {
		return yahoo.PriceChart{}, err
	}
	return s.client.ParseChart(resp)
}

// storeAssetInfo caches the asset type found in chart metadata and returns it.
func (s *MarketDataService) storeAssetInfo(ctx context.Context, symbol string, chart yahoo.PriceChart) string {
	assetType := classifyInstrument(chart.InstrumentType)
	if chart.InstrumentType == "" {
		return assetType
	}

	name := chart.LongName
	if name == "" {
		name = chart.Shortname
	}
	err := s.assetRepo.UpsertAssetInfo(ctx, model.AssetInfo{
		Symbol:    symbol,
		AssetType: assetType,
		Name:      name,
		Currency:  chart.Currency,
	})
	if err != nil {
		s.logger.Warn("failed to cache asset info", zap.String("symbol", symbol), zap.Error(err))
	}
	return assetType
}

func classifyInstrument(instrumentType string) string {
	switch strings.ToUpper(instrumentType) {
	case model.AssetTypeEquity:
		return model.AssetTypeEquity
	case model.AssetTypeETF:
		return model.AssetTypeETF
	default:
		return model.AssetTypeUnknown
	}
}

// cacheComplete reports whether count cached bars plausibly cover the range.
func cacheComplete(count int, startDate, endDate time.Time) bool {
	if count == 0 {
		return false
	}
	calendarDays := int(endDate.Sub(startDate).Hours()/24) + 1
	expected := float64(calendarDays) * tradingDaysPerYear / 365
	return float64(count) >= expected*cacheCoverage
}
