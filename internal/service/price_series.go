package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/performance"
)

// loadSeries returns the price series of symbol sorted ascending by date.
//
// A lookup that fails for any reason other than ctx ending is logged and
// yields an empty series, so one bad symbol values at zero instead of failing
// the caller. The only error returned is ctx.Err().
func loadSeries(ctx context.Context, source PriceSource, logger *zap.Logger, symbol string, startDate, endDate time.Time) ([]model.HistoricalPrice, error) {
	prices, err := source.GetHistoricalPrices(ctx, symbol, startDate, endDate)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Warn("price lookup failed, using an empty series",
			zap.String("symbol", symbol),
			zap.Time("start", startDate),
			zap.Time("end", endDate),
			zap.Error(err),
		)
		return []model.HistoricalPrice{}, nil
	}
	if prices == nil {
		return []model.HistoricalPrice{}, nil
	}
	performance.SortPrices(prices)
	return prices, nil
}

// loadSeriesBatch returns the sorted series of every symbol. When the batch
// lookup fails the symbols are looked up one at a time through loadSeries,
// so only the failing symbols end up with an empty series.
func loadSeriesBatch(ctx context.Context, source PriceSource, logger *zap.Logger, symbols []string, startDate, endDate time.Time) (map[string][]model.HistoricalPrice, error) {
	batch, err := source.GetHistoricalPricesBatch(ctx, symbols, startDate, endDate)
	if err == nil {
		for _, prices := range batch {
			performance.SortPrices(prices)
		}
		return batch, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	logger.Warn("batch price lookup failed, loading symbols one at a time",
		zap.Strings("symbols", symbols),
		zap.Error(err),
	)
	out := make(map[string][]model.HistoricalPrice, len(symbols))
	for _, symbol := range symbols {
		prices, err := loadSeries(ctx, source, logger, symbol, startDate, endDate)
		if err != nil {
			return nil, err
		}
		out[symbol] = prices
	}
	return out, nil
}
