package service

import (
	"context"
	"time"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
)

// TransactionSource supplies ledger transactions. Implemented by repository.TransactionRepository.
type TransactionSource interface {
	FindAll(ctx context.Context) ([]model.Transaction, error)
	FindBySymbol(ctx context.Context, symbol string) ([]model.Transaction, error)
	GetAllSymbols(ctx context.Context) ([]string, error)
}

// PriceSource supplies daily price history. Implemented by MarketDataService.
// Missing data is an empty series, not an error.
type PriceSource interface {
	GetHistoricalPrices(ctx context.Context, symbol string, startDate, endDate time.Time) ([]model.HistoricalPrice, error)
	GetHistoricalPricesBatch(ctx context.Context, symbols []string, startDate, endDate time.Time) (map[string][]model.HistoricalPrice, error)
}

// LatestPriceSource supplies the most recent close of a symbol.
type LatestPriceSource interface {
	GetLatestPrice(ctx context.Context, symbol string) (model.HistoricalPrice, error)
}

// AssetTypeLookup classifies a symbol as EQUITY, ETF or UNKNOWN.
type AssetTypeLookup interface {
	GetAssetType(ctx context.Context, symbol string) string
}
