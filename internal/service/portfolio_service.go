package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/calculator"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
)

// latestPriceConcurrency bounds concurrent latest-price lookups for the summary.
const latestPriceConcurrency = 4

// PortfolioService values the current portfolio.
type PortfolioService struct {
	transactions TransactionSource
	prices       LatestPriceSource
	assets       AssetTypeLookup
	method       calculator.Method
	logger       *zap.Logger
}

// NewPortfolioService creates a new PortfolioService.
func NewPortfolioService(
	transactions TransactionSource,
	prices LatestPriceSource,
	assets AssetTypeLookup,
	method calculator.Method,
	logger *zap.Logger,
) *PortfolioService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if method == "" {
		method = calculator.MethodFIFO
	}
	return &PortfolioService{
		transactions: transactions,
		prices:       prices,
		assets:       assets,
		method:       method,
		logger:       logger,
	}
}

// GetSummary replays the ledger per symbol and values every open position at
// its latest close.
//
// TotalValue is the market value of securities; the cash balance is reported
// separately. TotalPL is realized plus unrealized P/L and TotalPLPercent is
// TotalPL over the open cost basis in percent, 0 when nothing is held.
// A position without a price is valued at 0 and noted in Errors.
//
// Returns an error only when transactions cannot be loaded.
func (s *PortfolioService) GetSummary(ctx context.Context) (*model.PortfolioSummary, error) {
	txs, err := s.transactions.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	SortTransactions(txs)

	summary := &model.PortfolioSummary{
		Holdings:          []model.Holding{},
		TotalValue:        decimal.Zero,
		TotalCost:         decimal.Zero,
		TotalRealizedPL:   decimal.Zero,
		TotalUnrealizedPL: decimal.Zero,
		TotalPL:           decimal.Zero,
		CashBalance:       decimal.Zero,
	}

	for _, tx := range txs {
		cash, _ := CashEffect(tx)
		summary.CashBalance = summary.CashBalance.Add(cash)
	}

	bySymbol := groupBySymbol(txs)
	for _, symbol := range sortedKeys(bySymbol) {
		calc, err := calculator.New(s.method, s.logger)
		if err != nil {
			return nil, err
		}
		if _, err := calculator.Replay(calc, bySymbol[symbol]); err != nil {
			s.logger.Warn("summary replay stopped", zap.String("symbol", symbol), zap.Error(err))
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", symbol, err))
		}

		summary.TotalRealizedPL = summary.TotalRealizedPL.Add(calc.TotalRealizedPL())
		shares := calc.TotalShares()
		if !shares.IsPositive() {
			continue
		}
		summary.Holdings = append(summary.Holdings, model.Holding{
			Symbol:      symbol,
			Quantity:    shares,
			AverageCost: calc.TotalCostBasis().Div(shares),
			CostBasis:   calc.TotalCostBasis(),
			RealizedPL:  calc.TotalRealizedPL(),
		})
	}

	missing := s.priceHoldings(ctx, summary.Holdings)
	for _, symbol := range missing {
		summary.Errors = append(summary.Errors, fmt.Sprintf("%s: no price available", symbol))
	}

	for _, h := range summary.Holdings {
		summary.TotalValue = summary.TotalValue.Add(h.MarketValue)
		summary.TotalCost = summary.TotalCost.Add(h.CostBasis)
	}
	summary.TotalUnrealizedPL = summary.TotalValue.Sub(summary.TotalCost)
	summary.TotalPL = summary.TotalRealizedPL.Add(summary.TotalUnrealizedPL)
	if summary.TotalCost.IsPositive() {
		summary.TotalPLPercent = summary.TotalPL.Div(summary.TotalCost).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	}

	return summary, nil
}

// priceHoldings fills price, value, unrealized P/L and asset type of each
// holding in place and returns the symbols that had no price.
func (s *PortfolioService) priceHoldings(ctx context.Context, holdings []model.Holding) []string {
	var mu sync.Mutex
	missing := []string{}

	var g errgroup.Group
	g.SetLimit(latestPriceConcurrency)
	for i := range holdings {
		h := &holdings[i]
		g.Go(func() error {
			h.AssetType = model.AssetTypeUnknown
			if s.assets != nil {
				h.AssetType = s.assets.GetAssetType(ctx, h.Symbol)
			}

			h.CurrentPrice = decimal.Zero
			if latest, err := s.prices.GetLatestPrice(ctx, h.Symbol); err == nil {
				h.CurrentPrice = latest.Close
			} else {
				mu.Lock()
				missing = append(missing, h.Symbol)
				mu.Unlock()
			}
			h.MarketValue = h.Quantity.Mul(h.CurrentPrice)
			h.UnrealizedPL = h.MarketValue.Sub(h.CostBasis)
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(missing)
	return missing
}
