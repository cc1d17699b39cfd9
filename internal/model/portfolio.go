package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyPortfolioValue is the portfolio snapshot at the close of one transaction date.
//
// MarketValue includes the cash balance. CashFlow is the net capital moved into the
// strategy on that date (positive inflow). RealizedPL is cumulative, not a daily delta.
type DailyPortfolioValue struct {
	Date        time.Time       `json:"date"`
	MarketValue decimal.Decimal `json:"marketValue"`
	CashFlow    decimal.Decimal `json:"cashFlow"`
	CostBasis   decimal.Decimal `json:"costBasis"`
	RealizedPL  decimal.Decimal `json:"realizedPL"`
	CashBalance decimal.Decimal `json:"cashBalance"`
}

// SecuritiesValue returns the market value excluding cash.
func (v DailyPortfolioValue) SecuritiesValue() decimal.Decimal {
	return v.MarketValue.Sub(v.CashBalance)
}

// UnrealizedPL returns the open profit or loss on securities at this snapshot.
func (v DailyPortfolioValue) UnrealizedPL() decimal.Decimal {
	return v.SecuritiesValue().Sub(v.CostBasis)
}

// Holding is the current open position in one symbol.
type Holding struct {
	Symbol       string          `json:"symbol"`
	Quantity     decimal.Decimal `json:"quantity"`
	AverageCost  decimal.Decimal `json:"averageCost"`
	CurrentPrice decimal.Decimal `json:"currentPrice"`
	MarketValue  decimal.Decimal `json:"marketValue"`
	CostBasis    decimal.Decimal `json:"costBasis"`
	UnrealizedPL decimal.Decimal `json:"unrealizedPL"`
	RealizedPL   decimal.Decimal `json:"realizedPL"`
	AssetType    string          `json:"assetType"`
}

// PortfolioSummary is the current valuation of the whole ledger.
// TotalPLPercent is a display value: total P/L over current cost basis, in percent.
type PortfolioSummary struct {
	Holdings          []Holding       `json:"holdings"`
	TotalValue        decimal.Decimal `json:"totalValue"`
	TotalCost         decimal.Decimal `json:"totalCost"`
	TotalPL           decimal.Decimal `json:"totalPL"`
	TotalPLPercent    float64         `json:"totalPLPercent"`
	TotalRealizedPL   decimal.Decimal `json:"totalRealizedPL"`
	TotalUnrealizedPL decimal.Decimal `json:"totalUnrealizedPL"`
	CashBalance       decimal.Decimal `json:"cashBalance"`
	Errors            []string        `json:"errors,omitempty"`
}
