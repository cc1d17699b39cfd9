package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lot is the unconsumed remainder of a single BUY.
// CostBasisPerShare is fixed when the lot is created; only Quantity shrinks.
type Lot struct {
	SourceTransactionID string          `json:"sourceTransactionId"`
	PurchaseDate        time.Time       `json:"purchaseDate"`
	Quantity            decimal.Decimal `json:"quantity"`
	CostBasisPerShare   decimal.Decimal `json:"costBasisPerShare"`
}

// CostBasis returns the remaining cost basis of the lot.
func (l Lot) CostBasis() decimal.Decimal {
	return l.Quantity.Mul(l.CostBasisPerShare)
}

// LotMatch is the audit record emitted for every lot a SELL consumes.
type LotMatch struct {
	Symbol              string          `json:"symbol"`
	SourceTransactionID string          `json:"sourceTransactionId"`
	SaleTransactionID   string          `json:"saleTransactionId"`
	Quantity            decimal.Decimal `json:"quantity"`
	CostBasisPerShare   decimal.Decimal `json:"costBasisPerShare"`
	SalePrice           decimal.Decimal `json:"salePrice"`
	ProratedFee         decimal.Decimal `json:"proratedFee"`
	RealizedPL          decimal.Decimal `json:"realizedPL"`
	PurchaseDate        time.Time       `json:"purchaseDate"`
	SaleDate            time.Time       `json:"saleDate"`
	HoldingDays         int             `json:"holdingDays"`
}

// PLResult is returned by a calculator for every processed transaction.
// MatchedLots is only populated by lot-based methods.
type PLResult struct {
	RealizedPL  decimal.Decimal `json:"realizedPL"`
	MatchedLots []LotMatch      `json:"matchedLots,omitempty"`
}

// CalculatorState is a serializable checkpoint of a calculator.
// Lots is empty for average-cost state.
type CalculatorState struct {
	Method          string          `json:"method"`
	TotalShares     decimal.Decimal `json:"totalShares"`
	TotalCostBasis  decimal.Decimal `json:"totalCostBasis"`
	TotalRealizedPL decimal.Decimal `json:"totalRealizedPL"`
	Lots            []Lot           `json:"lots,omitempty"`
}
