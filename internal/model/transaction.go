package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CashSymbol is the pseudo-symbol used for pure cash events (deposits, interest, fees).
// Transactions on it move the cash balance but never feed a cost-basis calculator.
const CashSymbol = "USD"

// TransactionType is the kind of ledger event a Transaction records.
type TransactionType string

// Supported transaction types.
const (
	TransactionTypeBuy      TransactionType = "BUY"
	TransactionTypeSell     TransactionType = "SELL"
	TransactionTypeDividend TransactionType = "DIVIDEND"
	TransactionTypeInterest TransactionType = "INTEREST"
	TransactionTypeFee      TransactionType = "FEE"
	TransactionTypeTransfer TransactionType = "TRANSFER"
)

// TransactionTypes lists every valid TransactionType in a stable order.
var TransactionTypes = []TransactionType{
	TransactionTypeBuy,
	TransactionTypeSell,
	TransactionTypeDividend,
	TransactionTypeInterest,
	TransactionTypeFee,
	TransactionTypeTransfer,
}

// Valid reports whether t is one of the supported transaction types.
func (t TransactionType) Valid() bool {
	for _, v := range TransactionTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Transaction is a normalized, broker-agnostic ledger entry.
//
// For BUY and SELL the direction comes from Type, never from the sign of Quantity:
// calculators always consume Quantity as a positive magnitude. For cash-only events
// (DIVIDEND, INTEREST, FEE, TRANSFER) Quantity is usually zero and Price carries the
// cash amount. TRANSFER amounts are signed (positive deposit, negative withdrawal).
type Transaction struct {
	ID        string          `json:"id"`
	Date      time.Time       `json:"date"`
	Symbol    string          `json:"symbol"`
	Type      TransactionType `json:"type"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Fees      decimal.Decimal `json:"fees"`
	CreatedAt time.Time       `json:"createdAt,omitempty"`
}

// Shares returns the absolute quantity of the transaction.
func (t Transaction) Shares() decimal.Decimal {
	return t.Quantity.Abs()
}

// GrossAmount returns quantity times price using the share magnitude.
func (t Transaction) GrossAmount() decimal.Decimal {
	return t.Shares().Mul(t.Price)
}

// CashAmount returns the cash carried by the transaction: Price when Quantity is zero,
// otherwise Quantity × Price.
func (t Transaction) CashAmount() decimal.Decimal {
	if t.Quantity.IsZero() {
		return t.Price
	}
	return t.Quantity.Mul(t.Price)
}

// IsCash reports whether the transaction is booked against the cash pseudo-symbol.
func (t Transaction) IsCash() bool {
	return t.Symbol == CashSymbol
}

// TransactionWithPL is a transaction annotated with the realized result of a SELL.
// RealizedPL and ReturnPct are nil for every other transaction type.
type TransactionWithPL struct {
	Transaction
	RealizedPL *decimal.Decimal `json:"realizedPL,omitempty"`
	CostBasis  *decimal.Decimal `json:"costBasis,omitempty"`
	ReturnPct  *float64         `json:"returnPct,omitempty"`
}

// SymbolTransactionSummary is the per-symbol transaction history annotated with
// realized P/L and return percentage for each SELL.
type SymbolTransactionSummary struct {
	Symbol          string              `json:"symbol"`
	Method          string              `json:"method"`
	Transactions    []TransactionWithPL `json:"transactions"`
	TotalShares     decimal.Decimal     `json:"totalShares"`
	TotalCostBasis  decimal.Decimal     `json:"totalCostBasis"`
	AverageCost     decimal.Decimal     `json:"averageCost"`
	TotalRealizedPL decimal.Decimal     `json:"totalRealizedPL"`
	Error           string              `json:"error,omitempty"`
}

// ImportResult reports the outcome of a CSV transaction import.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Total    int `json:"total"`
}
