package request

import "github.com/shopspring/decimal"

// CreateTransactionRequest is the body of POST /api/transaction.
// Amounts accept JSON numbers or strings; strings keep full decimal precision.
type CreateTransactionRequest struct {
	Date     string           `json:"date"`
	Symbol   string           `json:"symbol"`
	Type     string           `json:"type"`
	Quantity *decimal.Decimal `json:"quantity,omitempty"`
	Price    *decimal.Decimal `json:"price,omitempty"`
	Fees     *decimal.Decimal `json:"fees,omitempty"`
}
