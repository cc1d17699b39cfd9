package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Asset types reported by the asset-type lookup.
const (
	AssetTypeEquity  = "EQUITY"
	AssetTypeETF     = "ETF"
	AssetTypeUnknown = "UNKNOWN"
)

// HistoricalPrice is one daily bar of a symbol's price history.
type HistoricalPrice struct {
	Symbol string          `json:"symbol"`
	Date   time.Time       `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// AssetInfo is the cached metadata of a symbol.
type AssetInfo struct {
	Symbol    string    `json:"symbol"`
	AssetType string    `json:"assetType"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PriceHistory is the API shape of a symbol's historical prices.
type PriceHistory struct {
	Symbol string            `json:"symbol"`
	Prices []HistoricalPrice `json:"prices"`
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
