package yahoo

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Response represents the raw JSON response structure of the Yahoo Finance chart API.
//
// The structure includes:
//   - Chart.Result: Array of result objects (typically contains one element)
//   - Chart.Result[].Meta: Symbol metadata (name, currency, exchange, instrument type)
//   - Chart.Result[].Timestamp: Unix timestamps for each bar
//   - Chart.Result[].Indicators: OHLCV arrays; entries are null on halted days
//   - Chart.Error: Error object, set when Yahoo rejects the query
type Response struct {
	Chart Chart `json:"chart"`
}

// Chart is the top-level payload of a chart response.
type Chart struct {
	Result []Result    `json:"result"`
	Error  *ChartError `json:"error"`
}

// ChartError is the error object Yahoo returns for unknown symbols or bad ranges.
type ChartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e ChartError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Result holds one symbol's chart.
type Result struct {
	Meta       Meta                `json:"meta"`
	Timestamp  []int64             `json:"timestamp"`
	Indicators IndicatorsContainer `json:"indicators"`
}

// Meta is the symbol metadata attached to a chart.
// InstrumentType is "EQUITY", "ETF", "INDEX", "FUTURE", "CRYPTOCURRENCY" and so on.
type Meta struct {
	Currency           string           `json:"currency"`
	Symbol             string           `json:"symbol"`
	ExchangeName       string           `json:"exchangeName"`
	FullExchangeName   string           `json:"fullExchangeName"`
	InstrumentType     string           `json:"instrumentType"`
	LongName           string           `json:"longName"`
	Shortname          string           `json:"shortName"`
	RegularMarketPrice *decimal.Decimal `json:"regularMarketPrice"`
}

// IndicatorsContainer wraps the quote arrays.
type IndicatorsContainer struct {
	Quote []Quote `json:"quote"`
}

// Quote holds parallel OHLCV arrays. Pointers keep Yahoo's nulls distinguishable from zero.
type Quote struct {
	Open   []*decimal.Decimal `json:"open"`
	Close  []*decimal.Decimal `json:"close"`
	Volume []*int64           `json:"volume"`
	High   []*decimal.Decimal `json:"high"`
	Low    []*decimal.Decimal `json:"low"`
}

// PriceChart is the parsed form of a Response: symbol metadata plus one
// Indicators entry per bar that carried a close price.
type PriceChart struct {
	Currency         string       `json:"currency"`
	Symbol           string       `json:"symbol"`
	ExchangeName     string       `json:"exchangeName"`
	FullExchangeName string       `json:"fullExchangeName"`
	InstrumentType   string       `json:"instrumentType"`
	LongName         string       `json:"longName"`
	Shortname        string       `json:"shortName"`
	Indicators       []Indicators `json:"indicators"`
}

// Indicators represents a single day's OHLCV bar.
// Date is truncated to midnight UTC. Missing open, high or low values fall back to the close.
type Indicators struct {
	Date       time.Time
	PriceOpen  decimal.Decimal
	PriceClose decimal.Decimal
	Volume     int64
	PriceHigh  decimal.Decimal
	PriceLow   decimal.Decimal
}
