package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
)

// DefaultBaseURL is the public Yahoo Finance chart endpoint root.
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// ErrNoData is returned when Yahoo answers successfully but without usable bars.
var ErrNoData = errors.New("no price data returned")

// Client is the subset of FinanceClient used by the market data service.
// Tests substitute testutil.MockYahooClient.
type Client interface {
	QueryYahooFiveDaySymbol(ctx context.Context, symbol string) (Response, error)
	QueryYahooSymbolByDateRange(ctx context.Context, symbol string, startDate, endDate time.Time) (Response, error)
	ParseChart(yahooResult Response) (PriceChart, error)
}

// FinanceClient fetches daily price history from the Yahoo Finance chart API.
type FinanceClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewFinanceClient creates a Yahoo Finance client.
// An empty baseURL selects DefaultBaseURL; a non-positive timeout means no client timeout.
func NewFinanceClient(baseURL string, timeout time.Duration) *FinanceClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := &http.Client{}
	if timeout > 0 {
		client.Timeout = timeout
	}
	return &FinanceClient{
		httpClient: client,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// ParseChart converts a raw Yahoo Finance response into a PriceChart.
//
// Bars whose close is null are dropped. Missing open, high or low values
// fall back to the close and a missing volume becomes zero.
//
// Returns ErrNoData when the response has no result, no timestamps or no
// usable close prices, and an error when the arrays have mismatched lengths.
func (c *FinanceClient) ParseChart(yahooResult Response) (PriceChart, error) {
	if len(yahooResult.Chart.Result) == 0 {
		return PriceChart{}, ErrNoData
	}
	result := yahooResult.Chart.Result[0]

	if len(result.Timestamp) == 0 {
		return PriceChart{}, ErrNoData
	}
	if len(result.Indicators.Quote) == 0 || len(result.Indicators.Quote[0].Close) == 0 {
		return PriceChart{}, fmt.Errorf("no close prices returned: %w", ErrNoData)
	}

	quote := result.Indicators.Quote[0]
	if len(quote.Close) != len(result.Timestamp) {
		return PriceChart{}, fmt.Errorf("mismatched data lengths: %d timestamps, %d closes", len(result.Timestamp), len(quote.Close))
	}

	indicators := make([]Indicators, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		closePrice := quote.Close[i]
		if closePrice == nil {
			continue
		}
		indicators = append(indicators, Indicators{
			Date:       model.Day(time.Unix(ts, 0)),
			PriceOpen:  valueAt(quote.Open, i, *closePrice),
			PriceClose: *closePrice,
			PriceHigh:  valueAt(quote.High, i, *closePrice),
			PriceLow:   valueAt(quote.Low, i, *closePrice),
			Volume:     volumeAt(quote.Volume, i),
		})
	}
	if len(indicators) == 0 {
		return PriceChart{}, fmt.Errorf("only null close prices returned: %w", ErrNoData)
	}

	return PriceChart{
		Symbol:           result.Meta.Symbol,
		Currency:         result.Meta.Currency,
		ExchangeName:     result.Meta.ExchangeName,
		FullExchangeName: result.Meta.FullExchangeName,
		InstrumentType:   result.Meta.InstrumentType,
		LongName:         result.Meta.LongName,
		Shortname:        result.Meta.Shortname,
		Indicators:       indicators,
	}, nil
}

// HistoricalPrices converts the chart into cache rows stored under symbol.
// symbol is the caller's name for the instrument, which differs from
// Meta.Symbol when an alias was resolved.
func (c PriceChart) HistoricalPrices(symbol string) []model.HistoricalPrice {
	prices := make([]model.HistoricalPrice, len(c.Indicators))
	for i, ind := range c.Indicators {
		prices[i] = model.HistoricalPrice{
			Symbol: symbol,
			Date:   ind.Date,
			Open:   ind.PriceOpen,
			High:   ind.PriceHigh,
			Low:    ind.PriceLow,
			Close:  ind.PriceClose,
			Volume: ind.Volume,
		}
	}
	return prices
}

// QueryYahooFiveDaySymbol fetches the last five trading days of a symbol.
// Used to read the latest close and the instrument type.
func (c *FinanceClient) QueryYahooFiveDaySymbol(ctx context.Context, symbol string) (Response, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=5d", c.baseURL, url.PathEscape(symbol))
	return c.queryYahoo(ctx, symbol, endpoint)
}

// QueryYahooSymbolByDateRange fetches daily bars for startDate through endDate inclusive.
// Yahoo treats period2 as exclusive, so one day is added to endDate.
func (c *FinanceClient) QueryYahooSymbolByDateRange(ctx context.Context, symbol string, startDate, endDate time.Time) (Response, error) {
	endpoint := fmt.Sprintf(
		"%s/v8/finance/chart/%s?interval=1d&period1=%d&period2=%d",
		c.baseURL,
		url.PathEscape(symbol),
		model.Day(startDate).Unix(),
		model.Day(endDate).AddDate(0, 0, 1).Unix(),
	)
	return c.queryYahoo(ctx, symbol, endpoint)
}

// queryYahoo executes a chart request and decodes the response.
//
// The User-Agent mimics a browser because Yahoo rejects default Go clients.
// Non-2xx responses are decoded when possible so Yahoo's own error message
// is surfaced instead of a bare status code.
func (c *FinanceClient) queryYahoo(ctx context.Context, symbol, endpoint string) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Response{}, fmt.Errorf("failed to build yahoo request: %w", err)
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("yahoo request for %s failed: %w", symbol, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("failed to read yahoo response: %w", err)
	}

	var response Response
	decodeErr := json.Unmarshal(data, &response)

	if response.Chart.Error != nil {
		return response, fmt.Errorf("yahoo error for %s: %w", symbol, *response.Chart.Error)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Response{}, fmt.Errorf("yahoo returned status %d for %s", resp.StatusCode, symbol)
	}
	if decodeErr != nil {
		return Response{}, fmt.Errorf("failed to decode yahoo response: %w", decodeErr)
	}
	if len(response.Chart.Result) == 0 {
		return Response{}, fmt.Errorf("no results returned for symbol %s: %w", symbol, ErrNoData)
	}

	return response, nil
}

func valueAt(values []*decimal.Decimal, i int, fallback decimal.Decimal) decimal.Decimal {
	if i < len(values) && values[i] != nil {
		return *values[i]
	}
	return fallback
}

func volumeAt(values []*int64, i int) int64 {
	if i < len(values) && values[i] != nil {
		return *values[i]
	}
	return 0
}
