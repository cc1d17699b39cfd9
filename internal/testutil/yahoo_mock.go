package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/yahoo"
)

// MockYahooClient is a yahoo.Client that serves canned responses instead of
// calling Yahoo Finance. It is safe for concurrent use.
type MockYahooClient struct {
	mu sync.Mutex
	// MockResponse is returned for symbols without an entry in Responses.
	MockResponse yahoo.Response
	// Responses holds per-symbol responses keyed by uppercased symbol.
	Responses map[string]yahoo.Response
	// MockError is returned by every query when set.
	MockError error
	// Queried records each queried symbol in call order.
	Queried []string
}

// NewMockYahooClient creates a mock returning five days of prices ending yesterday.
func NewMockYahooClient() *MockYahooClient {
	return &MockYahooClient{
		MockResponse: CreateMockYahooResponse(5),
		Responses:    map[string]yahoo.Response{},
	}
}

// QueryCount returns how many queries were made.
func (m *MockYahooClient) QueryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Queried)
}

// QueryYahooFiveDaySymbol returns the configured response for symbol.
func (m *MockYahooClient) QueryYahooFiveDaySymbol(_ context.Context, symbol string) (yahoo.Response, error) {
	return m.respond(symbol)
}

// QueryYahooSymbolByDateRange returns the configured response for symbol regardless of range.
func (m *MockYahooClient) QueryYahooSymbolByDateRange(_ context.Context, symbol string, _, _ time.Time) (yahoo.Response, error) {
	return m.respond(symbol)
}

// ParseChart delegates to the real parser, which has no side effects.
func (m *MockYahooClient) ParseChart(yahooResult yahoo.Response) (yahoo.PriceChart, error) {
	return yahoo.NewFinanceClient("", 0).ParseChart(yahooResult)
}

func (m *MockYahooClient) respond(symbol string) (yahoo.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Queried = append(m.Queried, symbol)
	if m.MockError != nil {
		return yahoo.Response{}, m.MockError
	}
	if resp, ok := m.Responses[strings.ToUpper(symbol)]; ok {
		return resp, nil
	}
	return m.MockResponse, nil
}

// WithError configures the mock to return the specified error.
func (m *MockYahooClient) WithError(err error) *MockYahooClient {
	m.MockError = err
	return m
}

// WithResponse configures the default response.
func (m *MockYahooClient) WithResponse(resp yahoo.Response) *MockYahooClient {
	m.MockResponse = resp
	return m
}

// WithSymbolResponse configures the response for one symbol.
func (m *MockYahooClient) WithSymbolResponse(symbol string, resp yahoo.Response) *MockYahooClient {
	m.Responses[strings.ToUpper(symbol)] = resp
	return m
}

// WithEmptyResponse configures the mock to return an empty response (no data).
func (m *MockYahooClient) WithEmptyResponse() *MockYahooClient {
	m.MockResponse = yahoo.Response{
		Chart: yahoo.Chart{
			Result: []yahoo.Result{},
		},
	}
	return m
}

// CreateMockYahooResponse builds days daily bars ending yesterday.
// Day i opens at 100+0.5i, closes 0.25 higher, with a one point high and half point low.
func CreateMockYahooResponse(days int) yahoo.Response {
	now := time.Now().UTC()
	yesterday := time.Date(now.Year(), now.Month(), now.Day()-1, 0, 0, 0, 0, time.UTC)

	timestamps := make([]int64, days)
	quote := yahoo.Quote{
		Open:   make([]*decimal.Decimal, days),
		High:   make([]*decimal.Decimal, days),
		Low:    make([]*decimal.Decimal, days),
		Close:  make([]*decimal.Decimal, days),
		Volume: make([]*int64, days),
	}

	for i := 0; i < days; i++ {
		// 14:30 UTC is the US market open; bars are stamped intraday.
		date := yesterday.AddDate(0, 0, -days+i+1).Add(14*time.Hour + 30*time.Minute)
		timestamps[i] = date.Unix()

		open := decimal.NewFromInt(100).Add(decimal.NewFromFloat(0.5).Mul(decimal.NewFromInt(int64(i))))
		high := open.Add(decimal.NewFromInt(1))
		low := open.Sub(decimal.NewFromFloat(0.5))
		closePrice := open.Add(decimal.NewFromFloat(0.25))
		volume := int64(1000000 + i*10000)

		quote.Open[i] = &open
		quote.High[i] = &high
		quote.Low[i] = &low
		quote.Close[i] = &closePrice
		quote.Volume[i] = &volume
	}

	return mockResponse("TEST", "EQUITY", timestamps, quote)
}

// CreateMockYahooResponseForDate builds a single bar on date at price.
func CreateMockYahooResponseForDate(date time.Time, price string) yahoo.Response {
	p := D(price)
	volume := int64(1000000)
	quote := yahoo.Quote{
		Open:   []*decimal.Decimal{&p},
		High:   []*decimal.Decimal{&p},
		Low:    []*decimal.Decimal{&p},
		Close:  []*decimal.Decimal{&p},
		Volume: []*int64{&volume},
	}
	return mockResponse("TEST", "EQUITY", []int64{date.Unix()}, quote)
}

// CreateMockYahooErrorResponse builds a response carrying a chart error.
func CreateMockYahooErrorResponse(code, description string) yahoo.Response {
	return yahoo.Response{
		Chart: yahoo.Chart{
			Result: []yahoo.Result{},
			Error:  &yahoo.ChartError{Code: code, Description: description},
		},
	}
}

func mockResponse(symbol, instrumentType string, timestamps []int64, quote yahoo.Quote) yahoo.Response {
	return yahoo.Response{
		Chart: yahoo.Chart{
			Result: []yahoo.Result{
				{
					Meta: yahoo.Meta{
						Symbol:           symbol,
						Currency:         "USD",
						ExchangeName:     "NMS",
						FullExchangeName: "NASDAQ",
						InstrumentType:   instrumentType,
						LongName:         "Test Holdings Inc.",
						Shortname:        symbol,
					},
					Timestamp: timestamps,
					Indicators: yahoo.IndicatorsContainer{
						Quote: []yahoo.Quote{quote},
					},
				},
			},
		},
	}
}
