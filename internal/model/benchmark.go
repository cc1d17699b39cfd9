package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DCAFrequency is the investment cadence of a dollar-cost-averaging simulation.
type DCAFrequency string

// Supported DCA frequencies.
const (
	DCAWeekly   DCAFrequency = "weekly"
	DCABiweekly DCAFrequency = "biweekly"
	DCAMonthly  DCAFrequency = "monthly"
)

// ParseDCAFrequency parses a frequency name case-insensitively.
func ParseDCAFrequency(s string) (DCAFrequency, error) {
	f := DCAFrequency(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case DCAWeekly, DCABiweekly, DCAMonthly:
		return f, nil
	}
	return "", fmt.Errorf("unknown DCA frequency %q", s)
}

// StrideDays returns the number of calendar days between two investments.
// Monthly is approximated as 30 days.
func (f DCAFrequency) StrideDays() int {
	switch f {
	case DCABiweekly:
		return 14
	case DCAMonthly:
		return 30
	default:
		return 7
	}
}

// ReturnPoint is one day of a geometrically linked return series.
type ReturnPoint struct {
	Date             time.Time       `json:"date"`
	DailyReturn      decimal.Decimal `json:"dailyReturn"`
	CumulativeReturn decimal.Decimal `json:"cumulativeReturn"`
}

// TWRResult is the time-weighted return of a daily value series.
type TWRResult struct {
	CumulativeReturn decimal.Decimal `json:"cumulativeReturn"`
	Series           []ReturnPoint   `json:"series"`
}

// SimpleReturnResult is total P/L measured against the high-water mark of net invested capital.
type SimpleReturnResult struct {
	RealizedPL   decimal.Decimal `json:"realizedPL"`
	UnrealizedPL decimal.Decimal `json:"unrealizedPL"`
	TotalPL      decimal.Decimal `json:"totalPL"`
	NetInvested  decimal.Decimal `json:"netInvested"`
	MaxInvested  decimal.Decimal `json:"maxInvested"`
	Return       decimal.Decimal `json:"return"`
}

// BenchmarkPoint is one day of a simulated benchmark position.
type BenchmarkPoint struct {
	Date     time.Time       `json:"date"`
	Price    decimal.Decimal `json:"price"`
	Shares   decimal.Decimal `json:"shares"`
	Value    decimal.Decimal `json:"value"`
	Invested decimal.Decimal `json:"invested"`
	Return   decimal.Decimal `json:"return"`
}

// CashFlowBenchmarkResult is the outcome of replaying the portfolio's own cash flows
// into a benchmark.
type CashFlowBenchmarkResult struct {
	Shares      decimal.Decimal  `json:"shares"`
	NetInvested decimal.Decimal  `json:"netInvested"`
	MaxInvested decimal.Decimal  `json:"maxInvested"`
	FinalValue  decimal.Decimal  `json:"finalValue"`
	TotalPL     decimal.Decimal  `json:"totalPL"`
	Return      decimal.Decimal  `json:"return"`
	Series      []BenchmarkPoint `json:"series"`
}

// DCAResult is the outcome of a dollar-cost-averaging simulation.
type DCAResult struct {
	Symbol        string           `json:"symbol"`
	Frequency     DCAFrequency     `json:"frequency"`
	Amount        decimal.Decimal  `json:"amount"`
	StartDate     string           `json:"startDate"`
	EndDate       string           `json:"endDate"`
	Investments   int              `json:"investments"`
	TotalInvested decimal.Decimal  `json:"totalInvested"`
	Shares        decimal.Decimal  `json:"shares"`
	FinalValue    decimal.Decimal  `json:"finalValue"`
	TotalReturn   decimal.Decimal  `json:"totalReturn"`
	Series        []BenchmarkPoint `json:"series"`
}

// BenchmarkResult holds every return measure computed for one benchmark symbol.
type BenchmarkResult struct {
	Symbol           string                  `json:"symbol"`
	StartPrice       decimal.Decimal         `json:"startPrice"`
	EndPrice         decimal.Decimal         `json:"endPrice"`
	LumpSumReturn    decimal.Decimal         `json:"lumpSumReturn"`
	CashFlowWeighted CashFlowBenchmarkResult `json:"cashFlowWeighted"`
}

// PortfolioPerformance is the portfolio side of a benchmark comparison.
type PortfolioPerformance struct {
	TWR           TWRResult          `json:"twr"`
	ModifiedDietz decimal.Decimal    `json:"modifiedDietz"`
	SimpleReturn  SimpleReturnResult `json:"simpleReturn"`
	FinalValue    decimal.Decimal    `json:"finalValue"`
}

// BenchmarkComparisonResult compares the portfolio against one or more benchmarks.
// StartDate and EndDate are empty when the ledger has no transactions.
type BenchmarkComparisonResult struct {
	StartDate        string               `json:"startDate"`
	EndDate          string               `json:"endDate"`
	Portfolio        PortfolioPerformance `json:"portfolio"`
	Benchmarks       []BenchmarkResult    `json:"benchmarks"`
	PrimaryBenchmark string               `json:"primaryBenchmark"`
	Alpha            decimal.Decimal      `json:"alpha"`
	CashFlowAlpha    decimal.Decimal      `json:"cashFlowAlpha"`
}
