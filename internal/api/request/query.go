package request

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
)

// BenchmarkQuery holds the parsed parameters of GET /api/benchmark/compare.
type BenchmarkQuery struct {
	Symbols []string
	Primary string
	EndDate time.Time // zero means today
}

// DCAQuery holds the parsed parameters of GET /api/benchmark/dca.
type DCAQuery struct {
	Symbol    string
	Amount    decimal.Decimal
	Frequency model.DCAFrequency
	StartDate time.Time
	EndDate   time.Time // zero means today
}

// ParseBenchmarkQuery extracts the comparison set from query parameters.
// All parameters are optional; symbols is a comma-separated list.
// Symbols are upper-cased here and validated by the caller.
func ParseBenchmarkQuery(symbolsParam, primaryParam, endDateParam string) (*BenchmarkQuery, error) {
	q := &BenchmarkQuery{
		Primary: strings.ToUpper(strings.TrimSpace(primaryParam)),
	}

	for _, s := range strings.Split(symbolsParam, ",") {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			q.Symbols = append(q.Symbols, s)
		}
	}

	if endDateParam != "" {
		endDate, err := parseQueryDate(endDateParam)
		if err != nil {
			return nil, fmt.Errorf("invalid end_date format: %w", err)
		}
		q.EndDate = endDate
	}

	return q, nil
}

// ParseDCAQuery extracts and validates a DCA simulation from query parameters.
//
// Validation rules:
//   - symbol: Required
//   - amount: Required, a positive decimal
//   - frequency: weekly, biweekly or monthly (defaults to monthly)
//   - start_date: Required, YYYY-MM-DD or RFC3339
//   - end_date: Optional, not before start_date
func ParseDCAQuery(symbolParam, amountParam, frequencyParam, startDateParam, endDateParam string) (*DCAQuery, error) {
	q := &DCAQuery{
		Symbol:    strings.ToUpper(strings.TrimSpace(symbolParam)),
		Frequency: model.DCAMonthly,
	}
	if q.Symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}

	if strings.TrimSpace(amountParam) == "" {
		return nil, fmt.Errorf("amount is required")
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(amountParam))
	if err != nil {
		return nil, fmt.Errorf("invalid amount: must be a number")
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("invalid amount: must be positive")
	}
	q.Amount = amount

	if frequencyParam != "" {
		if q.Frequency, err = model.ParseDCAFrequency(frequencyParam); err != nil {
			return nil, fmt.Errorf("invalid frequency: must be weekly, biweekly or monthly")
		}
	}

	if startDateParam == "" {
		return nil, fmt.Errorf("start_date is required")
	}
	if q.StartDate, err = parseQueryDate(startDateParam); err != nil {
		return nil, fmt.Errorf("invalid start_date format: %w", err)
	}

	if endDateParam != "" {
		if q.EndDate, err = parseQueryDate(endDateParam); err != nil {
			return nil, fmt.Errorf("invalid end_date format: %w", err)
		}
		if q.EndDate.Before(q.StartDate) {
			return nil, fmt.Errorf("end_date must not be before start_date")
		}
	}

	return q, nil
}

// parseQueryDate accepts YYYY-MM-DD and RFC3339 and truncates to the UTC day.
func parseQueryDate(str string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, strings.TrimSpace(str)); err == nil {
			return model.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a date", str)
}
