// Package performance holds the pure return calculations used for benchmarking:
// lump-sum and geometrically linked time-weighted returns, the Modified Dietz
// approximation, the cash-flow-weighted benchmark replay, the DCA simulation and the
// simple return against the high-water mark of invested capital.
//
// Every function is side-effect free and works on caller-owned slices, so results for
// different benchmarks can be computed concurrently without coordination. Ratios whose
// denominator is zero are reported as zero.
package performance

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
)

// returnPrecision bounds the number of decimal places kept on chained return values.
const returnPrecision int32 = 16

var one = decimal.NewFromInt(1)

// PriceAt returns the close of the latest bar on or before date. When every bar is
// after date the earliest close is returned. The second result is false only for an
// empty series. prices must be sorted ascending by date.
func PriceAt(prices []model.HistoricalPrice, date time.Time) (decimal.Decimal, bool) {
	if len(prices) == 0 {
		return decimal.Zero, false
	}
	day := model.Day(date)
	i := sort.Search(len(prices), func(i int) bool {
		return model.Day(prices[i].Date).After(day)
	})
	if i == 0 {
		return prices[0].Close, true
	}
	return prices[i-1].Close, true
}

// SortPrices sorts a price series ascending by date in place.
func SortPrices(prices []model.HistoricalPrice) {
	sort.SliceStable(prices, func(i, j int) bool {
		return prices[i].Date.Before(prices[j].Date)
	})
}

// safeDiv returns a/b, or zero when b is zero.
func safeDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Div(b)
}
