package performance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
)

// LumpSumReturn is the return of holding the instrument from start to end:
// (endPrice - startPrice) / startPrice. Both prices use PriceAt semantics.
// An empty series or a zero start price yields a zero return.
func LumpSumReturn(prices []model.HistoricalPrice, start, end time.Time) (startPrice, endPrice, ret decimal.Decimal) {
	startPrice, ok := PriceAt(prices, start)
	if !ok {
		return decimal.Zero, decimal.Zero, decimal.Zero
	}
	endPrice, _ = PriceAt(prices, end)
	return startPrice, endPrice, safeDiv(endPrice.Sub(startPrice), startPrice)
}

// GeometricTWR chains daily returns of a snapshot series.
//
// For each day the denominator is the previous day's market value plus that day's
// cash flow, so the flow is treated as arriving at the start of the day. The previous
// market value starts at zero; on the first day the return is therefore measured
// against the day's own inflow. A zero denominator gives a zero daily return.
func GeometricTWR(values []model.DailyPortfolioValue) model.TWRResult {
	result := model.TWRResult{
		CumulativeReturn: decimal.Zero,
		Series:           make([]model.ReturnPoint, 0, len(values)),
	}

	prevMV := decimal.Zero
	cumulative := decimal.Zero

	for _, v := range values {
		denominator := prevMV.Add(v.CashFlow)
		daily := decimal.Zero
		if !denominator.IsZero() {
			daily = v.MarketValue.Div(denominator).Sub(one)
		}

		cumulative = one.Add(cumulative).Mul(one.Add(daily)).Sub(one).Round(returnPrecision)

		result.Series = append(result.Series, model.ReturnPoint{
			Date:             v.Date,
			DailyReturn:      daily,
			CumulativeReturn: cumulative,
		})
		prevMV = v.MarketValue
	}

	result.CumulativeReturn = cumulative
	return result
}

// ModifiedDietz approximates the money-weighted return over the whole series.
// Every cash flow is weighted by the fraction of the period remaining after it;
// the first snapshot's flow carries full weight and the starting value is zero.
func ModifiedDietz(values []model.DailyPortfolioValue) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}

	first := model.Day(values[0].Date)
	last := model.Day(values[len(values)-1].Date)
	totalDays := decimal.NewFromInt(int64(last.Sub(first).Hours() / 24))

	netFlow := decimal.Zero
	weightedFlow := decimal.Zero
	for _, v := range values {
		if v.CashFlow.IsZero() {
			continue
		}
		weight := one
		if totalDays.IsPositive() {
			elapsed := decimal.NewFromInt(int64(model.Day(v.Date).Sub(first).Hours() / 24))
			weight = totalDays.Sub(elapsed).Div(totalDays)
		}
		netFlow = netFlow.Add(v.CashFlow)
		weightedFlow = weightedFlow.Add(v.CashFlow.Mul(weight))
	}

	endValue := values[len(values)-1].MarketValue
	return safeDiv(endValue.Sub(netFlow), weightedFlow)
}
