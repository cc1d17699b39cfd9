package performance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
)

// CashFlowWeightedBenchmark replays the portfolio's own cash flows into a benchmark.
//
// Each non-zero cash flow buys (inflow) or sells (outflow) benchmark shares at the
// benchmark's close on that date, or the nearest earlier close when the date has no bar.
// A withdrawal larger than the simulated position sells the position down to zero.
// Returns are measured against the high-water mark of net invested capital.
// An empty price or value series yields a zero result with an empty series.
func CashFlowWeightedBenchmark(values []model.DailyPortfolioValue, prices []model.HistoricalPrice) model.CashFlowBenchmarkResult {
	result := model.CashFlowBenchmarkResult{
		Shares:      decimal.Zero,
		NetInvested: decimal.Zero,
		MaxInvested: decimal.Zero,
		FinalValue:  decimal.Zero,
		TotalPL:     decimal.Zero,
		Return:      decimal.Zero,
		Series:      []model.BenchmarkPoint{},
	}
	if len(values) == 0 || len(prices) == 0 {
		return result
	}

	shares := decimal.Zero
	netInvested := decimal.Zero
	maxInvested := decimal.Zero

	for _, v := range values {
		price, _ := PriceAt(prices, v.Date)

		if !v.CashFlow.IsZero() && price.IsPositive() {
			shares = shares.Add(v.CashFlow.Div(price))
			if shares.IsNegative() {
				shares = decimal.Zero
			}
			netInvested = netInvested.Add(v.CashFlow)
			if netInvested.GreaterThan(maxInvested) {
				maxInvested = netInvested
			}
		}

		value := shares.Mul(price)
		result.Series = append(result.Series, model.BenchmarkPoint{
			Date:     v.Date,
			Price:    price,
			Shares:   shares,
			Value:    value,
			Invested: netInvested,
			Return:   safeDiv(value.Sub(netInvested), maxInvested),
		})
	}

	endPrice, _ := PriceAt(prices, values[len(values)-1].Date)
	finalValue := shares.Mul(endPrice)

	result.Shares = shares
	result.NetInvested = netInvested
	result.MaxInvested = maxInvested
	result.FinalValue = finalValue
	result.TotalPL = finalValue.Sub(netInvested)
	result.Return = safeDiv(result.TotalPL, maxInvested)
	return result
}

// SimulateDCA invests amount into the instrument every frequency stride from start
// through end, buying amount/price shares at the close on or nearest before each
// investment date. The series has one point per price bar inside [start, end].
// A non-positive amount, an empty series or end before start yields a zero result.
func SimulateDCA(prices []model.HistoricalPrice, amount decimal.Decimal, frequency model.DCAFrequency, start, end time.Time) model.DCAResult {
	start, end = model.Day(start), model.Day(end)
	result := model.DCAResult{
		Frequency:     frequency,
		Amount:        amount,
		StartDate:     start.Format("2006-01-02"),
		EndDate:       end.Format("2006-01-02"),
		TotalInvested: decimal.Zero,
		Shares:        decimal.Zero,
		FinalValue:    decimal.Zero,
		TotalReturn:   decimal.Zero,
		Series:        []model.BenchmarkPoint{},
	}
	if len(prices) == 0 || !amount.IsPositive() || end.Before(start) {
		return result
	}

	stride := frequency.StrideDays()
	var schedule []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, stride) {
		schedule = append(schedule, d)
	}

	shares := decimal.Zero
	invested := decimal.Zero
	next := 0

	invest := func(upTo time.Time) {
		for next < len(schedule) && !schedule[next].After(upTo) {
			price, _ := PriceAt(prices, schedule[next])
			if price.IsPositive() {
				shares = shares.Add(amount.Div(price))
				invested = invested.Add(amount)
				result.Investments++
			}
			next++
		}
	}

	for _, p := range prices {
		day := model.Day(p.Date)
		if day.Before(start) || day.After(end) {
			continue
		}
		invest(day)
		value := shares.Mul(p.Close)
		result.Series = append(result.Series, model.BenchmarkPoint{
			Date:     day,
			Price:    p.Close,
			Shares:   shares,
			Value:    value,
			Invested: invested,
			Return:   safeDiv(value.Sub(invested), invested),
		})
	}
	invest(end)

	endPrice, _ := PriceAt(prices, end)
	result.TotalInvested = invested
	result.Shares = shares
	result.FinalValue = shares.Mul(endPrice)
	result.TotalReturn = safeDiv(result.FinalValue.Sub(invested), invested)
	return result
}

// SimpleReturn measures total P/L (realized plus unrealized at the last snapshot)
// against the high-water mark of the running sum of cash flows.
func SimpleReturn(values []model.DailyPortfolioValue) model.SimpleReturnResult {
	result := model.SimpleReturnResult{
		RealizedPL:   decimal.Zero,
		UnrealizedPL: decimal.Zero,
		TotalPL:      decimal.Zero,
		NetInvested:  decimal.Zero,
		MaxInvested:  decimal.Zero,
		Return:       decimal.Zero,
	}
	if len(values) == 0 {
		return result
	}

	netInvested := decimal.Zero
	maxInvested := decimal.Zero
	for _, v := range values {
		netInvested = netInvested.Add(v.CashFlow)
		if netInvested.GreaterThan(maxInvested) {
			maxInvested = netInvested
		}
	}

	last := values[len(values)-1]
	result.RealizedPL = last.RealizedPL
	result.UnrealizedPL = last.UnrealizedPL()
	result.TotalPL = result.RealizedPL.Add(result.UnrealizedPL)
	result.NetInvested = netInvested
	result.MaxInvested = maxInvested
	result.Return = safeDiv(result.TotalPL, maxInvested)
	return result
}
