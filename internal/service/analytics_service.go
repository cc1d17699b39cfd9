package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/calculator"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
)

// excursionPadDays widens the price window around trades when loading highs and lows.
const excursionPadDays = 5

// AnalyticsService derives trading-behaviour analytics from FIFO lot matching.
type AnalyticsService struct {
	transactions TransactionSource
	prices       PriceSource
	latest       LatestPriceSource
	logger       *zap.Logger
	now          func() time.Time
}

// NewAnalyticsService creates a new AnalyticsService.
func NewAnalyticsService(
	transactions TransactionSource,
	prices PriceSource,
	latest LatestPriceSource,
	logger *zap.Logger,
) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{
		transactions: transactions,
		prices:       prices,
		latest:       latest,
		logger:       logger,
		now:          time.Now,
	}
}

// GetBehavioralAnalytics lists every closed lot match and every open lot as a
// trade and summarizes how long winners and losers are held.
//
// Closed trades come from FIFO lot matches. Open trades are the remaining lots
// valued at the latest close with today as the exit date; symbols without a
// latest price are left out. Each trade gets its maximum favourable and
// adverse excursion from daily highs and lows over the holding window, and an
// efficiency: captured move over the best available move.
//
// Winners have P/L > 0; everything else is a loser.
func (s *AnalyticsService) GetBehavioralAnalytics(ctx context.Context) (*model.BehavioralAnalytics, error) {
	txs, err := s.transactions.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	today := model.Day(s.now())
	trades := []model.TradeRecord{}

	bySymbol := groupBySymbol(txs)
	for _, symbol := range sortedKeys(bySymbol) {
		calc := calculator.NewFIFOCalculator(s.logger)
		results, err := calculator.Replay(calc, bySymbol[symbol])
		if err != nil {
			s.logger.Warn("analytics replay stopped", zap.String("symbol", symbol), zap.Error(err))
		}
		for _, res := range results {
			for _, m := range res.MatchedLots {
				trades = append(trades, model.TradeRecord{
					Symbol:      symbol,
					Quantity:    m.Quantity,
					EntryDate:   m.PurchaseDate,
					ExitDate:    m.SaleDate,
					EntryPrice:  m.CostBasisPerShare,
					ExitPrice:   m.SalePrice,
					PL:          m.RealizedPL,
					HoldingDays: m.HoldingDays,
					Status:      model.TradeStatusClosed,
				})
			}
		}

		lots := calc.Lots()
		if len(lots) == 0 || s.latest == nil {
			continue
		}
		latest, err := s.latest.GetLatestPrice(ctx, symbol)
		if err != nil {
			s.logger.Debug("no latest price for open lots", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		for _, lot := range lots {
			trades = append(trades, model.TradeRecord{
				Symbol:      symbol,
				Quantity:    lot.Quantity,
				EntryDate:   lot.PurchaseDate,
				ExitDate:    today,
				EntryPrice:  lot.CostBasisPerShare,
				ExitPrice:   latest.Close,
				PL:          latest.Close.Sub(lot.CostBasisPerShare).Mul(lot.Quantity),
				HoldingDays: int(today.Sub(model.Day(lot.PurchaseDate)).Hours() / 24),
				Status:      model.TradeStatusOpen,
			})
		}
	}

	if err := s.applyExcursions(ctx, trades); err != nil {
		return nil, err
	}

	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].EntryDate.Before(trades[j].EntryDate)
	})

	return &model.BehavioralAnalytics{
		Metrics: behavioralMetrics(trades),
		Trades:  trades,
	}, nil
}

// applyExcursions sets MFE, MAE and efficiency on trades in place, loading one
// price window per symbol.
func (s *AnalyticsService) applyExcursions(ctx context.Context, trades []model.TradeRecord) error {
	bySymbol := map[string][]int{}
	for i, t := range trades {
		trades[i].MFE = decimal.Zero
		trades[i].MAE = decimal.Zero
		bySymbol[t.Symbol] = append(bySymbol[t.Symbol], i)
	}

	for _, symbol := range sortedKeys(bySymbol) {
		idx := bySymbol[symbol]
		minEntry, maxExit := trades[idx[0]].EntryDate, trades[idx[0]].ExitDate
		for _, i := range idx[1:] {
			if trades[i].EntryDate.Before(minEntry) {
				minEntry = trades[i].EntryDate
			}
			if trades[i].ExitDate.After(maxExit) {
				maxExit = trades[i].ExitDate
			}
		}

		prices, err := loadSeries(ctx, s.prices, s.logger, symbol,
			minEntry.AddDate(0, 0, -excursionPadDays), maxExit.AddDate(0, 0, excursionPadDays))
		if err != nil {
			return err
		}
		if len(prices) == 0 {
			continue
		}

		for _, i := range idx {
			excursion(&trades[i], prices)
		}
	}
	return nil
}

// excursion measures a long trade against the bars inside its holding window.
// Without bars in the window, or with a non-positive entry price, the trade is left at zero.
func excursion(t *model.TradeRecord, prices []model.HistoricalPrice) {
	entryDay, exitDay := model.Day(t.EntryDate), model.Day(t.ExitDate)
	maxHigh, minLow := t.EntryPrice, t.EntryPrice
	found := false

	for _, p := range prices {
		day := model.Day(p.Date)
		if day.Before(entryDay) || day.After(exitDay) {
			continue
		}
		found = true
		if p.High.GreaterThan(maxHigh) {
			maxHigh = p.High
		}
		if p.Low.LessThan(minLow) {
			minLow = p.Low
		}
	}
	if !found || !t.EntryPrice.IsPositive() {
		return
	}

	t.MFE = maxHigh.Sub(t.EntryPrice).Div(t.EntryPrice)
	t.MAE = minLow.Sub(t.EntryPrice).Div(t.EntryPrice)

	potential := maxHigh.Sub(t.EntryPrice)
	if potential.IsPositive() {
		t.Efficiency = t.ExitPrice.Sub(t.EntryPrice).Div(potential).InexactFloat64()
	}
}

func behavioralMetrics(trades []model.TradeRecord) model.BehavioralMetrics {
	var closedWin, closedLoss, openWin, openLoss []int
	for _, t := range trades {
		winner := t.PL.IsPositive()
		switch {
		case t.Status == model.TradeStatusClosed && winner:
			closedWin = append(closedWin, t.HoldingDays)
		case t.Status == model.TradeStatusClosed:
			closedLoss = append(closedLoss, t.HoldingDays)
		case winner:
			openWin = append(openWin, t.HoldingDays)
		default:
			openLoss = append(openLoss, t.HoldingDays)
		}
	}

	return model.BehavioralMetrics{
		AvgHoldingDaysWinners:     avgDays(closedWin),
		AvgHoldingDaysLosers:      avgDays(closedLoss),
		AvgHoldingDaysWinnersOpen: avgDays(openWin),
		AvgHoldingDaysLosersOpen:  avgDays(openLoss),
		TotalWinners:              len(closedWin),
		TotalLosers:               len(closedLoss),
		OpenWinners:               len(openWin),
		OpenLosers:                len(openLoss),
	}
}

// avgDays is the mean rounded to one decimal, 0 for no trades.
func avgDays(days []int) float64 {
	if len(days) == 0 {
		return 0
	}
	total := 0
	for _, d := range days {
		total += d
	}
	return math.Round(float64(total)/float64(len(days))*10) / 10
}
