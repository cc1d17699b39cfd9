package service_test

import (
	"context"
	"math"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/repository"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/service"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/testutil"
)

// TestAnalyticsService_GetBehavioralAnalytics tests trade-level behaviour metrics.
//
// WHY: closed trades come from lot matches, so a partially sold lot must show
// up both as a closed trade and as an open remainder.
func TestAnalyticsService_GetBehavioralAnalytics(t *testing.T) {
	ctx := context.Background()

	t.Run("empty ledger", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		src := testutil.NewStaticPriceSource()
		svc := service.NewAnalyticsService(repository.NewTransactionRepository(db), src, src, zaptest.NewLogger(t))

		result, err := svc.GetBehavioralAnalytics(ctx)
		if err != nil {
			t.Fatalf("GetBehavioralAnalytics() returned unexpected error: %v", err)
		}
		if len(result.Trades) != 0 || result.Metrics.TotalWinners != 0 {
			t.Errorf("Expected empty analytics, got %+v", result)
		}
	})

	t.Run("closed and open trades with excursions", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		src := testutil.NewStaticPriceSource(testutil.Prices("AAPL",
			"2024-01-01", "100",
			"2024-01-05", "130",
			"2024-01-10", "95",
			"2024-01-21", "120",
			"2024-01-31", "105",
		))
		svc := service.NewAnalyticsService(repository.NewTransactionRepository(db), src, src, zaptest.NewLogger(t))
		testutil.CreateTransactions(t, db,
			testutil.NewTransaction().WithSymbol("AAPL").Buy("10", "100").OnDate("2024-01-01"),
			testutil.NewTransaction().WithSymbol("AAPL").Buy("10", "110").OnDate("2024-01-11"),
			testutil.NewTransaction().WithSymbol("AAPL").Sell("15", "120").OnDate("2024-01-21"),
		)

		result, err := svc.GetBehavioralAnalytics(ctx)
		if err != nil {
			t.Fatalf("GetBehavioralAnalytics() returned unexpected error: %v", err)
		}
		if len(result.Trades) != 3 {
			t.Fatalf("Expected 3 trades, got %d", len(result.Trades))
		}

		first := result.Trades[0]
		if first.Status != model.TradeStatusClosed || first.HoldingDays != 20 {
			t.Errorf("first trade = %s after %d days", first.Status, first.HoldingDays)
		}
		testutil.AssertDecimal(t, "first pl", first.PL, "200")
		testutil.AssertDecimal(t, "first mfe", first.MFE, "0.3")
		testutil.AssertDecimal(t, "first mae", first.MAE, "-0.05")
		if math.Abs(first.Efficiency-2.0/3) > 1e-9 {
			t.Errorf("first efficiency = %v", first.Efficiency)
		}

		second := result.Trades[1]
		testutil.AssertDecimal(t, "second quantity", second.Quantity, "5")
		testutil.AssertDecimal(t, "second pl", second.PL, "50")
		if second.Efficiency != 1 {
			t.Errorf("second efficiency = %v, want 1", second.Efficiency)
		}

		open := result.Trades[2]
		if open.Status != model.TradeStatusOpen {
			t.Fatalf("third trade status = %s", open.Status)
		}
		testutil.AssertDecimal(t, "open exit price", open.ExitPrice, "105")
		testutil.AssertDecimal(t, "open pl", open.PL, "-25")

		m := result.Metrics
		if m.TotalWinners != 2 || m.TotalLosers != 0 || m.OpenWinners != 0 || m.OpenLosers != 1 {
			t.Errorf("metrics counts = %+v", m)
		}
		if m.AvgHoldingDaysWinners != 15 {
			t.Errorf("avg winner days = %v, want 15", m.AvgHoldingDaysWinners)
		}
	})

	t.Run("open lots without a latest price are left out", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		src := testutil.NewStaticPriceSource()
		svc := service.NewAnalyticsService(repository.NewTransactionRepository(db), src, src, zaptest.NewLogger(t))
		testutil.NewTransaction().WithSymbol("MSFT").Buy("1", "400").OnDate("2024-01-01").Build(t, db)

		result, err := svc.GetBehavioralAnalytics(ctx)
		if err != nil {
			t.Fatalf("GetBehavioralAnalytics() returned unexpected error: %v", err)
		}
		if len(result.Trades) != 0 {
			t.Errorf("Expected no trades, got %d", len(result.Trades))
		}
	})
}
