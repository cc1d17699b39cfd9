package service_test

import (
	"context"
	"math"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/calculator"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/repository"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/service"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/testutil"
)

func newTestReportService(t *testing.T, repo *repository.TransactionRepository) *service.ReportService {
	t.Helper()
	return service.NewReportService(repo, testutil.StaticAssetTypes{
		"AAPL": model.AssetTypeEquity,
		"SPY":  model.AssetTypeETF,
	}, zaptest.NewLogger(t))
}

// TestReportService_GetTimePerformanceReport tests realized trade statistics.
//
// WHY: win rate and profit factor drive the performance dashboard; both have
// edge cases (no losses, break-even sales) that must not produce NaN.
func TestReportService_GetTimePerformanceReport(t *testing.T) {
	ctx := context.Background()

	t.Run("empty ledger", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := newTestReportService(t, repository.NewTransactionRepository(db))

		report, err := svc.GetTimePerformanceReport(ctx, calculator.MethodFIFO)
		if err != nil {
			t.Fatalf("GetTimePerformanceReport() returned unexpected error: %v", err)
		}
		if report.Overall.TradeCount != 0 || report.Overall.WinRate != 0 || report.Overall.ProfitFactor != 0 {
			t.Errorf("Expected zeroed stats, got %+v", report.Overall)
		}
		if len(report.Yearly) != 0 {
			t.Errorf("Expected no periods, got %d", len(report.Yearly))
		}
	})

	t.Run("aggregates by asset type and period", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := newTestReportService(t, repository.NewTransactionRepository(db))
		testutil.CreateTransactions(t, db,
			testutil.NewTransaction().WithSymbol("AAPL").Buy("10", "100").OnDate("2024-01-10"),
			testutil.NewTransaction().WithSymbol("AAPL").Sell("5", "120").OnDate("2024-02-15"),
			testutil.NewTransaction().WithSymbol("AAPL").Sell("5", "90").OnDate("2024-04-01"),
			testutil.NewTransaction().WithSymbol("SPY").Buy("2", "400").OnDate("2024-01-05"),
			testutil.NewTransaction().WithSymbol("SPY").Sell("2", "450").OnDate("2024-05-20"),
			testutil.NewTransaction().Deposit("5000").OnDate("2024-01-01"),
		)

		for _, method := range []calculator.Method{calculator.MethodFIFO, calculator.MethodAverageCost} {
			t.Run(string(method), func(t *testing.T) {
				report, err := svc.GetTimePerformanceReport(ctx, method)
				if err != nil {
					t.Fatalf("GetTimePerformanceReport() returned unexpected error: %v", err)
				}

				o := report.Overall
				if o.TradeCount != 3 || o.Wins != 2 || o.Losses != 1 {
					t.Errorf("counts = %d/%d/%d, want 3/2/1", o.TradeCount, o.Wins, o.Losses)
				}
				testutil.AssertDecimal(t, "total win", o.TotalWin, "200")
				testutil.AssertDecimal(t, "total loss", o.TotalLoss, "-50")
				testutil.AssertDecimal(t, "net", o.NetRealizedPL, "150")
				if math.Abs(o.WinRate-200.0/3) > 1e-9 {
					t.Errorf("win rate = %v", o.WinRate)
				}
				if o.ProfitFactor != 4 {
					t.Errorf("profit factor = %v, want 4", o.ProfitFactor)
				}

				etf := report.ByAssetType[model.AssetTypeETF]
				// WHY: wins without losses is an infinite profit factor, not a division error.
				if !math.IsInf(float64(etf.ProfitFactor), 1) {
					t.Errorf("ETF profit factor = %v, want +Inf", etf.ProfitFactor)
				}
				if report.ByAssetType[model.AssetTypeEquity].TradeCount != 2 {
					t.Errorf("equity trades = %d", report.ByAssetType[model.AssetTypeEquity].TradeCount)
				}

				if len(report.Quarterly) != 2 || report.Quarterly[0].Period != "2024-Q1" || report.Quarterly[1].Period != "2024-Q2" {
					t.Errorf("quarters = %+v", report.Quarterly)
				}
				if len(report.Monthly) != 3 || report.Monthly[0].Period != "2024-02" {
					t.Errorf("months = %+v", report.Monthly)
				}
				if len(report.Yearly) != 1 || report.Yearly[0].Stats.TradeCount != 3 {
					t.Errorf("years = %+v", report.Yearly)
				}
			})
		}
	})

	t.Run("break-even sale is neither win nor loss", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := newTestReportService(t, repository.NewTransactionRepository(db))
		testutil.CreateTransactions(t, db,
			testutil.NewTransaction().WithSymbol("AAPL").Buy("1", "100").OnDate("2024-01-10"),
			testutil.NewTransaction().WithSymbol("AAPL").Sell("1", "100").OnDate("2024-01-11"),
		)

		report, err := svc.GetTimePerformanceReport(ctx, calculator.MethodFIFO)
		if err != nil {
			t.Fatalf("GetTimePerformanceReport() returned unexpected error: %v", err)
		}
		if report.Overall.TradeCount != 1 || report.Overall.Wins != 0 || report.Overall.Losses != 0 {
			t.Errorf("got %+v", report.Overall)
		}
		if report.Overall.WinRate != 0 {
			t.Errorf("win rate = %v, want 0", report.Overall.WinRate)
		}
	})

	t.Run("oversold symbol is reported and others kept", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := newTestReportService(t, repository.NewTransactionRepository(db))
		testutil.CreateTransactions(t, db,
			testutil.NewTransaction().WithSymbol("AAPL").Sell("1", "100").OnDate("2024-01-10"),
			testutil.NewTransaction().WithSymbol("SPY").Buy("1", "100").OnDate("2024-01-10"),
			testutil.NewTransaction().WithSymbol("SPY").Sell("1", "110").OnDate("2024-01-11"),
		)

		report, err := svc.GetTimePerformanceReport(ctx, calculator.MethodFIFO)
		if err != nil {
			t.Fatalf("GetTimePerformanceReport() returned unexpected error: %v", err)
		}
		if len(report.Errors) != 1 {
			t.Errorf("Expected 1 error, got %v", report.Errors)
		}
		if report.Overall.TradeCount != 1 {
			t.Errorf("trades = %d, want 1", report.Overall.TradeCount)
		}
	})
}

func TestReportService_GetSymbolTransactionSummary(t *testing.T) {
	ctx := context.Background()

	t.Run("annotates each sell", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := newTestReportService(t, repository.NewTransactionRepository(db))
		testutil.CreateTransactions(t, db,
			testutil.NewTransaction().WithSymbol("AAPL").Buy("10", "100").OnDate("2024-01-10"),
			testutil.NewTransaction().WithSymbol("AAPL").Sell("5", "120").OnDate("2024-02-15"),
			testutil.NewTransaction().WithSymbol("AAPL").Sell("5", "90").OnDate("2024-04-01"),
		)

		summary, err := svc.GetSymbolTransactionSummary(ctx, "aapl", calculator.MethodFIFO)
		if err != nil {
			t.Fatalf("GetSymbolTransactionSummary() returned unexpected error: %v", err)
		}
		if summary.Symbol != "AAPL" || len(summary.Transactions) != 3 {
			t.Fatalf("got %s with %d rows", summary.Symbol, len(summary.Transactions))
		}
		if summary.Transactions[0].RealizedPL != nil {
			t.Error("BUY rows must not carry realized P/L")
		}

		first := summary.Transactions[1]
		testutil.AssertDecimal(t, "first realized", *first.RealizedPL, "100")
		testutil.AssertDecimal(t, "first cost", *first.CostBasis, "500")
		if *first.ReturnPct != 20 {
			t.Errorf("first return = %v, want 20", *first.ReturnPct)
		}
		if *summary.Transactions[2].ReturnPct != -10 {
			t.Errorf("second return = %v, want -10", *summary.Transactions[2].ReturnPct)
		}
		testutil.AssertDecimal(t, "shares", summary.TotalShares, "0")
		testutil.AssertDecimal(t, "realized", summary.TotalRealizedPL, "50")
	})

	t.Run("oversell stops annotation", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := newTestReportService(t, repository.NewTransactionRepository(db))
		testutil.CreateTransactions(t, db,
			testutil.NewTransaction().WithSymbol("AAPL").Buy("1", "100").OnDate("2024-01-10"),
			testutil.NewTransaction().WithSymbol("AAPL").Sell("5", "120").OnDate("2024-01-11"),
			testutil.NewTransaction().WithSymbol("AAPL").Buy("2", "100").OnDate("2024-01-12"),
		)

		summary, err := svc.GetSymbolTransactionSummary(ctx, "AAPL", calculator.MethodFIFO)
		if err != nil {
			t.Fatalf("GetSymbolTransactionSummary() returned unexpected error: %v", err)
		}
		if summary.Error == "" {
			t.Error("Expected Error to describe the oversell")
		}
		if len(summary.Transactions) != 3 || summary.Transactions[1].RealizedPL != nil {
			t.Errorf("unexpected rows %+v", summary.Transactions)
		}
		// WHY: state is frozen at the last good transaction.
		testutil.AssertDecimal(t, "shares", summary.TotalShares, "1")
	})
}
