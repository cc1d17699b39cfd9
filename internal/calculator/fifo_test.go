package calculator_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/calculator"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/testutil"
)

func TestFIFOCalculator_ProcessTransaction(t *testing.T) {
	t.Run("realizes against oldest lot first", func(t *testing.T) {
		calc := calculator.NewFIFOCalculator(nil)

		mustProcess(t, calc, testutil.NewTransaction().Buy("10", "100").OnDate("2024-01-01").Value())
		mustProcess(t, calc, testutil.NewTransaction().Buy("10", "120").OnDate("2024-01-02").Value())

		res := mustProcess(t, calc, testutil.NewTransaction().Sell("5", "150").OnDate("2024-01-03").Value())

		// WHY: 5 shares fit inside the first lot, so only the $100 lot may be matched
		testutil.AssertDecimal(t, "realized P/L", res.RealizedPL, "250")
		if len(res.MatchedLots) != 1 {
			t.Fatalf("Expected 1 matched lot, got %d", len(res.MatchedLots))
		}
		testutil.AssertDecimal(t, "matched cost basis", res.MatchedLots[0].CostBasisPerShare, "100")
	})

	t.Run("end to end sell across two lots", func(t *testing.T) {
		calc := calculator.NewFIFOCalculator(nil)

		buy1 := testutil.NewTransaction().WithID("buy-1").Buy("10", "100").OnDate("2024-01-01").Value()
		buy2 := testutil.NewTransaction().WithID("buy-2").Buy("10", "120").OnDate("2024-01-02").Value()
		sell := testutil.NewTransaction().WithID("sell-1").Sell("15", "150").OnDate("2024-01-03").Value()

		mustProcess(t, calc, buy1)
		mustProcess(t, calc, buy2)
		res := mustProcess(t, calc, sell)

		testutil.AssertDecimal(t, "realized P/L", res.RealizedPL, "650")
		testutil.AssertDecimal(t, "total realized", calc.TotalRealizedPL(), "650")
		testutil.AssertDecimal(t, "remaining shares", calc.TotalShares(), "5")
		testutil.AssertDecimal(t, "remaining cost basis", calc.TotalCostBasis(), "600")

		lots := calc.Lots()
		if len(lots) != 1 {
			t.Fatalf("Expected 1 remaining lot, got %d", len(lots))
		}
		if lots[0].SourceTransactionID != "buy-2" {
			t.Errorf("Expected remaining lot from buy-2, got %s", lots[0].SourceTransactionID)
		}
		testutil.AssertDecimal(t, "remaining lot quantity", lots[0].Quantity, "5")
		testutil.AssertDecimal(t, "remaining lot cost", lots[0].CostBasisPerShare, "120")

		if len(res.MatchedLots) != 2 {
			t.Fatalf("Expected 2 lot matches, got %d", len(res.MatchedLots))
		}
		testutil.AssertDecimal(t, "first match P/L", res.MatchedLots[0].RealizedPL, "500")
		testutil.AssertDecimal(t, "second match P/L", res.MatchedLots[1].RealizedPL, "150")
		if res.MatchedLots[0].HoldingDays != 2 {
			t.Errorf("Expected 2 holding days, got %d", res.MatchedLots[0].HoldingDays)
		}
		if res.MatchedLots[1].SaleTransactionID != "sell-1" {
			t.Errorf("Expected sale id sell-1, got %s", res.MatchedLots[1].SaleTransactionID)
		}
	})

	t.Run("buy fees are folded into the lot cost basis", func(t *testing.T) {
		calc := calculator.NewFIFOCalculator(nil)

		mustProcess(t, calc, testutil.NewTransaction().Buy("10", "100").WithFees("5").Value())

		lots := calc.Lots()
		testutil.AssertDecimal(t, "cost basis per share", lots[0].CostBasisPerShare, "100.5")
		testutil.AssertDecimal(t, "total cost basis", calc.TotalCostBasis(), "1005")
	})

	t.Run("sell fees are prorated by quantity taken from each lot", func(t *testing.T) {
		calc := calculator.NewFIFOCalculator(nil)

		mustProcess(t, calc, testutil.NewTransaction().Buy("10", "100").OnDate("2024-01-01").Value())
		mustProcess(t, calc, testutil.NewTransaction().Buy("10", "100").OnDate("2024-01-02").Value())
		res := mustProcess(t, calc, testutil.NewTransaction().Sell("20", "110").WithFees("20").OnDate("2024-01-03").Value())

		testutil.AssertDecimal(t, "first lot fee", res.MatchedLots[0].ProratedFee, "10")
		testutil.AssertDecimal(t, "second lot fee", res.MatchedLots[1].ProratedFee, "10")
		testutil.AssertDecimal(t, "realized P/L", res.RealizedPL, "180")
	})

	t.Run("lot consumed to exactly zero is removed", func(t *testing.T) {
		calc := calculator.NewFIFOCalculator(nil)

		mustProcess(t, calc, testutil.NewTransaction().Buy("10", "100").Value())
		mustProcess(t, calc, testutil.NewTransaction().Sell("10", "90").Value())

		if len(calc.Lots()) != 0 {
			t.Errorf("Expected no lots, got %d", len(calc.Lots()))
		}
		testutil.AssertDecimal(t, "realized P/L", calc.TotalRealizedPL(), "-100")
	})

	t.Run("cash events do not touch the position", func(t *testing.T) {
		calc := calculator.NewFIFOCalculator(nil)
		mustProcess(t, calc, testutil.NewTransaction().Buy("10", "100").Value())

		for _, tx := range []model.Transaction{
			testutil.NewTransaction().Dividend("12.5").Value(),
			testutil.NewTransaction().Interest("1").Value(),
			testutil.NewTransaction().Fee("3").Value(),
			testutil.NewTransaction().Deposit("1000").Value(),
		} {
			res := mustProcess(t, calc, tx)
			if !res.RealizedPL.IsZero() {
				t.Errorf("Expected zero P/L for %s, got %s", tx.Type, res.RealizedPL)
			}
		}

		testutil.AssertDecimal(t, "shares", calc.TotalShares(), "10")
		testutil.AssertDecimal(t, "cost basis", calc.TotalCostBasis(), "1000")
	})

	t.Run("zero quantity buy is ignored", func(t *testing.T) {
		calc := calculator.NewFIFOCalculator(nil)

		res := mustProcess(t, calc, testutil.NewTransaction().Buy("0", "100").WithFees("1").Value())

		if !res.RealizedPL.IsZero() {
			t.Errorf("Expected zero P/L, got %s", res.RealizedPL)
		}
		if len(calc.Lots()) != 0 {
			t.Errorf("Expected no lot for zero quantity buy, got %d", len(calc.Lots()))
		}
	})

	t.Run("negative sell quantity is treated as magnitude", func(t *testing.T) {
		calc := calculator.NewFIFOCalculator(nil)

		mustProcess(t, calc, testutil.NewTransaction().Buy("10", "100").Value())
		res := mustProcess(t, calc, testutil.NewTransaction().Sell("-4", "110").Value())

		testutil.AssertDecimal(t, "realized P/L", res.RealizedPL, "40")
		testutil.AssertDecimal(t, "shares", calc.TotalShares(), "6")
	})
}

func TestFIFOCalculator_Oversell(t *testing.T) {
	calc := calculator.NewFIFOCalculator(nil)

	mustProcess(t, calc, testutil.NewTransaction().Buy("10", "100").OnDate("2024-01-01").Value())
	mustProcess(t, calc, testutil.NewTransaction().Sell("4", "120").OnDate("2024-01-02").Value())
	before := calc.State()

	_, err := calc.ProcessTransaction(testutil.NewTransaction().WithSymbol("AAPL").Sell("7", "130").OnDate("2024-01-03").Value())
	if err == nil {
		t.Fatal("Expected oversell error, got nil")
	}
	if !errors.Is(err, apperrors.ErrInsufficientShares) {
		t.Errorf("Expected ErrInsufficientShares, got %v", err)
	}

	var oversell *apperrors.OversellError
	if !errors.As(err, &oversell) {
		t.Fatalf("Expected *OversellError, got %T", err)
	}
	if oversell.Symbol != "AAPL" {
		t.Errorf("Expected symbol AAPL, got %s", oversell.Symbol)
	}
	if oversell.Date.Format("2006-01-02") != "2024-01-03" {
		t.Errorf("Expected date 2024-01-03, got %s", oversell.Date.Format("2006-01-02"))
	}
	testutil.AssertDecimal(t, "requested", oversell.Requested, "7")
	testutil.AssertDecimal(t, "available", oversell.Available, "6")
	testutil.AssertDecimal(t, "deficit", oversell.Deficit(), "1")

	// WHY: a failed sell must not leave a half-consumed queue behind
	if after := calc.State(); !reflect.DeepEqual(before, after) {
		t.Errorf("Expected state unchanged after oversell\nbefore: %+v\nafter:  %+v", before, after)
	}
}

func TestFIFOCalculator_StateRoundTrip(t *testing.T) {
	source := calculator.NewFIFOCalculator(nil)
	mustProcess(t, source, testutil.NewTransaction().Buy("10", "100").OnDate("2024-01-01").Value())
	mustProcess(t, source, testutil.NewTransaction().Buy("10", "120").OnDate("2024-01-02").Value())
	mustProcess(t, source, testutil.NewTransaction().Sell("15", "150").OnDate("2024-01-03").Value())

	restored := calculator.NewFIFOCalculator(nil)
	if err := restored.SetState(source.State()); err != nil {
		t.Fatalf("SetState failed: %v", err)
	}

	next := testutil.NewTransaction().Sell("5", "130").OnDate("2024-01-04").Value()
	a := mustProcess(t, source, next)
	b := mustProcess(t, restored, next)

	testutil.AssertDecimal(t, "restored realized", b.RealizedPL, a.RealizedPL.String())
	testutil.AssertDecimal(t, "restored total realized", restored.TotalRealizedPL(), "700")

	t.Run("rejects state of another method", func(t *testing.T) {
		avg := calculator.NewAverageCostCalculator(nil)
		err := calculator.NewFIFOCalculator(nil).SetState(avg.State())
		if !errors.Is(err, apperrors.ErrStateMethodMismatch) {
			t.Errorf("Expected ErrStateMethodMismatch, got %v", err)
		}
	})

	t.Run("reset clears everything", func(t *testing.T) {
		restored.Reset()
		if !restored.TotalShares().IsZero() || !restored.TotalRealizedPL().IsZero() {
			t.Errorf("Expected empty calculator after reset, got shares %s realized %s",
				restored.TotalShares(), restored.TotalRealizedPL())
		}
	})
}

func mustProcess(t *testing.T, calc calculator.Calculator, tx model.Transaction) model.PLResult {
	t.Helper()
	res, err := calc.ProcessTransaction(tx)
	if err != nil {
		t.Fatalf("ProcessTransaction(%s %s) failed: %v", tx.Type, tx.Quantity, err)
	}
	return res
}
