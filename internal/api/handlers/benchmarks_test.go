package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/testutil"
)

func newTestBenchmarkHandler(t *testing.T) (*BenchmarkHandler, func(...*testutil.TransactionBuilder)) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	prices := testutil.NewStaticPriceSource(
		testutil.Prices("SPY", "2024-01-02", "100", "2024-01-10", "110"),
		testutil.FlatPrices("QQQ", "2024-01-01", 22, "10"),
	)
	handler := NewBenchmarkHandler(testutil.NewTestBenchmarkService(t, db, prices))
	return handler, func(builders ...*testutil.TransactionBuilder) {
		testutil.CreateTransactions(t, db, builders...)
	}
}

func TestBenchmarkHandler_Compare(t *testing.T) {
	t.Run("empty ledger returns a zeroed comparison", func(t *testing.T) {
		handler, _ := newTestBenchmarkHandler(t)

		req := testutil.NewRequestWithQueryParams(http.MethodGet, "/api/benchmark/compare", map[string]string{"end_date": "2024-01-10"})
		w := httptest.NewRecorder()

		handler.Compare(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		result := testutil.DecodeJSON[model.BenchmarkComparisonResult](t, w)
		if result.StartDate != "" || len(result.Benchmarks) != 0 {
			t.Errorf("Expected empty comparison, got %+v", result)
		}
	})

	t.Run("compares against the default benchmark", func(t *testing.T) {
		handler, seed := newTestBenchmarkHandler(t)
		seed(testutil.NewTransaction().Deposit("1000").OnDate("2024-01-02"))

		req := testutil.NewRequestWithQueryParams(http.MethodGet, "/api/benchmark/compare", map[string]string{"end_date": "2024-01-10"})
		w := httptest.NewRecorder()

		handler.Compare(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		result := testutil.DecodeJSON[model.BenchmarkComparisonResult](t, w)
		if result.PrimaryBenchmark != "SPY" || len(result.Benchmarks) != 1 {
			t.Fatalf("unexpected benchmarks %+v", result.Benchmarks)
		}
		testutil.AssertDecimal(t, "alpha", result.Alpha, "-0.1")
	})

	for _, tc := range []struct {
		name   string
		params map[string]string
	}{
		{"invalid symbol", map[string]string{"symbols": "SPY,B@D"}},
		{"invalid primary", map[string]string{"primary": "$$$"}},
		{"malformed end date", map[string]string{"end_date": "2024-13-01"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			handler, _ := newTestBenchmarkHandler(t)

			req := testutil.NewRequestWithQueryParams(http.MethodGet, "/api/benchmark/compare", tc.params)
			w := httptest.NewRecorder()

			handler.Compare(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", w.Code)
			}
		})
	}
}

func TestBenchmarkHandler_DCA(t *testing.T) {
	t.Run("simulates weekly investments", func(t *testing.T) {
		handler, _ := newTestBenchmarkHandler(t)

		req := testutil.NewRequestWithQueryParams(http.MethodGet, "/api/benchmark/dca", map[string]string{
			"symbol":     "qqq",
			"amount":     "100",
			"frequency":  "weekly",
			"start_date": "2024-01-01",
			"end_date":   "2024-01-22",
		})
		w := httptest.NewRecorder()

		handler.DCA(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		result := testutil.DecodeJSON[model.DCAResult](t, w)
		if result.Symbol != "QQQ" || result.Investments != 4 {
			t.Errorf("symbol=%s investments=%d", result.Symbol, result.Investments)
		}
		testutil.AssertDecimal(t, "invested", result.TotalInvested, "400")
	})

	for _, tc := range []struct {
		name   string
		params map[string]string
	}{
		{"missing symbol", map[string]string{"amount": "100", "start_date": "2024-01-01"}},
		{"missing amount", map[string]string{"symbol": "QQQ", "start_date": "2024-01-01"}},
		{"negative amount", map[string]string{"symbol": "QQQ", "amount": "-5", "start_date": "2024-01-01"}},
		{"missing start date", map[string]string{"symbol": "QQQ", "amount": "100"}},
		{"unknown frequency", map[string]string{"symbol": "QQQ", "amount": "100", "frequency": "daily", "start_date": "2024-01-01"}},
		{"inverted range", map[string]string{"symbol": "QQQ", "amount": "100", "start_date": "2024-02-01", "end_date": "2024-01-01"}},
		{"invalid symbol", map[string]string{"symbol": "Q Q", "amount": "100", "start_date": "2024-01-01"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			handler, _ := newTestBenchmarkHandler(t)

			req := testutil.NewRequestWithQueryParams(http.MethodGet, "/api/benchmark/dca", tc.params)
			w := httptest.NewRecorder()

			handler.DCA(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}
