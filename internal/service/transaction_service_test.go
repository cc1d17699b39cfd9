package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/api/request"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/service"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/testutil"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/validation"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestTransactionService_CreateTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes and stores a valid buy", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTransactionService(t, db, nil)

		tx, err := svc.CreateTransaction(ctx, request.CreateTransactionRequest{
			Date:     "2024-01-02",
			Symbol:   " aapl ",
			Type:     "buy",
			Quantity: dec("10"),
			Price:    dec("185.64"),
			Fees:     dec("1"),
		})
		if err != nil {
			t.Fatalf("CreateTransaction() returned unexpected error: %v", err)
		}
		if tx.Symbol != "AAPL" || tx.Type != model.TransactionTypeBuy {
			t.Errorf("got symbol %q type %q, want AAPL BUY", tx.Symbol, tx.Type)
		}
		if tx.ID == "" {
			t.Error("Expected a generated ID")
		}

		stored, err := svc.GetTransaction(ctx, tx.ID)
		if err != nil {
			t.Fatalf("GetTransaction() returned unexpected error: %v", err)
		}
		testutil.AssertDecimal(t, "price", stored.Price, "185.64")
	})

	t.Run("reports every invalid field", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTransactionService(t, db, nil)

		_, err := svc.CreateTransaction(ctx, request.CreateTransactionRequest{
			Date:   "02/01/2024",
			Symbol: "AAPL",
			Type:   "SELL",
			Fees:   dec("-1"),
		})
		var vErr *validation.Error
		if !errors.As(err, &vErr) {
			t.Fatalf("Expected *validation.Error, got %v", err)
		}
		for _, field := range []string{"date", "quantity", "price", "fees"} {
			if _, ok := vErr.Fields[field]; !ok {
				t.Errorf("Expected an error for %s, got %v", field, vErr.Fields)
			}
		}
		testutil.AssertRowCount(t, db, "transaction", 0)
	})

	t.Run("identical transaction is a duplicate", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTransactionService(t, db, nil)
		req := request.CreateTransactionRequest{
			Date:   "2024-03-01",
			Symbol: "USD",
			Type:   "TRANSFER",
			Price:  dec("500"),
		}

		if _, err := svc.CreateTransaction(ctx, req); err != nil {
			t.Fatalf("first CreateTransaction() returned unexpected error: %v", err)
		}
		if _, err := svc.CreateTransaction(ctx, req); !errors.Is(err, apperrors.ErrDuplicateEntry) {
			t.Errorf("Expected ErrDuplicateEntry, got %v", err)
		}
		testutil.AssertRowCount(t, db, "transaction", 1)
	})

	t.Run("mutation rebuilds daily values", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		prices := testutil.NewStaticPriceSource(testutil.FlatPrices("AAPL", "2024-01-02", 5, "100"))
		svc := testutil.NewTestTransactionService(t, db, prices)

		tx, err := svc.CreateTransaction(ctx, request.CreateTransactionRequest{
			Date: "2024-01-02", Symbol: "AAPL", Type: "BUY", Quantity: dec("1"), Price: dec("100"),
		})
		if err != nil {
			t.Fatalf("CreateTransaction() returned unexpected error: %v", err)
		}
		testutil.AssertRowCount(t, db, "daily_portfolio_value", 1)

		if err := svc.DeleteTransaction(ctx, tx.ID); err != nil {
			t.Fatalf("DeleteTransaction() returned unexpected error: %v", err)
		}
		testutil.AssertRowCount(t, db, "daily_portfolio_value", 0)
	})
}

func TestTransactionService_GetTransactions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestTransactionService(t, db, nil)
	testutil.CreateTransactions(t, db,
		testutil.NewTransaction().WithSymbol("AAPL").OnDate("2024-01-02"),
		testutil.NewTransaction().WithSymbol("MSFT").OnDate("2024-01-03"),
	)

	all, err := svc.GetTransactions(context.Background(), "")
	if err != nil {
		t.Fatalf("GetTransactions() returned unexpected error: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected 2 transactions, got %d", len(all))
	}

	msft, _ := svc.GetTransactions(context.Background(), "msft")
	if len(msft) != 1 || msft[0].Symbol != "MSFT" {
		t.Errorf("Expected the MSFT transaction, got %v", msft)
	}
}

func TestTransactionService_DeleteTransaction(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestTransactionService(t, db, nil)

	err := svc.DeleteTransaction(context.Background(), testutil.MakeID())
	if !errors.Is(err, apperrors.ErrTransactionNotFound) {
		t.Errorf("Expected ErrTransactionNotFound, got %v", err)
	}
}

// TestTransactionService_ImportCSV tests bulk import of normalized transactions.
//
// WHY: users re-export the same broker history repeatedly, so re-importing must
// be idempotent, and a single bad row must not leave a half-imported ledger.
func TestTransactionService_ImportCSV(t *testing.T) {
	ctx := context.Background()
	const file = "date,symbol,type,quantity,price,fees\n" +
		"2024-01-02,usd,TRANSFER,,1000,\n" +
		"2024-01-02,AAPL,BUY,5,100,1\n" +
		"\n" +
		"2024-01-02,AAPL,BUY,5,100,1\n"

	t.Run("imports and deduplicates within the file", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTransactionService(t, db, nil)

		result, err := svc.ImportCSV(ctx, strings.NewReader(file))
		if err != nil {
			t.Fatalf("ImportCSV() returned unexpected error: %v", err)
		}
		if result.Total != 3 || result.Imported != 2 || result.Skipped != 1 {
			t.Errorf("got %+v, want total 3 imported 2 skipped 1", result)
		}
		testutil.AssertRowCount(t, db, "transaction", 2)
	})

	t.Run("re-import skips everything", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTransactionService(t, db, nil)

		if _, err := svc.ImportCSV(ctx, strings.NewReader(file)); err != nil {
			t.Fatalf("first ImportCSV() returned unexpected error: %v", err)
		}
		result, err := svc.ImportCSV(ctx, strings.NewReader(file))
		if err != nil {
			t.Fatalf("second ImportCSV() returned unexpected error: %v", err)
		}
		if result.Imported != 0 || result.Skipped != 3 {
			t.Errorf("got %+v, want imported 0 skipped 3", result)
		}
		testutil.AssertRowCount(t, db, "transaction", 2)
	})

	t.Run("header is case-insensitive and may carry a BOM", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTransactionService(t, db, nil)

		in := "\ufeffDate,Symbol,Type,Quantity,Price,Fees\n2024-01-05,MSFT,DIVIDEND,,3.75,0\n"
		result, err := svc.ImportCSV(ctx, strings.NewReader(in))
		if err != nil {
			t.Fatalf("ImportCSV() returned unexpected error: %v", err)
		}
		if result.Imported != 1 {
			t.Errorf("Expected 1 imported row, got %d", result.Imported)
		}
	})

	t.Run("invalid rows reject the whole file", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTransactionService(t, db, nil)

		in := "date,symbol,type,quantity,price,fees\n" +
			"2024-01-02,AAPL,BUY,5,100,0\n" +
			"2024-01-03,AAPL,BUY,abc,100,0\n" +
			"2024-01-04,AAPL,SPLIT,1,1,0\n"
		_, err := svc.ImportCSV(ctx, strings.NewReader(in))

		var vErr *validation.Error
		if !errors.As(err, &vErr) {
			t.Fatalf("Expected *validation.Error, got %v", err)
		}
		if _, ok := vErr.Fields["line 3"]; !ok {
			t.Errorf("Expected an error for line 3, got %v", vErr.Fields)
		}
		if _, ok := vErr.Fields["line 4"]; !ok {
			t.Errorf("Expected an error for line 4, got %v", vErr.Fields)
		}
		testutil.AssertRowCount(t, db, "transaction", 0)
	})

	t.Run("wrong or missing header", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTransactionService(t, db, nil)

		for _, in := range []string{"", "symbol,date,type,quantity,price,fees\n", "date,symbol\n"} {
			if _, err := svc.ImportCSV(ctx, strings.NewReader(in)); !errors.Is(err, apperrors.ErrInvalidCSVHeaders) {
				t.Errorf("ImportCSV(%q): expected ErrInvalidCSVHeaders, got %v", in, err)
			}
		}
	})
}

func TestContentHash(t *testing.T) {
	a := testutil.NewTransaction().WithSymbol("AAPL").Buy("1", "100").Value()
	b := testutil.NewTransaction().WithSymbol("AAPL").Buy("1.0", "100.00").Value()
	c := testutil.NewTransaction().WithSymbol("AAPL").Buy("2", "100").Value()

	// WHY: IDs differ between a and b; only economic content counts.
	if a.ID == b.ID {
		t.Fatal("builders should generate distinct IDs")
	}
	if service.ContentHash(a) != service.ContentHash(b) {
		t.Error("equal amounts must hash equally regardless of formatting")
	}
	if service.ContentHash(a) == service.ContentHash(c) {
		t.Error("different quantities must hash differently")
	}
	if len(service.ContentHash(a)) != 64 {
		t.Errorf("Expected a hex SHA-256, got %q", service.ContentHash(a))
	}
}
