package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/repository"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/testutil"
)

func TestTransactionRepository_FindAll(t *testing.T) {
	t.Run("returns empty slice for empty ledger", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewTransactionRepository(db)

		txs, err := repo.FindAll(context.Background())
		if err != nil {
			t.Fatalf("FindAll() returned unexpected error: %v", err)
		}
		if txs == nil || len(txs) != 0 {
			t.Errorf("Expected empty non-nil slice, got %v", txs)
		}
	})

	t.Run("orders by date and round-trips decimals exactly", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewTransactionRepository(db)

		testutil.CreateTransactions(t, db,
			testutil.NewTransaction().Sell("3", "110.005").OnDate("2024-03-01"),
			testutil.NewTransaction().Buy("10.123456789", "100.1").WithFees("0.35").OnDate("2024-01-02"),
		)

		txs, err := repo.FindAll(context.Background())
		if err != nil {
			t.Fatalf("FindAll() returned unexpected error: %v", err)
		}
		if len(txs) != 2 {
			t.Fatalf("Expected 2 transactions, got %d", len(txs))
		}
		if !txs[0].Date.Equal(testutil.Date("2024-01-02")) {
			t.Errorf("first date = %v, want 2024-01-02", txs[0].Date)
		}
		// WHY: quantities and prices are stored as TEXT so no float rounding may creep in.
		testutil.AssertDecimal(t, "quantity", txs[0].Quantity, "10.123456789")
		testutil.AssertDecimal(t, "fees", txs[0].Fees, "0.35")
		testutil.AssertDecimal(t, "price", txs[1].Price, "110.005")
		if txs[1].Type != model.TransactionTypeSell {
			t.Errorf("type = %s, want SELL", txs[1].Type)
		}
	})
}

func TestTransactionRepository_FindBySymbolAndSymbols(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewTransactionRepository(db)
	ctx := context.Background()

	testutil.CreateTransactions(t, db,
		testutil.NewTransaction().WithSymbol("MSFT").Buy("1", "400").OnDate("2024-01-03"),
		testutil.NewTransaction().WithSymbol("AAPL").Buy("2", "180").OnDate("2024-01-02"),
		testutil.NewTransaction().Deposit("1000").OnDate("2024-01-01"),
	)

	t.Run("filters by symbol", func(t *testing.T) {
		txs, err := repo.FindBySymbol(ctx, "MSFT")
		if err != nil {
			t.Fatalf("FindBySymbol() returned unexpected error: %v", err)
		}
		if len(txs) != 1 || txs[0].Symbol != "MSFT" {
			t.Errorf("Expected single MSFT transaction, got %v", txs)
		}
	})

	t.Run("lists distinct sorted symbols", func(t *testing.T) {
		symbols, err := repo.GetAllSymbols(ctx)
		if err != nil {
			t.Fatalf("GetAllSymbols() returned unexpected error: %v", err)
		}
		want := []string{"AAPL", "MSFT", "USD"}
		if len(symbols) != len(want) {
			t.Fatalf("symbols = %v, want %v", symbols, want)
		}
		for i := range want {
			if symbols[i] != want[i] {
				t.Errorf("symbols[%d] = %s, want %s", i, symbols[i], want[i])
			}
		}
	})

	t.Run("date range is inclusive", func(t *testing.T) {
		txs, err := repo.FindByDateRange(ctx, testutil.Date("2024-01-02"), testutil.Date("2024-01-03"))
		if err != nil {
			t.Fatalf("FindByDateRange() returned unexpected error: %v", err)
		}
		if len(txs) != 2 {
			t.Errorf("Expected 2 transactions, got %d", len(txs))
		}
	})

	t.Run("oldest transaction date", func(t *testing.T) {
		if got := repo.GetOldestTransactionDate(ctx); !got.Equal(testutil.Date("2024-01-01")) {
			t.Errorf("oldest = %v, want 2024-01-01", got)
		}
	})
}

func TestTransactionRepository_GetTransaction(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewTransactionRepository(db)

	t.Run("returns stored transaction", func(t *testing.T) {
		tx := testutil.NewTransaction().Build(t, db)

		got, err := repo.GetTransaction(context.Background(), tx.ID)
		if err != nil {
			t.Fatalf("GetTransaction() returned unexpected error: %v", err)
		}
		if got.ID != tx.ID || got.Symbol != tx.Symbol {
			t.Errorf("got %+v, want %+v", got, tx)
		}
	})

	t.Run("missing id is ErrTransactionNotFound", func(t *testing.T) {
		_, err := repo.GetTransaction(context.Background(), testutil.MakeID())
		if !errors.Is(err, apperrors.ErrTransactionNotFound) {
			t.Errorf("Expected ErrTransactionNotFound, got %v", err)
		}
	})
}

func TestTransactionRepository_Insert(t *testing.T) {
	t.Run("duplicate content hash is skipped", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewTransactionRepository(db)
		ctx := context.Background()

		txs := []model.Transaction{
			testutil.NewTransaction().Value(),
			testutil.NewTransaction().Value(),
			testutil.NewTransaction().Sell("1", "120").Value(),
		}
		inserted, err := repo.InsertTransactions(ctx, txs, []string{"h1", "h1", "h2"})
		if err != nil {
			t.Fatalf("InsertTransactions() returned unexpected error: %v", err)
		}
		if inserted != 2 {
			t.Errorf("inserted = %d, want 2", inserted)
		}
		testutil.AssertRowCount(t, db, "transaction", 2)

		// WHY: single inserts report the duplicate instead of silently ignoring it.
		err = repo.InsertTransaction(ctx, testutil.NewTransaction().Value(), "h2")
		if !errors.Is(err, apperrors.ErrDuplicateEntry) {
			t.Errorf("Expected ErrDuplicateEntry, got %v", err)
		}
	})

	t.Run("empty hashes are never duplicates", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewTransactionRepository(db)

		txs := []model.Transaction{testutil.NewTransaction().Value(), testutil.NewTransaction().Value()}
		inserted, err := repo.InsertTransactions(context.Background(), txs, nil)
		if err != nil {
			t.Fatalf("InsertTransactions() returned unexpected error: %v", err)
		}
		if inserted != 2 {
			t.Errorf("inserted = %d, want 2", inserted)
		}
	})

	t.Run("mismatched hashes are rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewTransactionRepository(db)

		_, err := repo.InsertTransactions(context.Background(), []model.Transaction{testutil.NewTransaction().Value()}, []string{"a", "b"})
		if !errors.Is(err, apperrors.ErrDataInconsistency) {
			t.Errorf("Expected ErrDataInconsistency, got %v", err)
		}
	})
}

func TestTransactionRepository_DeleteTransaction(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewTransactionRepository(db)
	tx := testutil.NewTransaction().Build(t, db)

	if err := repo.DeleteTransaction(context.Background(), tx.ID); err != nil {
		t.Fatalf("DeleteTransaction() returned unexpected error: %v", err)
	}
	testutil.AssertRowCount(t, db, "transaction", 0)

	if err := repo.DeleteTransaction(context.Background(), tx.ID); !errors.Is(err, apperrors.ErrTransactionNotFound) {
		t.Errorf("Expected ErrTransactionNotFound on second delete, got %v", err)
	}
}
