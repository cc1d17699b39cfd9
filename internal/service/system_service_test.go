package service_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/repository"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/service"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/testutil"
)

type fakeRefresher struct {
	symbols []string
	days    int
	failed  []string
	err     error
}

func (f *fakeRefresher) RefreshPrices(_ context.Context, symbols []string, days int) (int, []string, error) {
	f.symbols, f.days = symbols, days
	if f.err != nil {
		return 0, nil, f.err
	}
	return len(symbols) - len(f.failed), f.failed, nil
}

type fakeRebuilder struct {
	calls int
	err   error
}

func (f *fakeRebuilder) RebuildAll(context.Context) (int, error) {
	f.calls++
	return 42, f.err
}

func TestSystemService_CheckHealth(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := service.NewSystemService(db, repository.NewTransactionRepository(db), &fakeRefresher{}, &fakeRebuilder{}, nil, 7, zaptest.NewLogger(t))

	if err := svc.CheckHealth(context.Background()); err != nil {
		t.Errorf("CheckHealth() returned unexpected error: %v", err)
	}

	db.Close()
	if err := svc.CheckHealth(context.Background()); err == nil {
		t.Error("Expected an error from a closed database")
	}
}

func TestSystemService_GetVersionInfo(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := service.NewSystemService(db, repository.NewTransactionRepository(db), &fakeRefresher{}, &fakeRebuilder{}, nil, 7, zaptest.NewLogger(t))

	info, err := svc.GetVersionInfo(context.Background())
	if err != nil {
		t.Fatalf("GetVersionInfo() returned unexpected error: %v", err)
	}
	if info.DbVersion != "3" {
		t.Errorf("DbVersion = %q, want 3", info.DbVersion)
	}
	if info.MigrationNeeded || info.MigrationMessage != nil {
		t.Error("Expected no pending migrations on a migrated database")
	}
	if !info.Features["materialized_values"] {
		t.Error("Expected materialized_values feature on schema 3")
	}
}

// TestSystemService_RefreshAll tests the manual and scheduled refresh path.
//
// WHY: the refresh must cover every traded symbol plus the benchmarks, never
// ask Yahoo for cash, and still rebuild when individual symbols fail.
func TestSystemService_RefreshAll(t *testing.T) {
	ctx := context.Background()

	t.Run("refreshes held symbols and benchmarks then rebuilds", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		testutil.CreateTransactions(t, db,
			testutil.NewTransaction().Deposit("1000").OnDate("2024-01-02"),
			testutil.NewTransaction().WithSymbol("AAPL").OnDate("2024-01-02"),
			testutil.NewTransaction().WithSymbol("SPY").OnDate("2024-01-03"),
		)
		refresher := &fakeRefresher{failed: []string{"QQQ"}}
		rebuilder := &fakeRebuilder{}
		svc := service.NewSystemService(db, repository.NewTransactionRepository(db), refresher, rebuilder,
			[]string{"spy", "QQQ"}, 0, zaptest.NewLogger(t))

		result, err := svc.RefreshAll(ctx)
		if err != nil {
			t.Fatalf("RefreshAll() returned unexpected error: %v", err)
		}
		want := []string{"AAPL", "SPY", "QQQ"}
		if !slices.Equal(refresher.symbols, want) {
			t.Errorf("refreshed symbols = %v, want %v", refresher.symbols, want)
		}
		if refresher.days != 7 {
			t.Errorf("days = %d, want the default of 7", refresher.days)
		}
		if result.Refreshed != 2 || len(result.Failed) != 1 || result.DailyValues != 42 {
			t.Errorf("unexpected result %+v", result)
		}
		if rebuilder.calls != 1 {
			t.Errorf("Expected 1 rebuild, got %d", rebuilder.calls)
		}
	})

	t.Run("interrupted refresh skips the rebuild", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		refresher := &fakeRefresher{err: context.DeadlineExceeded}
		rebuilder := &fakeRebuilder{}
		svc := service.NewSystemService(db, repository.NewTransactionRepository(db), refresher, rebuilder,
			[]string{"SPY"}, 7, zaptest.NewLogger(t))

		if _, err := svc.RefreshAll(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Expected DeadlineExceeded, got %v", err)
		}
		if rebuilder.calls != 0 {
			t.Errorf("Expected no rebuild, got %d", rebuilder.calls)
		}
	})

	t.Run("rebuild failure is returned", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		rebuildErr := errors.New("disk full")
		svc := service.NewSystemService(db, repository.NewTransactionRepository(db), &fakeRefresher{}, &fakeRebuilder{err: rebuildErr},
			[]string{"SPY"}, 7, zaptest.NewLogger(t))

		if _, err := svc.RefreshAll(ctx); !errors.Is(err, rebuildErr) {
			t.Errorf("Expected rebuild error, got %v", err)
		}
	})
}
