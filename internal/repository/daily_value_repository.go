package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
)

// DailyValueRepository provides data access methods for the daily_portfolio_value table.
type DailyValueRepository struct {
	db *sql.DB
}

// NewDailyValueRepository creates a new repository instance.
func NewDailyValueRepository(db *sql.DB) *DailyValueRepository {
	return &DailyValueRepository{db: db}
}

// ReplaceDailyValues atomically swaps the stored snapshot series for values.
// The previous series is removed in the same database transaction, so readers
// never observe a partially rebuilt history.
func (r *DailyValueRepository) ReplaceDailyValues(ctx context.Context, values []model.DailyPortfolioValue) error {
	return r.writeDailyValues(ctx, values, true)
}

// UpsertDailyValues stores values in one database transaction, overwriting
// any snapshot already stored for the same date. Other dates are left alone.
func (r *DailyValueRepository) UpsertDailyValues(ctx context.Context, values []model.DailyPortfolioValue) error {
	if len(values) == 0 {
		return nil
	}
	return r.writeDailyValues(ctx, values, false)
}

func (r *DailyValueRepository) writeDailyValues(ctx context.Context, values []model.DailyPortfolioValue, replace bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		//nolint:errcheck // Rollback after Commit is a no-op
		tx.Rollback()
	}()

	if replace {
		if _, err := tx.ExecContext(ctx, `DELETE FROM daily_portfolio_value`); err != nil {
			return fmt.Errorf("failed to clear daily_portfolio_value: %w", err)
		}
	}

	if len(values) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO daily_portfolio_value
				(date, market_value, cash_flow, cost_basis, realized_pl, cash_balance, calculated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare daily value insert: %w", err)
		}
		defer stmt.Close()

		calculatedAt := time.Now().UTC().Format(time.RFC3339)
		for _, v := range values {
			_, err := stmt.ExecContext(ctx,
				v.Date.Format(dateLayout),
				v.MarketValue.String(),
				v.CashFlow.String(),
				v.CostBasis.String(),
				v.RealizedPL.String(),
				v.CashBalance.String(),
				calculatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert daily value for %s: %w", v.Date.Format(dateLayout), err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit daily values: %w", err)
	}
	return nil
}

// GetDailyValues streams stored snapshots with startDate <= date <= endDate in
// ascending date order. A zero startDate or endDate leaves that side open.
//
// Parameters:
//   - startDate: First date to include in results (inclusive)
//   - endDate: Last date to include in results (inclusive)
//   - callback: Called once per snapshot; a returned error stops iteration
//
// Returns an error if the query fails or if the callback returns an error during processing.
func (r *DailyValueRepository) GetDailyValues(
	ctx context.Context,
	startDate, endDate time.Time,
	callback func(value model.DailyPortfolioValue) error,
) error {
	query := `
		SELECT date, market_value, cash_flow, cost_basis, realized_pl, cash_balance
		FROM daily_portfolio_value
		WHERE 1 = 1
	`
	args := []any{}
	if !startDate.IsZero() {
		query += ` AND date >= ?`
		args = append(args, startDate.Format(dateLayout))
	}
	if !endDate.IsZero() {
		query += ` AND date <= ?`
		args = append(args, endDate.Format(dateLayout))
	}
	query += ` ORDER BY date ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query daily_portfolio_value: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v model.DailyPortfolioValue
		var dateStr string

		err := rows.Scan(
			&dateStr,
			&v.MarketValue,
			&v.CashFlow,
			&v.CostBasis,
			&v.RealizedPL,
			&v.CashBalance,
		)
		if err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}

		v.Date, err = ParseTime(dateStr)
		if err != nil {
			return fmt.Errorf("failed to parse date: %w", err)
		}

		if err := callback(v); err != nil {
			return err
		}
	}

	if err = rows.Err(); err != nil {
		return fmt.Errorf("error iterating rows: %w", err)
	}

	return nil
}

// CountDailyValues returns the number of stored snapshots.
func (r *DailyValueRepository) CountDailyValues(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM daily_portfolio_value`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count daily_portfolio_value: %w", err)
	}
	return count, nil
}
