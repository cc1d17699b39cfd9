package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
)

// PriceRepository provides data access methods for the historical_price cache.
type PriceRepository struct {
	db *sql.DB
}

// NewPriceRepository creates a new PriceRepository with the provided database connection.
func NewPriceRepository(db *sql.DB) *PriceRepository {
	return &PriceRepository{db: db}
}

// GetHistoricalPrices retrieves cached bars for symbol with startDate <= date <= endDate,
// sorted by date ascending. An empty slice is returned when nothing is cached.
func (r *PriceRepository) GetHistoricalPrices(ctx context.Context, symbol string, startDate, endDate time.Time) ([]model.HistoricalPrice, error) {
	query := `
		SELECT symbol, date, open, high, low, close, volume
		FROM historical_price
		WHERE symbol = ?
		AND date >= ?
		AND date <= ?
		ORDER BY date ASC
	`

	rows, err := r.db.QueryContext(ctx, query, symbol, startDate.Format(dateLayout), endDate.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query historical_price: %w", err)
	}
	defer rows.Close()

	prices := []model.HistoricalPrice{}
	for rows.Next() {
		p, err := scanPrice(rows)
		if err != nil {
			return nil, err
		}
		prices = append(prices, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating historical_price: %w", err)
	}

	return prices, nil
}

// GetLatestPrice returns the most recent cached bar for symbol.
// Returns apperrors.ErrPriceNotFound when nothing is cached.
func (r *PriceRepository) GetLatestPrice(ctx context.Context, symbol string) (model.HistoricalPrice, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT symbol, date, open, high, low, close, volume
		FROM historical_price
		WHERE symbol = ?
		ORDER BY date DESC
		LIMIT 1
	`, symbol)

	p, err := scanPrice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.HistoricalPrice{}, apperrors.ErrPriceNotFound
	}
	if err != nil {
		return model.HistoricalPrice{}, err
	}
	return p, nil
}

// UpsertPrices writes bars into the cache inside a single database transaction.
// Existing bars for the same symbol and date are overwritten.
func (r *PriceRepository) UpsertPrices(ctx context.Context, prices []model.HistoricalPrice) error {
	if len(prices) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		//nolint:errcheck // Rollback after Commit is a no-op
		tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO historical_price (symbol, date, open, high, low, close, volume, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, date) DO UPDATE SET
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume,
			fetched_at = excluded.fetched_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare price upsert: %w", err)
	}
	defer stmt.Close()

	fetchedAt := time.Now().UTC().Format(time.RFC3339)
	for _, p := range prices {
		_, err := stmt.ExecContext(ctx,
			p.Symbol,
			p.Date.Format(dateLayout),
			p.Open.String(),
			p.High.String(),
			p.Low.String(),
			p.Close.String(),
			p.Volume,
			fetchedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert price for %s on %s: %w", p.Symbol, p.Date.Format(dateLayout), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit prices: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrice(row rowScanner) (model.HistoricalPrice, error) {
	var p model.HistoricalPrice
	var dateStr string

	err := row.Scan(
		&p.Symbol,
		&dateStr,
		&p.Open,
		&p.High,
		&p.Low,
		&p.Close,
		&p.Volume,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("failed to scan historical_price row: %w", err)
	}

	p.Date, err = ParseTime(dateStr)
	if err != nil {
		return p, err
	}
	return p, nil
}
