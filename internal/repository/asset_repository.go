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

// AssetRepository provides data access methods for the asset_info table.
type AssetRepository struct {
	db *sql.DB
}

// NewAssetRepository creates a new AssetRepository with the provided database connection.
func NewAssetRepository(db *sql.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

// GetAssetInfo retrieves cached metadata for symbol.
// Returns apperrors.ErrSymbolNotFound when the symbol has never been classified.
func (r *AssetRepository) GetAssetInfo(ctx context.Context, symbol string) (model.AssetInfo, error) {
	var info model.AssetInfo
	var name, currency, updatedAt sql.NullString

	err := r.db.QueryRowContext(ctx, `
		SELECT symbol, asset_type, name, currency, updated_at
		FROM asset_info
		WHERE symbol = ?
	`, symbol).Scan(&info.Symbol, &info.AssetType, &name, &currency, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AssetInfo{}, apperrors.ErrSymbolNotFound
	}
	if err != nil {
		return model.AssetInfo{}, fmt.Errorf("failed to query asset_info: %w", err)
	}

	info.Name = name.String
	info.Currency = currency.String
	if updatedAt.Valid {
		if info.UpdatedAt, err = ParseTime(updatedAt.String); err != nil {
			info.UpdatedAt = time.Time{}
		}
	}
	return info, nil
}

// UpsertAssetInfo inserts or replaces the cached metadata of a symbol.
func (r *AssetRepository) UpsertAssetInfo(ctx context.Context, info model.AssetInfo) error {
	updatedAt := info.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO asset_info (symbol, asset_type, name, currency, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			asset_type = excluded.asset_type,
			name = excluded.name,
			currency = excluded.currency,
			updated_at = excluded.updated_at
	`, info.Symbol, info.AssetType, info.Name, info.Currency, updatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to upsert asset_info: %w", err)
	}
	return nil
}
