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

// TransactionRepository provides data access methods for the transaction table.
// It is the transaction source of the valuation, benchmark and reporting services.
type TransactionRepository struct {
	db *sql.DB
}

// NewTransactionRepository creates a new TransactionRepository with the provided database connection.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `id, date, symbol, type, quantity, price, fees, created_at`

// FindAll retrieves every transaction ordered by date, then id.
func (r *TransactionRepository) FindAll(ctx context.Context) ([]model.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM "transaction"
		ORDER BY date ASC, id ASC
	`
	return r.queryTransactions(ctx, query)
}

// FindBySymbol retrieves the transactions of one symbol ordered by date, then id.
// The symbol is matched exactly; callers normalize case before calling.
func (r *TransactionRepository) FindBySymbol(ctx context.Context, symbol string) ([]model.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM "transaction"
		WHERE symbol = ?
		ORDER BY date ASC, id ASC
	`
	return r.queryTransactions(ctx, query, symbol)
}

// FindByDateRange retrieves transactions with startDate <= date <= endDate.
func (r *TransactionRepository) FindByDateRange(ctx context.Context, startDate, endDate time.Time) ([]model.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM "transaction"
		WHERE date >= ?
		AND date <= ?
		ORDER BY date ASC, id ASC
	`
	return r.queryTransactions(ctx, query, startDate.Format(dateLayout), endDate.Format(dateLayout))
}

// GetAllSymbols returns the distinct symbols present in the ledger, sorted.
func (r *TransactionRepository) GetAllSymbols(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM "transaction" ORDER BY symbol ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction symbols: %w", err)
	}
	defer rows.Close()

	symbols := []string{}
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan transaction symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction symbols: %w", err)
	}
	return symbols, nil
}

// GetTransaction retrieves a single transaction by ID.
// Returns apperrors.ErrTransactionNotFound when no row matches.
func (r *TransactionRepository) GetTransaction(ctx context.Context, id string) (model.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM "transaction"
		WHERE id = ?
	`
	txs, err := r.queryTransactions(ctx, query, id)
	if err != nil {
		return model.Transaction{}, err
	}
	if len(txs) == 0 {
		return model.Transaction{}, apperrors.ErrTransactionNotFound
	}
	return txs[0], nil
}

// GetOldestTransactionDate returns the date of the earliest transaction,
// or the zero time when the ledger is empty or the lookup fails.
func (r *TransactionRepository) GetOldestTransactionDate(ctx context.Context) time.Time {
	var oldest sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT MIN(date) FROM "transaction"`).Scan(&oldest)
	if err != nil || !oldest.Valid {
		return time.Time{}
	}
	date, err := ParseTime(oldest.String)
	if err != nil {
		return time.Time{}
	}
	return date
}

// InsertTransaction stores one transaction. contentHash may be empty.
// Returns apperrors.ErrDuplicateEntry when the hash is already present.
func (r *TransactionRepository) InsertTransaction(ctx context.Context, tx model.Transaction, contentHash string) error {
	inserted, err := r.InsertTransactions(ctx, []model.Transaction{tx}, []string{contentHash})
	if err != nil {
		return err
	}
	if inserted == 0 {
		return apperrors.ErrDuplicateEntry
	}
	return nil
}

// InsertTransactions stores transactions in a single database transaction.
// Rows whose content hash already exists are skipped; the number of rows
// actually inserted is returned. hashes must be nil or the same length as txs.
func (r *TransactionRepository) InsertTransactions(ctx context.Context, txs []model.Transaction, hashes []string) (int, error) {
	if hashes != nil && len(hashes) != len(txs) {
		return 0, fmt.Errorf("%w: %d transactions but %d hashes", apperrors.ErrDataInconsistency, len(txs), len(hashes))
	}
	if len(txs) == 0 {
		return 0, nil
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		//nolint:errcheck // Rollback after Commit is a no-op
		dbTx.Rollback()
	}()

	stmt, err := dbTx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO "transaction" (id, date, symbol, type, quantity, price, fees, content_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare transaction insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for i, t := range txs {
		var hash sql.NullString
		if hashes != nil && hashes[i] != "" {
			hash = sql.NullString{String: hashes[i], Valid: true}
		}
		createdAt := t.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}

		res, err := stmt.ExecContext(ctx,
			t.ID,
			t.Date.Format(dateLayout),
			t.Symbol,
			string(t.Type),
			t.Quantity.String(),
			t.Price.String(),
			t.Fees.String(),
			hash,
			createdAt.Format(time.RFC3339),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert transaction %s: %w", t.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to read affected rows: %w", err)
		}
		inserted += int(n)
	}

	if err := dbTx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transactions: %w", err)
	}
	return inserted, nil
}

// DeleteTransaction removes a transaction by ID.
// Returns apperrors.ErrTransactionNotFound when no row matches.
func (r *TransactionRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM "transaction" WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return apperrors.ErrTransactionNotFound
	}
	return nil
}

func (r *TransactionRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]model.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction table: %w", err)
	}
	defer rows.Close()

	transactions := []model.Transaction{}
	for rows.Next() {
		var t model.Transaction
		var dateStr, txType string
		var createdAtStr sql.NullString

		err := rows.Scan(
			&t.ID,
			&dateStr,
			&t.Symbol,
			&txType,
			&t.Quantity,
			&t.Price,
			&t.Fees,
			&createdAtStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction table results: %w", err)
		}
		t.Type = model.TransactionType(txType)

		t.Date, err = ParseTime(dateStr)
		if err != nil || t.Date.IsZero() {
			return nil, fmt.Errorf("failed to parse date: %w", errors.Join(err, apperrors.ErrDataInconsistency))
		}
		if createdAtStr.Valid {
			if t.CreatedAt, err = ParseTime(createdAtStr.String); err != nil {
				t.CreatedAt = time.Time{}
			}
		}

		transactions = append(transactions, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction table: %w", err)
	}

	return transactions, nil
}
