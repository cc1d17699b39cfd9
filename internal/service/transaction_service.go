package service

import (
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/api/request"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/repository"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/validation"
)

// CSVHeader is the column layout accepted by ImportCSV.
var CSVHeader = []string{"date", "symbol", "type", "quantity", "price", "fees"}

// TransactionService handles ledger mutations and lookups.
type TransactionService struct {
	transactionRepo *repository.TransactionRepository
	snapshots       *SnapshotService
	logger          *zap.Logger
}

// NewTransactionService creates a new TransactionService.
// When snapshots is non-nil every successful mutation rebuilds the materialized daily values.
func NewTransactionService(
	transactionRepo *repository.TransactionRepository,
	snapshots *SnapshotService,
	logger *zap.Logger,
) *TransactionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransactionService{
		transactionRepo: transactionRepo,
		snapshots:       snapshots,
		logger:          logger,
	}
}

// GetTransactions lists every transaction, or only those of symbol when it is non-empty.
func (s *TransactionService) GetTransactions(ctx context.Context, symbol string) ([]model.Transaction, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return s.transactionRepo.FindAll(ctx)
	}
	return s.transactionRepo.FindBySymbol(ctx, symbol)
}

// GetTransaction retrieves a single transaction by its ID.
func (s *TransactionService) GetTransaction(ctx context.Context, id string) (model.Transaction, error) {
	return s.transactionRepo.GetTransaction(ctx, id)
}

// CreateTransaction validates req, stores it under a new UUID and rebuilds the daily values.
//
// Returns a *validation.Error for invalid input and apperrors.ErrDuplicateEntry
// when an identical transaction already exists.
func (s *TransactionService) CreateTransaction(ctx context.Context, req request.CreateTransactionRequest) (*model.Transaction, error) {
	if err := validation.ValidateCreateTransaction(req); err != nil {
		return nil, err
	}

	tx, err := transactionFromRequest(req)
	if err != nil {
		return nil, err
	}

	if err := s.transactionRepo.InsertTransaction(ctx, tx, ContentHash(tx)); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateEntry) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	s.logger.Info("created transaction",
		zap.String("id", tx.ID),
		zap.String("symbol", tx.Symbol),
		zap.String("type", string(tx.Type)),
	)
	s.rebuild(ctx)
	return &tx, nil
}

// DeleteTransaction removes a transaction and rebuilds the daily values.
func (s *TransactionService) DeleteTransaction(ctx context.Context, id string) error {
	if err := s.transactionRepo.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	s.logger.Info("deleted transaction", zap.String("id", id))
	s.rebuild(ctx)
	return nil
}

// ImportCSV reads normalized transactions with the header
// date,symbol,type,quantity,price,fees and stores them in one database transaction.
//
// Every row is validated before anything is written; any invalid row rejects
// the whole file with a *validation.Error keyed by line number. Rows whose
// content hash is already stored, in the database or earlier in the file,
// are skipped and counted in ImportResult.Skipped.
func (s *TransactionService) ImportCSV(ctx context.Context, r io.Reader) (model.ImportResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return model.ImportResult{}, fmt.Errorf("%w: empty file", apperrors.ErrInvalidCSVHeaders)
		}
		return model.ImportResult{}, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if !validHeader(header) {
		return model.ImportResult{}, fmt.Errorf("%w: expected %s", apperrors.ErrInvalidCSVHeaders, strings.Join(CSVHeader, ","))
	}

	txs := []model.Transaction{}
	hashes := []string{}
	seen := map[string]bool{}
	fieldErrors := map[string]string{}
	total := 0

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line, _ := reader.FieldPos(0)
		if err != nil {
			return model.ImportResult{}, fmt.Errorf("failed to read CSV line %d: %w", line, err)
		}
		if blankRecord(record) {
			continue
		}
		total++

		req, err := requestFromRecord(record)
		if err == nil {
			err = validation.ValidateCreateTransaction(req)
		}
		if err != nil {
			fieldErrors[fmt.Sprintf("line %d", line)] = err.Error()
			continue
		}

		tx, err := transactionFromRequest(req)
		if err != nil {
			fieldErrors[fmt.Sprintf("line %d", line)] = err.Error()
			continue
		}
		hash := ContentHash(tx)
		if seen[hash] {
			continue
		}
		seen[hash] = true
		txs = append(txs, tx)
		hashes = append(hashes, hash)
	}

	if len(fieldErrors) > 0 {
		return model.ImportResult{}, &validation.Error{Fields: fieldErrors}
	}

	inserted, err := s.transactionRepo.InsertTransactions(ctx, txs, hashes)
	if err != nil {
		return model.ImportResult{}, fmt.Errorf("%w: %w", apperrors.ErrFailedToImportTransactions, err)
	}

	result := model.ImportResult{
		Imported: inserted,
		Skipped:  total - inserted,
		Total:    total,
	}
	s.logger.Info("imported transactions",
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
	)
	if inserted > 0 {
		s.rebuild(ctx)
	}
	return result, nil
}

// ContentHash fingerprints the economic content of a transaction so that
// re-importing the same file does not duplicate rows. The ID is excluded.
func ContentHash(tx model.Transaction) string {
	payload := strings.Join([]string{
		tx.Date.Format("2006-01-02"),
		tx.Symbol,
		string(tx.Type),
		tx.Quantity.String(),
		tx.Price.String(),
		tx.Fees.String(),
	}, "|")
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// rebuild refreshes the materialized daily values. A failure only leaves the
// table stale, so it is logged rather than returned.
func (s *TransactionService) rebuild(ctx context.Context) {
	if s.snapshots == nil {
		return
	}
	if _, err := s.snapshots.Rebuild(ctx); err != nil {
		s.logger.Error("failed to rebuild daily values", zap.Error(err))
	}
}

func transactionFromRequest(req request.CreateTransactionRequest) (model.Transaction, error) {
	date, err := validation.ParseTime(req.Date)
	if err != nil {
		return model.Transaction{}, err
	}

	tx := model.Transaction{
		ID:        uuid.New().String(),
		Date:      date,
		Symbol:    strings.ToUpper(strings.TrimSpace(req.Symbol)),
		Type:      model.TransactionType(strings.ToUpper(strings.TrimSpace(req.Type))),
		Quantity:  decimal.Zero,
		Price:     decimal.Zero,
		Fees:      decimal.Zero,
		CreatedAt: time.Now().UTC(),
	}
	if req.Quantity != nil {
		tx.Quantity = *req.Quantity
	}
	if req.Price != nil {
		tx.Price = *req.Price
	}
	if req.Fees != nil {
		tx.Fees = *req.Fees
	}
	return tx, nil
}

func requestFromRecord(record []string) (request.CreateTransactionRequest, error) {
	for len(record) < len(CSVHeader) {
		record = append(record, "")
	}
	req := request.CreateTransactionRequest{
		Date:   record[0],
		Symbol: record[1],
		Type:   record[2],
	}

	fields := []struct {
		name string
		dst  **decimal.Decimal
		raw  string
	}{
		{"quantity", &req.Quantity, record[3]},
		{"price", &req.Price, record[4]},
		{"fees", &req.Fees, record[5]},
	}
	for _, f := range fields {
		raw := strings.TrimSpace(f.raw)
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return req, fmt.Errorf("%s: invalid number %q", f.name, raw)
		}
		*f.dst = &d
	}
	return req, nil
}

func validHeader(header []string) bool {
	if len(header) < len(CSVHeader) {
		return false
	}
	for i, want := range CSVHeader {
		got := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff")))
		if got != want {
			return false
		}
	}
	return true
}

func blankRecord(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
