package apperrors

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Domain entity errors represent missing or invalid entities in the system.
// These errors indicate that a requested resource does not exist.
var (
	// ErrTransactionNotFound indicates that a transaction with the given ID does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrSymbolNotFound indicates that a symbol lookup returned no results.
	ErrSymbolNotFound = errors.New("symbol not found")

	// ErrPriceNotFound indicates that no price is known for a symbol on or before a date.
	ErrPriceNotFound = errors.New("price not found")
)

// Business logic errors represent validation failures or constraint violations.
// These errors indicate that an operation cannot be completed due to business rules.
var (
	// ErrInsufficientShares indicates that a sell transaction cannot be completed
	// because fewer shares are held than requested. OversellError wraps it.
	ErrInsufficientShares = errors.New("insufficient shares for sale")

	// ErrInvalidDateRange indicates that the provided date range is invalid
	// (e.g., start date is after end date).
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrInvalidCostBasisMethod indicates an unknown cost-basis method name.
	ErrInvalidCostBasisMethod = errors.New("invalid cost basis method")

	// ErrStateMethodMismatch indicates that a calculator state snapshot was produced by another method.
	ErrStateMethodMismatch = errors.New("calculator state belongs to a different method")

	// ErrInvalidUUID indicates that a provided ID is not a valid UUID format.
	ErrInvalidUUID = errors.New("invalid UUID format")

	// ErrEmptyID indicates that a required ID parameter is empty or missing.
	ErrEmptyID = errors.New("ID cannot be empty")

	// ErrDuplicateEntry indicates that an entity with the same unique constraint already exists.
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Validation errors for required fields
	ErrInvalidSymbol = errors.New("symbol is required")
)

// Operation failure errors represent system-level failures when retrieving or processing data.
// These errors indicate that an operation failed, but not due to missing entities or validation issues.
var (
	// Transaction operation errors
	ErrFailedToRetrieveTransactions = errors.New("failed to retrieve transactions")
	ErrFailedToRetrieveTransaction  = errors.New("failed to retrieve transaction")
	ErrFailedToCreateTransaction    = errors.New("failed to create transaction")
	ErrFailedToDeleteTransaction    = errors.New("failed to delete transaction")
	ErrFailedToImportTransactions   = errors.New("failed to import transactions")
	ErrInvalidCSVHeaders            = errors.New("invalid CSV headers")

	// Portfolio operation errors
	ErrFailedToGetPortfolioSummary = errors.New("failed to get portfolio summary")
	ErrFailedToGetPortfolioHistory = errors.New("failed to get portfolio history")

	// Market data errors
	ErrFailedToRetrievePrices = errors.New("failed to retrieve prices")
	ErrFailedToRefreshPrices  = errors.New("failed to refresh prices")

	// Analytics errors
	ErrFailedToCompareBenchmarks = errors.New("failed to compare benchmarks")
	ErrFailedToSimulateDCA       = errors.New("failed to simulate DCA")
	ErrFailedToBuildReport       = errors.New("failed to build performance report")
	ErrFailedToBuildAnalytics    = errors.New("failed to build behavioral analytics")

	// System operation errors
	ErrFailedToGetVersionInfo = errors.New("failed to get version information")
)

// Data integrity errors represent inconsistencies or corruption in the data.
var (
	// ErrDataInconsistency indicates that the data is in an inconsistent state.
	ErrDataInconsistency = errors.New("data inconsistency detected")

	// ErrMissingRequiredField indicates that a required field is missing or empty.
	ErrMissingRequiredField = errors.New("missing required field")
)

// OversellError reports a SELL of more shares than are currently held.
// It is fatal for the replay of the affected symbol only.
type OversellError struct {
	Symbol    string
	Date      time.Time
	Requested decimal.Decimal
	Available decimal.Decimal
}

// Error implements error.
func (e *OversellError) Error() string {
	return fmt.Sprintf("oversell of %s on %s: requested %s, available %s (deficit %s)",
		e.Symbol,
		e.Date.Format("2006-01-02"),
		e.Requested.String(),
		e.Available.String(),
		e.Deficit().String(),
	)
}

// Deficit returns how many shares the sell was short by.
func (e *OversellError) Deficit() decimal.Decimal {
	return e.Requested.Sub(e.Available)
}

// Unwrap lets errors.Is match ErrInsufficientShares.
func (e *OversellError) Unwrap() error {
	return ErrInsufficientShares
}
