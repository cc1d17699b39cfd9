// Package calculator implements lot-based cost-basis accounting for a single symbol.
//
// A Calculator is fed the transactions of one symbol in non-decreasing date order and
// keeps the remaining position and the running realized P/L. Two methods are available:
// FIFO, which consumes discrete purchase lots oldest first, and average cost, which keeps
// a single share count and cost basis pair. Calculator state is derived from the ledger
// only and can be checkpointed with State and restored with SetState.
//
// Calculators are not safe for concurrent use. Each instance belongs to one replay.
package calculator

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
)

// Method selects the cost-basis convention.
type Method string

// Supported cost-basis methods.
const (
	MethodFIFO        Method = "FIFO"
	MethodAverageCost Method = "AVERAGE_COST"
)

// ParseMethod parses a method name. An empty string selects FIFO.
func ParseMethod(s string) (Method, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(MethodFIFO):
		return MethodFIFO, nil
	case string(MethodAverageCost), "AVERAGE", "AVG":
		return MethodAverageCost, nil
	}
	return "", fmt.Errorf("%w: %q", apperrors.ErrInvalidCostBasisMethod, s)
}

// Calculator is the common contract of both cost-basis methods.
type Calculator interface {
	// ProcessTransaction applies one transaction. A SELL of more shares than held
	// returns *apperrors.OversellError and leaves the state untouched.
	ProcessTransaction(tx model.Transaction) (model.PLResult, error)
	TotalRealizedPL() decimal.Decimal
	TotalShares() decimal.Decimal
	TotalCostBasis() decimal.Decimal
	Reset()
	State() model.CalculatorState
	SetState(state model.CalculatorState) error
	Method() Method
}

// New returns an empty calculator for the given method.
// A nil logger is replaced with a no-op logger.
func New(method Method, logger *zap.Logger) (Calculator, error) {
	switch method {
	case MethodFIFO:
		return NewFIFOCalculator(logger), nil
	case MethodAverageCost:
		return NewAverageCostCalculator(logger), nil
	}
	return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidCostBasisMethod, method)
}

// Replay feeds txs into calc in order and returns one result per transaction.
// It stops at the first error; results up to that point are returned with it.
func Replay(calc Calculator, txs []model.Transaction) ([]model.PLResult, error) {
	results := make([]model.PLResult, 0, len(txs))
	for _, tx := range txs {
		res, err := calc.ProcessTransaction(tx)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func nopIfNil(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func oversell(tx model.Transaction, requested, available decimal.Decimal) error {
	return &apperrors.OversellError{
		Symbol:    tx.Symbol,
		Date:      tx.Date,
		Requested: requested,
		Available: available,
	}
}

func holdingDays(purchase, sale time.Time) int {
	return int(model.Day(sale).Sub(model.Day(purchase)).Hours() / 24)
}
