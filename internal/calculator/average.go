package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
)

// AverageCostCalculator keeps a single pooled position per symbol.
// A sale realizes against the pooled average cost and leaves that average unchanged;
// only a later buy moves it.
type AverageCostCalculator struct {
	totalShares     decimal.Decimal
	totalCostBasis  decimal.Decimal
	totalRealizedPL decimal.Decimal
	logger          *zap.Logger
}

// NewAverageCostCalculator creates an empty average-cost calculator.
func NewAverageCostCalculator(logger *zap.Logger) *AverageCostCalculator {
	return &AverageCostCalculator{
		logger: nopIfNil(logger),
	}
}

// Method returns MethodAverageCost.
func (c *AverageCostCalculator) Method() Method {
	return MethodAverageCost
}

// ProcessTransaction applies a single transaction to the pooled position.
func (c *AverageCostCalculator) ProcessTransaction(tx model.Transaction) (model.PLResult, error) {
	switch tx.Type {
	case model.TransactionTypeBuy:
		qty := tx.Shares()
		if qty.IsZero() {
			// No shares are added; the fee still joins the pool.
			c.logger.Warn("buy with zero quantity adds only its fees",
				zap.String("symbol", tx.Symbol),
				zap.String("transactionId", tx.ID),
				zap.Time("date", tx.Date),
			)
			c.totalCostBasis = c.totalCostBasis.Add(tx.Fees)
			return model.PLResult{RealizedPL: decimal.Zero}, nil
		}
		c.totalShares = c.totalShares.Add(qty)
		c.totalCostBasis = c.totalCostBasis.Add(qty.Mul(tx.Price)).Add(tx.Fees)
		return model.PLResult{RealizedPL: decimal.Zero}, nil

	case model.TransactionTypeSell:
		qty := tx.Shares()
		if qty.IsZero() {
			return model.PLResult{RealizedPL: decimal.Zero}, nil
		}
		if qty.GreaterThan(c.totalShares) {
			return model.PLResult{}, oversell(tx, qty, c.totalShares)
		}

		avg := c.AverageCost()
		proceeds := qty.Mul(tx.Price).Sub(tx.Fees)
		realized := proceeds.Sub(qty.Mul(avg))

		c.totalShares = c.totalShares.Sub(qty)
		c.totalCostBasis = c.totalShares.Mul(avg)
		c.totalRealizedPL = c.totalRealizedPL.Add(realized)

		return model.PLResult{RealizedPL: realized}, nil
	}

	return model.PLResult{RealizedPL: decimal.Zero}, nil
}

// AverageCost returns cost basis per share, or zero when no shares are held.
func (c *AverageCostCalculator) AverageCost() decimal.Decimal {
	if c.totalShares.IsZero() {
		return decimal.Zero
	}
	return c.totalCostBasis.Div(c.totalShares)
}

// TotalRealizedPL returns the realized P/L accumulated so far.
func (c *AverageCostCalculator) TotalRealizedPL() decimal.Decimal {
	return c.totalRealizedPL
}

// TotalShares returns the pooled share count.
func (c *AverageCostCalculator) TotalShares() decimal.Decimal {
	return c.totalShares
}

// TotalCostBasis returns the pooled cost basis.
func (c *AverageCostCalculator) TotalCostBasis() decimal.Decimal {
	return c.totalCostBasis
}

// Reset clears the position and the realized total.
func (c *AverageCostCalculator) Reset() {
	c.totalShares = decimal.Zero
	c.totalCostBasis = decimal.Zero
	c.totalRealizedPL = decimal.Zero
}

// State returns a checkpoint of the calculator.
func (c *AverageCostCalculator) State() model.CalculatorState {
	return model.CalculatorState{
		Method:          string(MethodAverageCost),
		TotalShares:     c.totalShares,
		TotalCostBasis:  c.totalCostBasis,
		TotalRealizedPL: c.totalRealizedPL,
	}
}

// SetState restores a checkpoint produced by State.
func (c *AverageCostCalculator) SetState(state model.CalculatorState) error {
	if state.Method != string(MethodAverageCost) {
		return fmt.Errorf("%w: got %q, want %q", apperrors.ErrStateMethodMismatch, state.Method, MethodAverageCost)
	}
	if state.TotalShares.IsNegative() {
		return fmt.Errorf("%w: negative share count %s", apperrors.ErrDataInconsistency, state.TotalShares)
	}
	c.totalShares = state.TotalShares
	c.totalCostBasis = state.TotalCostBasis
	c.totalRealizedPL = state.TotalRealizedPL
	return nil
}
