package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
)

// FIFOCalculator matches sells against the oldest open lots first.
type FIFOCalculator struct {
	lots            []model.Lot
	totalRealizedPL decimal.Decimal
	logger          *zap.Logger
}

// NewFIFOCalculator creates an empty FIFO calculator.
func NewFIFOCalculator(logger *zap.Logger) *FIFOCalculator {
	return &FIFOCalculator{
		logger: nopIfNil(logger),
	}
}

// Method returns MethodFIFO.
func (c *FIFOCalculator) Method() Method {
	return MethodFIFO
}

// ProcessTransaction applies a single transaction to the lot queue.
//
// BUY appends a lot whose cost basis per share includes the per-share fee.
// SELL consumes lots from the head, prorating the sell fee by the share of the
// sell quantity taken from each lot, and emits one LotMatch per consumed lot.
// Every other transaction type is a no-op.
func (c *FIFOCalculator) ProcessTransaction(tx model.Transaction) (model.PLResult, error) {
	switch tx.Type {
	case model.TransactionTypeBuy:
		c.buy(tx)
		return model.PLResult{RealizedPL: decimal.Zero}, nil
	case model.TransactionTypeSell:
		return c.sell(tx)
	default:
		return model.PLResult{RealizedPL: decimal.Zero}, nil
	}
}

func (c *FIFOCalculator) buy(tx model.Transaction) {
	qty := tx.Shares()
	if qty.IsZero() {
		// fees/0 has no finite per-share cost; a zero lot would also be removed immediately.
		c.logger.Warn("ignoring buy with zero quantity",
			zap.String("symbol", tx.Symbol),
			zap.String("transactionId", tx.ID),
			zap.Time("date", tx.Date),
		)
		return
	}

	c.lots = append(c.lots, model.Lot{
		SourceTransactionID: tx.ID,
		PurchaseDate:        tx.Date,
		Quantity:            qty,
		CostBasisPerShare:   tx.Price.Add(tx.Fees.Div(qty)),
	})
}

func (c *FIFOCalculator) sell(tx model.Transaction) (model.PLResult, error) {
	qty := tx.Shares()
	if qty.IsZero() {
		return model.PLResult{RealizedPL: decimal.Zero}, nil
	}

	available := c.TotalShares()
	if qty.GreaterThan(available) {
		return model.PLResult{}, oversell(tx, qty, available)
	}

	realized := decimal.Zero
	remaining := qty
	matches := make([]model.LotMatch, 0, 1)

	for remaining.IsPositive() && len(c.lots) > 0 {
		lot := &c.lots[0]
		taken := decimal.Min(remaining, lot.Quantity)

		fee := tx.Fees.Mul(taken).Div(qty)
		proceeds := taken.Mul(tx.Price).Sub(fee)
		cost := taken.Mul(lot.CostBasisPerShare)
		pl := proceeds.Sub(cost)

		matches = append(matches, model.LotMatch{
			Symbol:              tx.Symbol,
			SourceTransactionID: lot.SourceTransactionID,
			SaleTransactionID:   tx.ID,
			Quantity:            taken,
			CostBasisPerShare:   lot.CostBasisPerShare,
			SalePrice:           tx.Price,
			ProratedFee:         fee,
			RealizedPL:          pl,
			PurchaseDate:        lot.PurchaseDate,
			SaleDate:            tx.Date,
			HoldingDays:         holdingDays(lot.PurchaseDate, tx.Date),
		})

		realized = realized.Add(pl)
		lot.Quantity = lot.Quantity.Sub(taken)
		remaining = remaining.Sub(taken)

		if lot.Quantity.IsZero() {
			c.lots = c.lots[1:]
		}
	}

	c.totalRealizedPL = c.totalRealizedPL.Add(realized)

	return model.PLResult{
		RealizedPL:  realized,
		MatchedLots: matches,
	}, nil
}

// TotalRealizedPL returns the realized P/L accumulated so far.
func (c *FIFOCalculator) TotalRealizedPL() decimal.Decimal {
	return c.totalRealizedPL
}

// TotalShares returns the sum of all open lot quantities.
func (c *FIFOCalculator) TotalShares() decimal.Decimal {
	total := decimal.Zero
	for _, lot := range c.lots {
		total = total.Add(lot.Quantity)
	}
	return total
}

// TotalCostBasis returns the remaining cost basis across all open lots.
func (c *FIFOCalculator) TotalCostBasis() decimal.Decimal {
	total := decimal.Zero
	for _, lot := range c.lots {
		total = total.Add(lot.CostBasis())
	}
	return total
}

// Lots returns a copy of the open lots, oldest first.
func (c *FIFOCalculator) Lots() []model.Lot {
	out := make([]model.Lot, len(c.lots))
	copy(out, c.lots)
	return out
}

// Reset drops all lots and the realized total.
func (c *FIFOCalculator) Reset() {
	c.lots = nil
	c.totalRealizedPL = decimal.Zero
}

// State returns a checkpoint of the calculator.
func (c *FIFOCalculator) State() model.CalculatorState {
	return model.CalculatorState{
		Method:          string(MethodFIFO),
		TotalShares:     c.TotalShares(),
		TotalCostBasis:  c.TotalCostBasis(),
		TotalRealizedPL: c.totalRealizedPL,
		Lots:            c.Lots(),
	}
}

// SetState restores a checkpoint produced by State.
// Lots with a non-positive quantity are rejected.
func (c *FIFOCalculator) SetState(state model.CalculatorState) error {
	if state.Method != string(MethodFIFO) {
		return fmt.Errorf("%w: got %q, want %q", apperrors.ErrStateMethodMismatch, state.Method, MethodFIFO)
	}
	lots := make([]model.Lot, 0, len(state.Lots))
	for _, lot := range state.Lots {
		if !lot.Quantity.IsPositive() {
			return fmt.Errorf("%w: lot %s has quantity %s", apperrors.ErrDataInconsistency, lot.SourceTransactionID, lot.Quantity)
		}
		lots = append(lots, lot)
	}
	c.lots = lots
	c.totalRealizedPL = state.TotalRealizedPL
	return nil
}
