package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/calculator"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/performance"
)

// ValuationService reconstructs the daily portfolio value series from the ledger.
type ValuationService struct {
	transactions TransactionSource
	prices       PriceSource
	method       calculator.Method
	logger       *zap.Logger
	now          func() time.Time
}

// NewValuationService creates a new ValuationService.
// method selects the cost-basis convention used for cost basis and realized P/L.
func NewValuationService(
	transactions TransactionSource,
	prices PriceSource,
	method calculator.Method,
	logger *zap.Logger,
) *ValuationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if method == "" {
		method = calculator.MethodFIFO
	}
	return &ValuationService{
		transactions: transactions,
		prices:       prices,
		method:       method,
		logger:       logger,
		now:          time.Now,
	}
}

// CalculateDailyValues replays the whole ledger and returns one snapshot per
// distinct transaction date up to and including endDate, in ascending order.
//
// A zero endDate means today (UTC). Each snapshot values open positions at the
// latest close on or before its date (the earliest known close when none is
// earlier) and adds the cash balance. A symbol whose calculator rejects a
// transaction is logged and frozen at its last good state; other symbols and
// cash keep going.
//
// Returns an empty slice when the ledger has no transactions on or before endDate.
func (s *ValuationService) CalculateDailyValues(ctx context.Context, endDate time.Time) ([]model.DailyPortfolioValue, error) {
	return s.calculate(ctx, endDate, false)
}

// CalculateDailyValuesThrough behaves like CalculateDailyValues and, when the
// last transaction date is before endDate, appends a mark-to-market snapshot on
// endDate with zero cash flow. Benchmark comparisons use it so both sides cover
// the same window.
func (s *ValuationService) CalculateDailyValuesThrough(ctx context.Context, endDate time.Time) ([]model.DailyPortfolioValue, error) {
	return s.calculate(ctx, endDate, true)
}

// LedgerCheckpoint is the replay state at the end of the last snapshot date.
// Fingerprint identifies the transactions dated on or before Date, so a
// checkpoint is only reused while that part of the ledger is unchanged.
type LedgerCheckpoint struct {
	Date        time.Time
	Fingerprint string
	Cash        decimal.Decimal
	Symbols     []string
	States      map[string]model.CalculatorState
	Halted      map[string]bool
}

// CalculateDailyValuesSince continues the replay from checkpoint.
//
// When checkpoint is nil, lies after endDate, cannot be restored, or the
// transactions on or before its date changed, the whole ledger is replayed and
// full is true. Otherwise only the snapshots for dates after checkpoint.Date
// are returned. next is the checkpoint after the last snapshot, nil for an
// empty ledger.
func (s *ValuationService) CalculateDailyValuesSince(ctx context.Context, checkpoint *LedgerCheckpoint, endDate time.Time) (values []model.DailyPortfolioValue, next *LedgerCheckpoint, full bool, err error) {
	return s.replay(ctx, checkpoint, endDate, false)
}

func (s *ValuationService) calculate(ctx context.Context, endDate time.Time, markEnd bool) ([]model.DailyPortfolioValue, error) {
	values, _, _, err := s.replay(ctx, nil, endDate, markEnd)
	return values, err
}

func (s *ValuationService) replay(ctx context.Context, checkpoint *LedgerCheckpoint, endDate time.Time, markEnd bool) ([]model.DailyPortfolioValue, *LedgerCheckpoint, bool, error) {
	if endDate.IsZero() {
		endDate = s.now()
	}
	endDate = model.Day(endDate)

	all, err := s.transactions.FindAll(ctx)
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to load transactions: %w", err)
	}

	txs := make([]model.Transaction, 0, len(all))
	for _, tx := range all {
		tx.Date = model.Day(tx.Date)
		if !tx.Date.After(endDate) {
			txs = append(txs, tx)
		}
	}
	if len(txs) == 0 {
		return []model.DailyPortfolioValue{}, nil, true, nil
	}
	SortTransactions(txs)

	state, pending, full := s.resume(checkpoint, txs, endDate)
	values := make([]model.DailyPortfolioValue, 0)
	if len(pending) == 0 {
		return values, checkpoint, false, nil
	}

	// Held positions need prices for the new dates as well as newly traded symbols.
	// A week of lead-in gives the first new date a prior close.
	symbols := tradedSymbols(pending)
	for _, symbol := range state.order {
		if state.calcs[symbol].TotalShares().IsZero() {
			continue
		}
		if !slices.Contains(symbols, symbol) {
			symbols = append(symbols, symbol)
		}
	}
	priceStart := pending[0].Date
	if !full {
		priceStart = priceStart.AddDate(0, 0, -7)
	}
	prices, err := loadSeriesBatch(ctx, s.prices, s.logger, symbols, priceStart, endDate)
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to load prices: %w", err)
	}

	next := 0
	for next < len(pending) {
		date := pending[next].Date
		cashFlow := decimal.Zero

		for next < len(pending) && !pending[next].Date.After(date) {
			cashFlow = cashFlow.Add(state.apply(pending[next]))
			next++
		}

		values = append(values, state.snapshot(date, cashFlow, prices))
	}
	last := values[len(values)-1].Date
	nextCheckpoint := state.checkpoint(last, ledgerFingerprint(txs))

	if markEnd && last.Before(endDate) {
		values = append(values, state.snapshot(endDate, decimal.Zero, prices))
	}

	s.logger.Debug("calculated daily values",
		zap.Int("transactions", len(pending)),
		zap.Int("symbols", len(symbols)),
		zap.Int("days", len(values)),
		zap.Bool("full", full),
	)
	return values, nextCheckpoint, full, nil
}

// resume restores checkpoint when it still describes the start of txs and
// returns the transactions left to replay. Without a usable checkpoint it
// returns a fresh state, every transaction and full = true.
func (s *ValuationService) resume(checkpoint *LedgerCheckpoint, txs []model.Transaction, endDate time.Time) (*ledgerState, []model.Transaction, bool) {
	if checkpoint == nil || checkpoint.Date.After(endDate) {
		return newLedgerState(s.method, s.logger), txs, true
	}

	split := sort.Search(len(txs), func(i int) bool {
		return txs[i].Date.After(checkpoint.Date)
	})
	if ledgerFingerprint(txs[:split]) != checkpoint.Fingerprint {
		s.logger.Debug("ledger changed before checkpoint, replaying from the start",
			zap.Time("checkpoint", checkpoint.Date),
		)
		return newLedgerState(s.method, s.logger), txs, true
	}

	state := newLedgerState(s.method, s.logger)
	if err := state.restore(checkpoint); err != nil {
		s.logger.Warn("checkpoint could not be restored, replaying from the start", zap.Error(err))
		return newLedgerState(s.method, s.logger), txs, true
	}
	return state, txs[split:], false
}

// ledgerFingerprint hashes the fields of txs that affect a replay.
func ledgerFingerprint(txs []model.Transaction) string {
	h := sha256.New()
	for _, tx := range txs {
		fmt.Fprintf(h, "%s|%s|%s|%s|%s|%s|%s\n",
			tx.ID,
			tx.Date.Format("2006-01-02"),
			tx.Symbol,
			tx.Type,
			tx.Quantity.String(),
			tx.Price.String(),
			tx.Fees.String(),
		)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CashEffect returns how tx moves the cash balance and the external cash flow.
//
// BUY spends quantity*price+fees and counts it as capital moved in; SELL
// returns quantity*price-fees and counts it as capital moved out. Dividends and
// interest add the amount net of fees, standalone fees remove their magnitude
// plus fees, and transfers move both cash and cash flow by the signed amount.
func CashEffect(tx model.Transaction) (cash, cashFlow decimal.Decimal) {
	switch tx.Type {
	case model.TransactionTypeBuy:
		cost := tx.GrossAmount().Add(tx.Fees)
		return cost.Neg(), cost
	case model.TransactionTypeSell:
		proceeds := tx.GrossAmount().Sub(tx.Fees)
		return proceeds, proceeds.Neg()
	case model.TransactionTypeDividend, model.TransactionTypeInterest:
		return tx.CashAmount().Sub(tx.Fees), decimal.Zero
	case model.TransactionTypeFee:
		return tx.CashAmount().Abs().Add(tx.Fees).Neg(), decimal.Zero
	case model.TransactionTypeTransfer:
		amount := tx.CashAmount()
		return amount, amount
	}
	return decimal.Zero, decimal.Zero
}

// SortTransactions orders transactions by date, then id.
func SortTransactions(txs []model.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.Before(txs[j].Date)
		}
		return txs[i].ID < txs[j].ID
	})
}

// tradedSymbols returns the distinct non-cash symbols in first-seen order.
func tradedSymbols(txs []model.Transaction) []string {
	seen := make(map[string]bool)
	symbols := []string{}
	for _, tx := range txs {
		if tx.IsCash() || seen[tx.Symbol] {
			continue
		}
		seen[tx.Symbol] = true
		symbols = append(symbols, tx.Symbol)
	}
	return symbols
}

// ledgerState is the running state of a ledger replay: one calculator per
// symbol plus the cash balance. It is owned by a single goroutine.
type ledgerState struct {
	method  calculator.Method
	logger  *zap.Logger
	calcs   map[string]calculator.Calculator
	order   []string
	halted  map[string]bool
	cash    decimal.Decimal
}

func newLedgerState(method calculator.Method, logger *zap.Logger) *ledgerState {
	return &ledgerState{
		method:  method,
		logger:  logger,
		calcs:   make(map[string]calculator.Calculator),
		halted:  make(map[string]bool),
		cash:    decimal.Zero,
	}
}

// apply books tx and returns its contribution to the day's cash flow.
func (l *ledgerState) apply(tx model.Transaction) decimal.Decimal {
	cash, flow := CashEffect(tx)
	l.cash = l.cash.Add(cash)

	if tx.IsCash() || (tx.Type != model.TransactionTypeBuy && tx.Type != model.TransactionTypeSell) {
		return flow
	}
	if l.halted[tx.Symbol] {
		return flow
	}

	calc, ok := l.calcs[tx.Symbol]
	if !ok {
		var err error
		calc, err = calculator.New(l.method, l.logger)
		if err != nil {
			// Only reachable with an unknown method.
			l.halt(tx, err)
			return flow
		}
		l.calcs[tx.Symbol] = calc
		l.order = append(l.order, tx.Symbol)
	}

	if _, err := calc.ProcessTransaction(tx); err != nil {
		l.halt(tx, err)
	}
	return flow
}

// restore loads checkpoint into an empty state.
func (l *ledgerState) restore(checkpoint *LedgerCheckpoint) error {
	for _, symbol := range checkpoint.Symbols {
		calc, err := calculator.New(l.method, l.logger)
		if err != nil {
			return err
		}
		state, ok := checkpoint.States[symbol]
		if !ok {
			return fmt.Errorf("%w: no state for %s", apperrors.ErrDataInconsistency, symbol)
		}
		if err := calc.SetState(state); err != nil {
			return fmt.Errorf("failed to restore %s: %w", symbol, err)
		}
		l.calcs[symbol] = calc
		l.order = append(l.order, symbol)
	}
	for symbol, halted := range checkpoint.Halted {
		l.halted[symbol] = halted
	}
	l.cash = checkpoint.Cash
	return nil
}

func (l *ledgerState) checkpoint(date time.Time, fingerprint string) *LedgerCheckpoint {
	cp := &LedgerCheckpoint{
		Date:        date,
		Fingerprint: fingerprint,
		Cash:        l.cash,
		Symbols:     slices.Clone(l.order),
		States:      make(map[string]model.CalculatorState, len(l.order)),
		Halted:      make(map[string]bool, len(l.halted)),
	}
	for _, symbol := range l.order {
		cp.States[symbol] = l.calcs[symbol].State()
	}
	for symbol, halted := range l.halted {
		cp.Halted[symbol] = halted
	}
	return cp
}

func (l *ledgerState) halt(tx model.Transaction, err error) {
	l.halted[tx.Symbol] = true

	fields := []zap.Field{
		zap.String("symbol", tx.Symbol),
		zap.String("transactionId", tx.ID),
		zap.Time("date", tx.Date),
		zap.Error(err),
	}
	var oversell *apperrors.OversellError
	if errors.As(err, &oversell) {
		fields = append(fields, zap.String("deficit", oversell.Deficit().String()))
	}
	l.logger.Error("stopped replaying symbol", fields...)
}

func (l *ledgerState) snapshot(date time.Time, cashFlow decimal.Decimal, prices map[string][]model.HistoricalPrice) model.DailyPortfolioValue {
	securities := decimal.Zero
	costBasis := decimal.Zero
	realized := decimal.Zero

	for _, symbol := range l.order {
		calc := l.calcs[symbol]
		costBasis = costBasis.Add(calc.TotalCostBasis())
		realized = realized.Add(calc.TotalRealizedPL())

		shares := calc.TotalShares()
		if shares.IsZero() {
			continue
		}
		price, _ := performance.PriceAt(prices[symbol], date)
		securities = securities.Add(shares.Mul(price))
	}

	return model.DailyPortfolioValue{
		Date:        date,
		MarketValue: securities.Add(l.cash),
		CashFlow:    cashFlow,
		CostBasis:   costBasis,
		RealizedPL:  realized,
		CashBalance: l.cash,
	}
}
