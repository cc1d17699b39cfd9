package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/calculator"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
)

// ReportService builds realized-performance reports from the ledger.
type ReportService struct {
	transactions TransactionSource
	assets       AssetTypeLookup
	logger       *zap.Logger
}

// NewReportService creates a new ReportService.
func NewReportService(transactions TransactionSource, assets AssetTypeLookup, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		transactions: transactions,
		assets:       assets,
		logger:       logger,
	}
}

// realizedSale is the outcome of one SELL.
type realizedSale struct {
	tx        model.Transaction
	pl        decimal.Decimal
	assetType string
}

// GetTimePerformanceReport aggregates the realized result of every SELL,
// replayed per symbol under method.
//
// Statistics are reported overall, per asset type (EQUITY, ETF, UNKNOWN) and
// per calendar year, quarter and month of the SELL date. A SELL that realizes
// exactly zero counts as neither a win nor a loss. Symbols whose replay fails
// contribute the sales processed before the failure and are listed in Errors.
func (s *ReportService) GetTimePerformanceReport(ctx context.Context, method calculator.Method) (*model.TimePerformanceReport, error) {
	txs, err := s.transactions.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	bySymbol := groupBySymbol(txs)
	sales := []realizedSale{}
	errs := []string{}

	symbols := sortedKeys(bySymbol)
	for _, symbol := range symbols {
		calc, err := calculator.New(method, s.logger)
		if err != nil {
			return nil, err
		}
		assetType := ""
		for _, tx := range bySymbol[symbol] {
			res, err := calc.ProcessTransaction(tx)
			if err != nil {
				s.logger.Warn("realized replay stopped",
					zap.String("symbol", symbol),
					zap.String("transactionId", tx.ID),
					zap.Error(err),
				)
				errs = append(errs, fmt.Sprintf("%s: %v", symbol, err))
				break
			}
			if tx.Type != model.TransactionTypeSell {
				continue
			}
			if assetType == "" {
				assetType = s.assetType(ctx, symbol)
			}
			sales = append(sales, realizedSale{tx: tx, pl: res.RealizedPL, assetType: assetType})
		}
	}

	report := &model.TimePerformanceReport{
		Method:      string(method),
		Overall:     tradeStats(sales),
		ByAssetType: map[string]model.TradeStats{},
		Yearly:      periodStats(sales, yearKey),
		Quarterly:   periodStats(sales, quarterKey),
		Monthly:     periodStats(sales, monthKey),
	}
	if len(errs) > 0 {
		report.Errors = errs
	}

	byType := map[string][]realizedSale{}
	for _, sale := range sales {
		byType[sale.assetType] = append(byType[sale.assetType], sale)
	}
	for assetType, group := range byType {
		report.ByAssetType[assetType] = tradeStats(group)
	}

	return report, nil
}

// GetSymbolTransactionSummary returns every transaction of symbol in ledger
// order. Each SELL carries its realized P/L, the cost basis it removed and
// the return on that cost basis in percent.
//
// An oversell stops the annotation at the failing SELL; the remaining
// transactions are listed without P/L and Error describes the failure.
func (s *ReportService) GetSymbolTransactionSummary(ctx context.Context, symbol string, method calculator.Method) (*model.SymbolTransactionSummary, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	txs, err := s.transactions.FindBySymbol(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions for %s: %w", symbol, err)
	}
	SortTransactions(txs)

	calc, err := calculator.New(method, s.logger)
	if err != nil {
		return nil, err
	}

	summary := &model.SymbolTransactionSummary{
		Symbol:       symbol,
		Method:       string(method),
		Transactions: make([]model.TransactionWithPL, 0, len(txs)),
	}

	failed := false
	for _, tx := range txs {
		row := model.TransactionWithPL{Transaction: tx}
		if failed {
			summary.Transactions = append(summary.Transactions, row)
			continue
		}

		basisBefore := calc.TotalCostBasis()
		res, err := calc.ProcessTransaction(tx)
		if err != nil {
			failed = true
			summary.Error = err.Error()
			summary.Transactions = append(summary.Transactions, row)
			continue
		}

		if tx.Type == model.TransactionTypeSell {
			removed := basisBefore.Sub(calc.TotalCostBasis())
			pl := res.RealizedPL
			row.RealizedPL = &pl
			row.CostBasis = &removed
			pct := 0.0
			if !removed.IsZero() {
				pct = pl.Div(removed).Mul(decimal.NewFromInt(100)).InexactFloat64()
			}
			row.ReturnPct = &pct
		}
		summary.Transactions = append(summary.Transactions, row)
	}

	summary.TotalShares = calc.TotalShares()
	summary.TotalCostBasis = calc.TotalCostBasis()
	summary.TotalRealizedPL = calc.TotalRealizedPL()
	summary.AverageCost = decimal.Zero
	if summary.TotalShares.IsPositive() {
		summary.AverageCost = summary.TotalCostBasis.Div(summary.TotalShares)
	}
	return summary, nil
}

func (s *ReportService) assetType(ctx context.Context, symbol string) string {
	if s.assets == nil {
		return model.AssetTypeUnknown
	}
	t := s.assets.GetAssetType(ctx, symbol)
	if t == "" {
		return model.AssetTypeUnknown
	}
	return t
}

// tradeStats aggregates realized sales.
// Win rate is wins/(wins+losses)*100; profit factor is totalWin/|totalLoss|,
// +Inf when there are wins and no losses and 0 when there are no wins.
func tradeStats(sales []realizedSale) model.TradeStats {
	stats := model.TradeStats{
		TotalWin:      decimal.Zero,
		TotalLoss:     decimal.Zero,
		NetRealizedPL: decimal.Zero,
	}
	for _, sale := range sales {
		stats.TradeCount++
		stats.NetRealizedPL = stats.NetRealizedPL.Add(sale.pl)
		switch {
		case sale.pl.IsPositive():
			stats.Wins++
			stats.TotalWin = stats.TotalWin.Add(sale.pl)
		case sale.pl.IsNegative():
			stats.Losses++
			stats.TotalLoss = stats.TotalLoss.Add(sale.pl)
		}
	}

	if decided := stats.Wins + stats.Losses; decided > 0 {
		stats.WinRate = float64(stats.Wins) / float64(decided) * 100
	}
	switch {
	case stats.Wins == 0:
		stats.ProfitFactor = 0
	case stats.Losses == 0:
		stats.ProfitFactor = model.Ratio(math.Inf(1))
	default:
		stats.ProfitFactor = model.Ratio(stats.TotalWin.Div(stats.TotalLoss.Abs()).InexactFloat64())
	}
	return stats
}

func periodStats(sales []realizedSale, key func(model.Transaction) string) []model.PeriodPerformance {
	groups := map[string][]realizedSale{}
	for _, sale := range sales {
		k := key(sale.tx)
		groups[k] = append(groups[k], sale)
	}

	periods := sortedKeys(groups)
	out := make([]model.PeriodPerformance, 0, len(periods))
	for _, p := range periods {
		out = append(out, model.PeriodPerformance{Period: p, Stats: tradeStats(groups[p])})
	}
	return out
}

func yearKey(tx model.Transaction) string {
	return tx.Date.Format("2006")
}

func quarterKey(tx model.Transaction) string {
	return fmt.Sprintf("%d-Q%d", tx.Date.Year(), (int(tx.Date.Month())-1)/3+1)
}

func monthKey(tx model.Transaction) string {
	return tx.Date.Format("2006-01")
}

// groupBySymbol splits non-cash transactions per symbol, each group sorted by date then id.
func groupBySymbol(txs []model.Transaction) map[string][]model.Transaction {
	groups := map[string][]model.Transaction{}
	for _, tx := range txs {
		if tx.IsCash() {
			continue
		}
		groups[tx.Symbol] = append(groups[tx.Symbol], tx)
	}
	for _, group := range groups {
		SortTransactions(group)
	}
	return groups
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
