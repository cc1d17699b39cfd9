package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
)

// TransactionBuilder provides a fluent interface for creating test transactions.
//
// Example usage:
//
//	// In-memory value for calculator tests
//	tx := testutil.NewTransaction().Buy("10", "100").OnDate("2024-01-02").Value()
//
//	// Persisted row for repository and service tests
//	tx := testutil.NewTransaction().
//	    WithSymbol("MSFT").
//	    Sell("5", "410.25").
//	    WithFees("1").
//	    Build(t, db)
type TransactionBuilder struct {
	ID          string
	Date        time.Time
	Symbol      string
	Type        model.TransactionType
	Quantity    decimal.Decimal
	Price       decimal.Decimal
	Fees        decimal.Decimal
	ContentHash string
}

// NewTransaction creates a TransactionBuilder for a 1 share AAPL buy at 100 on 2024-01-01.
func NewTransaction() *TransactionBuilder {
	return &TransactionBuilder{
		ID:       MakeID(),
		Date:     Date("2024-01-01"),
		Symbol:   "AAPL",
		Type:     model.TransactionTypeBuy,
		Quantity: decimal.NewFromInt(1),
		Price:    decimal.NewFromInt(100),
		Fees:     decimal.Zero,
	}
}

// WithID sets a custom ID.
func (b *TransactionBuilder) WithID(id string) *TransactionBuilder {
	b.ID = id
	return b
}

// WithSymbol sets a custom symbol.
func (b *TransactionBuilder) WithSymbol(symbol string) *TransactionBuilder {
	b.Symbol = symbol
	return b
}

// WithDate sets a custom date.
func (b *TransactionBuilder) WithDate(date time.Time) *TransactionBuilder {
	b.Date = date
	return b
}

// OnDate sets the date from a "2006-01-02" string.
func (b *TransactionBuilder) OnDate(date string) *TransactionBuilder {
	b.Date = Date(date)
	return b
}

// WithFees sets the commission.
func (b *TransactionBuilder) WithFees(fees string) *TransactionBuilder {
	b.Fees = D(fees)
	return b
}

// WithContentHash sets the deduplication hash stored by Build.
func (b *TransactionBuilder) WithContentHash(hash string) *TransactionBuilder {
	b.ContentHash = hash
	return b
}

// Buy turns the transaction into a BUY of quantity shares at price.
func (b *TransactionBuilder) Buy(quantity, price string) *TransactionBuilder {
	return b.trade(model.TransactionTypeBuy, quantity, price)
}

// Sell turns the transaction into a SELL of quantity shares at price.
func (b *TransactionBuilder) Sell(quantity, price string) *TransactionBuilder {
	return b.trade(model.TransactionTypeSell, quantity, price)
}

// Dividend turns the transaction into a cash dividend on the current symbol.
func (b *TransactionBuilder) Dividend(amount string) *TransactionBuilder {
	return b.trade(model.TransactionTypeDividend, "0", amount)
}

// Interest books interest on the cash pseudo-symbol.
func (b *TransactionBuilder) Interest(amount string) *TransactionBuilder {
	b.Symbol = model.CashSymbol
	return b.trade(model.TransactionTypeInterest, "0", amount)
}

// Fee books a standalone fee on the cash pseudo-symbol.
func (b *TransactionBuilder) Fee(amount string) *TransactionBuilder {
	b.Symbol = model.CashSymbol
	return b.trade(model.TransactionTypeFee, "0", amount)
}

// Deposit books a cash transfer. Negative amounts are withdrawals.
func (b *TransactionBuilder) Deposit(amount string) *TransactionBuilder {
	b.Symbol = model.CashSymbol
	return b.trade(model.TransactionTypeTransfer, "0", amount)
}

func (b *TransactionBuilder) trade(txType model.TransactionType, quantity, price string) *TransactionBuilder {
	b.Type = txType
	b.Quantity = D(quantity)
	b.Price = D(price)
	return b
}

// Value returns the transaction without touching a database.
func (b *TransactionBuilder) Value() model.Transaction {
	return model.Transaction{
		ID:       b.ID,
		Date:     b.Date,
		Symbol:   b.Symbol,
		Type:     b.Type,
		Quantity: b.Quantity,
		Price:    b.Price,
		Fees:     b.Fees,
	}
}

// Build inserts the transaction into the database and returns it.
func (b *TransactionBuilder) Build(t *testing.T, db *sql.DB) model.Transaction {
	t.Helper()

	tx := b.Value()
	tx.CreatedAt = time.Now().UTC().Truncate(time.Second)

	var hash sql.NullString
	if b.ContentHash != "" {
		hash = sql.NullString{String: b.ContentHash, Valid: true}
	}

	_, err := db.Exec(`
		INSERT INTO "transaction" (id, date, symbol, type, quantity, price, fees, content_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, tx.ID, tx.Date.Format("2006-01-02"), tx.Symbol, string(tx.Type),
		tx.Quantity.String(), tx.Price.String(), tx.Fees.String(), hash, tx.CreatedAt.Format(time.RFC3339))
	if err != nil {
		t.Fatalf("Failed to create test transaction: %v", err)
	}

	return tx
}

// TransactionSeries materializes builders in order.
func TransactionSeries(builders ...*TransactionBuilder) []model.Transaction {
	txs := make([]model.Transaction, len(builders))
	for i, b := range builders {
		txs[i] = b.Value()
	}
	return txs
}

// CreateTransactions persists every builder in order and returns the stored transactions.
func CreateTransactions(t *testing.T, db *sql.DB, builders ...*TransactionBuilder) []model.Transaction {
	t.Helper()

	txs := make([]model.Transaction, len(builders))
	for i, b := range builders {
		txs[i] = b.Build(t, db)
	}
	return txs
}

// HistoricalPriceBuilder provides a fluent interface for creating cached price bars.
//
// Example usage:
//
//	testutil.NewHistoricalPrice("SPY").OnDate("2024-01-02").WithClose("472.65").Build(t, db)
type HistoricalPriceBuilder struct {
	Symbol string
	Date   time.Time
	Close  decimal.Decimal
	Volume int64
}

// NewHistoricalPrice creates a bar for symbol closing at 100 on 2024-01-01.
func NewHistoricalPrice(symbol string) *HistoricalPriceBuilder {
	return &HistoricalPriceBuilder{
		Symbol: symbol,
		Date:   Date("2024-01-01"),
		Close:  decimal.NewFromInt(100),
		Volume: 1000000,
	}
}

// OnDate sets the bar date from a "2006-01-02" string.
func (b *HistoricalPriceBuilder) OnDate(date string) *HistoricalPriceBuilder {
	b.Date = Date(date)
	return b
}

// WithClose sets the close; open, high and low mirror it.
func (b *HistoricalPriceBuilder) WithClose(price string) *HistoricalPriceBuilder {
	b.Close = D(price)
	return b
}

// Value returns the bar without touching a database.
func (b *HistoricalPriceBuilder) Value() model.HistoricalPrice {
	return model.HistoricalPrice{
		Symbol: b.Symbol,
		Date:   b.Date,
		Open:   b.Close,
		High:   b.Close,
		Low:    b.Close,
		Close:  b.Close,
		Volume: b.Volume,
	}
}

// Build inserts the bar into the price cache and returns it.
func (b *HistoricalPriceBuilder) Build(t *testing.T, db *sql.DB) model.HistoricalPrice {
	t.Helper()

	p := b.Value()
	_, err := db.Exec(`
		INSERT INTO historical_price (symbol, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.Symbol, p.Date.Format("2006-01-02"), p.Open.String(), p.High.String(), p.Low.String(), p.Close.String(), p.Volume)
	if err != nil {
		t.Fatalf("Failed to create test price: %v", err)
	}
	return p
}

// CreatePriceSeries persists a bar for every calendar day from start for days days.
func CreatePriceSeries(t *testing.T, db *sql.DB, symbol, start string, days int, closePrice string) []model.HistoricalPrice {
	t.Helper()

	prices := FlatPrices(symbol, start, days, closePrice)
	for _, p := range prices {
		NewHistoricalPrice(symbol).WithClose(p.Close.String()).OnDate(p.Date.Format("2006-01-02")).Build(t, db)
	}
	return prices
}

// DailyValueBuilder provides a fluent interface for portfolio snapshots.
//
// Example usage:
//
//	v := testutil.NewDailyValue("2024-01-02").WithMarketValue("1000").WithCashFlow("1000").Value()
type DailyValueBuilder struct {
	value model.DailyPortfolioValue
}

// NewDailyValue creates an all-zero snapshot on date.
func NewDailyValue(date string) *DailyValueBuilder {
	return &DailyValueBuilder{value: model.DailyPortfolioValue{
		Date:        Date(date),
		MarketValue: decimal.Zero,
		CashFlow:    decimal.Zero,
		CostBasis:   decimal.Zero,
		RealizedPL:  decimal.Zero,
		CashBalance: decimal.Zero,
	}}
}

// WithMarketValue sets the total market value including cash.
func (b *DailyValueBuilder) WithMarketValue(v string) *DailyValueBuilder {
	b.value.MarketValue = D(v)
	return b
}

// WithCashFlow sets the net capital moved in on the date.
func (b *DailyValueBuilder) WithCashFlow(v string) *DailyValueBuilder {
	b.value.CashFlow = D(v)
	return b
}

// WithCostBasis sets the open cost basis.
func (b *DailyValueBuilder) WithCostBasis(v string) *DailyValueBuilder {
	b.value.CostBasis = D(v)
	return b
}

// WithRealizedPL sets the cumulative realized P/L.
func (b *DailyValueBuilder) WithRealizedPL(v string) *DailyValueBuilder {
	b.value.RealizedPL = D(v)
	return b
}

// WithCash sets the cash balance.
func (b *DailyValueBuilder) WithCash(v string) *DailyValueBuilder {
	b.value.CashBalance = D(v)
	return b
}

// Value returns the snapshot.
func (b *DailyValueBuilder) Value() model.DailyPortfolioValue {
	return b.value
}

// AssetInfoBuilder provides a fluent interface for cached asset metadata.
type AssetInfoBuilder struct {
	info model.AssetInfo
}

// NewAssetInfo creates EQUITY metadata for symbol.
func NewAssetInfo(symbol string) *AssetInfoBuilder {
	return &AssetInfoBuilder{info: model.AssetInfo{
		Symbol:    symbol,
		AssetType: model.AssetTypeEquity,
		Name:      symbol + " Inc.",
		Currency:  "USD",
	}}
}

// WithAssetType sets the asset type.
func (b *AssetInfoBuilder) WithAssetType(assetType string) *AssetInfoBuilder {
	b.info.AssetType = assetType
	return b
}

// Build inserts the metadata and returns it.
func (b *AssetInfoBuilder) Build(t *testing.T, db *sql.DB) model.AssetInfo {
	t.Helper()

	b.info.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	_, err := db.Exec(`
		INSERT INTO asset_info (symbol, asset_type, name, currency, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, b.info.Symbol, b.info.AssetType, b.info.Name, b.info.Currency, b.info.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		t.Fatalf("Failed to create test asset info: %v", err)
	}
	return b.info
}
