package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/api/request"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
)

// maxSymbolLength matches the width of the symbol columns.
const maxSymbolLength = 20

// symbolPattern allows tickers such as BRK.B, ^VIX, GC=F and BTC-USD.
var symbolPattern = regexp.MustCompile(`^[A-Z0-9.^=\-]+$`)

// ValidateSymbol checks a symbol after upper-casing it.
func ValidateSymbol(symbol string) error {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	switch {
	case s == "":
		return apperrors.ErrInvalidSymbol
	case len(s) > maxSymbolLength:
		return fmt.Errorf("symbol must be at most %d characters", maxSymbolLength)
	case !symbolPattern.MatchString(s):
		return fmt.Errorf("invalid symbol: %s", symbol)
	}
	return nil
}

// ValidateCreateTransaction validates a transaction creation request.
//
// Required fields:
//   - date: Must be in YYYY-MM-DD format
//   - symbol: Ticker, or USD for cash events
//   - type: One of BUY, SELL, DIVIDEND, INTEREST, FEE, TRANSFER (case-insensitive)
//   - quantity: Required and positive for BUY and SELL
//   - price: Required; non-negative for BUY and SELL, the cash amount otherwise
//
// Optional fields:
//   - fees: Must be non-negative
//
// Returns a validation Error with field-specific error messages if validation fails.
func ValidateCreateTransaction(req request.CreateTransactionRequest) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.Date) == "" {
		errors["date"] = "date is required"
	} else if _, err := ParseTime(req.Date); err != nil {
		errors["date"] = err.Error()
	}

	if err := ValidateSymbol(req.Symbol); err != nil {
		errors["symbol"] = err.Error()
	}

	txType := model.TransactionType(strings.ToUpper(strings.TrimSpace(req.Type)))
	if txType == "" {
		errors["type"] = "type is required"
	} else if !txType.Valid() {
		errors["type"] = fmt.Sprintf("invalid type: %s", req.Type)
	}

	trade := txType == model.TransactionTypeBuy || txType == model.TransactionTypeSell
	if trade {
		if req.Quantity == nil {
			errors["quantity"] = "quantity is required"
		} else if !req.Quantity.IsPositive() {
			errors["quantity"] = "quantity must be positive"
		}
		if strings.EqualFold(strings.TrimSpace(req.Symbol), model.CashSymbol) {
			errors["symbol"] = fmt.Sprintf("%s cannot be traded", model.CashSymbol)
		}
	} else if req.Quantity != nil && req.Quantity.IsNegative() {
		errors["quantity"] = "quantity must not be negative"
	}

	if req.Price == nil {
		errors["price"] = "price is required"
	} else if trade && req.Price.IsNegative() {
		errors["price"] = "price must not be negative"
	} else if txType == model.TransactionTypeFee && req.Price.IsZero() {
		errors["price"] = "fee amount must not be zero"
	}

	if req.Fees != nil && req.Fees.IsNegative() {
		errors["fees"] = "fees must not be negative"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}
