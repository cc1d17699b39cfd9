package validation_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/api/request"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/validation"
)

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestValidateSymbol(t *testing.T) {
	tests := []struct {
		symbol  string
		wantErr bool
	}{
		{"AAPL", false},
		{"brk.b", false},
		{"^VIX", false},
		{"GC=F", false},
		{"BTC-USD", false},
		{"", true},
		{"A B", true},
		{"AAPL;DROP", true},
		{"ABCDEFGHIJKLMNOPQRSTU", true},
	}
	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			err := validation.ValidateSymbol(tt.symbol)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSymbol(%q) error = %v, wantErr %v", tt.symbol, err, tt.wantErr)
			}
		})
	}

	t.Run("empty symbol is ErrInvalidSymbol", func(t *testing.T) {
		if err := validation.ValidateSymbol("  "); !errors.Is(err, apperrors.ErrInvalidSymbol) {
			t.Errorf("Expected ErrInvalidSymbol, got %v", err)
		}
	})
}

func TestValidateUUID(t *testing.T) {
	if err := validation.ValidateUUID("6f1c7a52-3c1e-4f0a-9d5b-2f7e8a1b9c00"); err != nil {
		t.Errorf("Expected valid UUID, got %v", err)
	}
	if err := validation.ValidateUUID(""); !errors.Is(err, apperrors.ErrEmptyID) {
		t.Errorf("Expected ErrEmptyID, got %v", err)
	}
	if err := validation.ValidateUUID("not-a-uuid"); !errors.Is(err, validation.ErrInvalidUUID) {
		t.Errorf("Expected ErrInvalidUUID, got %v", err)
	}
}

func TestParseDateRange(t *testing.T) {
	t.Run("both empty", func(t *testing.T) {
		start, end, err := validation.ParseDateRange("", "")
		if err != nil || !start.IsZero() || !end.IsZero() {
			t.Errorf("got %v..%v err %v", start, end, err)
		}
	})

	t.Run("inverted", func(t *testing.T) {
		_, _, err := validation.ParseDateRange("2024-02-01", "2024-01-01")
		if !errors.Is(err, validation.ErrInvalidDateRange) {
			t.Errorf("Expected ErrInvalidDateRange, got %v", err)
		}
	})

	t.Run("malformed reports both fields", func(t *testing.T) {
		_, _, err := validation.ParseDateRange("2024/01/01", "tomorrow")
		var vErr *validation.Error
		if !errors.As(err, &vErr) {
			t.Fatalf("Expected *validation.Error, got %v", err)
		}
		if vErr.Fields["start_date"] == "" || vErr.Fields["end_date"] == "" {
			t.Errorf("unexpected fields %v", vErr.Fields)
		}
	})
}

func TestValidateCreateTransaction(t *testing.T) {
	valid := request.CreateTransactionRequest{
		Date:     "2024-01-02",
		Symbol:   "AAPL",
		Type:     "buy",
		Quantity: decPtr("10"),
		Price:    decPtr("185.5"),
	}

	tests := []struct {
		name       string
		mutate     func(r *request.CreateTransactionRequest)
		wantFields []string
	}{
		{"valid buy", func(*request.CreateTransactionRequest) {}, nil},
		{"deposit without quantity", func(r *request.CreateTransactionRequest) {
			r.Symbol, r.Type, r.Quantity = "USD", "TRANSFER", nil
		}, nil},
		{"withdrawal is a negative transfer", func(r *request.CreateTransactionRequest) {
			r.Symbol, r.Type, r.Quantity, r.Price = "USD", "TRANSFER", nil, decPtr("-250")
		}, nil},
		{"bad date", func(r *request.CreateTransactionRequest) { r.Date = "02-01-2024" }, []string{"date"}},
		{"unknown type", func(r *request.CreateTransactionRequest) { r.Type = "SWAP" }, []string{"type"}},
		{"trade without quantity", func(r *request.CreateTransactionRequest) { r.Quantity = nil }, []string{"quantity"}},
		{"zero quantity", func(r *request.CreateTransactionRequest) { r.Quantity = decPtr("0") }, []string{"quantity"}},
		{"negative price", func(r *request.CreateTransactionRequest) { r.Price = decPtr("-1") }, []string{"price"}},
		{"cash cannot be traded", func(r *request.CreateTransactionRequest) { r.Symbol = "usd" }, []string{"symbol"}},
		{"zero fee event", func(r *request.CreateTransactionRequest) {
			r.Type, r.Quantity, r.Price = "FEE", nil, decPtr("0")
		}, []string{"price"}},
		{"negative fees", func(r *request.CreateTransactionRequest) { r.Fees = decPtr("-0.01") }, []string{"fees"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)

			err := validation.ValidateCreateTransaction(req)
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}

			var vErr *validation.Error
			if !errors.As(err, &vErr) {
				t.Fatalf("Expected *validation.Error, got %v", err)
			}
			for _, f := range tt.wantFields {
				if vErr.Fields[f] == "" {
					t.Errorf("Expected error on %s, got %v", f, vErr.Fields)
				}
			}
		})
	}
}
