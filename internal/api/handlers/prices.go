package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/api/response"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/service"
)

// defaultPriceHistoryDays is the look-back when start_date is omitted.
const defaultPriceHistoryDays = 365

// PriceHandler serves cached market data.
type PriceHandler struct {
	marketDataService *service.MarketDataService
	now               func() time.Time
}

// NewPriceHandler creates a new PriceHandler.
func NewPriceHandler(marketDataService *service.MarketDataService) *PriceHandler {
	return &PriceHandler{
		marketDataService: marketDataService,
		now:               time.Now,
	}
}

// PriceHistory handles GET requests for the daily bars of a symbol.
// The cache is filled from Yahoo Finance on a miss; an upstream failure
// returns whatever the cache holds.
//
// Endpoint: GET /api/price/{symbol}/history[?start_date=YYYY-MM-DD&end_date=YYYY-MM-DD]
// Response: 200 OK with model.PriceHistory (end defaults to today, start to one year earlier)
// Error: 400 Bad Request if the symbol (validated by middleware) or a date is invalid
// Error: 500 Internal Server Error if the cache cannot be read
func (h *PriceHandler) PriceHistory(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	startDate, endDate, err := parseDateRangeQuery(r)
	if err != nil {
		respondValidationError(w, err)
		return
	}
	if endDate.IsZero() {
		endDate = model.Day(h.now())
	}
	if startDate.IsZero() {
		startDate = endDate.AddDate(0, 0, -defaultPriceHistoryDays)
	}
	if startDate.After(endDate) {
		respondValidationError(w, apperrors.ErrInvalidDateRange)
		return
	}

	history, err := h.marketDataService.GetPriceHistory(r.Context(), symbol, startDate, endDate)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrievePrices.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, history)
}
