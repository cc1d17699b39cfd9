package handlers

import (
	"net/http"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/api/response"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/service"
)

// PortfolioHandler handles portfolio-related HTTP requests
type PortfolioHandler struct {
	portfolioService *service.PortfolioService
	snapshotService  *service.SnapshotService
}

// NewPortfolioHandler creates a new PortfolioHandler
func NewPortfolioHandler(portfolioService *service.PortfolioService, snapshotService *service.SnapshotService) *PortfolioHandler {
	return &PortfolioHandler{
		portfolioService: portfolioService,
		snapshotService:  snapshotService,
	}
}

// PortfolioSummary handles GET requests for the current holdings and totals.
// Positions without a price are valued at zero and listed in the errors field.
//
// Endpoint: GET /api/portfolio/summary
// Response: 200 OK with model.PortfolioSummary
// Error: 500 Internal Server Error if the ledger cannot be read
func (h *PortfolioHandler) PortfolioSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.portfolioService.GetSummary(r.Context())
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToGetPortfolioSummary.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, summary)
}

// PortfolioHistory handles GET requests for the daily value series.
//
// Endpoint: GET /api/portfolio/history[?start_date=YYYY-MM-DD&end_date=YYYY-MM-DD]
// Response: 200 OK with array of model.DailyPortfolioValue
// Error: 400 Bad Request if a date is malformed or the range is inverted
// Error: 500 Internal Server Error if the series cannot be read or computed
func (h *PortfolioHandler) PortfolioHistory(w http.ResponseWriter, r *http.Request) {
	startDate, endDate, err := parseDateRangeQuery(r)
	if err != nil {
		respondValidationError(w, err)
		return
	}

	history, err := h.snapshotService.GetHistory(r.Context(), startDate, endDate)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToGetPortfolioHistory.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, history)
}
