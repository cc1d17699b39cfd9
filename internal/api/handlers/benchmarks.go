package handlers

import (
	"errors"
	"net/http"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/api/request"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/api/response"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/service"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/validation"
)

// BenchmarkHandler compares the portfolio against market benchmarks.
type BenchmarkHandler struct {
	benchmarkService *service.BenchmarkService
}

// NewBenchmarkHandler creates a new BenchmarkHandler.
func NewBenchmarkHandler(benchmarkService *service.BenchmarkService) *BenchmarkHandler {
	return &BenchmarkHandler{
		benchmarkService: benchmarkService,
	}
}

// Compare handles GET requests for the portfolio versus benchmark comparison.
// Without symbols the configured default set is used; the primary benchmark
// is always included.
//
// Endpoint: GET /api/benchmark/compare[?symbols=SPY,QQQ&primary=SPY&end_date=YYYY-MM-DD]
// Response: 200 OK with model.BenchmarkComparisonResult
// Error: 400 Bad Request if a symbol or the end date is invalid
// Error: 500 Internal Server Error if the comparison fails
func (h *BenchmarkHandler) Compare(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query, err := request.ParseBenchmarkQuery(q.Get("symbols"), q.Get("primary"), q.Get("end_date"))
	if err != nil {
		respondValidationError(w, err)
		return
	}
	for _, symbol := range append(query.Symbols, query.Primary) {
		if symbol == "" {
			continue
		}
		if err := validation.ValidateSymbol(symbol); err != nil {
			respondValidationError(w, err)
			return
		}
	}

	result, err := h.benchmarkService.Compare(r.Context(), query.Symbols, query.Primary, query.EndDate)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToCompareBenchmarks.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

// DCA handles GET requests simulating periodic investments into one instrument.
//
// Endpoint: GET /api/benchmark/dca?symbol=SPY&amount=500&frequency=monthly&start_date=YYYY-MM-DD[&end_date=YYYY-MM-DD]
// Response: 200 OK with model.DCAResult
// Error: 400 Bad Request if a parameter is missing or invalid
// Error: 500 Internal Server Error if prices cannot be loaded
func (h *BenchmarkHandler) DCA(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query, err := request.ParseDCAQuery(q.Get("symbol"), q.Get("amount"), q.Get("frequency"), q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		respondValidationError(w, err)
		return
	}
	if err := validation.ValidateSymbol(query.Symbol); err != nil {
		respondValidationError(w, err)
		return
	}

	result, err := h.benchmarkService.DCA(r.Context(), query.Symbol, query.Amount, query.Frequency, query.StartDate, query.EndDate)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidDateRange) || errors.Is(err, apperrors.ErrMissingRequiredField) {
			respondValidationError(w, err)
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToSimulateDCA.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}
