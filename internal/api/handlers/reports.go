package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/api/response"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/calculator"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/service"
)

// ReportHandler serves realized-performance reports and behavioral analytics.
type ReportHandler struct {
	reportService    *service.ReportService
	analyticsService *service.AnalyticsService
	defaultMethod    calculator.Method
}

// NewReportHandler creates a new ReportHandler. defaultMethod applies when a
// request does not name a cost-basis method.
func NewReportHandler(reportService *service.ReportService, analyticsService *service.AnalyticsService, defaultMethod calculator.Method) *ReportHandler {
	if defaultMethod == "" {
		defaultMethod = calculator.MethodFIFO
	}
	return &ReportHandler{
		reportService:    reportService,
		analyticsService: analyticsService,
		defaultMethod:    defaultMethod,
	}
}

// Performance handles GET requests for realized trade statistics grouped by
// asset type and by year, quarter and month.
//
// Endpoint: GET /api/report/performance[?method=FIFO|AVERAGE_COST]
// Response: 200 OK with model.TimePerformanceReport
// Error: 400 Bad Request if the method is unknown
// Error: 500 Internal Server Error if the report fails
func (h *ReportHandler) Performance(w http.ResponseWriter, r *http.Request) {
	method, ok := h.method(w, r)
	if !ok {
		return
	}

	report, err := h.reportService.GetTimePerformanceReport(r.Context(), method)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToBuildReport.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, report)
}

// Symbol handles GET requests for the annotated transaction list of one symbol.
//
// Endpoint: GET /api/report/symbol/{symbol}[?method=FIFO|AVERAGE_COST]
// Response: 200 OK with model.SymbolTransactionSummary
// Error: 400 Bad Request if the symbol (validated by middleware) or method is invalid
// Error: 500 Internal Server Error if the summary fails
func (h *ReportHandler) Symbol(w http.ResponseWriter, r *http.Request) {
	method, ok := h.method(w, r)
	if !ok {
		return
	}

	summary, err := h.reportService.GetSymbolTransactionSummary(r.Context(), chi.URLParam(r, "symbol"), method)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToBuildReport.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, summary)
}

// Behavior handles GET requests for holding-period and excursion analytics.
//
// Endpoint: GET /api/report/behavior
// Response: 200 OK with model.BehavioralAnalytics
// Error: 500 Internal Server Error if the analysis fails
func (h *ReportHandler) Behavior(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.analyticsService.GetBehavioralAnalytics(r.Context())
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToBuildAnalytics.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, analytics)
}

func (h *ReportHandler) method(w http.ResponseWriter, r *http.Request) (calculator.Method, bool) {
	raw := r.URL.Query().Get("method")
	if raw == "" {
		return h.defaultMethod, true
	}
	method, err := calculator.ParseMethod(raw)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidCostBasisMethod.Error(), err.Error())
		return "", false
	}
	return method, true
}
