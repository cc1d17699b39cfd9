package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/api/handlers"
	custommiddleware "github.com/ndewijer/Portfolio-Tracker-Backend/internal/api/middleware"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/config"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/service"
)

// Services bundles the service layer the HTTP handlers delegate to.
type Services struct {
	System      *service.SystemService
	Transaction *service.TransactionService
	Portfolio   *service.PortfolioService
	Snapshot    *service.SnapshotService
	MarketData  *service.MarketDataService
	Benchmark   *service.BenchmarkService
	Report      *service.ReportService
	Analytics   *service.AnalyticsService
}

// NewRouter creates and configures the HTTP router.
// Mutating endpoints sit behind the API-key middleware.
func NewRouter(svc Services, cfg *config.Config, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger(logger))
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	systemHandler := handlers.NewSystemHandler(svc.System)
	transactionHandler := handlers.NewTransactionHandler(svc.Transaction)
	portfolioHandler := handlers.NewPortfolioHandler(svc.Portfolio, svc.Snapshot)
	priceHandler := handlers.NewPriceHandler(svc.MarketData)
	benchmarkHandler := handlers.NewBenchmarkHandler(svc.Benchmark)
	reportHandler := handlers.NewReportHandler(svc.Report, svc.Analytics, cfg.CostBasisMethod)

	r.Route("/api", func(r chi.Router) {
		r.Route("/system", func(r chi.Router) {
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
			r.With(custommiddleware.APIKeyMiddleware).Post("/refresh", systemHandler.Refresh)
		})

		r.Route("/transaction", func(r chi.Router) {
			r.Get("/", transactionHandler.AllTransactions)
			r.With(custommiddleware.APIKeyMiddleware).Post("/", transactionHandler.CreateTransaction)
			r.With(custommiddleware.APIKeyMiddleware).Post("/import", transactionHandler.ImportTransactions)

			r.Route("/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Get("/", transactionHandler.GetTransaction)
				r.With(custommiddleware.APIKeyMiddleware).Delete("/", transactionHandler.DeleteTransaction)
			})
		})

		r.Route("/portfolio", func(r chi.Router) {
			r.Get("/summary", portfolioHandler.PortfolioSummary)
			r.Get("/history", portfolioHandler.PortfolioHistory)
		})

		r.Route("/price/{symbol}", func(r chi.Router) {
			r.Use(custommiddleware.ValidateSymbolMiddleware)
			r.Get("/history", priceHandler.PriceHistory)
		})

		r.Route("/benchmark", func(r chi.Router) {
			r.Get("/compare", benchmarkHandler.Compare)
			r.Get("/dca", benchmarkHandler.DCA)
		})

		r.Route("/report", func(r chi.Router) {
			r.Get("/performance", reportHandler.Performance)
			r.With(custommiddleware.ValidateSymbolMiddleware).Get("/symbol/{symbol}", reportHandler.Symbol)
			r.Get("/behavior", reportHandler.Behavior)
		})
	})

	return r
}
