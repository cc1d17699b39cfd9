package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/api"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/config"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/database"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/logging"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/repository"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/scheduler"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/service"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/version"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/yahoo"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck // Sync fails on stderr for some terminals
	zap.ReplaceGlobals(logger)

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db, logger); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}
	logger.Info("connected to database",
		zap.String("path", cfg.Database.Path),
		zap.String("version", version.Version),
	)

	aliases, err := config.LoadMarketAliases(cfg.Market.AliasesFile, service.DefaultSymbolAliases)
	if err != nil {
		logger.Fatal("failed to load market aliases", zap.Error(err))
	}

	// Create repositories
	transactionRepo := repository.NewTransactionRepository(db)
	priceRepo := repository.NewPriceRepository(db)
	assetRepo := repository.NewAssetRepository(db)
	dailyValueRepo := repository.NewDailyValueRepository(db)

	// Create services
	marketDataService := service.NewMarketDataService(
		priceRepo,
		assetRepo,
		yahoo.NewFinanceClient(cfg.Market.YahooBaseURL, cfg.Market.YahooTimeout),
		aliases,
		cfg.Market.FetchConcurrency,
		logger.Named("market"),
	)
	valuationService := service.NewValuationService(
		transactionRepo,
		marketDataService,
		cfg.CostBasisMethod,
		logger.Named("valuation"),
	)
	snapshotService := service.NewSnapshotService(
		valuationService,
		dailyValueRepo,
		logger.Named("snapshot"),
	)
	transactionService := service.NewTransactionService(
		transactionRepo,
		snapshotService,
		logger.Named("transaction"),
	)
	benchmarkService := service.NewBenchmarkService(
		valuationService,
		marketDataService,
		cfg.Benchmark.Symbols,
		cfg.Benchmark.Primary,
		logger.Named("benchmark"),
	)
	reportService := service.NewReportService(transactionRepo, marketDataService, logger.Named("report"))
	portfolioService := service.NewPortfolioService(
		transactionRepo,
		marketDataService,
		marketDataService,
		cfg.CostBasisMethod,
		logger.Named("portfolio"),
	)
	analyticsService := service.NewAnalyticsService(
		transactionRepo,
		marketDataService,
		marketDataService,
		logger.Named("analytics"),
	)
	systemService := service.NewSystemService(
		db,
		transactionRepo,
		marketDataService,
		snapshotService,
		cfg.Benchmark.Symbols,
		cfg.Scheduler.RefreshDays,
		logger.Named("system"),
	)

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.New(cfg.Scheduler.RefreshCron, systemService, 0, logger.Named("scheduler"))
		if err != nil {
			logger.Fatal("failed to create scheduler", zap.Error(err))
		}
		sched.Start()
	}

	// Create router
	router := api.NewRouter(api.Services{
		System:      systemService,
		Transaction: transactionService,
		Portfolio:   portfolioService,
		Snapshot:    snapshotService,
		MarketData:  marketDataService,
		Benchmark:   benchmarkService,
		Report:      reportService,
		Analytics:   analyticsService,
	}, cfg, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("starting server", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if sched != nil {
		if err := sched.Stop(ctx); err != nil {
			logger.Warn("scheduler did not stop cleanly", zap.Error(err))
		}
	}
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
		return
	}

	logger.Info("server exited")
}
