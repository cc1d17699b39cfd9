package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/calculator"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	CORS      CORSConfig
	Log       LogConfig
	Market    MarketConfig
	Benchmark BenchmarkConfig
	Scheduler SchedulerConfig
	// CostBasisMethod is used wherever a request does not name a method.
	CostBasisMethod calculator.Method
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// LogConfig selects the zap encoder and minimum level.
type LogConfig struct {
	Level  string
	Format string // "json" or "console"
}

// MarketConfig configures the Yahoo Finance client and the price cache.
type MarketConfig struct {
	YahooBaseURL     string
	YahooTimeout     time.Duration
	AliasesFile      string
	FetchConcurrency int
}

// BenchmarkConfig holds the default comparison set.
type BenchmarkConfig struct {
	Symbols []string
	Primary string
}

// SchedulerConfig controls the background price refresh.
type SchedulerConfig struct {
	Enabled     bool
	RefreshCron string
	RefreshDays int
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	var errs []error

	method, err := calculator.ParseMethod(getEnv("COST_BASIS_METHOD", string(calculator.MethodFIFO)))
	errs = append(errs, err)

	timeout, err := time.ParseDuration(getEnv("YAHOO_TIMEOUT", "10s"))
	errs = append(errs, wrapEnv("YAHOO_TIMEOUT", err))

	concurrency, err := getEnvInt("PRICE_FETCH_CONCURRENCY", 4)
	errs = append(errs, err)

	refreshDays, err := getEnvInt("PRICE_REFRESH_DAYS", 7)
	errs = append(errs, err)

	schedulerEnabled, err := getEnvBool("SCHEDULER_ENABLED", true)
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "5001"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/portfolio_tracker.db"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost")),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
		Market: MarketConfig{
			YahooBaseURL:     getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
			YahooTimeout:     timeout,
			AliasesFile:      os.Getenv("MARKET_ALIASES_FILE"),
			FetchConcurrency: concurrency,
		},
		Benchmark: BenchmarkConfig{
			Symbols: splitList(strings.ToUpper(getEnv("BENCHMARK_SYMBOLS", "SPY,QQQ"))),
			Primary: strings.ToUpper(getEnv("BENCHMARK_PRIMARY", "SPY")),
		},
		Scheduler: SchedulerConfig{
			Enabled:     schedulerEnabled,
			RefreshCron: getEnv("PRICE_REFRESH_CRON", "30 22 * * 1-5"),
			RefreshDays: refreshDays,
		},
		CostBasisMethod: method,
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

// aliasFile is the layout of MARKET_ALIASES_FILE:
//
//	aliases:
//	  US10Y: ^TNX
//	  GOLD: GC=F
type aliasFile struct {
	Aliases map[string]string `yaml:"aliases"`
}

// LoadMarketAliases merges the aliases from path over defaults and returns the result.
// An empty path returns a copy of defaults. Keys are uppercased.
func LoadMarketAliases(path string, defaults map[string]string) (map[string]string, error) {
	aliases := make(map[string]string, len(defaults))
	for k, v := range defaults {
		aliases[strings.ToUpper(k)] = v
	}
	if path == "" {
		return aliases, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read market aliases: %w", err)
	}
	var f aliasFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("failed to parse market aliases: %w", err)
	}
	for k, v := range f.Aliases {
		k, v = strings.ToUpper(strings.TrimSpace(k)), strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		aliases[k] = v
	}
	return aliases, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, value)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, value)
	}
	return b, nil
}

func wrapEnv(key string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", key, err)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
