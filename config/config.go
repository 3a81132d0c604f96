package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// Bingo configuration
	DefaultCutPercentage    decimal.Decimal // shop cut when no per-shop flag is set (0-100)
	MinBetPerCartella       decimal.Decimal // platform-wide floor for session bets
	Currency                string          // currency code recorded on ledger entries
	TransactionHistoryLimit int             // max rows returned by listing queries

	// Environment
	Environment string // "development" or "production"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	// A .env file is optional
	_ = godotenv.Load()

	config := &Config{
		// Database
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		// Bingo settings with defaults
		DefaultCutPercentage:    decimal.NewFromInt(10),
		MinBetPerCartella:       decimal.NewFromInt(20),
		Currency:                "ETB",
		TransactionHistoryLimit: 200,

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override defaults if environment variables are set
	if cut := os.Getenv("DEFAULT_CUT_PERCENTAGE"); cut != "" {
		if parsedCut, err := decimal.NewFromString(cut); err == nil {
			if parsedCut.IsNegative() {
				parsedCut = decimal.Zero
			}
			if parsedCut.GreaterThan(decimal.NewFromInt(100)) {
				parsedCut = decimal.NewFromInt(100)
			}
			config.DefaultCutPercentage = parsedCut
		}
	}
	if minBet := os.Getenv("MIN_BET_PER_CARTELLA"); minBet != "" {
		if parsedMinBet, err := decimal.NewFromString(minBet); err == nil && !parsedMinBet.IsNegative() {
			config.MinBetPerCartella = parsedMinBet
		}
	}
	if currency := os.Getenv("CURRENCY"); currency != "" {
		config.Currency = currency
	}
	if limit := os.Getenv("TRANSACTION_HISTORY_LIMIT"); limit != "" {
		if parsedLimit, err := strconv.Atoi(limit); err == nil && parsedLimit > 0 {
			config.TransactionHistoryLimit = parsedLimit
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	if config.DatabaseName == "" {
		config.DatabaseName = "lulubingo"
	}

	return config, nil
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:             "test",
		DefaultCutPercentage:    decimal.NewFromInt(10),
		MinBetPerCartella:       decimal.NewFromInt(20),
		Currency:                "ETB",
		TransactionHistoryLimit: 200,
	}
}
