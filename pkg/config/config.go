// Package config loads and validates the process's runtime configuration
// from the environment: a flat Config struct, LoadFromEnv building it
// field-by-field with getXOrDefault helpers, and a Validate pass run
// before the struct is handed back.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	goccyjson "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/kestrel-trading/xvenue-arb/pkg/types"
)

// Environment names the deployment target, DEMO or PROD.
type Environment string

const (
	EnvironmentDemo Environment = "DEMO"
	EnvironmentProd Environment = "PROD"
)

// Config holds all runtime configuration.
type Config struct {
	LogLevel string
	HTTPPort string

	Environment Environment
	DryRun      bool

	// Single-book venue (venue A) credentials.
	SingleBookWSURL     string
	SingleBookHTTPURL   string
	SingleBookKeyID     string
	SingleBookPrivKeyPEM string

	// Two-book venue (venue B) credentials.
	TwoBookWSURL        string
	TwoBookHTTPURL      string
	TwoBookAPIKey       string
	TwoBookSecret       string
	TwoBookPassphrase   string
	TwoBookPrivateKeyHex string
	TwoBookProxyAddress  string

	// Balance oracle.
	PolygonRPCURL       string
	USDCeTokenAddress   string
	WalletAddress       string

	// Wallet guardrails.
	MinimumWalletBalance types.Price
	ShutdownBalance      types.Price

	// Detector thresholds.
	StalenessThreshold  time.Duration
	ProfitabilityBuffer types.Price
	FeeRate             types.Price

	// Reconnection.
	CooldownMin time.Duration
	CooldownMax time.Duration

	// Soft-reset.
	SoftResetCooldown time.Duration

	// Periodic order-book console printer; zero interval disables it.
	DiagnosticsInterval time.Duration
	DiagnosticsDepth    int

	// Storage.
	StorageMode     string // "postgres" or "console"
	BatchSize       int
	FlushInterval   time.Duration
	PostgresHost    string
	PostgresPort    string
	PostgresUser    string
	PostgresPass    string
	PostgresDB      string
	PostgresSSLMode string

	// TargetMarkets is the configured list of (venue_B_market_id,
	// venue_A_ticker) pairs.
	TargetMarkets []types.MarketPair
}

// LoadFromEnv builds a Config from environment variables, applying
// defaults, then validates it.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		Environment: Environment(getEnvOrDefault("ENVIRONMENT", string(EnvironmentDemo))),
		DryRun:      getBoolOrDefault("DRY_RUN", true),

		SingleBookWSURL:      getEnvOrDefault("SINGLE_BOOK_WS_URL", "wss://api.elections.kalshi.com/trade-api/ws/v2"),
		SingleBookHTTPURL:    getEnvOrDefault("SINGLE_BOOK_HTTP_URL", "https://api.elections.kalshi.com/trade-api/v2"),
		SingleBookKeyID:      os.Getenv("SINGLE_BOOK_KEY_ID"),
		SingleBookPrivKeyPEM: os.Getenv("SINGLE_BOOK_PRIVATE_KEY_PEM"),

		TwoBookWSURL:         getEnvOrDefault("TWO_BOOK_WS_URL", "wss://ws-subscriptions-clob.polymarket.com/ws/market"),
		TwoBookHTTPURL:       getEnvOrDefault("TWO_BOOK_HTTP_URL", "https://clob.polymarket.com"),
		TwoBookAPIKey:        os.Getenv("TWO_BOOK_API_KEY"),
		TwoBookSecret:        os.Getenv("TWO_BOOK_SECRET"),
		TwoBookPassphrase:    os.Getenv("TWO_BOOK_PASSPHRASE"),
		TwoBookPrivateKeyHex: os.Getenv("TWO_BOOK_PRIVATE_KEY"),
		TwoBookProxyAddress:  os.Getenv("TWO_BOOK_PROXY_ADDRESS"),

		PolygonRPCURL:     getEnvOrDefault("POLYGON_RPC_URL", "https://polygon-rpc.com"),
		USDCeTokenAddress: getEnvOrDefault("USDCE_TOKEN_ADDRESS", "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"),
		WalletAddress:     os.Getenv("WALLET_ADDRESS"),

		MinimumWalletBalance: getDecimalOrDefault("MINIMUM_WALLET_BALANCE", "50"),
		ShutdownBalance:      getDecimalOrDefault("SHUTDOWN_BALANCE", "10"),

		StalenessThreshold:  getDurationOrDefault("STALENESS_THRESHOLD", 5*time.Second),
		ProfitabilityBuffer: getDecimalOrDefault("PROFITABILITY_BUFFER", "0.01"),
		FeeRate:             getDecimalOrDefault("FEE_RATE", "0.07"),

		CooldownMin: getDurationOrDefault("COOLDOWN_MIN", 3*time.Second),
		CooldownMax: getDurationOrDefault("COOLDOWN_MAX", 5*time.Second),

		SoftResetCooldown: getDurationOrDefault("SOFT_RESET_COOLDOWN", 5*time.Second),

		DiagnosticsInterval: getDurationOrDefault("DIAGNOSTICS_INTERVAL", 0),
		DiagnosticsDepth:    getIntOrDefault("DIAGNOSTICS_DEPTH", 3),

		StorageMode:     getEnvOrDefault("STORAGE_MODE", "console"),
		BatchSize:       getIntOrDefault("STORAGE_BATCH_SIZE", 50),
		FlushInterval:   getDurationOrDefault("STORAGE_FLUSH_INTERVAL", 30*time.Minute),
		PostgresHost:    getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort:    getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser:    getEnvOrDefault("POSTGRES_USER", "xvenue"),
		PostgresPass:    getEnvOrDefault("POSTGRES_PASSWORD", "xvenue"),
		PostgresDB:      getEnvOrDefault("POSTGRES_DB", "xvenue_arb"),
		PostgresSSLMode: getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	pairs, err := parseTargetMarkets(os.Getenv("TARGET_MARKETS_JSON"))
	if err != nil {
		return nil, fmt.Errorf("parse TARGET_MARKETS_JSON: %w", err)
	}
	cfg.TargetMarkets = pairs

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate checks invariants LoadFromEnv cannot guarantee via defaults
// alone.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return errors.New("HTTP_PORT cannot be empty")
	}
	if c.Environment != EnvironmentDemo && c.Environment != EnvironmentProd {
		return fmt.Errorf("ENVIRONMENT must be DEMO or PROD, got %q", c.Environment)
	}
	if c.MinimumWalletBalance.LessThanOrEqual(c.ShutdownBalance) {
		return fmt.Errorf("MINIMUM_WALLET_BALANCE (%s) must exceed SHUTDOWN_BALANCE (%s)",
			c.MinimumWalletBalance, c.ShutdownBalance)
	}
	if c.ProfitabilityBuffer.Sign() < 0 || c.ProfitabilityBuffer.GreaterThanOrEqual(types.One) {
		return fmt.Errorf("PROFITABILITY_BUFFER must be in [0, 1), got %s", c.ProfitabilityBuffer)
	}
	if c.StalenessThreshold <= 0 {
		return fmt.Errorf("STALENESS_THRESHOLD must be positive, got %s", c.StalenessThreshold)
	}
	if c.CooldownMax < c.CooldownMin {
		return fmt.Errorf("COOLDOWN_MAX (%s) must be >= COOLDOWN_MIN (%s)", c.CooldownMax, c.CooldownMin)
	}
	if c.DiagnosticsInterval < 0 {
		return fmt.Errorf("DIAGNOSTICS_INTERVAL must not be negative, got %s", c.DiagnosticsInterval)
	}
	if c.DiagnosticsDepth <= 0 {
		return fmt.Errorf("DIAGNOSTICS_DEPTH must be positive, got %d", c.DiagnosticsDepth)
	}
	if c.StorageMode != "postgres" && c.StorageMode != "console" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'console', got %q", c.StorageMode)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("STORAGE_BATCH_SIZE must be positive, got %d", c.BatchSize)
	}
	if len(c.TargetMarkets) == 0 {
		return errors.New("TARGET_MARKETS_JSON must configure at least one market pair")
	}
	if !c.DryRun {
		if c.TwoBookPrivateKeyHex == "" {
			return errors.New("TWO_BOOK_PRIVATE_KEY is required outside dry-run mode")
		}
		if c.SingleBookPrivKeyPEM == "" {
			return errors.New("SINGLE_BOOK_PRIVATE_KEY_PEM is required outside dry-run mode")
		}
	}
	return nil
}

func parseTargetMarkets(raw string) ([]types.MarketPair, error) {
	if raw == "" {
		return nil, nil
	}
	var pairs []types.MarketPair
	if err := goccyjson.Unmarshal([]byte(raw), &pairs); err != nil {
		return nil, err
	}
	return pairs, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return i
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}

func getDecimalOrDefault(key, defaultValue string) types.Price {
	v := os.Getenv(key)
	if v == "" {
		v = defaultValue
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		d, _ = decimal.NewFromString(defaultValue)
	}
	return d
}
