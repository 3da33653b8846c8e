package config

import (
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kestrel-trading/xvenue-arb/pkg/types"
)

func decimalMustParse(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"ENVIRONMENT", "DRY_RUN", "MINIMUM_WALLET_BALANCE", "SHUTDOWN_BALANCE",
		"PROFITABILITY_BUFFER", "STALENESS_THRESHOLD", "COOLDOWN_MIN", "COOLDOWN_MAX",
		"STORAGE_MODE", "STORAGE_BATCH_SIZE", "TARGET_MARKETS_JSON",
		"TWO_BOOK_PRIVATE_KEY", "SINGLE_BOOK_PRIVATE_KEY_PEM",
		"DIAGNOSTICS_INTERVAL", "DIAGNOSTICS_DEPTH",
	}
	for _, k := range keys {
		os.Unsetenv(k)
	}
}

func TestLoadFromEnvAppliesDefaultsAndValidates(t *testing.T) {
	clearEnv(t)
	os.Setenv("TARGET_MARKETS_JSON", `[{"MarketID":"fed-dec","SingleBookID":"KXFED-24DEC-T4.00","TwoBookYesID":"111","TwoBookNoID":"222","Question":"test"}]`)
	defer clearEnv(t)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Environment != EnvironmentDemo {
		t.Fatalf("expected default environment DEMO, got %s", cfg.Environment)
	}
	if !cfg.DryRun {
		t.Fatalf("expected default dry-run true")
	}
	if len(cfg.TargetMarkets) != 1 || cfg.TargetMarkets[0].MarketID != "fed-dec" {
		t.Fatalf("unexpected target markets: %+v", cfg.TargetMarkets)
	}
	if cfg.DiagnosticsInterval != 0 {
		t.Fatalf("expected diagnostics printer disabled by default, got %s", cfg.DiagnosticsInterval)
	}
	if cfg.DiagnosticsDepth != 3 {
		t.Fatalf("expected default diagnostics depth 3, got %d", cfg.DiagnosticsDepth)
	}
}

func TestLoadFromEnvRejectsMissingTargetMarkets(t *testing.T) {
	clearEnv(t)
	defer clearEnv(t)

	_, err := LoadFromEnv()
	if err == nil {
		t.Fatal("expected error for missing TARGET_MARKETS_JSON")
	}
}

func TestValidateRejectsShutdownBalanceNotBelowMinimum(t *testing.T) {
	cfg := baseValidConfig()
	cfg.MinimumWalletBalance = decimalMustParse("10")
	cfg.ShutdownBalance = decimalMustParse("10")

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when shutdown balance is not below minimum")
	}
}

func TestValidateRejectsBadEnvironment(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Environment = "STAGING"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unrecognized environment")
	}
}

func TestValidateRequiresKeysOutsideDryRun(t *testing.T) {
	cfg := baseValidConfig()
	cfg.DryRun = false
	cfg.TwoBookPrivateKeyHex = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when live trading lacks two-book private key")
	}
}

func baseValidConfig() *Config {
	return &Config{
		HTTPPort:             "8080",
		Environment:          EnvironmentDemo,
		DryRun:               true,
		MinimumWalletBalance: decimalMustParse("50"),
		ShutdownBalance:      decimalMustParse("10"),
		ProfitabilityBuffer:  decimalMustParse("0.01"),
		StalenessThreshold:   5 * time.Second,
		CooldownMin:          3 * time.Second,
		CooldownMax:          5 * time.Second,
		StorageMode:          "console",
		BatchSize:            50,
		TargetMarkets: []types.MarketPair{
			{MarketID: "fed-dec", SingleBookID: "KXFED-24DEC-T4.00", TwoBookYesID: "111", TwoBookNoID: "222"},
		},
	}
}
