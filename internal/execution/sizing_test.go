package execution

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/kestrel-trading/xvenue-arb/pkg/types"
)

func mustDec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestSizeTradeTakesMinimumOfSqrtAndWalletBudget(t *testing.T) {
	opp := types.Opportunity{
		PotentialTradeSize: mustDec("100"), // sqrt -> 10
		KalshiFees:         mustDec("0.01"),
	}
	wallets := types.Wallets{
		SingleBookUSD: mustDec("1000"),
		TwoBookUSDCe:  mustDec("3"), // wallet budget caps lower than sqrt sizing
	}

	size := sizeTrade(opp, wallets, SizingConfig{}, decimal.Zero)
	if !size.Equal(mustDec("3")) {
		t.Fatalf("expected size 3 (wallet-capped), got %v", size)
	}
}

func TestSizeTradeZeroWhenBudgetNegative(t *testing.T) {
	opp := types.Opportunity{
		PotentialTradeSize: mustDec("100"),
		KalshiFees:         mustDec("0.01"),
	}
	wallets := types.Wallets{
		SingleBookUSD: mustDec("0"),
		TwoBookUSDCe:  mustDec("50"),
	}

	size := sizeTrade(opp, wallets, SizingConfig{}, decimal.Zero)
	if !size.IsZero() {
		t.Fatalf("expected zero size, got %v", size)
	}
}

func TestSizeTradeZeroWhenMaxSpendReached(t *testing.T) {
	opp := types.Opportunity{
		PotentialTradeSize: mustDec("100"),
		KalshiFees:         mustDec("0.01"),
	}
	wallets := types.Wallets{
		SingleBookUSD: mustDec("1000"),
		TwoBookUSDCe:  mustDec("1000"),
	}
	cfg := SizingConfig{
		MinimumWalletBalance: mustDec("500"),
		ShutdownBalance:      mustDec("100"),
	}

	size := sizeTrade(opp, wallets, cfg, mustDec("400")) // cumulativeSpent >= max_spend (400)
	if !size.IsZero() {
		t.Fatalf("expected zero size once max spend reached, got %v", size)
	}
}

func TestSizeTradeZeroBelowShutdownBalance(t *testing.T) {
	opp := types.Opportunity{
		PotentialTradeSize: mustDec("4"), // sqrt -> 2
		KalshiFees:         mustDec("0.01"),
	}
	wallets := types.Wallets{
		SingleBookUSD: mustDec("1000"),
		TwoBookUSDCe:  mustDec("1000"),
	}
	cfg := SizingConfig{ShutdownBalance: mustDec("10")}

	size := sizeTrade(opp, wallets, cfg, decimal.Zero)
	if !size.IsZero() {
		t.Fatalf("expected zero size below shutdown balance, got %v", size)
	}
}
