// Package execution implements the Executor: the ExecuteTrade handler
// that sizes a trade, dispatches both legs concurrently, classifies the
// result, and publishes every downstream event the rest of the system
// depends on.
package execution

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/kestrel-trading/xvenue-arb/pkg/types"
)

// SizingConfig carries the wallet guardrails requires.
type SizingConfig struct {
	// MinimumWalletBalance and ShutdownBalance bound the global
	// max-spend guard: max_spend = MinimumWalletBalance - ShutdownBalance.
	MinimumWalletBalance types.Price
	ShutdownBalance      types.Price
}

// sizeTrade computes the trade size: the minimum of
// sqrt sizing, wallet-budget sizing, and the optional max-spend guard,
// floored to an integer number of contracts, zeroed below shutdownBalance.
func sizeTrade(opp types.Opportunity, wallets types.Wallets, cfg SizingConfig, cumulativeSpent types.Price) types.Size {
	sqrtSize := floorDecimal(sqrtDecimal(opp.PotentialTradeSize))

	feeCeil := opp.KalshiFees.Mul(opp.PotentialTradeSize).Ceil()
	budget := decimal.Min(
		wallets.SingleBookUSD.Mul(decimal.NewFromFloat(0.95)).Sub(feeCeil),
		wallets.TwoBookUSDCe,
	)
	if budget.Sign() < 0 {
		budget = decimal.Zero
	}
	walletSize := floorDecimal(budget)

	size := decimal.Min(sqrtSize, walletSize)

	if !cfg.MinimumWalletBalance.IsZero() || !cfg.ShutdownBalance.IsZero() {
		maxSpend := cfg.MinimumWalletBalance.Sub(cfg.ShutdownBalance)
		if maxSpend.Sign() > 0 && cumulativeSpent.GreaterThanOrEqual(maxSpend) {
			return decimal.Zero
		}
	}

	if size.LessThan(cfg.ShutdownBalance) {
		return decimal.Zero
	}
	if size.Sign() < 0 {
		return decimal.Zero
	}
	return size
}

func sqrtDecimal(d decimal.Decimal) decimal.Decimal {
	f, _ := d.Float64()
	if f <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(math.Sqrt(f))
}

func floorDecimal(d decimal.Decimal) decimal.Decimal {
	return d.Floor()
}
