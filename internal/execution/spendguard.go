package execution

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/kestrel-trading/xvenue-arb/pkg/types"
)

// SpendGuard tracks cumulative spend across trade attempts for the
// optional max-spend guard: a monotonic running total compared once per
// sizing pass against the configured max spend.
type SpendGuard struct {
	mu    sync.Mutex
	spent types.Price
}

// NewSpendGuard returns a guard starting at zero cumulative spend.
func NewSpendGuard() *SpendGuard {
	return &SpendGuard{spent: decimal.Zero}
}

// Spent returns the cumulative amount recorded so far.
func (g *SpendGuard) Spent() types.Price {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.spent
}

// Record adds amount to the running total after a confirmed spend.
func (g *SpendGuard) Record(amount types.Price) {
	if amount.Sign() <= 0 {
		return
	}
	g.mu.Lock()
	g.spent = g.spent.Add(amount)
	g.mu.Unlock()
}

// Reset zeroes the running total. Nothing in this module calls it; the
// soft-reset protocol leaves the running total intact across rounds.
func (g *SpendGuard) Reset() {
	g.mu.Lock()
	g.spent = decimal.Zero
	g.mu.Unlock()
}
