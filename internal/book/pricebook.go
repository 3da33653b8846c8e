// Package book implements PriceBook: the sorted bid/ask ladder that backs
// one (venue, market, outcome) instrument. Levels carry a single aggregate
// size per price; this system never tracks individual resting orders, only
// depth.
package book

import (
	"sync"
	"time"

	"github.com/kestrel-trading/xvenue-arb/pkg/types"
)

// Level is one (price, size) rung of a ladder.
type Level struct {
	Price types.Price
	Size  types.Size
}

// PriceBook holds the bid and ask ladders for a single instrument. Safe for
// concurrent use: MarketStateManager is the sole owner and serializes
// access internally, but the lock here makes that guarantee independent of
// caller discipline.
type PriceBook struct {
	mu         sync.RWMutex
	bids       *rbTree // descending: best bid = highest price
	asks       *rbTree // ascending: best ask = lowest price
	lastUpdate time.Time
}

// New creates an empty PriceBook.
func New() *PriceBook {
	return &PriceBook{
		bids: newRBTree(true),
		asks: newRBTree(false),
	}
}

func (b *PriceBook) ladder(side types.Side) *rbTree {
	if side == types.SideBid {
		return b.bids
	}
	return b.asks
}

// Apply sets or removes one price level. size == 0 (or negative) removes
// the level. O(log n).
func (b *PriceBook) Apply(side types.Side, price types.Price, size types.Size) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ladder(side).Set(price, size)
	b.lastUpdate = time.Now()
}

// ApplyMany applies a batch of levels to one side, in order, under a
// single lock acquisition.
func (b *PriceBook) ApplyMany(side types.Side, levels []Level) {
	if len(levels) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	t := b.ladder(side)
	for _, lvl := range levels {
		t.Set(lvl.Price, lvl.Size)
	}
	b.lastUpdate = time.Now()
}

// Top returns the best bid and best ask, each with an ok flag: false when
// that side of the book is empty. O(1).
func (b *PriceBook) Top() (bid Level, bidOK bool, ask Level, askOK bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if p, s, ok := b.bids.Best(); ok {
		bid, bidOK = Level{Price: p, Size: s}, true
	}
	if p, s, ok := b.asks.Best(); ok {
		ask, askOK = Level{Price: p, Size: s}, true
	}
	return
}

// Snapshot returns up to depth levels per side, best-first, for
// diagnostics and the admin HTTP surface.
func (b *PriceBook) Snapshot(depth int) (bids []Level, asks []Level) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	bids = collect(b.bids, depth)
	asks = collect(b.asks, depth)
	return
}

func collect(t *rbTree, depth int) []Level {
	if depth <= 0 {
		return nil
	}
	out := make([]Level, 0, depth)
	t.Walk(func(price types.Price, size types.Size) bool {
		out = append(out, Level{Price: price, Size: size})
		return len(out) < depth
	})
	return out
}

// Clear empties both ladders. Used by MarketStateManager.Reset during the
// orchestrator's soft-reset protocol.
func (b *PriceBook) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bids.Clear()
	b.asks.Clear()
	b.lastUpdate = time.Time{}
}

// LastUpdate returns the timestamp of the most recent Apply/ApplyMany
// call, used by the detector's staleness gate.
func (b *PriceBook) LastUpdate() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastUpdate
}
