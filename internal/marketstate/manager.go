// Package marketstate implements MarketStateManager: the sole owner of
// every PriceBook in the system. It turns normalized
// OrderBookSnapshotReceived/OrderBookDeltaReceived events into book
// mutations and emits BookUpdated exactly when a book's top-of-book tuple
// changes.
package marketstate

import (
	"context"
	"sync"

	"github.com/kestrel-trading/xvenue-arb/internal/book"
	"github.com/kestrel-trading/xvenue-arb/internal/bus"
	"github.com/kestrel-trading/xvenue-arb/internal/events"
	"github.com/kestrel-trading/xvenue-arb/pkg/types"
	"go.uber.org/zap"
)

// key identifies one (market, venue, outcome) book.
type key struct {
	marketID string
	venue    types.Venue
	outcome  types.Outcome
}

// topTuple is the comparable snapshot used to detect a top-of-book change.
type topTuple struct {
	bidPrice, bidSize string
	askPrice, askSize string
}

func topOf(b *book.PriceBook) topTuple {
	bid, bidOK, ask, askOK := b.Top()
	t := topTuple{}
	if bidOK {
		t.bidPrice, t.bidSize = bid.Price.String(), bid.Size.String()
	}
	if askOK {
		t.askPrice, t.askSize = ask.Price.String(), ask.Size.String()
	}
	return t
}

// Manager owns every PriceBook in the system, exclusively. Its mutex
// guards the market-to-book map; each PriceBook carries its own lock for
// ladder reads and writes.
type Manager struct {
	logger *zap.Logger
	bus    *bus.Bus

	mu    sync.RWMutex
	books map[key]*book.PriceBook
}

// Config holds MarketStateManager configuration.
type Config struct {
	Logger *zap.Logger
	Bus    *bus.Bus
}

// New creates an empty MarketStateManager and subscribes its handlers.
func New(cfg Config) *Manager {
	m := &Manager{
		logger: cfg.Logger,
		bus:    cfg.Bus,
		books:  make(map[key]*book.PriceBook),
	}
	bus.Subscribe(cfg.Bus, m.handleSnapshot)
	bus.Subscribe(cfg.Bus, m.handleDelta)
	return m
}

// RegisterMarket idempotently allocates the books for one market id. The
// single-book venue gets only a YES book; the two-book venue gets both.
func (m *Manager) RegisterMarket(marketID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ensureLocked(key{marketID: marketID, venue: types.VenueSingleBook, outcome: types.OutcomeYes})
	m.ensureLocked(key{marketID: marketID, venue: types.VenueTwoBook, outcome: types.OutcomeYes})
	m.ensureLocked(key{marketID: marketID, venue: types.VenueTwoBook, outcome: types.OutcomeNo})
	RegisteredMarkets.Set(float64(m.marketCountLocked()))
}

// marketCountLocked counts distinct market ids across all registered
// books. Caller must hold m.mu.
func (m *Manager) marketCountLocked() int {
	seen := make(map[string]struct{})
	for k := range m.books {
		seen[k.marketID] = struct{}{}
	}
	return len(seen)
}

func (m *Manager) ensureLocked(k key) *book.PriceBook {
	if b, ok := m.books[k]; ok {
		return b
	}
	b := book.New()
	m.books[k] = b
	return b
}

// Book returns the book for (market, venue, outcome), nil if not
// registered.
func (m *Manager) Book(marketID string, venue types.Venue, outcome types.Outcome) *book.PriceBook {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.books[key{marketID: marketID, venue: venue, outcome: outcome}]
}

func (m *Manager) handleSnapshot(ctx context.Context, evt events.OrderBookSnapshotReceived) error {
	m.mu.Lock()
	b := m.ensureLocked(key{marketID: evt.MarketID, venue: evt.Venue, outcome: evt.Outcome})
	m.mu.Unlock()

	before := topOf(b)
	b.Clear()
	for _, lvl := range evt.Bids {
		b.Apply(types.SideBid, lvl.Price, lvl.Size)
	}
	for _, lvl := range evt.Asks {
		b.Apply(types.SideAsk, lvl.Price, lvl.Size)
	}
	after := topOf(b)

	if before != after {
		BookUpdatedTotal.WithLabelValues(string(evt.Venue)).Inc()
		m.bus.Publish(events.BookUpdated{MarketID: evt.MarketID, Venue: evt.Venue})
	}
	return nil
}

func (m *Manager) handleDelta(ctx context.Context, evt events.OrderBookDeltaReceived) error {
	m.mu.Lock()
	b := m.ensureLocked(key{marketID: evt.MarketID, venue: evt.Venue, outcome: evt.Outcome})
	m.mu.Unlock()

	before := topOf(b)
	b.Apply(evt.Side, evt.Price, evt.Size)
	after := topOf(b)

	if before != after {
		BookUpdatedTotal.WithLabelValues(string(evt.Venue)).Inc()
		m.bus.Publish(events.BookUpdated{MarketID: evt.MarketID, Venue: evt.Venue})
	}
	return nil
}

// Reset clears every book across every registered market. Used by the
// orchestrator's soft-reset protocol after a successful trade.
func (m *Manager) Reset() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.books {
		b.Clear()
	}
}

// State is a read-only view of one book's top-of-book, for diagnostics.
type State struct {
	MarketID string
	Venue    types.Venue
	Outcome  types.Outcome
	Bid      book.Level
	BidOK    bool
	Ask      book.Level
	AskOK    bool
}

// GetAllStates returns a diagnostic snapshot of every registered book's
// top-of-book, for the admin HTTP surface.
func (m *Manager) GetAllStates() []State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	states := make([]State, 0, len(m.books))
	for k, b := range m.books {
		bid, bidOK, ask, askOK := b.Top()
		states = append(states, State{
			MarketID: k.marketID,
			Venue:    k.venue,
			Outcome:  k.outcome,
			Bid:      bid,
			BidOK:    bidOK,
			Ask:      ask,
			AskOK:    askOK,
		})
	}
	return states
}

// BookSnapshot is a multi-level view of one book, best-first on both
// sides.
type BookSnapshot struct {
	MarketID string
	Venue    types.Venue
	Outcome  types.Outcome
	Bids     []book.Level
	Asks     []book.Level
}

// BookSnapshots returns up to depth levels per side for every registered
// book, for the periodic diagnostic printer.
func (m *Manager) BookSnapshots(depth int) []BookSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snaps := make([]BookSnapshot, 0, len(m.books))
	for k, b := range m.books {
		bids, asks := b.Snapshot(depth)
		snaps = append(snaps, BookSnapshot{
			MarketID: k.marketID,
			Venue:    k.venue,
			Outcome:  k.outcome,
			Bids:     bids,
			Asks:     asks,
		})
	}
	return snaps
}
