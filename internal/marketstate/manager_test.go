package marketstate

import (
	"context"
	"testing"
	"time"

	"github.com/kestrel-trading/xvenue-arb/internal/bus"
	"github.com/kestrel-trading/xvenue-arb/internal/events"
	"github.com/kestrel-trading/xvenue-arb/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func newTestManager(t *testing.T) (*Manager, *bus.Bus) {
	t.Helper()
	logger := zap.NewNop()
	b := bus.New(bus.Config{Logger: logger, BufferSize: 16})
	m := New(Config{Logger: logger, Bus: b})
	return m, b
}

func TestRegisterMarketIsIdempotentAndAllocatesCorrectBooks(t *testing.T) {
	m, _ := newTestManager(t)
	m.RegisterMarket("m1")
	m.RegisterMarket("m1")

	if m.Book("m1", types.VenueSingleBook, types.OutcomeYes) == nil {
		t.Fatal("expected single-book YES book to be allocated")
	}
	if m.Book("m1", types.VenueSingleBook, types.OutcomeNo) != nil {
		t.Fatal("expected no NO book on the single-book venue")
	}
	if m.Book("m1", types.VenueTwoBook, types.OutcomeYes) == nil {
		t.Fatal("expected two-book YES book to be allocated")
	}
	if m.Book("m1", types.VenueTwoBook, types.OutcomeNo) == nil {
		t.Fatal("expected two-book NO book to be allocated")
	}
}

func TestHandleSnapshotEmitsBookUpdatedOnlyOnTopChange(t *testing.T) {
	m, b := newTestManager(t)
	m.RegisterMarket("m1")

	var updates []events.BookUpdated
	bus.Subscribe(b, func(ctx context.Context, e events.BookUpdated) error {
		updates = append(updates, e)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	b.Publish(events.OrderBookSnapshotReceived{
		Venue: types.VenueSingleBook, MarketID: "m1", Outcome: types.OutcomeYes,
		Bids: []types.PriceLevel{{Price: decimal.NewFromFloat(0.40), Size: decimal.NewFromInt(100)}},
		Asks: []types.PriceLevel{{Price: decimal.NewFromFloat(0.45), Size: decimal.NewFromInt(100)}},
	})
	// Re-applying the identical snapshot must not change top-of-book.
	b.Publish(events.OrderBookSnapshotReceived{
		Venue: types.VenueSingleBook, MarketID: "m1", Outcome: types.OutcomeYes,
		Bids: []types.PriceLevel{{Price: decimal.NewFromFloat(0.40), Size: decimal.NewFromInt(100)}},
		Asks: []types.PriceLevel{{Price: decimal.NewFromFloat(0.45), Size: decimal.NewFromInt(100)}},
	})

	waitForQueueDrain(b)

	if len(updates) != 1 {
		t.Fatalf("expected exactly 1 BookUpdated for unchanged re-snapshot, got %d", len(updates))
	}
}

func TestHandleDeltaEmitsBookUpdatedOnSizeChangeAtTop(t *testing.T) {
	m, b := newTestManager(t)
	m.RegisterMarket("m1")

	var updates []events.BookUpdated
	bus.Subscribe(b, func(ctx context.Context, e events.BookUpdated) error {
		updates = append(updates, e)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	b.Publish(events.OrderBookDeltaReceived{
		Venue: types.VenueTwoBook, MarketID: "m1", Outcome: types.OutcomeYes,
		Side: types.SideAsk, Price: decimal.NewFromFloat(0.50), Size: decimal.NewFromInt(10),
	})
	b.Publish(events.OrderBookDeltaReceived{
		Venue: types.VenueTwoBook, MarketID: "m1", Outcome: types.OutcomeYes,
		Side: types.SideAsk, Price: decimal.NewFromFloat(0.50), Size: decimal.NewFromInt(20),
	})

	waitForQueueDrain(b)

	if len(updates) != 2 {
		t.Fatalf("expected 2 BookUpdated (size changed at top both times), got %d", len(updates))
	}
}

func TestResetClearsAllBooks(t *testing.T) {
	m, _ := newTestManager(t)
	m.RegisterMarket("m1")

	book := m.Book("m1", types.VenueSingleBook, types.OutcomeYes)
	book.Apply(types.SideBid, decimal.NewFromFloat(0.40), decimal.NewFromInt(1))

	m.Reset()

	_, bidOK, _, _ := book.Top()
	if bidOK {
		t.Fatal("expected book to be empty after Reset")
	}
}

func waitForQueueDrain(b *bus.Bus) {
	for i := 0; i < 100 && b.Len() > 0; i++ {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(5 * time.Millisecond)
}
