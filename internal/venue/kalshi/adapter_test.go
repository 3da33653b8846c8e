package kalshi

import (
	"context"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/kestrel-trading/xvenue-arb/internal/bus"
	"github.com/kestrel-trading/xvenue-arb/internal/events"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func mustJSON(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal test payload: %v", err)
	}
	return b
}

func newTestAdapter(t *testing.T) (*Adapter, *bus.Bus, chan events.OrderBookSnapshotReceived, chan events.OrderBookDeltaReceived) {
	t.Helper()
	logger := zap.NewNop()
	b := bus.New(bus.Config{Logger: logger, BufferSize: 64})
	a := New(Config{URL: "wss://example.test", Logger: logger})
	a.SetBus(b)
	a.SetMarkets([]MarketMapping{{Ticker: "KX-TEST", MarketID: "m1"}})

	snaps := make(chan events.OrderBookSnapshotReceived, 8)
	deltas := make(chan events.OrderBookDeltaReceived, 8)
	bus.Subscribe(b, func(ctx context.Context, e events.OrderBookSnapshotReceived) error {
		snaps <- e
		return nil
	})
	bus.Subscribe(b, func(ctx context.Context, e events.OrderBookDeltaReceived) error {
		deltas <- e
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go b.Run(ctx)

	return a, b, snaps, deltas
}

func TestRunFailsFastWithoutConfiguration(t *testing.T) {
	logger := zap.NewNop()
	a := New(Config{URL: "wss://example.test", Logger: logger})
	b := bus.New(bus.Config{Logger: logger})
	a.SetBus(b)
	// SetMarkets never called.
	if err := a.Run(context.Background()); err == nil {
		t.Fatal("expected ErrNotConfigured when markets never set")
	}
}

func TestHandleSnapshotEmitsDerivedYesAsks(t *testing.T) {
	a, _, snaps, _ := newTestAdapter(t)

	a.handleSnapshot(wsEnvelope{
		Type: "orderbook_snapshot",
		Seq:  1,
		Msg:  mustJSON(t, obSnapshotPayload{MarketTicker: "KX-TEST", Yes: [][2]int{{40, 100}}, No: [][2]int{{55, 50}}}),
	})

	select {
	case e := <-snaps:
		if len(e.Bids) != 1 || !e.Bids[0].Price.Equal(dec("0.40")) {
			t.Fatalf("expected yes bid 0.40, got %+v", e.Bids)
		}
		if len(e.Asks) != 1 || !e.Asks[0].Price.Equal(dec("0.45")) {
			t.Fatalf("expected derived yes ask 0.45 (1-0.55), got %+v", e.Asks)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot event")
	}
}

func TestHandleDeltaTranslatesSignedDeltaToAbsoluteSize(t *testing.T) {
	a, _, snaps, deltas := newTestAdapter(t)

	a.handleSnapshot(wsEnvelope{
		Type: "orderbook_snapshot", Seq: 1,
		Msg: mustJSON(t, obSnapshotPayload{MarketTicker: "KX-TEST", Yes: [][2]int{{40, 100}}, No: nil}),
	})
	drain(t, snaps)

	a.handleDelta(wsEnvelope{
		Type: "orderbook_delta", Seq: 2,
		Msg: mustJSON(t, obDeltaPayload{MarketTicker: "KX-TEST", Price: 40, Delta: 25, Side: "yes"}),
	})

	select {
	case e := <-deltas:
		if !e.Size.Equal(dec("125")) {
			t.Fatalf("expected absolute size 125 (100+25), got %v", e.Size)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delta event")
	}
}

func TestSequenceGapTriggersResubscribeAndDropsDelta(t *testing.T) {
	a, _, snaps, deltas := newTestAdapter(t)

	a.handleSnapshot(wsEnvelope{
		Type: "orderbook_snapshot", Seq: 1,
		Msg: mustJSON(t, obSnapshotPayload{MarketTicker: "KX-TEST", Yes: [][2]int{{40, 100}}, No: nil}),
	})
	drain(t, snaps)

	// seq jumps from 1 to 3: a gap.
	a.handleDelta(wsEnvelope{
		Type: "orderbook_delta", Seq: 3,
		Msg: mustJSON(t, obDeltaPayload{MarketTicker: "KX-TEST", Price: 40, Delta: 5, Side: "yes"}),
	})

	select {
	case e := <-deltas:
		t.Fatalf("expected no delta to be published after a sequence gap, got %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func drain[T any](t *testing.T, ch chan T) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timed out draining channel")
	}
}
