package diagnostics

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kestrel-trading/xvenue-arb/internal/book"
	"github.com/kestrel-trading/xvenue-arb/internal/marketstate"
	"github.com/kestrel-trading/xvenue-arb/pkg/types"
)

type fakeQuerier struct {
	snaps []marketstate.BookSnapshot
	depth int
}

func (f *fakeQuerier) BookSnapshots(depth int) []marketstate.BookSnapshot {
	f.depth = depth
	return f.snaps
}

func level(price, size string) book.Level {
	p, err := decimal.NewFromString(price)
	if err != nil {
		panic(err)
	}
	s, err := decimal.NewFromString(size)
	if err != nil {
		panic(err)
	}
	return book.Level{Price: p, Size: s}
}

func TestRenderFormatsBooksPerMarket(t *testing.T) {
	q := &fakeQuerier{snaps: []marketstate.BookSnapshot{
		{
			MarketID: "m1", Venue: types.VenueSingleBook, Outcome: types.OutcomeYes,
			Bids: []book.Level{level("0.60", "10")},
			Asks: []book.Level{level("0.45", "10"), level("0.50", "5")},
		},
		{
			MarketID: "m1", Venue: types.VenueTwoBook, Outcome: types.OutcomeNo,
		},
	}}
	p := New(Config{Querier: q, Logger: zap.NewNop(), Depth: 3})

	out := p.render()

	if q.depth != 3 {
		t.Fatalf("expected depth 3 passed to querier, got %d", q.depth)
	}
	if !strings.Contains(out, "--- Market: m1 ---") {
		t.Fatalf("missing market header:\n%s", out)
	}
	if !strings.Contains(out, "single_book/YES:") || !strings.Contains(out, "two_book/NO:") {
		t.Fatalf("missing book headers:\n%s", out)
	}
	if !strings.Contains(out, "0.60") || !strings.Contains(out, "0.45") {
		t.Fatalf("missing levels:\n%s", out)
	}
	if !strings.Contains(out, "(book is empty)") {
		t.Fatalf("expected empty-book marker for the NO book:\n%s", out)
	}
	if strings.Count(out, "--- Market: m1 ---") != 1 {
		t.Fatalf("market header printed more than once:\n%s", out)
	}
}

func TestRenderWithNoMarkets(t *testing.T) {
	p := New(Config{Querier: &fakeQuerier{}, Logger: zap.NewNop()})

	out := p.render()
	if !strings.Contains(out, "No markets registered yet.") {
		t.Fatalf("expected no-markets banner:\n%s", out)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	p := New(Config{
		Querier:  &fakeQuerier{},
		Logger:   zap.NewNop(),
		Interval: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("printer did not stop on cancellation")
	}
}
