package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kestrel-trading/xvenue-arb/internal/bus"
	"github.com/kestrel-trading/xvenue-arb/internal/events"
	"github.com/kestrel-trading/xvenue-arb/pkg/types"
)

func mustDec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type fakeSink struct {
	mu      sync.Mutex
	batches [][]types.TradeAttempt
	failN   int // fail the first failN calls
}

func (f *fakeSink) Insert(ctx context.Context, batch []types.TradeAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failN > 0 {
		f.failN--
		return fmt.Errorf("sink unavailable")
	}
	cp := make([]types.TradeAttempt, len(batch))
	copy(cp, batch)
	f.batches = append(f.batches, cp)
	return nil
}

func (f *fakeSink) Close() error { return nil }

func (f *fakeSink) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func newHarness(t *testing.T, sink Sink, batchSize int) (*bus.Bus, *TradeStorage) {
	t.Helper()
	logger := zap.NewNop()
	b := bus.New(bus.Config{Logger: logger, BufferSize: 64})
	s := New(Config{Bus: b, Sink: sink, Logger: logger, BatchSize: batchSize, FlushInterval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go b.Run(ctx)
	return b, s
}

func TestFlushTriggeredOnBatchSize(t *testing.T) {
	sink := &fakeSink{}
	b, _ := newHarness(t, sink, 3)

	for i := 0; i < 3; i++ {
		b.Publish(events.StoreTradeResults{Attempt: types.TradeAttempt{Category: "buy_both"}})
	}

	deadline := time.Now().Add(time.Second)
	for sink.total() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if sink.total() != 3 {
		t.Fatalf("expected 3 records flushed, got %d", sink.total())
	}
}

func TestStopDrainsRemainingBuffer(t *testing.T) {
	sink := &fakeSink{}
	b, s := newHarness(t, sink, 100)
	s.Start()

	b.Publish(events.StoreTradeResults{Attempt: types.TradeAttempt{Category: "buy_both"}})
	time.Sleep(20 * time.Millisecond)

	s.Stop(context.Background())

	if sink.total() != 1 {
		t.Fatalf("expected stop to drain 1 record, got %d", sink.total())
	}
}

func TestFailedFlushRepependsForRetry(t *testing.T) {
	sink := &fakeSink{failN: 1}
	b, s := newHarness(t, sink, 1)

	b.Publish(events.StoreTradeResults{Attempt: types.TradeAttempt{Category: "buy_both"}})
	time.Sleep(20 * time.Millisecond)

	if sink.total() != 0 {
		t.Fatalf("expected first flush to fail, got %d records", sink.total())
	}
	if s.bufferLen() != 1 {
		t.Fatalf("expected failed batch re-prepended, buffer len=%d", s.bufferLen())
	}

	s.flush(context.Background())
	if sink.total() != 1 {
		t.Fatalf("expected retry to succeed, got %d records", sink.total())
	}
}
