package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kestrel-trading/xvenue-arb/internal/adminhttp"
	"github.com/kestrel-trading/xvenue-arb/internal/arbitrage"
	"github.com/kestrel-trading/xvenue-arb/internal/bus"
	"github.com/kestrel-trading/xvenue-arb/internal/execution"
	"github.com/kestrel-trading/xvenue-arb/internal/marketstate"
	"github.com/kestrel-trading/xvenue-arb/internal/storage"
	"github.com/kestrel-trading/xvenue-arb/internal/transport"
	"github.com/kestrel-trading/xvenue-arb/pkg/config"
	"github.com/kestrel-trading/xvenue-arb/pkg/healthprobe"
	"github.com/kestrel-trading/xvenue-arb/pkg/types"
)

// fakeAdapter counts Run invocations and blocks until its context is
// cancelled, like the real adapters' reconnect loops.
type fakeAdapter struct {
	mu   sync.Mutex
	runs int
}

func (f *fakeAdapter) Run(ctx context.Context) error {
	f.mu.Lock()
	f.runs++
	f.mu.Unlock()
	<-ctx.Done()
	return nil
}

func (f *fakeAdapter) State() transport.State { return transport.StateStreaming }

func (f *fakeAdapter) runCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs
}

type fakeWallets struct{}

func (fakeWallets) Snapshot() types.Wallets { return types.Wallets{} }

func newTestOrchestrator(t *testing.T) (*Orchestrator, *fakeAdapter, *fakeAdapter) {
	t.Helper()

	logger := zap.NewNop()
	b := bus.New(bus.Config{Logger: logger})
	state := marketstate.New(marketstate.Config{Logger: logger, Bus: b})
	state.RegisterMarket("M1")

	ctx, cancel := context.WithCancel(context.Background())
	single := &fakeAdapter{}
	two := &fakeAdapter{}

	o := &Orchestrator{
		cfg: &config.Config{
			Environment:       config.EnvironmentDemo,
			DryRun:            true,
			SoftResetCooldown: 10 * time.Millisecond,
		},
		logger: logger,
		bus:    b,
		state:  state,
		detector: arbitrage.New(arbitrage.Config{
			Bus:         b,
			MarketState: state,
			Wallets:     fakeWallets{},
			Logger:      logger,
		}),
		health:     healthprobe.New(),
		singleBook: single,
		twoBook:    two,
		ctx:        ctx,
		cancel:     cancel,
		shutdownCh: make(chan struct{}),
		startedAt:  time.Now(),
	}
	t.Cleanup(cancel)
	return o, single, two
}

func TestSoftResetRestartsAdaptersAndClearsState(t *testing.T) {
	o, single, two := newTestOrchestrator(t)

	require.NoError(t, o.startAdapters())
	require.Eventually(t, func() bool {
		return single.runCount() == 1 && two.runCount() == 1
	}, time.Second, 5*time.Millisecond)

	// Populate a book so the reset has something to clear.
	yes := o.state.Book("M1", types.VenueSingleBook, types.OutcomeYes)
	require.NotNil(t, yes)
	yes.Apply(types.SideBid, decimal.NewFromFloat(0.60), decimal.NewFromInt(10))
	_, bidOK, _, _ := yes.Top()
	require.True(t, bidOK)

	start := time.Now()
	o.softReset()

	// Cool-down elapsed between cancellation and restart.
	assert.GreaterOrEqual(t, time.Since(start), o.cfg.SoftResetCooldown)

	_, bidOK, _, _ = yes.Top()
	assert.False(t, bidOK, "books must be empty after soft reset")

	require.Eventually(t, func() bool {
		return single.runCount() == 2 && two.runCount() == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(1), o.softResets.Load())

	o.stopAdapters()
}

func TestSoftResetAbortsWhenShuttingDown(t *testing.T) {
	o, single, two := newTestOrchestrator(t)

	require.NoError(t, o.startAdapters())
	require.Eventually(t, func() bool {
		return single.runCount() == 1 && two.runCount() == 1
	}, time.Second, 5*time.Millisecond)

	o.cfg.SoftResetCooldown = time.Hour
	done := make(chan struct{})
	go func() {
		o.softReset()
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	o.cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("softReset did not abort on cancellation")
	}
	assert.Equal(t, 1, single.runCount(), "no restart after cancellation")
}

func TestShutdownIsIdempotent(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)

	o.Shutdown("first")
	o.Shutdown("second")

	select {
	case <-o.shutdownCh:
	default:
		t.Fatal("shutdown channel not closed")
	}
}

func TestStatusSnapshot(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	o.executor = execution.New(execution.Config{
		Bus:              o.bus,
		SingleBookClient: execution.DryRunSingleBookClient{},
		TwoBookClient:    execution.DryRunTwoBookClient{},
		Shutdown:         o,
		Logger:           o.logger,
	})

	yes := o.state.Book("M1", types.VenueSingleBook, types.OutcomeYes)
	yes.Apply(types.SideBid, decimal.NewFromFloat(0.60), decimal.NewFromInt(10))

	st := o.Status()
	assert.Equal(t, "DEMO", st.Environment)
	assert.True(t, st.DryRun)
	assert.Equal(t, "streaming", st.SingleBookState)
	assert.Equal(t, "0", st.CumulativeSpent)

	var found bool
	for _, b := range st.Books {
		if b.MarketID == "M1" && b.Venue == string(types.VenueSingleBook) && b.Outcome == string(types.OutcomeYes) {
			found = true
			assert.Equal(t, "0.6", b.BestBid)
			assert.Equal(t, "10", b.BestBidSize)
		}
	}
	assert.True(t, found, "registered book missing from status")
}

func TestTeardownStopsEverything(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	o.trades = storage.New(storage.Config{
		Bus:    o.bus,
		Sink:   storage.NewConsoleSink(o.logger),
		Logger: o.logger,
	})
	o.trades.Start()
	o.admin = adminhttp.New(adminhttp.Config{
		Port:          "0",
		Logger:        o.logger,
		HealthChecker: o.health,
	})

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.bus.Run(o.ctx)
	}()
	require.NoError(t, o.startAdapters())

	done := make(chan error, 1)
	go func() { done <- o.teardown() }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("teardown did not complete")
	}
}
