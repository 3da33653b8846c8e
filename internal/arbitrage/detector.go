// Package arbitrage implements ArbitrageDetector: the BookUpdated handler
// that evaluates both buy-both directions for a market and emits
// OpportunityFound when one clears the profitability bar. Both directions
// share the fee model, a staleness gate on the two books involved, and a
// single in-flight latch that suppresses detection while a trade runs.
package arbitrage

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kestrel-trading/xvenue-arb/internal/book"
	"github.com/kestrel-trading/xvenue-arb/internal/bus"
	"github.com/kestrel-trading/xvenue-arb/internal/events"
	"github.com/kestrel-trading/xvenue-arb/internal/marketstate"
	"github.com/kestrel-trading/xvenue-arb/pkg/types"
)

// WalletSnapshotter supplies the balance snapshot attached to ExecuteTrade.
// Implemented by pkg/balances.Oracle; an interface here so the detector
// never imports the balance-fetching transport directly.
type WalletSnapshotter interface {
	Snapshot() types.Wallets
}

// Config holds detector thresholds, all with defaults, plus the static
// market-pair bindings the emitted opportunities carry instrument ids
// from.
type Config struct {
	Bus                 *bus.Bus
	MarketState         *marketstate.Manager
	Wallets             WalletSnapshotter
	Logger              *zap.Logger
	Pairs               []types.MarketPair
	StalenessThreshold  time.Duration // default 5s
	ProfitabilityBuffer decimal.Decimal // default 0.01
	FeeRate             decimal.Decimal // default 0.07
}

// Detector evaluates both cross-venue directions on every BookUpdated.
type Detector struct {
	bus         *bus.Bus
	state       *marketstate.Manager
	wallets     WalletSnapshotter
	logger      *zap.Logger
	staleness   time.Duration
	buffer      decimal.Decimal
	feeRate     decimal.Decimal
	pairs       map[string]types.MarketPair
	tradeInFlight atomic.Bool
}

// New creates a Detector and subscribes its handlers.
func New(cfg Config) *Detector {
	if cfg.StalenessThreshold == 0 {
		cfg.StalenessThreshold = 5 * time.Second
	}
	if cfg.ProfitabilityBuffer.IsZero() {
		cfg.ProfitabilityBuffer = decimal.NewFromFloat(0.01)
	}
	if cfg.FeeRate.IsZero() {
		cfg.FeeRate = decimal.NewFromFloat(0.07)
	}

	pairs := make(map[string]types.MarketPair, len(cfg.Pairs))
	for _, p := range cfg.Pairs {
		pairs[p.MarketID] = p
	}

	d := &Detector{
		bus:       cfg.Bus,
		state:     cfg.MarketState,
		wallets:   cfg.Wallets,
		logger:    cfg.Logger,
		staleness: cfg.StalenessThreshold,
		buffer:    cfg.ProfitabilityBuffer,
		feeRate:   cfg.FeeRate,
		pairs:     pairs,
	}
	bus.Subscribe(cfg.Bus, d.handleBookUpdated)
	bus.Subscribe(cfg.Bus, d.handleOpportunityFound)
	bus.Subscribe(cfg.Bus, d.handleTradeAttemptCompleted)
	return d
}

func (d *Detector) handleBookUpdated(ctx context.Context, evt events.BookUpdated) error {
	if d.tradeInFlight.Load() {
		return nil
	}

	timer := time.Now()
	defer func() { DetectionDurationSeconds.Observe(time.Since(timer).Seconds()) }()

	pair, ok := d.pairs[evt.MarketID]
	if !ok {
		return nil
	}

	kalshiYes := d.state.Book(evt.MarketID, types.VenueSingleBook, types.OutcomeYes)
	polyYes := d.state.Book(evt.MarketID, types.VenueTwoBook, types.OutcomeYes)
	polyNo := d.state.Book(evt.MarketID, types.VenueTwoBook, types.OutcomeNo)
	if kalshiYes == nil || polyYes == nil || polyNo == nil {
		return nil
	}

	kalshiBid, kalshiBidOK, kalshiAsk, kalshiAskOK := kalshiYes.Top()
	_, _, polyYesAsk, polyYesAskOK := polyYes.Top()
	_, _, polyNoAsk, polyNoAskOK := polyNo.Top()

	if opp := d.evaluateDirection1(pair, kalshiYes, polyNo, kalshiAsk, kalshiAskOK, polyNoAsk, polyNoAskOK); opp != nil {
		d.emitOpportunity(opp)
		return nil
	}
	if opp := d.evaluateDirection2(pair, polyYes, kalshiYes, polyYesAsk, polyYesAskOK, kalshiBid, kalshiBidOK); opp != nil {
		d.emitOpportunity(opp)
		return nil
	}
	return nil
}

// evaluateDirection1: buy YES on the single-book venue + buy NO on the
// two-book venue.
func (d *Detector) evaluateDirection1(
	pair types.MarketPair,
	singleBook, twoBookNo *book.PriceBook,
	yesAsk book.Level, yesAskOK bool,
	noAsk book.Level, noAskOK bool,
) *types.Opportunity {
	if !yesAskOK || !noAskOK {
		return nil
	}
	if d.stale(singleBook, twoBookNo) {
		OpportunitiesRejectedTotal.WithLabelValues("stale").Inc()
		return nil
	}

	size := decimal.Min(yesAsk.Size, noAsk.Size)
	if size.Sign() <= 0 {
		return nil
	}

	_, perUnitFee := kalshiFee(d.feeRate, size, yesAsk.Price)
	effectiveCost := yesAsk.Price.Add(noAsk.Price).Add(perUnitFee)
	threshold := types.One.Sub(d.buffer)
	if effectiveCost.GreaterThanOrEqual(threshold) {
		OpportunitiesRejectedTotal.WithLabelValues("unprofitable").Inc()
		return nil
	}

	opp := types.NewOpportunity(
		pair.MarketID, pair.Question,
		types.VenueSingleBook, yesAsk.Price,
		types.VenueTwoBook, noAsk.Price,
		size, perUnitFee,
		pair.SingleBookID, pair.TwoBookNoID,
	)
	OpportunityProfitBPS.Observe(opp.ProfitMargin.Mul(decimal.NewFromInt(10000)).InexactFloat64())
	return opp
}

// evaluateDirection2: buy YES on the two-book venue + buy NO on the
// single-book venue (derived from the single-book YES bid).
func (d *Detector) evaluateDirection2(
	pair types.MarketPair,
	twoBookYes, singleBook *book.PriceBook,
	yesAsk book.Level, yesAskOK bool,
	yesBid book.Level, yesBidOK bool,
) *types.Opportunity {
	if !yesAskOK || !yesBidOK {
		return nil
	}
	if d.stale(twoBookYes, singleBook) {
		OpportunitiesRejectedTotal.WithLabelValues("stale").Inc()
		return nil
	}

	size := decimal.Min(yesAsk.Size, yesBid.Size)
	if size.Sign() <= 0 {
		return nil
	}

	noPrice := types.One.Sub(yesBid.Price)
	_, perUnitFee := kalshiFee(d.feeRate, size, noPrice)
	effectiveCost := yesAsk.Price.Add(noPrice).Add(perUnitFee)
	threshold := types.One.Sub(d.buffer)
	if effectiveCost.GreaterThanOrEqual(threshold) {
		OpportunitiesRejectedTotal.WithLabelValues("unprofitable").Inc()
		return nil
	}

	opp := types.NewOpportunity(
		pair.MarketID, pair.Question,
		types.VenueTwoBook, yesAsk.Price,
		types.VenueSingleBook, noPrice,
		size, perUnitFee,
		pair.SingleBookID, pair.TwoBookYesID,
	)
	OpportunityProfitBPS.Observe(opp.ProfitMargin.Mul(decimal.NewFromInt(10000)).InexactFloat64())
	return opp
}

func (d *Detector) stale(a, b *book.PriceBook) bool {
	diff := a.LastUpdate().Sub(b.LastUpdate())
	if diff < 0 {
		diff = -diff
	}
	return diff > d.staleness
}

func (d *Detector) emitOpportunity(opp *types.Opportunity) {
	OpportunitiesDetectedTotal.Inc()
	d.tradeInFlight.Store(true)
	d.bus.Publish(events.OpportunityFound{Opportunity: *opp})
}

func (d *Detector) handleOpportunityFound(ctx context.Context, evt events.OpportunityFound) error {
	d.bus.Publish(events.ExecuteTrade{
		Opportunity: evt.Opportunity,
		Wallets:     d.wallets.Snapshot(),
	})
	return nil
}

func (d *Detector) handleTradeAttemptCompleted(ctx context.Context, evt events.TradeAttemptCompleted) error {
	d.tradeInFlight.Store(false)
	return nil
}

// TradeInProgress reports whether the one-in-flight latch is currently
// set, for the admin status surface.
func (d *Detector) TradeInProgress() bool {
	return d.tradeInFlight.Load()
}

// kalshiFee computes fee(n, p) = ceil_cents(rate*n*p*(1-p)) and its
// per-unit contribution. Zero for p outside (0, 1).
func kalshiFee(rate, n, p decimal.Decimal) (fee, perUnit decimal.Decimal) {
	if p.Sign() <= 0 || p.GreaterThanOrEqual(types.One) {
		return decimal.Zero, decimal.Zero
	}
	raw := rate.Mul(n).Mul(p).Mul(types.One.Sub(p))
	cents := raw.Mul(decimal.NewFromInt(100)).Ceil()
	fee = cents.Div(decimal.NewFromInt(100))
	if n.Sign() > 0 {
		perUnit = fee.Div(n)
	}
	return fee, perUnit
}
