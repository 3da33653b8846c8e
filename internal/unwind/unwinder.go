// Package unwind implements the Unwinder: the TradeFailed handler that
// closes out the successful leg of a partially-failed trade. An unwind
// failure leaves the book exposed on one side with no automated way back
// to flat, so it is treated as fatal rather than retried; operators
// reconcile manually after the shutdown.
package unwind

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kestrel-trading/xvenue-arb/internal/bus"
	"github.com/kestrel-trading/xvenue-arb/internal/events"
	"github.com/kestrel-trading/xvenue-arb/internal/execution"
	"github.com/kestrel-trading/xvenue-arb/pkg/types"
)

var (
	aggressiveSellPrice = decimal.NewFromFloat(0.01)
)

// Shutdowner has the same method set as execution.Shutdowner.
type Shutdowner interface {
	Shutdown(reason string)
}

// Config wires an Unwinder.
type Config struct {
	Bus              *bus.Bus
	SingleBookClient execution.SingleBookClient
	TwoBookClient    execution.TwoBookClient
	Shutdown         Shutdowner
	Logger           *zap.Logger
}

// Unwinder reacts to TradeFailed by closing out whichever leg succeeded.
type Unwinder struct {
	bus        *bus.Bus
	singleBook execution.SingleBookClient
	twoBook    execution.TwoBookClient
	shutdown   Shutdowner
	logger     *zap.Logger
}

// New creates an Unwinder and subscribes its TradeFailed handler.
func New(cfg Config) *Unwinder {
	u := &Unwinder{
		bus:        cfg.Bus,
		singleBook: cfg.SingleBookClient,
		twoBook:    cfg.TwoBookClient,
		shutdown:   cfg.Shutdown,
		logger:     cfg.Logger,
	}
	bus.Subscribe(cfg.Bus, u.handleTradeFailed)
	return u
}

func (u *Unwinder) handleTradeFailed(ctx context.Context, evt events.TradeFailed) error {
	leg := evt.SuccessfulLeg

	var err error
	switch leg.Venue {
	case types.VenueSingleBook:
		err = u.unwindSingleBook(ctx, evt.Opportunity.SingleBookTicker, leg)
	case types.VenueTwoBook:
		err = u.unwindTwoBook(ctx, leg)
	default:
		u.logger.Error("unwind-unknown-venue", zap.String("venue", string(leg.Venue)))
		UnwindFailuresTotal.Inc()
		u.shutdown.Shutdown("unwind: unrecognized successful leg venue")
		return nil
	}

	if err != nil {
		UnwindFailuresTotal.Inc()
		u.logger.Error("unwind-failed",
			zap.String("venue", string(leg.Venue)),
			zap.String("outcome", string(leg.Outcome)),
			zap.Error(err))
		u.shutdown.Shutdown("unwind failed: " + err.Error())
		return nil
	}

	UnwindsCompletedTotal.Inc()
	return nil
}

// unwindSingleBook places a MARKET sell, same outcome side as the
// original buy, for the full successful trade size.
func (u *Unwinder) unwindSingleBook(ctx context.Context, ticker string, leg types.ExecutedLeg) error {
	_, err := u.singleBook.PlaceMarketSell(ctx, ticker, leg.Outcome, leg.TradeSize)
	return err
}

// unwindTwoBook emulates a market sell with an aggressively-priced FOK
// limit order, since this venue has no true market-order primitive.
func (u *Unwinder) unwindTwoBook(ctx context.Context, leg types.ExecutedLeg) error {
	_, err := u.twoBook.PlaceLimitFOK(ctx, leg.TokenID, "SELL", aggressiveSellPrice, leg.TradeSize)
	return err
}
