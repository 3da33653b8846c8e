package execution

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kestrel-trading/xvenue-arb/internal/bus"
	"github.com/kestrel-trading/xvenue-arb/internal/events"
	"github.com/kestrel-trading/xvenue-arb/pkg/types"
)

// Shutdowner is notified when both legs of a trade fail, the most
// dangerous outcome short of a failed unwind. The orchestrator implements
// this by cancelling every other component.
type Shutdowner interface {
	Shutdown(reason string)
}

// Config wires an Executor. SingleBookClient/TwoBookClient should be the
// Dry* implementations when running in dry-run mode; the
// executor itself has no dry-run branch, it only ever talks to whichever
// client it was given.
type Config struct {
	Bus              *bus.Bus
	SingleBookClient SingleBookClient
	TwoBookClient    TwoBookClient
	Shutdown         Shutdowner
	Logger           *zap.Logger
	Sizing           SizingConfig
}

// Executor is the ExecuteTrade handler: it sizes the trade, dispatches
// both legs concurrently, classifies the outcome (both succeed, exactly
// one fails, both fail), and publishes every downstream event the rest of
// the system reacts to. TradeAttemptCompleted is published last on every
// path so the detector always unlocks.
type Executor struct {
	bus         *bus.Bus
	singleBook  SingleBookClient
	twoBook     TwoBookClient
	shutdown    Shutdowner
	logger      *zap.Logger
	sizing      SizingConfig
	spendGuard  *SpendGuard
}

// New creates an Executor and subscribes its ExecuteTrade handler.
func New(cfg Config) *Executor {
	e := &Executor{
		bus:        cfg.Bus,
		singleBook: cfg.SingleBookClient,
		twoBook:    cfg.TwoBookClient,
		shutdown:   cfg.Shutdown,
		logger:     cfg.Logger,
		sizing:     cfg.Sizing,
		spendGuard: NewSpendGuard(),
	}
	bus.Subscribe(cfg.Bus, e.handleExecuteTrade)
	return e
}

type legResult struct {
	ok      bool
	orderID string
	errMsg  string
}

func (e *Executor) handleExecuteTrade(ctx context.Context, evt events.ExecuteTrade) error {
	start := time.Now()
	defer func() { ExecutionDurationSeconds.Observe(time.Since(start).Seconds()) }()

	opp := evt.Opportunity
	size := sizeTrade(opp, evt.Wallets, e.sizing, e.spendGuard.Spent())

	if size.Sign() <= 0 {
		OpportunitiesSkippedTotal.WithLabelValues("zero_size").Inc()
		e.logger.Info("trade-skipped-zero-size", zap.String("opportunity_id", opp.ID))
		e.bus.Publish(events.TradeAttemptCompleted{OpportunityID: opp.ID})
		return nil
	}

	singleOutcome, singlePrice := e.singleBookLeg(opp)
	twoOutcome, twoPrice := e.twoBookLeg(opp)

	var wg sync.WaitGroup
	var singleRes, twoRes legResult
	wg.Add(2)

	go func() {
		defer wg.Done()
		priceCents := singlePrice.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
		orderID, err := e.singleBook.PlaceLimitFOK(ctx, opp.SingleBookTicker, singleOutcome, priceCents, size, "")
		if err != nil {
			singleRes = legResult{ok: false, errMsg: err.Error()}
			return
		}
		singleRes = legResult{ok: true, orderID: orderID}
	}()

	go func() {
		defer wg.Done()
		orderID, err := e.twoBook.PlaceLimitFOK(ctx, opp.TwoBookTokenID, "BUY", twoPrice, size)
		if err != nil {
			twoRes = legResult{ok: false, errMsg: err.Error()}
			return
		}
		twoRes = legResult{ok: true, orderID: orderID}
	}()

	wg.Wait()

	e.bus.Publish(events.ArbTradeResultReceived{
		Opportunity:     opp,
		Category:        "buy_both",
		SingleBookOK:    singleRes.ok,
		SingleBookLeg:   legOf(singleRes, types.VenueSingleBook, singleOutcome, size, ""),
		SingleBookError: singleRes.errMsg,
		TwoBookOK:       twoRes.ok,
		TwoBookLeg:      legOf(twoRes, types.VenueTwoBook, twoOutcome, size, opp.TwoBookTokenID),
		TwoBookError:    twoRes.errMsg,
	})

	attempt := types.TradeAttempt{
		Opportunity:     opp,
		Timestamp:       time.Now(),
		Category:        "buy_both",
		SingleBookOK:    singleRes.ok,
		SingleBookOrder: singleRes.orderID,
		SingleBookErr:   singleRes.errMsg,
		TwoBookOK:       twoRes.ok,
		TwoBookOrder:    twoRes.orderID,
		TwoBookErr:      twoRes.errMsg,
	}
	e.bus.Publish(events.StoreTradeResults{Attempt: attempt})

	switch {
	case singleRes.ok && twoRes.ok:
		e.spendGuard.Record(singlePrice.Add(twoPrice).Mul(size))
		TradesBothLegsTotal.Inc()
		e.bus.Publish(events.ArbitrageTradeSuccessful{
			Opportunity: opp,
			SingleBook:  *legOf(singleRes, types.VenueSingleBook, singleOutcome, size, ""),
			TwoBook:     *legOf(twoRes, types.VenueTwoBook, twoOutcome, size, opp.TwoBookTokenID),
		})

	case singleRes.ok != twoRes.ok:
		TradesOneLegTotal.Inc()
		failedVenue := types.VenueSingleBook
		successLeg := legOf(singleRes, types.VenueSingleBook, singleOutcome, size, "")
		errMsg := twoRes.errMsg
		if singleRes.ok {
			failedVenue = types.VenueTwoBook
			successLeg = legOf(singleRes, types.VenueSingleBook, singleOutcome, size, "")
		} else {
			failedVenue = types.VenueSingleBook
			successLeg = legOf(twoRes, types.VenueTwoBook, twoOutcome, size, opp.TwoBookTokenID)
			errMsg = singleRes.errMsg
		}
		e.spendGuard.Record(successLegPrice(singleRes, twoRes, singlePrice, twoPrice).Mul(size))
		e.bus.Publish(events.TradeFailed{
			FailedLegVenue: failedVenue,
			SuccessfulLeg:  *successLeg,
			Opportunity:    opp,
			ErrorMessage:   errMsg,
		})

	default:
		TradesBothFailedTotal.Inc()
		e.logger.Error("both-legs-failed",
			zap.String("opportunity_id", opp.ID),
			zap.String("single_book_error", singleRes.errMsg),
			zap.String("two_book_error", twoRes.errMsg))
		e.shutdown.Shutdown("both trade legs failed")
	}

	e.bus.Publish(events.TradeAttemptCompleted{OpportunityID: opp.ID})
	return nil
}

// Spent reports the cumulative amount committed across confirmed spends,
// for the admin status surface.
func (e *Executor) Spent() types.Price {
	return e.spendGuard.Spent()
}

func successLegPrice(singleRes, twoRes legResult, singlePrice, twoPrice types.Price) types.Price {
	if singleRes.ok {
		return singlePrice
	}
	return twoPrice
}

func legOf(res legResult, venue types.Venue, outcome types.Outcome, size types.Size, tokenID string) *types.ExecutedLeg {
	if !res.ok {
		return nil
	}
	return &types.ExecutedLeg{
		Venue:     venue,
		Outcome:   outcome,
		TradeSize: size,
		OrderID:   res.orderID,
		TokenID:   tokenID,
	}
}

// singleBookLeg returns which outcome and price the single-book venue
// leg buys, derived from the opportunity's two venue/price pairs.
func (e *Executor) singleBookLeg(opp types.Opportunity) (types.Outcome, types.Price) {
	if opp.BuyYesVenue == types.VenueSingleBook {
		return types.OutcomeYes, opp.BuyYesPrice
	}
	return types.OutcomeNo, opp.BuyNoPrice
}

// twoBookLeg is the two-book venue's counterpart of singleBookLeg.
func (e *Executor) twoBookLeg(opp types.Opportunity) (types.Outcome, types.Price) {
	if opp.BuyYesVenue == types.VenueTwoBook {
		return types.OutcomeYes, opp.BuyYesPrice
	}
	return types.OutcomeNo, opp.BuyNoPrice
}
