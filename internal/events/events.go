// Package events defines the tagged-variant message set that flows over
// the event bus. Each struct here is a distinct message kind, named by
// its Kind tag below; the bus registry maps tag to handlers, and
// bus.Subscribe reads the tag from the struct's zero value at
// registration time.
package events

import (
	"time"

	"github.com/kestrel-trading/xvenue-arb/pkg/types"
)

// OrderBookSnapshotReceived is published by a VenueAdapter whenever a full
// replacement of a (market, venue, outcome) book arrives.
type OrderBookSnapshotReceived struct {
	Venue     types.Venue
	MarketID  string
	Outcome   types.Outcome
	Bids      []types.PriceLevel
	Asks      []types.PriceLevel
	Timestamp time.Time
}

// OrderBookDeltaReceived is published by a VenueAdapter for one incremental
// price-level change, already translated into an absolute size.
type OrderBookDeltaReceived struct {
	Venue     types.Venue
	MarketID  string
	Outcome   types.Outcome
	Side      types.Side
	Price     types.Price
	Size      types.Size
	Timestamp time.Time
}

// BookUpdated is published by MarketStateManager exactly when a (market,
// venue) top-of-book tuple changes.
type BookUpdated struct {
	MarketID string
	Venue    types.Venue
}

// OpportunityFound is published by the detector for the first qualifying
// direction on a given BookUpdated.
type OpportunityFound struct {
	Opportunity types.Opportunity
}

// ExecuteTrade instructs the executor to attempt both legs of an
// opportunity, carrying a wallet snapshot taken at detection time.
type ExecuteTrade struct {
	Opportunity types.Opportunity
	Wallets     types.Wallets
}

// ArbTradeResultReceived carries the raw, unclassified result of both legs
// for storage, regardless of outcome.
type ArbTradeResultReceived struct {
	Opportunity     types.Opportunity
	Category        string
	SingleBookOK    bool
	SingleBookLeg   *types.ExecutedLeg
	SingleBookError string
	TwoBookOK       bool
	TwoBookLeg      *types.ExecutedLeg
	TwoBookError    string
}

// StoreTradeResults hands one trade attempt to TradeStorage, unconditional
// of success or failure.
type StoreTradeResults struct {
	Attempt types.TradeAttempt
}

// TradeFailed is published when exactly one leg of a trade failed; it
// carries enough detail for the Unwinder to close out the successful leg.
type TradeFailed struct {
	FailedLegVenue types.Venue
	SuccessfulLeg  types.ExecutedLeg
	Opportunity    types.Opportunity
	ErrorMessage   string
}

// ArbitrageTradeSuccessful is published when both legs of a trade
// succeeded; the orchestrator reacts by soft-resetting ingestion.
type ArbitrageTradeSuccessful struct {
	Opportunity types.Opportunity
	SingleBook  types.ExecutedLeg
	TwoBook     types.ExecutedLeg
}

// TradeAttemptCompleted is published exactly once per ExecuteTrade on
// every code path and unlocks the detector's in-flight gate.
type TradeAttemptCompleted struct {
	OpportunityID string
}

// Kind tags, the bus registry's keys. One per message struct above.
const (
	KindOrderBookSnapshotReceived = "order_book_snapshot_received"
	KindOrderBookDeltaReceived    = "order_book_delta_received"
	KindBookUpdated               = "book_updated"
	KindOpportunityFound          = "opportunity_found"
	KindExecuteTrade              = "execute_trade"
	KindArbTradeResultReceived    = "arb_trade_result_received"
	KindStoreTradeResults         = "store_trade_results"
	KindTradeFailed               = "trade_failed"
	KindArbitrageTradeSuccessful  = "arbitrage_trade_successful"
	KindTradeAttemptCompleted     = "trade_attempt_completed"
)

func (OrderBookSnapshotReceived) Kind() string { return KindOrderBookSnapshotReceived }
func (OrderBookDeltaReceived) Kind() string { return KindOrderBookDeltaReceived }
func (BookUpdated) Kind() string { return KindBookUpdated }
func (OpportunityFound) Kind() string { return KindOpportunityFound }
func (ExecuteTrade) Kind() string { return KindExecuteTrade }
func (ArbTradeResultReceived) Kind() string { return KindArbTradeResultReceived }
func (StoreTradeResults) Kind() string { return KindStoreTradeResults }
func (TradeFailed) Kind() string { return KindTradeFailed }
func (ArbitrageTradeSuccessful) Kind() string { return KindArbitrageTradeSuccessful }
func (TradeAttemptCompleted) Kind() string { return KindTradeAttemptCompleted }
