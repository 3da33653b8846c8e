package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Opportunity is an immutable description of one detected buy-both
// arbitrage, produced by the detector and consumed by the executor.
type Opportunity struct {
	ID                 string
	MarketID           string
	Question           string
	DetectedAt         time.Time
	BuyYesVenue        Venue
	BuyYesPrice        Price
	BuyNoVenue         Venue
	BuyNoPrice         Price
	ProfitMargin       Price
	PotentialTradeSize Size

	// Venue-specific instrument identifiers needed to place each leg.
	SingleBookTicker string // venue-A ticker
	TwoBookTokenID   string // venue-B asset id for whichever outcome it buys

	// KalshiFees is the per-unit fee charged on the single-book venue leg,
	// computed once at detection time.
	KalshiFees Price
}

// NewOpportunity builds an Opportunity with a fresh id and detection
// timestamp. All price/size inputs must already be validated positive and
// in range by the caller (the detector).
func NewOpportunity(
	marketID, question string,
	buyYesVenue Venue, buyYesPrice Price,
	buyNoVenue Venue, buyNoPrice Price,
	potentialTradeSize Size,
	kalshiFees Price,
	singleBookTicker, twoBookTokenID string,
) *Opportunity {
	effectiveCost := buyYesPrice.Add(buyNoPrice).Add(kalshiFees)
	return &Opportunity{
		ID:                 uuid.New().String(),
		MarketID:           marketID,
		Question:           question,
		DetectedAt:         time.Now(),
		BuyYesVenue:        buyYesVenue,
		BuyYesPrice:        buyYesPrice,
		BuyNoVenue:         buyNoVenue,
		BuyNoPrice:         buyNoPrice,
		ProfitMargin:       One.Sub(effectiveCost),
		PotentialTradeSize: potentialTradeSize,
		SingleBookTicker:   singleBookTicker,
		TwoBookTokenID:     twoBookTokenID,
		KalshiFees:         kalshiFees,
	}
}

// String gives a human-readable one-liner for operator logs.
func (o *Opportunity) String() string {
	return fmt.Sprintf(
		"Opportunity[%s] market=%s buyYes=%s@%s buyNo=%s@%s margin=%s size=%s",
		shortID(o.ID), o.MarketID, o.BuyYesVenue, o.BuyYesPrice.String(),
		o.BuyNoVenue, o.BuyNoPrice.String(), o.ProfitMargin.String(), o.PotentialTradeSize.String(),
	)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
