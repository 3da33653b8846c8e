package types

import (
	"github.com/shopspring/decimal"
)

// Price is a decimal value in [0, 1], representing the cost of one YES or
// NO contract in units of account. Never backed by float64: every venue's
// wire prices are parsed straight into decimal.Decimal so comparisons and
// arithmetic stay exact.
type Price = decimal.Decimal

// Size is a non-negative decimal quantity of contracts or tokens.
type Size = decimal.Decimal

// Venue identifies one of the two trading venues in a pair.
type Venue string

const (
	// VenueSingleBook is the sequence-gap venue that streams one YES book
	// per market and derives NO arithmetically.
	VenueSingleBook Venue = "single_book"

	// VenueTwoBook is the asset-id venue that trades YES and NO as two
	// separate instruments.
	VenueTwoBook Venue = "two_book"
)

// Outcome names a side of a binary market.
type Outcome string

const (
	OutcomeYes Outcome = "YES"
	OutcomeNo  Outcome = "NO"
)

// Side of a ladder: bid (buyers) or ask (sellers).
type Side string

const (
	SideBid Side = "bid"
	SideAsk Side = "ask"
)

var (
	// One is the constant 1.0 used throughout the fee/profitability model.
	One = decimal.NewFromInt(1)
	// Zero is the constant 0.
	Zero = decimal.Zero
)
