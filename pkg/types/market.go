package types

// MarketPair binds one canonical market id to its venue-specific
// instrument identifiers. Supplied by the orchestrator at startup from
// static configuration; there is no runtime discovery of pairs in this
// system. The offline matching pipeline that produces candidate pairs is
// a separate concern entirely.
type MarketPair struct {
	MarketID       string // canonical id used by MarketStateManager
	SingleBookID   string // venue-A ticker (e.g. "KXFED-24DEC-T4.00")
	TwoBookYesID   string // venue-B YES asset id
	TwoBookNoID    string // venue-B NO asset id
	Question       string // human-readable description, for logs
}

// PriceLevel is a single (price, size) entry in a ladder. A size of zero
// means "delete this level" wherever it appears in an apply call.
type PriceLevel struct {
	Price Price
	Size  Size
}
