package polymarket

import (
	"encoding/json"
	"strconv"
)

// OrderbookMessage mirrors the venue's WS frame shape, keyed by asset id
// with a string-encoded timestamp. A "book" frame carries full bids/asks
// ladders; a "price_change" frame instead carries a changes array of
// absolute per-level sizes, each change tagged BUY or SELL.
type OrderbookMessage struct {
	EventType string       `json:"event_type"`
	AssetID   string       `json:"asset_id"`
	Market    string       `json:"market"`
	Timestamp int64        `json:"-"`
	Bids      []PriceLevel `json:"bids,omitempty"`
	Asks      []PriceLevel `json:"asks,omitempty"`
	Changes   []Change     `json:"changes,omitempty"`
}

// UnmarshalJSON handles the venue's string-encoded timestamp field.
func (o *OrderbookMessage) UnmarshalJSON(data []byte) error {
	type alias OrderbookMessage
	aux := &struct {
		TimestampStr string `json:"timestamp"`
		*alias
	}{alias: (*alias)(o)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.TimestampStr != "" {
		ts, err := strconv.ParseInt(aux.TimestampStr, 10, 64)
		if err != nil {
			return err
		}
		o.Timestamp = ts
	}
	return nil
}

// PriceLevel is one (price, size) pair as the venue sends it: both as
// decimal strings.
type PriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// Change is one price-level update inside a price_change frame. Size is
// the absolute post-change size at that price; side "BUY" means the bid
// ladder, "SELL" the ask ladder.
type Change struct {
	Price string `json:"price"`
	Side  string `json:"side"`
	Size  string `json:"size"`
}
