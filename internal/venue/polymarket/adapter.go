// Package polymarket implements the VenueAdapter for the asset-id venue:
// two separate books per market (YES and NO traded as distinct
// instruments), absolute-size deltas keyed by asset id, decimal-string
// prices and sizes, "book"/"price_change" event types. The full ladder is
// forwarded, not just top-of-book; PriceBook owns depth.
package polymarket

import (
	"context"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kestrel-trading/xvenue-arb/internal/bus"
	"github.com/kestrel-trading/xvenue-arb/internal/events"
	"github.com/kestrel-trading/xvenue-arb/internal/transport"
	"github.com/kestrel-trading/xvenue-arb/pkg/cache"
	"github.com/kestrel-trading/xvenue-arb/pkg/types"
)

// AssetMapping binds one venue asset id to a canonical (market id, outcome).
type AssetMapping struct {
	AssetID  string
	MarketID string
	Outcome  types.Outcome
}

// Adapter is the VenueAdapter for asset-id venues (two books per market).
type Adapter struct {
	logger *zap.Logger
	url    string
	conn   *transport.Conn
	bus    *bus.Bus

	// mappings is the asset-id to (market, outcome) reverse index, looked
	// up on every inbound book/price_change message. Ristretto-backed
	// (pkg/cache) rather than a plain map, since this lookup sits on the
	// adapter's hottest path.
	mappings cache.Cache

	mu         sync.Mutex
	assetIDs   []string // subscription list, set once at SetMarkets time
	configured bool
}

// Config holds adapter construction parameters.
type Config struct {
	URL    string
	Logger *zap.Logger
	// Mappings, if nil, defaults to a small in-process RistrettoCache.
	// Exposed for tests that want an instrumented or deterministic cache.
	Mappings cache.Cache
}

// New creates an Adapter. SetMarkets and SetBus must be called before Run.
func New(cfg Config) *Adapter {
	mappings := cfg.Mappings
	if mappings == nil {
		c, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
			NumCounters: 1000,
			MaxCost:     100,
			BufferItems: 64,
			Logger:      cfg.Logger,
		})
		if err != nil {
			// NumCounters/MaxCost above are fixed constants known to be
			// valid for ristretto.Config; this can only fail on a
			// misconfiguration we control here.
			panic(err)
		}
		mappings = c
	}

	a := &Adapter{
		logger:   cfg.Logger,
		url:      cfg.URL,
		mappings: mappings,
	}
	a.conn = transport.New(transport.Config{
		URL:       cfg.URL,
		Logger:    cfg.Logger,
		OnConnect: a.onConnect,
		OnMessage: a.onMessage,
	})
	return a
}

// SetMarkets binds venue asset ids to canonical (market, outcome) pairs.
func (a *Adapter) SetMarkets(mappings []AssetMapping) {
	a.mu.Lock()
	a.assetIDs = a.assetIDs[:0]
	for _, m := range mappings {
		a.mappings.Set(m.AssetID, m, 0)
		a.assetIDs = append(a.assetIDs, m.AssetID)
	}
	a.configured = true
	a.mu.Unlock()

	// Ristretto applies writes asynchronously; block until this batch of
	// bindings is visible so a message arriving right after SetMarkets
	// never misses on a lookup that should have hit.
	if w, ok := a.mappings.(interface{ Wait() }); ok {
		w.Wait()
	}
}

// SetBus wires the event bus this adapter publishes onto.
func (a *Adapter) SetBus(b *bus.Bus) {
	a.bus = b
}

// Run streams until ctx is cancelled, reconnecting on any transport error
// after a fixed cooldown.
func (a *Adapter) Run(ctx context.Context) error {
	a.mu.Lock()
	configured := a.configured
	a.mu.Unlock()
	if !configured || a.bus == nil {
		return types.ErrNotConfigured
	}
	a.conn.Run(ctx)
	return nil
}

// State reports the adapter's connection state, for diagnostics.
func (a *Adapter) State() transport.State {
	return a.conn.State()
}

func (a *Adapter) onConnect(ctx context.Context, conn *websocket.Conn) error {
	a.mu.Lock()
	assetIDs := make([]string, len(a.assetIDs))
	copy(assetIDs, a.assetIDs)
	a.mu.Unlock()

	if len(assetIDs) == 0 {
		return nil
	}

	msg := map[string]interface{}{
		"assets_ids": assetIDs,
		"type":       "market",
	}
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	defer conn.SetWriteDeadline(time.Time{})
	return conn.WriteJSON(msg)
}

func (a *Adapter) onMessage(raw []byte) {
	var msgs []OrderbookMessage
	if err := json.Unmarshal(raw, &msgs); err != nil {
		a.logger.Debug("polymarket-unmarshal-error", zap.Error(err))
		return
	}
	for i := range msgs {
		a.handleMessage(&msgs[i])
	}
}

func (a *Adapter) handleMessage(msg *OrderbookMessage) {
	mapping, ok := a.assetMapping(msg.AssetID)
	if !ok {
		return
	}

	switch msg.EventType {
	case "book":
		a.handleBook(msg, mapping)
	case "price_change":
		a.handlePriceChange(msg, mapping)
	}
}

func (a *Adapter) handleBook(msg *OrderbookMessage, mapping AssetMapping) {
	bids, ok := parseLevels(msg.Bids)
	if !ok {
		ParseErrorsTotal.WithLabelValues("book").Inc()
		a.logger.Warn("polymarket-book-parse-error", zap.String("asset-id", msg.AssetID))
		return
	}
	asks, ok := parseLevels(msg.Asks)
	if !ok {
		ParseErrorsTotal.WithLabelValues("book").Inc()
		a.logger.Warn("polymarket-book-parse-error", zap.String("asset-id", msg.AssetID))
		return
	}

	a.bus.Publish(events.OrderBookSnapshotReceived{
		Venue:     types.VenueTwoBook,
		MarketID:  mapping.MarketID,
		Outcome:   mapping.Outcome,
		Bids:      bids,
		Asks:      asks,
		Timestamp: time.Now(),
	})
}

func (a *Adapter) handlePriceChange(msg *OrderbookMessage, mapping AssetMapping) {
	for _, ch := range msg.Changes {
		price, err := decimal.NewFromString(ch.Price)
		if err != nil {
			ParseErrorsTotal.WithLabelValues("price_change").Inc()
			a.logger.Debug("polymarket-price-change-parse-error",
				zap.String("asset-id", msg.AssetID), zap.String("price", ch.Price))
			continue
		}
		size, err := decimal.NewFromString(ch.Size)
		if err != nil {
			ParseErrorsTotal.WithLabelValues("price_change").Inc()
			a.logger.Debug("polymarket-price-change-parse-error",
				zap.String("asset-id", msg.AssetID), zap.String("size", ch.Size))
			continue
		}

		side := types.SideBid
		if ch.Side == "SELL" {
			side = types.SideAsk
		}

		a.bus.Publish(events.OrderBookDeltaReceived{
			Venue: types.VenueTwoBook, MarketID: mapping.MarketID, Outcome: mapping.Outcome,
			Side: side, Price: price, Size: size, Timestamp: time.Now(),
		})
	}
}

func (a *Adapter) assetMapping(assetID string) (AssetMapping, bool) {
	v, ok := a.mappings.Get(assetID)
	if !ok {
		return AssetMapping{}, false
	}
	m, ok := v.(AssetMapping)
	return m, ok
}

func parseLevels(levels []PriceLevel) ([]types.PriceLevel, bool) {
	out := make([]types.PriceLevel, 0, len(levels))
	for _, lvl := range levels {
		price, err := decimal.NewFromString(lvl.Price)
		if err != nil {
			return nil, false
		}
		size, err := decimal.NewFromString(lvl.Size)
		if err != nil {
			return nil, false
		}
		out = append(out, types.PriceLevel{Price: price, Size: size})
	}
	return out, true
}
