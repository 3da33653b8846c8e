// Package kalshi implements the VenueAdapter for the sequence-gap venue:
// one shared YES book per market, integer-cent prices, signed-delta wire
// messages translated through a shadow book into the absolute sizes the
// rest of the system requires. A single sequence counter covers the whole
// subscription; any gap forces a close-and-resubscribe cycle.
package kalshi

import (
	"context"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kestrel-trading/xvenue-arb/internal/bus"
	"github.com/kestrel-trading/xvenue-arb/internal/events"
	"github.com/kestrel-trading/xvenue-arb/internal/transport"
	"github.com/kestrel-trading/xvenue-arb/pkg/types"
)

// resubscribeCloseCode is the distinct close code used to force a
// reconnect-and-resubscribe cycle on a sequence gap.
const resubscribeCloseCode = 4000

var centDivisor = decimal.NewFromInt(100)

// MarketMapping binds one venue-A ticker to a canonical market id.
type MarketMapping struct {
	Ticker   string
	MarketID string
}

// shadowSide is the absolute-size shadow book for one (market, side),
// maintained purely to translate signed deltas into absolute sizes.
type shadowSide map[string]int64 // price (cents, as string key) -> absolute size

// Adapter is the VenueAdapter for Kalshi-shaped venues.
type Adapter struct {
	logger *zap.Logger
	url    string
	conn   *transport.Conn
	bus    *bus.Bus

	mu          sync.Mutex
	markets     map[string]string // ticker -> market id
	lastSeq     int
	seqStarted  bool
	shadowYes   map[string]shadowSide // market id -> price -> size
	shadowNo    map[string]shadowSide
	configured  bool
}

// Config holds adapter construction parameters.
type Config struct {
	URL    string
	Logger *zap.Logger
}

// New creates an Adapter. SetMarkets and SetBus must be called before Run.
func New(cfg Config) *Adapter {
	a := &Adapter{
		logger:    cfg.Logger,
		url:       cfg.URL,
		markets:   make(map[string]string),
		shadowYes: make(map[string]shadowSide),
		shadowNo:  make(map[string]shadowSide),
	}
	a.conn = transport.New(transport.Config{
		URL:       cfg.URL,
		Logger:    cfg.Logger,
		OnConnect: a.onConnect,
		OnMessage: a.onMessage,
		OnClose:   a.onClose,
	})
	return a
}

// SetMarkets binds venue tickers to canonical market ids. Must be called
// before Run.
func (a *Adapter) SetMarkets(mappings []MarketMapping) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, m := range mappings {
		a.markets[m.Ticker] = m.MarketID
	}
	a.configured = true
}

// SetBus wires the event bus this adapter publishes onto. Must be called
// before Run.
func (a *Adapter) SetBus(b *bus.Bus) {
	a.bus = b
}

// Run streams until ctx is cancelled, reconnecting on any transport error
// after a fixed cooldown. Fails fast with ErrNotConfigured if SetMarkets
// was never called.
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
	a.lastSeq = 0
	a.seqStarted = false
	a.shadowYes = make(map[string]shadowSide)
	a.shadowNo = make(map[string]shadowSide)
	tickers := make([]string, 0, len(a.markets))
	for t := range a.markets {
		tickers = append(tickers, t)
	}
	a.mu.Unlock()

	if len(tickers) == 0 {
		return nil
	}

	cmd := wsCommand{
		ID:  1,
		Cmd: "subscribe",
		Params: subscribeParams{
			Channels:      []string{"orderbook_delta"},
			MarketTickers: tickers,
		},
	}
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	defer conn.SetWriteDeadline(time.Time{})
	return conn.WriteJSON(cmd)
}

func (a *Adapter) onClose(code int) {
	a.logger.Info("kalshi-resubscribe-close-sent", zap.Int("code", code))
}

func (a *Adapter) onMessage(raw []byte) {
	var env wsEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		a.logger.Debug("kalshi-unmarshal-error", zap.Error(err))
		return
	}

	switch env.Type {
	case "orderbook_snapshot":
		a.handleSnapshot(env)
	case "orderbook_delta":
		a.handleDelta(env)
	case "error":
		a.logger.Warn("kalshi-ws-error", zap.Int64("id", env.ID), zap.ByteString("msg", env.Msg))
	}
}

func (a *Adapter) checkSequence(seq int) bool {
	a.mu.Lock()
	gap := false
	expected := 0
	if !a.seqStarted {
		if seq != 1 {
			gap = true
		} else {
			a.seqStarted = true
			a.lastSeq = seq
		}
	} else {
		expected = a.lastSeq + 1
		if seq != expected {
			gap = true
		} else {
			a.lastSeq = seq
		}
	}
	a.mu.Unlock()

	if gap {
		SequenceGapsTotal.Inc()
		a.logger.Warn("kalshi-sequence-gap", zap.Int("expected", expected), zap.Int("got", seq))
		a.conn.RequestClose(resubscribeCloseCode)
		return false
	}
	return true
}

func (a *Adapter) handleSnapshot(env wsEnvelope) {
	if !a.checkSequence(env.Seq) {
		return
	}

	var snap obSnapshotPayload
	if err := json.Unmarshal(env.Msg, &snap); err != nil {
		a.logger.Warn("kalshi-snapshot-unmarshal-error", zap.Error(err))
		a.conn.RequestClose(resubscribeCloseCode)
		return
	}

	marketID, ok := a.tickerToMarket(snap.MarketTicker)
	if !ok {
		return
	}

	a.mu.Lock()
	a.shadowYes[marketID] = snapshotToShadow(snap.Yes)
	a.shadowNo[marketID] = snapshotToShadow(snap.No)
	a.mu.Unlock()

	yesBids := centsToLevels(snap.Yes)
	yesAsks := deriveOppositeAsks(snap.No)

	a.bus.Publish(events.OrderBookSnapshotReceived{
		Venue:     types.VenueSingleBook,
		MarketID:  marketID,
		Outcome:   types.OutcomeYes,
		Bids:      yesBids,
		Asks:      yesAsks,
		Timestamp: time.Now(),
	})
}

func (a *Adapter) handleDelta(env wsEnvelope) {
	if !a.checkSequence(env.Seq) {
		return
	}

	var d obDeltaPayload
	if err := json.Unmarshal(env.Msg, &d); err != nil {
		a.logger.Debug("kalshi-delta-unmarshal-error", zap.Error(err))
		return
	}

	marketID, ok := a.tickerToMarket(d.MarketTicker)
	if !ok {
		return
	}

	priceKey := fmt.Sprintf("%d", d.Price)

	a.mu.Lock()
	shadow := a.shadowYes[marketID]
	if d.Side == "no" {
		shadow = a.shadowNo[marketID]
	}
	if shadow == nil {
		shadow = make(shadowSide)
		if d.Side == "no" {
			a.shadowNo[marketID] = shadow
		} else {
			a.shadowYes[marketID] = shadow
		}
	}
	newSize := shadow[priceKey] + int64(d.Delta)
	if newSize < 0 {
		a.mu.Unlock()
		NegativeShadowDropsTotal.Inc()
		a.logger.Warn("kalshi-negative-shadow-size-dropped",
			zap.String("market", marketID), zap.String("side", d.Side), zap.Int("price", d.Price))
		return
	}
	if newSize == 0 {
		delete(shadow, priceKey)
	} else {
		shadow[priceKey] = newSize
	}
	a.mu.Unlock()

	price := decimal.NewFromInt(int64(d.Price)).Div(centDivisor)
	size := decimal.NewFromInt(newSize)

	if d.Side == "yes" {
		a.bus.Publish(events.OrderBookDeltaReceived{
			Venue: types.VenueSingleBook, MarketID: marketID, Outcome: types.OutcomeYes,
			Side: types.SideBid, Price: price, Size: size, Timestamp: time.Now(),
		})
		return
	}

	// NO-side delta: translate to the derived YES ask at (1 - price).
	derivedPrice := types.One.Sub(price)
	a.bus.Publish(events.OrderBookDeltaReceived{
		Venue: types.VenueSingleBook, MarketID: marketID, Outcome: types.OutcomeYes,
		Side: types.SideAsk, Price: derivedPrice, Size: size, Timestamp: time.Now(),
	})
}

func (a *Adapter) tickerToMarket(ticker string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	m, ok := a.markets[ticker]
	return m, ok
}

func snapshotToShadow(levels [][2]int) shadowSide {
	s := make(shadowSide, len(levels))
	for _, lvl := range levels {
		if lvl[1] == 0 {
			continue
		}
		s[fmt.Sprintf("%d", lvl[0])] = int64(lvl[1])
	}
	return s
}

func centsToLevels(levels [][2]int) []types.PriceLevel {
	out := make([]types.PriceLevel, 0, len(levels))
	for _, lvl := range levels {
		if lvl[1] <= 0 {
			continue
		}
		out = append(out, types.PriceLevel{
			Price: decimal.NewFromInt(int64(lvl[0])).Div(centDivisor),
			Size:  decimal.NewFromInt(int64(lvl[1])),
		})
	}
	return out
}

// deriveOppositeAsks converts NO-side bid levels into derived YES asks at
// (1 - price_no).
func deriveOppositeAsks(noLevels [][2]int) []types.PriceLevel {
	out := make([]types.PriceLevel, 0, len(noLevels))
	for _, lvl := range noLevels {
		if lvl[1] <= 0 {
			continue
		}
		price := decimal.NewFromInt(int64(lvl[0])).Div(centDivisor)
		out = append(out, types.PriceLevel{
			Price: types.One.Sub(price),
			Size:  decimal.NewFromInt(int64(lvl[1])),
		})
	}
	return out
}
