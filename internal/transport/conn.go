// Package transport provides the fixed-cooldown WebSocket connection loop
// shared by both venue adapters: disconnected, connecting, subscribing,
// streaming, then back to disconnected on any error, with a fixed 3-5s
// cooldown before the next attempt. Reconnection is fixed-interval, never
// exponential.
package transport

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// State mirrors the adapter connection state machine.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateSubscribing
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateSubscribing:
		return "subscribing"
	case StateStreaming:
		return "streaming"
	default:
		return "disconnected"
	}
}

// Config holds the connection's dial/ping/cooldown parameters.
type Config struct {
	URL          string
	Logger       *zap.Logger
	DialTimeout  time.Duration // default 10s
	PingInterval time.Duration // default 15s
	CooldownMin  time.Duration // default 3s
	CooldownMax  time.Duration // default 5s

	// OnConnect is called with the fresh connection once the dial succeeds,
	// before the read loop starts. It should perform subscription and
	// return an error to abort this connection attempt.
	OnConnect func(ctx context.Context, conn *websocket.Conn) error
	// OnMessage is called once per inbound frame, synchronously on the
	// read-loop goroutine.
	OnMessage func(data []byte)
	// OnClose is called with the close code after a close frame requested
	// through RequestClose has been sent; it is not called when the server
	// drops the connection. Resubscription happens on the next connect.
	OnClose func(code int)
}

// Conn runs the fixed-cooldown connect/stream/reconnect loop for one
// WebSocket endpoint. One Conn per venue adapter.
type Conn struct {
	cfg   Config
	state atomic.Int32

	closeRequested chan int // close code requested by the adapter (resubscribe-on-gap)
}

// New creates a Conn. Call Run to start the loop.
func New(cfg Config) *Conn {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.PingInterval == 0 {
		cfg.PingInterval = 15 * time.Second
	}
	if cfg.CooldownMin == 0 {
		cfg.CooldownMin = 3 * time.Second
	}
	if cfg.CooldownMax == 0 {
		cfg.CooldownMax = 5 * time.Second
	}
	return &Conn{cfg: cfg, closeRequested: make(chan int, 1)}
}

// State reports the current connection state.
func (c *Conn) State() State {
	return State(c.state.Load())
}

func (c *Conn) setState(s State) {
	c.state.Store(int32(s))
}

// RequestClose asks the loop to close the current connection with the
// given close code; the loop then reconnects after the usual cooldown.
// Used by venue A on a sequence gap.
func (c *Conn) RequestClose(code int) {
	select {
	case c.closeRequested <- code:
	default:
	}
}

// Run executes the connect/stream/reconnect loop until ctx is cancelled.
// It never returns an error out of the loop: transport errors are logged
// and retried after a fixed cooldown.
func (c *Conn) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			c.setState(StateDisconnected)
			return
		default:
		}

		if err := c.runOnce(ctx); err != nil {
			c.cfg.Logger.Warn("transport-connection-error", zap.String("url", c.cfg.URL), zap.Error(err))
		}

		c.setState(StateDisconnected)
		ConnectionDroppedTotal.WithLabelValues(c.cfg.URL).Inc()

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.cooldown()):
		}
	}
}

func (c *Conn) cooldown() time.Duration {
	span := c.cfg.CooldownMax - c.cfg.CooldownMin
	if span <= 0 {
		return c.cfg.CooldownMin
	}
	return c.cfg.CooldownMin + time.Duration(rand.Int63n(int64(span)))
}

func (c *Conn) runOnce(ctx context.Context) error {
	c.setState(StateConnecting)

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.DialTimeout}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	c.setState(StateSubscribing)
	if c.cfg.OnConnect != nil {
		if err := c.cfg.OnConnect(ctx, conn); err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
	}
	c.setState(StateStreaming)

	childCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go c.pingLoop(childCtx, conn)
	go c.readLoop(conn, errCh)

	select {
	case <-ctx.Done():
		return nil
	case code := <-c.closeRequested:
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, "resubscribe"), time.Now().Add(time.Second))
		if c.cfg.OnClose != nil {
			c.cfg.OnClose(code)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

func (c *Conn) readLoop(conn *websocket.Conn, errCh chan<- error) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			errCh <- fmt.Errorf("read: %w", err)
			return
		}
		MessagesReceivedTotal.WithLabelValues(c.cfg.URL).Inc()
		if c.cfg.OnMessage != nil {
			c.cfg.OnMessage(msg)
		}
	}
}

func (c *Conn) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(time.Second)); err != nil {
				c.cfg.Logger.Debug("ping-error", zap.Error(err))
			}
		}
	}
}
