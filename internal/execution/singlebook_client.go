package execution

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/kestrel-trading/xvenue-arb/pkg/types"
)

// LiveSingleBookClient places orders on the sequence-gap venue's REST
// API. Request signing uses the venue's
// RSA-PSS-over-(timestamp+method+path) header convention, the same scheme
// its websocket feed authenticates with. Calls are spaced to respect the
// venue's per-key rate limit.
type LiveSingleBookClient struct {
	httpClient *http.Client
	baseURL    string
	keyID      string
	privateKey *rsa.PrivateKey

	lastCallAt time.Time
}

// SingleBookClientConfig configures LiveSingleBookClient.
type SingleBookClientConfig struct {
	BaseURL    string
	KeyID      string
	PrivateKey *rsa.PrivateKey
}

// NewLiveSingleBookClient builds a client with a 10s HTTP timeout.
func NewLiveSingleBookClient(cfg SingleBookClientConfig) *LiveSingleBookClient {
	return &LiveSingleBookClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    cfg.BaseURL,
		keyID:      cfg.KeyID,
		privateKey: cfg.PrivateKey,
	}
}

type createOrderRequest struct {
	Action        string `json:"action"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	Ticker        string `json:"ticker"`
	Count         int64  `json:"count"`
	ClientOrderID string `json:"client_order_id"`
	TimeInForce   string `json:"time_in_force"`
	YesPrice      *int64 `json:"yes_price,omitempty"`
	NoPrice       *int64 `json:"no_price,omitempty"`
	BuyMaxCost    *int64 `json:"buy_max_cost,omitempty"`
}

type createOrderResponse struct {
	Order struct {
		OrderID string `json:"order_id"`
		Status  string `json:"status"`
		Side    string `json:"side"`
		Ticker  string `json:"ticker"`
	} `json:"order"`
}

// PlaceLimitFOK places a fill-or-kill limit buy on the given outcome
// side, with a fresh client-generated idempotency id per call.
func (c *LiveSingleBookClient) PlaceLimitFOK(ctx context.Context, ticker string, outcome types.Outcome, priceCents int64, count types.Size, clientOrderID string) (string, error) {
	if clientOrderID == "" {
		clientOrderID = uuid.New().String()
	}
	countInt := count.IntPart()

	req := createOrderRequest{
		Action:        "buy",
		Side:          sideOf(outcome),
		Type:          "limit",
		Ticker:        ticker,
		Count:         countInt,
		ClientOrderID: clientOrderID,
		TimeInForce:   "fill_or_kill",
	}
	if outcome == types.OutcomeYes {
		req.YesPrice = &priceCents
	} else {
		req.NoPrice = &priceCents
	}

	return c.doCreateOrder(ctx, req)
}

// PlaceMarketSell places a market sell used by the Unwinder to close out a
// successful single-book leg.
func (c *LiveSingleBookClient) PlaceMarketSell(ctx context.Context, ticker string, outcome types.Outcome, count types.Size) (string, error) {
	req := createOrderRequest{
		Action:        "sell",
		Side:          sideOf(outcome),
		Type:          "market",
		Ticker:        ticker,
		Count:         count.IntPart(),
		ClientOrderID: uuid.New().String(),
		TimeInForce:   "fill_or_kill",
	}
	return c.doCreateOrder(ctx, req)
}

func sideOf(outcome types.Outcome) string {
	if outcome == types.OutcomeYes {
		return "yes"
	}
	return "no"
}

func (c *LiveSingleBookClient) doCreateOrder(ctx context.Context, body createOrderRequest) (string, error) {
	c.throttle()

	raw, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal order: %w", err)
	}

	const path = "/portfolio/orders"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	if err := c.sign(req, http.MethodPost, path); err != nil {
		return "", fmt.Errorf("sign request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &types.LegError{Venue: types.VenueSingleBook, Code: types.ErrCodeTransport, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &types.LegError{Venue: types.VenueSingleBook, Code: types.ErrCodeTransport, Message: err.Error()}
	}

	if resp.StatusCode >= 400 {
		return "", &types.LegError{Venue: types.VenueSingleBook, Code: types.ErrCodeRejected, Message: string(respBody)}
	}

	var out createOrderResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", &types.LegError{Venue: types.VenueSingleBook, Code: types.ErrCodeRejected, Message: fmt.Sprintf("decode response: %v", err)}
	}
	if out.Order.Status == "canceled" {
		return "", &types.LegError{Venue: types.VenueSingleBook, Code: types.ErrCodeFOKNotFilled, Message: "order canceled, not filled", OrderID: out.Order.OrderID}
	}
	return out.Order.OrderID, nil
}

// throttle enforces the venue's documented 100ms inter-call rate limit.
func (c *LiveSingleBookClient) throttle() {
	if c.lastCallAt.IsZero() {
		c.lastCallAt = time.Now()
		return
	}
	if elapsed := time.Since(c.lastCallAt); elapsed < 100*time.Millisecond {
		time.Sleep(100*time.Millisecond - elapsed)
	}
	c.lastCallAt = time.Now()
}

// sign attaches the venue's request-signing headers: an RSA-PSS signature
// over timestamp+method+path, matching the scheme the venue's websocket
// feed uses for its own handshake.
func (c *LiveSingleBookClient) sign(req *http.Request, method, path string) error {
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	message := timestamp + method + path

	hashed := sha256.Sum256([]byte(message))
	sig, err := rsa.SignPSS(rand.Reader, c.privateKey, crypto.SHA256, hashed[:], &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthAuto})
	if err != nil {
		return err
	}

	req.Header.Set("KALSHI-ACCESS-KEY", c.keyID)
	req.Header.Set("KALSHI-ACCESS-TIMESTAMP", timestamp)
	req.Header.Set("KALSHI-ACCESS-SIGNATURE", base64.StdEncoding.EncodeToString(sig))
	return nil
}
