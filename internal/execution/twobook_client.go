package execution

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/polymarket/go-order-utils/pkg/builder"
	"github.com/polymarket/go-order-utils/pkg/model"
	"go.uber.org/zap"

	"github.com/kestrel-trading/xvenue-arb/pkg/types"
)

// LiveTwoBookClient signs and submits orders to the asset-id venue's
// CLOB: EIP-712 order signing via go-order-utils, go-ethereum key
// handling. Each leg is placed independently, never as an atomic pair.
type LiveTwoBookClient struct {
	httpClient    *http.Client
	baseURL       string
	apiKey        string
	secret        string
	passphrase    string
	privateKey    *ecdsa.PrivateKey
	address       string
	proxyAddress  string
	signatureType model.SignatureType
	orderBuilder  builder.ExchangeOrderBuilder
	logger        *zap.Logger
}

// TwoBookClientConfig configures LiveTwoBookClient.
type TwoBookClientConfig struct {
	BaseURL       string
	APIKey        string
	Secret        string
	Passphrase    string
	PrivateKeyHex string
	ProxyAddress  string
	SignatureType int
	Logger        *zap.Logger
}

// NewLiveTwoBookClient parses the signing key and constructs the order
// builder for Polygon mainnet (chain id 137).
func NewLiveTwoBookClient(cfg TwoBookClientConfig) (*LiveTwoBookClient, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	publicKey, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("derive public key: unexpected type")
	}
	address := crypto.PubkeyToAddress(*publicKey).Hex()

	chainID := big.NewInt(137)
	orderBuilder := builder.NewExchangeOrderBuilderImpl(chainID, nil)

	return &LiveTwoBookClient{
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		baseURL:       cfg.BaseURL,
		apiKey:        cfg.APIKey,
		secret:        cfg.Secret,
		passphrase:    cfg.Passphrase,
		privateKey:    privateKey,
		address:       address,
		proxyAddress:  cfg.ProxyAddress,
		signatureType: model.SignatureType(cfg.SignatureType),
		orderBuilder:  orderBuilder,
		logger:        cfg.Logger,
	}, nil
}

func (c *LiveTwoBookClient) makerAddress() string {
	if c.proxyAddress != "" {
		return c.proxyAddress
	}
	return c.address
}

// PlaceLimitFOK builds, signs, and submits one FOK limit order. side is
// "BUY" or "SELL"; SELL is used by the Unwinder's aggressively-priced
// emulated market order.
func (c *LiveTwoBookClient) PlaceLimitFOK(ctx context.Context, tokenID string, side string, price, size types.Price) (string, error) {
	orderSide := model.BUY
	if side == "SELL" {
		orderSide = model.SELL
	}

	priceF, _ := price.Float64()
	sizeF, _ := size.Float64()
	takerTokens := sizeF
	makerUSD := takerTokens * priceF

	orderData := &model.OrderData{
		Maker:         c.makerAddress(),
		Taker:         "0x0000000000000000000000000000000000000000",
		TokenId:       tokenID,
		MakerAmount:   usdToRawAmount(makerUSD),
		TakerAmount:   usdToRawAmount(takerTokens),
		Side:          orderSide,
		FeeRateBps:    "0",
		Nonce:         "0",
		Signer:        c.address,
		Expiration:    "0",
		SignatureType: c.signatureType,
	}

	signedOrder, err := c.orderBuilder.BuildSignedOrder(c.privateKey, orderData, model.CTFExchange)
	if err != nil {
		return "", fmt.Errorf("build order: %w", err)
	}

	return c.submitOrder(ctx, signedOrder)
}

type orderSubmissionResponse struct {
	Success           bool     `json:"success"`
	ErrorMsg          string   `json:"errorMsg"`
	OrderID           string   `json:"orderID"`
	Status            string   `json:"status"`
	TakingAmount      string   `json:"takerAmount"`
	MakingAmount      string   `json:"makingAmount"`
	TransactionHashes []string `json:"transactionsHashes"`
}

func (c *LiveTwoBookClient) submitOrder(ctx context.Context, signedOrder *model.SignedOrder) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"order":     signedOrder,
		"owner":     c.apiKey,
		"orderType": "FOK",
	})
	if err != nil {
		return "", fmt.Errorf("marshal order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/order", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("POLY_API_KEY", c.apiKey)
	req.Header.Set("POLY_PASSPHRASE", c.passphrase)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &types.LegError{Code: types.ErrCodeTransport, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &types.LegError{Code: types.ErrCodeTransport, Message: err.Error()}
	}

	var out orderSubmissionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &types.LegError{Code: types.ErrCodeRejected, Message: fmt.Sprintf("decode response: %v", err)}
	}
	if !out.Success {
		code := types.ErrCodeRejected
		if resp.StatusCode == http.StatusOK && strings.Contains(strings.ToLower(out.ErrorMsg), "fill") {
			code = types.ErrCodeFOKNotFilled
		}
		return "", &types.LegError{Code: code, Message: out.ErrorMsg, OrderID: out.OrderID}
	}
	return out.OrderID, nil
}

// usdToRawAmount converts a USDC-denominated float into the CLOB's raw
// 6-decimal integer representation.
func usdToRawAmount(usd float64) string {
	raw := new(big.Float).Mul(big.NewFloat(usd), big.NewFloat(1_000_000))
	i, _ := raw.Int(nil)
	return i.String()
}
