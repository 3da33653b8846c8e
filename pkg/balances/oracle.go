// Package balances implements the balance oracle: fetching per-venue
// balances and caching the latest snapshot for the detector and
// executor's sizing policy. The two-book venue's USDC.e and POL balances
// come from on-chain ERC-20 balanceOf / native-balance calls; the
// single-book venue's USD balance comes from its authenticated HTTP
// endpoint.
package balances

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kestrel-trading/xvenue-arb/pkg/types"
)

const balanceOfABI = `[{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"}]`

const usdcDecimals = 6
const polDecimals = 18

// Oracle answers the detector's WalletSnapshotter interface and supplies
// the executor's sizing inputs. Implementations must reject a startup
// fetch where any balance is null or zero.
type Oracle interface {
	Snapshot() types.Wallets
	Refresh(ctx context.Context) error
}

// Config wires an OnChainOracle.
type Config struct {
	// PolygonRPCURL dials the chain for the two-book venue's USDC.e and
	// POL balances.
	PolygonRPCURL string
	// USDCeTokenAddress is the ERC-20 contract address for USDC.e on
	// Polygon.
	USDCeTokenAddress string
	// WalletAddress is the address whose balances are queried.
	WalletAddress string
	// SingleBookBalanceURL is the single-book venue's authenticated
	// balance endpoint, returning {"balance": <cents>}.
	SingleBookBalanceURL string
	HTTPClient           *http.Client
	Logger                *zap.Logger
}

// OnChainOracle fetches venue balances on demand and caches the latest
// snapshot under a mutex.
type OnChainOracle struct {
	cfg    Config
	logger *zap.Logger

	mu       sync.RWMutex
	snapshot types.Wallets
}

// New constructs an OnChainOracle. A default 10s HTTP client is used if
// none is supplied.
func New(cfg Config) *OnChainOracle {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &OnChainOracle{cfg: cfg, logger: cfg.Logger}
}

// Snapshot returns the most recently fetched balances.
func (o *OnChainOracle) Snapshot() types.Wallets {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.snapshot
}

// Refresh fetches fresh balances from both venues and, if all three are
// present and nonzero, swaps them into the cached snapshot. A null or
// zero balance is an error for the caller (the orchestrator) to treat as
// fatal at startup.
func (o *OnChainOracle) Refresh(ctx context.Context) error {
	usd, err := o.fetchSingleBookUSD(ctx)
	if err != nil {
		return fmt.Errorf("fetch single-book balance: %w", err)
	}
	usdce, pol, err := o.fetchTwoBookBalances(ctx)
	if err != nil {
		return fmt.Errorf("fetch two-book balances: %w", err)
	}

	if usd.Sign() <= 0 || usdce.Sign() <= 0 || pol.Sign() <= 0 {
		return fmt.Errorf("balance oracle: one or more venue balances are zero (usd=%s usdce=%s pol=%s)", usd, usdce, pol)
	}

	o.mu.Lock()
	o.snapshot = types.Wallets{SingleBookUSD: usd, TwoBookUSDCe: usdce, TwoBookPOL: pol}
	o.mu.Unlock()

	BalanceGauge.WithLabelValues("single_book_usd").Set(mustFloat(usd))
	BalanceGauge.WithLabelValues("two_book_usdce").Set(mustFloat(usdce))
	BalanceGauge.WithLabelValues("two_book_pol").Set(mustFloat(pol))
	return nil
}

type singleBookBalanceResponse struct {
	BalanceCents int64 `json:"balance"`
}

func (o *OnChainOracle) fetchSingleBookUSD(ctx context.Context) (types.Price, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.cfg.SingleBookBalanceURL, nil)
	if err != nil {
		return decimal.Zero, err
	}
	resp, err := o.cfg.HTTPClient.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, err
	}
	var out singleBookBalanceResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return decimal.Zero, fmt.Errorf("decode balance response: %w", err)
	}
	return decimal.NewFromInt(out.BalanceCents).Div(decimal.NewFromInt(100)), nil
}

func (o *OnChainOracle) fetchTwoBookBalances(ctx context.Context) (usdce, pol types.Price, err error) {
	client, err := ethclient.DialContext(ctx, o.cfg.PolygonRPCURL)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("dial RPC: %w", err)
	}
	defer client.Close()

	address := common.HexToAddress(o.cfg.WalletAddress)

	polWei, err := client.BalanceAt(ctx, address, nil)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("get POL balance: %w", err)
	}
	pol = weiToDecimal(polWei, polDecimals)

	usdceRaw, err := o.getERC20Balance(ctx, client, address, o.cfg.USDCeTokenAddress)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("get USDC.e balance: %w", err)
	}
	usdce = weiToDecimal(usdceRaw, usdcDecimals)

	return usdce, pol, nil
}

func (o *OnChainOracle) getERC20Balance(ctx context.Context, client *ethclient.Client, owner common.Address, tokenAddr string) (*big.Int, error) {
	parsedABI, err := abi.JSON(strings.NewReader(balanceOfABI))
	if err != nil {
		return nil, fmt.Errorf("parse ABI: %w", err)
	}
	data, err := parsedABI.Pack("balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("pack ABI: %w", err)
	}

	token := common.HexToAddress(tokenAddr)
	result, err := client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call contract: %w", err)
	}

	var out []interface{}
	if out, err = parsedABI.Unpack("balanceOf", result); err != nil {
		return nil, fmt.Errorf("unpack result: %w", err)
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf return type")
	}
	return balance, nil
}

func weiToDecimal(wei *big.Int, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(wei, -decimals)
}

func mustFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
