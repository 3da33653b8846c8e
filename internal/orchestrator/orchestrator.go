// Package orchestrator owns the process lifecycle: component construction
// and wiring at startup, the soft-reset cycle after every successful
// arbitrage round, and cooperative shutdown.
package orchestrator

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kestrel-trading/xvenue-arb/internal/adminhttp"
	"github.com/kestrel-trading/xvenue-arb/internal/arbitrage"
	"github.com/kestrel-trading/xvenue-arb/internal/bus"
	"github.com/kestrel-trading/xvenue-arb/internal/diagnostics"
	"github.com/kestrel-trading/xvenue-arb/internal/execution"
	"github.com/kestrel-trading/xvenue-arb/internal/marketstate"
	"github.com/kestrel-trading/xvenue-arb/internal/storage"
	"github.com/kestrel-trading/xvenue-arb/internal/transport"
	"github.com/kestrel-trading/xvenue-arb/internal/unwind"
	"github.com/kestrel-trading/xvenue-arb/internal/venue/kalshi"
	"github.com/kestrel-trading/xvenue-arb/internal/venue/polymarket"
	"github.com/kestrel-trading/xvenue-arb/pkg/balances"
	"github.com/kestrel-trading/xvenue-arb/pkg/config"
	"github.com/kestrel-trading/xvenue-arb/pkg/healthprobe"
	"github.com/kestrel-trading/xvenue-arb/pkg/types"
)

// venueAdapter is the lifecycle surface the orchestrator needs from both
// adapters. Configuration (SetMarkets/SetBus) happens at construction
// time with the concrete types; after that the orchestrator only ever
// starts, stops, and inspects them.
type venueAdapter interface {
	Run(ctx context.Context) error
	State() transport.State
}

// Orchestrator wires every component, runs them, soft-resets ingestion
// after a successful round, and tears everything down on shutdown.
type Orchestrator struct {
	cfg    *config.Config
	logger *zap.Logger

	bus      *bus.Bus
	state    *marketstate.Manager
	detector *arbitrage.Detector
	executor *execution.Executor
	unwinder *unwind.Unwinder
	trades   *storage.TradeStorage
	oracle   balances.Oracle
	health   *healthprobe.HealthChecker
	admin    *adminhttp.Server
	printer  *diagnostics.Printer

	singleBook venueAdapter
	twoBook    venueAdapter

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Adapter tasks get their own context so the soft-reset protocol can
	// cancel and restart them without touching anything else.
	adapterMu     sync.Mutex
	adapterCancel context.CancelFunc
	adapterWG     *sync.WaitGroup

	shutdownOnce sync.Once
	shutdownCh   chan struct{}

	startedAt  time.Time
	softResets atomic.Int64
}

// New constructs and wires every component. Handler registration order on
// the bus follows the data flow: market state first, then detector, then
// executor, unwinder, and storage.
func New(cfg *config.Config, logger *zap.Logger) (*Orchestrator, error) {
	ctx, cancel := context.WithCancel(context.Background())

	o := &Orchestrator{
		cfg:        cfg,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		shutdownCh: make(chan struct{}),
		health:     healthprobe.New(),
	}

	o.bus = bus.New(bus.Config{Logger: logger})
	o.state = marketstate.New(marketstate.Config{Logger: logger, Bus: o.bus})

	o.oracle = setupOracle(cfg, logger)

	singleClient, twoClient, err := setupOrderClients(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup order clients: %w", err)
	}

	o.detector = arbitrage.New(arbitrage.Config{
		Bus:                 o.bus,
		MarketState:         o.state,
		Wallets:             o.oracle,
		Logger:              logger,
		Pairs:               cfg.TargetMarkets,
		StalenessThreshold:  cfg.StalenessThreshold,
		ProfitabilityBuffer: cfg.ProfitabilityBuffer,
		FeeRate:             cfg.FeeRate,
	})

	o.executor = execution.New(execution.Config{
		Bus:              o.bus,
		SingleBookClient: singleClient,
		TwoBookClient:    twoClient,
		Shutdown:         o,
		Logger:           logger,
		Sizing: execution.SizingConfig{
			MinimumWalletBalance: cfg.MinimumWalletBalance,
			ShutdownBalance:      cfg.ShutdownBalance,
		},
	})

	o.unwinder = unwind.New(unwind.Config{
		Bus:              o.bus,
		SingleBookClient: singleClient,
		TwoBookClient:    twoClient,
		Shutdown:         o,
		Logger:           logger,
	})

	sink, err := setupSink(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage sink: %w", err)
	}
	o.trades = storage.New(storage.Config{
		Bus:           o.bus,
		Sink:          sink,
		Logger:        logger,
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
	})

	o.singleBook, o.twoBook = setupAdapters(cfg, logger, o.bus)
	for _, pair := range cfg.TargetMarkets {
		o.state.RegisterMarket(pair.MarketID)
	}

	if cfg.DiagnosticsInterval > 0 {
		o.printer = diagnostics.New(diagnostics.Config{
			Querier:  o.state,
			Logger:   logger,
			Interval: cfg.DiagnosticsInterval,
			Depth:    cfg.DiagnosticsDepth,
		})
	}

	o.admin = adminhttp.New(adminhttp.Config{
		Port:           cfg.HTTPPort,
		Logger:         logger,
		HealthChecker:  o.health,
		StatusProvider: o,
		TargetMarkets:  cfg.TargetMarkets,
	})

	bus.Subscribe(o.bus, o.handleArbitrageTradeSuccessful)

	return o, nil
}

func setupOracle(cfg *config.Config, logger *zap.Logger) balances.Oracle {
	return balances.New(balances.Config{
		PolygonRPCURL:        cfg.PolygonRPCURL,
		USDCeTokenAddress:    cfg.USDCeTokenAddress,
		WalletAddress:        cfg.WalletAddress,
		SingleBookBalanceURL: cfg.SingleBookHTTPURL + "/portfolio/balance",
		Logger:               logger,
	})
}

// setupOrderClients picks dry-run or live order clients for both venues.
// Dry-run is a wiring choice made exactly once, here; no component
// downstream ever branches on the flag.
func setupOrderClients(cfg *config.Config, logger *zap.Logger) (execution.SingleBookClient, execution.TwoBookClient, error) {
	if cfg.DryRun {
		logger.Info("order-clients-dry-run",
			zap.String("note", "legs short-circuit to synthetic placed results"))
		return execution.DryRunSingleBookClient{}, execution.DryRunTwoBookClient{}, nil
	}

	key, err := parseRSAPrivateKey(cfg.SingleBookPrivKeyPEM)
	if err != nil {
		return nil, nil, fmt.Errorf("parse single-book private key: %w", err)
	}
	singleClient := execution.NewLiveSingleBookClient(execution.SingleBookClientConfig{
		BaseURL:    cfg.SingleBookHTTPURL,
		KeyID:      cfg.SingleBookKeyID,
		PrivateKey: key,
	})

	twoClient, err := execution.NewLiveTwoBookClient(execution.TwoBookClientConfig{
		BaseURL:       cfg.TwoBookHTTPURL,
		APIKey:        cfg.TwoBookAPIKey,
		Secret:        cfg.TwoBookSecret,
		Passphrase:    cfg.TwoBookPassphrase,
		PrivateKeyHex: cfg.TwoBookPrivateKeyHex,
		ProxyAddress:  cfg.TwoBookProxyAddress,
		Logger:        logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create two-book client: %w", err)
	}

	return singleClient, twoClient, nil
}

func setupSink(cfg *config.Config, logger *zap.Logger) (storage.Sink, error) {
	if cfg.StorageMode == "postgres" {
		sink, err := storage.NewPostgresSink(storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSLMode,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres sink: %w", err)
		}
		return sink, nil
	}
	return storage.NewConsoleSink(logger), nil
}

// setupAdapters constructs both venue adapters and binds the configured
// market pairs to their venue-specific instrument identifiers.
func setupAdapters(cfg *config.Config, logger *zap.Logger, b *bus.Bus) (venueAdapter, venueAdapter) {
	single := kalshi.New(kalshi.Config{URL: cfg.SingleBookWSURL, Logger: logger})
	two := polymarket.New(polymarket.Config{URL: cfg.TwoBookWSURL, Logger: logger})

	singleMappings := make([]kalshi.MarketMapping, 0, len(cfg.TargetMarkets))
	twoMappings := make([]polymarket.AssetMapping, 0, 2*len(cfg.TargetMarkets))
	for _, pair := range cfg.TargetMarkets {
		singleMappings = append(singleMappings, kalshi.MarketMapping{
			Ticker:   pair.SingleBookID,
			MarketID: pair.MarketID,
		})
		twoMappings = append(twoMappings,
			polymarket.AssetMapping{AssetID: pair.TwoBookYesID, MarketID: pair.MarketID, Outcome: types.OutcomeYes},
			polymarket.AssetMapping{AssetID: pair.TwoBookNoID, MarketID: pair.MarketID, Outcome: types.OutcomeNo},
		)
	}
	single.SetMarkets(singleMappings)
	single.SetBus(b)
	two.SetMarkets(twoMappings)
	two.SetBus(b)

	return single, two
}

func parseRSAPrivateKey(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("unexpected key type %T", parsed)
	}
	return key, nil
}
