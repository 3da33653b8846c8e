package orchestrator

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Run starts every component and blocks until shutdown. Startup order:
// balances first (fatal if any is missing or zero), then the bus
// consumer, storage, admin surface, and finally both adapters.
func (o *Orchestrator) Run() error {
	o.startedAt = time.Now()
	o.logger.Info("orchestrator-starting",
		zap.String("environment", string(o.cfg.Environment)),
		zap.Bool("dry-run", o.cfg.DryRun),
		zap.Int("market-pairs", len(o.cfg.TargetMarkets)))

	if err := o.oracle.Refresh(o.ctx); err != nil {
		return fmt.Errorf("refresh balances: %w", err)
	}
	wallets := o.oracle.Snapshot()
	o.logger.Info("wallets-refreshed",
		zap.String("single_book_usd", wallets.SingleBookUSD.String()),
		zap.String("two_book_usdce", wallets.TwoBookUSDCe.String()),
		zap.String("two_book_pol", wallets.TwoBookPOL.String()))

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.bus.Run(o.ctx)
	}()

	o.trades.Start()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if err := o.admin.Start(); err != nil {
			o.logger.Error("admin-http-error", zap.Error(err))
		}
	}()

	if o.printer != nil {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			o.printer.Run(o.ctx)
		}()
	}

	if err := o.startAdapters(); err != nil {
		return err
	}

	o.health.SetReady(true)
	o.logger.Info("orchestrator-ready", zap.String("http-addr", ":"+o.cfg.HTTPPort))

	return o.waitForShutdown()
}

// startAdapters launches both adapter tasks under a fresh child context.
// Called at startup and again by the soft-reset protocol after the
// cool-down.
func (o *Orchestrator) startAdapters() error {
	o.adapterMu.Lock()
	defer o.adapterMu.Unlock()

	adapterCtx, adapterCancel := context.WithCancel(o.ctx)
	o.adapterCancel = adapterCancel
	wg := &sync.WaitGroup{}
	o.adapterWG = wg

	for _, a := range []struct {
		name    string
		adapter venueAdapter
	}{
		{"single-book", o.singleBook},
		{"two-book", o.twoBook},
	} {
		wg.Add(1)
		go func(name string, a venueAdapter) {
			defer wg.Done()
			if err := a.Run(adapterCtx); err != nil {
				// Run only errors on misconfiguration, which is fatal.
				o.logger.Error("venue-adapter-failed", zap.String("venue", name), zap.Error(err))
				o.Shutdown(fmt.Sprintf("%s adapter failed: %v", name, err))
			}
		}(a.name, a.adapter)
	}

	AdapterStartsTotal.Add(2)
	return nil
}

// stopAdapters cancels both adapter tasks and waits for them to exit.
func (o *Orchestrator) stopAdapters() {
	o.adapterMu.Lock()
	cancel := o.adapterCancel
	wg := o.adapterWG
	o.adapterMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if wg != nil {
		wg.Wait()
	}
}

// waitForShutdown blocks until an OS signal or the shutdown event, then
// tears everything down.
func (o *Orchestrator) waitForShutdown() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		o.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-o.shutdownCh:
		o.logger.Info("shutdown-event-received")
	case <-o.ctx.Done():
		o.logger.Info("context-cancelled")
	}

	return o.teardown()
}
