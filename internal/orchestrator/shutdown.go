package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown sets the process-wide shutdown event. Safe to call from any
// goroutine and any number of times; the first caller wins. Implements
// execution.Shutdowner and unwind.Shutdowner, which invoke it on
// both-legs-failed and on unwind failure respectively.
func (o *Orchestrator) Shutdown(reason string) {
	o.shutdownOnce.Do(func() {
		ShutdownsTotal.Inc()
		o.logger.Warn("shutdown-requested", zap.String("reason", reason))
		close(o.shutdownCh)
	})
}

// teardown cancels every task and drains storage: adapters and the bus
// consumer stop via context cancellation,
// the admin server gets a bounded grace period, and TradeStorage.Stop
// flushes whatever is still buffered.
func (o *Orchestrator) teardown() error {
	o.logger.Info("orchestrator-stopping")
	o.health.SetReady(false)

	o.stopAdapters()
	o.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := o.admin.Shutdown(shutdownCtx); err != nil {
		o.logger.Error("admin-http-shutdown-error", zap.Error(err))
	}

	o.trades.Stop(shutdownCtx)

	o.wg.Wait()
	o.bus.UnsubscribeAll()

	o.logger.Info("orchestrator-stopped")
	return nil
}
