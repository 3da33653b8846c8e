package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kestrel-trading/xvenue-arb/internal/events"
)

// handleArbitrageTradeSuccessful kicks off the soft-reset protocol:
// cancel both adapter tasks, cool down, clear every book,
// then restart ingestion so each venue delivers a fresh snapshot. The
// reset runs off the bus goroutine so the cool-down sleep never stalls
// event dispatch; the detector stays locked the whole time regardless,
// because the executor's final TradeAttemptCompleted is what unlocks it,
// not the reset.
func (o *Orchestrator) handleArbitrageTradeSuccessful(ctx context.Context, evt events.ArbitrageTradeSuccessful) error {
	o.logger.Info("arbitrage-trade-successful",
		zap.String("opportunity_id", evt.Opportunity.ID),
		zap.String("market_id", evt.Opportunity.MarketID),
		zap.String("profit_margin", evt.Opportunity.ProfitMargin.String()))

	go o.softReset()
	return nil
}

func (o *Orchestrator) softReset() {
	SoftResetsTotal.Inc()
	o.logger.Info("soft-reset-starting",
		zap.Duration("cool-down", o.cfg.SoftResetCooldown))

	o.stopAdapters()

	select {
	case <-o.ctx.Done():
		return
	case <-time.After(o.cfg.SoftResetCooldown):
	}

	o.state.Reset()

	if err := o.startAdapters(); err != nil {
		o.logger.Error("soft-reset-restart-failed", zap.Error(err))
		o.Shutdown("soft-reset could not restart adapters")
		return
	}

	o.softResets.Add(1)
	o.logger.Info("soft-reset-complete", zap.Int64("total", o.softResets.Load()))
}
