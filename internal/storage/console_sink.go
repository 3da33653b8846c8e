package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kestrel-trading/xvenue-arb/pkg/types"
)

// ConsoleSink pretty-prints each trade attempt; the default sink outside
// postgres mode.
type ConsoleSink struct {
	logger *zap.Logger
}

// NewConsoleSink creates a console sink.
func NewConsoleSink(logger *zap.Logger) *ConsoleSink {
	logger.Info("console-sink-initialized")
	return &ConsoleSink{logger: logger}
}

// Insert prints every attempt in the batch.
func (c *ConsoleSink) Insert(ctx context.Context, batch []types.TradeAttempt) error {
	for _, a := range batch {
		fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		fmt.Printf("TRADE ATTEMPT  market=%s category=%s\n", a.Opportunity.MarketID, a.Category)
		fmt.Printf("  single_book: ok=%v order=%s err=%s\n", a.SingleBookOK, a.SingleBookOrder, a.SingleBookErr)
		fmt.Printf("  two_book:    ok=%v order=%s err=%s\n", a.TwoBookOK, a.TwoBookOrder, a.TwoBookErr)
		fmt.Printf("  detected profit margin: %s size: %s\n", a.Opportunity.ProfitMargin.String(), a.Opportunity.PotentialTradeSize.String())
	}
	return nil
}

// Close is a no-op for the console sink.
func (c *ConsoleSink) Close() error {
	c.logger.Info("closing-console-sink")
	return nil
}
