// Package storage implements TradeStorage: a mutex-guarded,
// size/time-triggered batching layer over a pluggable persistence sink,
// with failed batches re-prepended for retry on the next flush.
package storage

import (
	"context"

	"github.com/kestrel-trading/xvenue-arb/pkg/types"
)

// Sink is the persistence interface TradeStorage flushes batches to.
// Idempotency is not assumed by callers.
type Sink interface {
	Insert(ctx context.Context, batch []types.TradeAttempt) error
	Close() error
}
