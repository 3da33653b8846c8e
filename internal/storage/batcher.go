package storage

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kestrel-trading/xvenue-arb/internal/bus"
	"github.com/kestrel-trading/xvenue-arb/internal/events"
	"github.com/kestrel-trading/xvenue-arb/pkg/types"
)

const defaultFlushInterval = 30 * time.Minute
const defaultBatchSize = 50

// Config wires a TradeStorage batcher.
type Config struct {
	Bus           *bus.Bus
	Sink          Sink
	Logger        *zap.Logger
	BatchSize     int           // default 50
	FlushInterval time.Duration // default 30 minutes
}

// TradeStorage buffers StoreTradeResults records in memory and flushes
// them to a Sink in batches, either when the buffer reaches BatchSize or
// on the periodic timer.
type TradeStorage struct {
	bus    *bus.Bus
	sink   Sink
	logger *zap.Logger

	batchSize     int
	flushInterval time.Duration

	mu     sync.Mutex
	buffer []types.TradeAttempt

	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a TradeStorage and subscribes its StoreTradeResults handler.
func New(cfg Config) *TradeStorage {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultFlushInterval
	}

	s := &TradeStorage{
		bus:           cfg.Bus,
		sink:          cfg.Sink,
		logger:        cfg.Logger,
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
	bus.Subscribe(cfg.Bus, s.handleStoreTradeResults)
	return s
}

// Start launches the periodic flusher goroutine.
func (s *TradeStorage) Start() {
	go s.periodicFlush()
}

// Stop cancels the periodic task, then flushes whatever remains in the
// buffer.
func (s *TradeStorage) Stop(ctx context.Context) {
	close(s.stopCh)
	<-s.doneCh
	s.flush(ctx)
}

func (s *TradeStorage) periodicFlush() {
	defer close(s.doneCh)
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.flush(context.Background())
		}
	}
}

func (s *TradeStorage) handleStoreTradeResults(ctx context.Context, evt events.StoreTradeResults) error {
	triggerFlush := false

	s.mu.Lock()
	s.buffer = append(s.buffer, evt.Attempt)
	if len(s.buffer) >= s.batchSize {
		triggerFlush = true
	}
	s.mu.Unlock()

	BufferedRecords.Set(float64(s.bufferLen()))

	if triggerFlush {
		s.flush(ctx)
	}
	return nil
}

func (s *TradeStorage) bufferLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buffer)
}

// flush snapshots and clears the buffer under the mutex, then performs the
// sink I/O without holding the lock. On failure the batch
// is re-prepended to the front of the buffer for the next attempt
// (at-least-once delivery; duplicates possible across restarts).
func (s *TradeStorage) flush(ctx context.Context) {
	s.mu.Lock()
	if len(s.buffer) == 0 {
		s.mu.Unlock()
		return
	}
	batch := s.buffer
	s.buffer = nil
	s.mu.Unlock()

	if err := s.sink.Insert(ctx, batch); err != nil {
		s.logger.Error("flush-failed-reprepending", zap.Int("count", len(batch)), zap.Error(err))
		FlushFailuresTotal.Inc()

		s.mu.Lock()
		s.buffer = append(batch, s.buffer...)
		s.mu.Unlock()
		BufferedRecords.Set(float64(s.bufferLen()))
		return
	}

	FlushesTotal.Inc()
	RecordsFlushedTotal.Add(float64(len(batch)))
	BufferedRecords.Set(float64(s.bufferLen()))
}
