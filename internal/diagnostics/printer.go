// Package diagnostics implements the periodic order-book printer: an
// operator-facing console dump of every tracked book's top levels, for
// verification and debugging; disabled unless an interval is configured.
package diagnostics

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kestrel-trading/xvenue-arb/internal/book"
	"github.com/kestrel-trading/xvenue-arb/internal/marketstate"
)

// Querier is the read-only port the printer pulls book state through.
// Implemented by marketstate.Manager.
type Querier interface {
	BookSnapshots(depth int) []marketstate.BookSnapshot
}

// Config wires a Printer.
type Config struct {
	Querier  Querier
	Logger   *zap.Logger
	Interval time.Duration // default 5s
	Depth    int           // default 3
}

// Printer periodically prints a multi-level snapshot of every tracked
// book to the console.
type Printer struct {
	querier  Querier
	logger   *zap.Logger
	interval time.Duration
	depth    int
}

// New creates a Printer. Call Run to start the loop.
func New(cfg Config) *Printer {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.Depth <= 0 {
		cfg.Depth = 3
	}
	return &Printer{
		querier:  cfg.Querier,
		logger:   cfg.Logger,
		interval: cfg.Interval,
		depth:    cfg.Depth,
	}
}

// Run prints a snapshot every interval until ctx is cancelled.
func (p *Printer) Run(ctx context.Context) {
	p.logger.Info("diagnostic-printer-starting",
		zap.Duration("interval", p.interval),
		zap.Int("depth", p.depth))
	defer p.logger.Info("diagnostic-printer-stopped")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Print(p.render())
			PrintsTotal.Inc()
		}
	}
}

func (p *Printer) render() string {
	snaps := p.querier.BookSnapshots(p.depth)
	sort.Slice(snaps, func(i, j int) bool {
		a, b := snaps[i], snaps[j]
		if a.MarketID != b.MarketID {
			return a.MarketID < b.MarketID
		}
		if a.Venue != b.Venue {
			return a.Venue < b.Venue
		}
		return a.Outcome < b.Outcome
	})

	var sb strings.Builder
	sb.WriteString("\n" + strings.Repeat("=", 50) + "\n")
	fmt.Fprintf(&sb, "|        ORDER BOOK SNAPSHOT (Top %d Levels)      |\n", p.depth)
	sb.WriteString(strings.Repeat("=", 50) + "\n")

	if len(snaps) == 0 {
		sb.WriteString("| No markets registered yet.                     |\n")
		sb.WriteString(strings.Repeat("=", 50) + "\n\n")
		return sb.String()
	}

	lastMarket := ""
	for _, s := range snaps {
		if s.MarketID != lastMarket {
			fmt.Fprintf(&sb, "\n--- Market: %s ---\n", s.MarketID)
			lastMarket = s.MarketID
		}
		fmt.Fprintf(&sb, "  %s/%s:\n", s.Venue, s.Outcome)
		renderBook(&sb, s.Bids, s.Asks)
	}

	sb.WriteString("\n" + strings.Repeat("=", 50) + "\n\n")
	return sb.String()
}

func renderBook(sb *strings.Builder, bids, asks []book.Level) {
	if len(bids) == 0 && len(asks) == 0 {
		sb.WriteString("    (book is empty)\n")
		return
	}

	sb.WriteString("    BIDS              |  ASKS\n")
	sb.WriteString("    Price | Size      |  Price | Size\n")
	sb.WriteString("    ------+---------  |  ------+---------\n")

	rows := len(bids)
	if len(asks) > rows {
		rows = len(asks)
	}
	for i := 0; i < rows; i++ {
		bidStr := strings.Repeat(" ", 17)
		if i < len(bids) {
			bidStr = fmt.Sprintf("%-5s | %-8s", bids[i].Price.String(), bids[i].Size.String())
		}
		askStr := ""
		if i < len(asks) {
			askStr = fmt.Sprintf("%-5s | %-8s", asks[i].Price.String(), asks[i].Size.String())
		}
		fmt.Fprintf(sb, "    %s  |  %s\n", bidStr, askStr)
	}
}
