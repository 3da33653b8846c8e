package orchestrator

import (
	"time"

	"github.com/kestrel-trading/xvenue-arb/internal/adminhttp"
)

// Status implements adminhttp.StatusProvider: a read-only diagnostic
// snapshot of connection states, cumulative spend, and every registered
// book's top-of-book.
func (o *Orchestrator) Status() adminhttp.Status {
	states := o.state.GetAllStates()
	books := make([]adminhttp.BookState, 0, len(states))
	for _, s := range states {
		b := adminhttp.BookState{
			MarketID: s.MarketID,
			Venue:    string(s.Venue),
			Outcome:  string(s.Outcome),
		}
		if s.BidOK {
			b.BestBid = s.Bid.Price.String()
			b.BestBidSize = s.Bid.Size.String()
		}
		if s.AskOK {
			b.BestAsk = s.Ask.Price.String()
			b.BestAskSize = s.Ask.Size.String()
		}
		books = append(books, b)
	}

	return adminhttp.Status{
		Environment:     string(o.cfg.Environment),
		DryRun:          o.cfg.DryRun,
		Uptime:          time.Since(o.startedAt).Round(time.Second).String(),
		TradeInProgress: o.detector.TradeInProgress(),
		SoftResets:      o.softResets.Load(),
		SingleBookState: o.singleBook.State().String(),
		TwoBookState:    o.twoBook.State().String(),
		CumulativeSpent: o.executor.Spent().String(),
		Books:           books,
	}
}
