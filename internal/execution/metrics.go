package execution

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExecutionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "xvenue_arb_execution_duration_seconds",
		Help:    "Duration of one ExecuteTrade handling, both legs included",
		Buckets: prometheus.DefBuckets,
	})

	OpportunitiesSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xvenue_arb_opportunities_skipped_total",
			Help: "Opportunities routed to execution but skipped before placing any leg",
		},
		[]string{"reason"},
	)

	TradesBothLegsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_trades_both_legs_total",
		Help: "Trade attempts where both legs filled",
	})

	TradesOneLegTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_trades_one_leg_total",
		Help: "Trade attempts where exactly one leg filled",
	})

	TradesBothFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_trades_both_failed_total",
		Help: "Trade attempts where both legs failed, triggering shutdown",
	})
)
