package kalshi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SequenceGapsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_kalshi_sequence_gaps_total",
		Help: "Total number of sequence gaps detected, each triggering a resubscribe",
	})

	NegativeShadowDropsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_kalshi_negative_shadow_drops_total",
		Help: "Total number of deltas dropped because they implied a negative shadow size",
	})
)
