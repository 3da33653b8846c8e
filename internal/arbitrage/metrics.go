package arbitrage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OpportunitiesDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_opportunities_detected_total",
		Help: "Total number of cross-venue arbitrage opportunities detected",
	})

	OpportunitiesRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xvenue_arb_opportunities_rejected_total",
			Help: "Total number of candidate directions rejected, by reason",
		},
		[]string{"reason"},
	)

	OpportunityProfitBPS = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "xvenue_arb_opportunity_profit_bps",
		Help:    "Detected opportunity profit margin in basis points",
		Buckets: []float64{10, 25, 50, 100, 200, 500, 1000, 2000, 5000},
	})

	DetectionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "xvenue_arb_detection_duration_seconds",
		Help:    "Duration of one BookUpdated evaluation",
		Buckets: prometheus.DefBuckets,
	})
)
