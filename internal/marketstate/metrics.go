package marketstate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BookUpdatedTotal counts emitted BookUpdated events, tagged by venue.
	BookUpdatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xvenue_arb_marketstate_book_updated_total",
			Help: "Total number of BookUpdated events emitted",
		},
		[]string{"venue"},
	)

	// RegisteredMarkets tracks how many markets have been registered.
	RegisteredMarkets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "xvenue_arb_marketstate_registered_markets",
		Help: "Number of markets currently registered with MarketStateManager",
	})
)
