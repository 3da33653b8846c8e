package book

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LevelsAppliedTotal counts individual (side, price, size) applications,
	// tagged by whether the call removed a level (size 0) or set one.
	LevelsAppliedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xvenue_arb_book_levels_applied_total",
			Help: "Total number of price levels applied to a PriceBook",
		},
		[]string{"op"},
	)

	// DepthGauge is registered for the number of resting levels per side,
	// per book; no code in this module sets it.
	DepthGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "xvenue_arb_book_depth",
			Help: "Number of resting price levels on one side of a PriceBook",
		},
		[]string{"market_id", "venue", "side"},
	)
)
