package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SoftResetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_soft_resets_total",
		Help: "Soft-reset cycles triggered by successful arbitrage rounds",
	})

	ShutdownsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_shutdowns_total",
		Help: "Shutdown events set by any component",
	})

	AdapterStartsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_adapter_starts_total",
		Help: "Venue adapter task launches, including soft-reset restarts",
	})
)
