package diagnostics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PrintsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_diagnostic_prints_total",
		Help: "Order-book snapshot banners printed to the console",
	})
)
