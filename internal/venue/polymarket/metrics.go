package polymarket

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ParseErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xvenue_arb_polymarket_parse_errors_total",
			Help: "Total number of malformed book/price_change messages, by event type",
		},
		[]string{"event_type"},
	)
)
