package unwind

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UnwindsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_unwinds_completed_total",
		Help: "Successful unwinds of a surviving leg after a partial trade failure",
	})

	UnwindFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_unwind_failures_total",
		Help: "Unwind attempts that themselves failed, always followed by shutdown",
	})
)
