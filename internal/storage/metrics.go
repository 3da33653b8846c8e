package storage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FlushesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_storage_flushes_total",
		Help: "Successful buffer flushes to the persistence sink",
	})

	FlushFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_storage_flush_failures_total",
		Help: "Flush attempts that failed and were re-prepended to the buffer",
	})

	RecordsFlushedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_storage_records_flushed_total",
		Help: "Total trade attempt records successfully persisted",
	})

	BufferedRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "xvenue_arb_storage_buffered_records",
		Help: "Current number of trade attempt records awaiting flush",
	})
)
