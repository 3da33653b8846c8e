package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xvenue_arb_transport_messages_received_total",
			Help: "Total number of WebSocket frames received, by endpoint",
		},
		[]string{"url"},
	)

	ConnectionDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xvenue_arb_transport_connection_dropped_total",
			Help: "Total number of times a WebSocket connection dropped, by endpoint",
		},
		[]string{"url"},
	)
)
