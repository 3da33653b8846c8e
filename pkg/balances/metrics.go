package balances

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BalanceGauge reports the most recently fetched balance per currency.
var BalanceGauge = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "xvenue_arb_wallet_balance",
		Help: "Latest fetched wallet balance by currency",
	},
	[]string{"currency"},
)
