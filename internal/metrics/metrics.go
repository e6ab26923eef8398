package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters for the money-moving paths. Exposed on /metrics.
var (
	SalesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bizserver",
		Name:      "sales_created_total",
		Help:      "Snack center transactions created.",
	})

	PushesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bizserver",
		Name:      "mpesa_pushes_sent_total",
		Help:      "STK push requests accepted by the provider.",
	})

	Callbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bizserver",
		Name:      "mpesa_callbacks_total",
		Help:      "Payment callbacks received, by outcome.",
	}, []string{"result"})

	PaymentsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bizserver",
		Name:      "payments_expired_total",
		Help:      "Pending payments failed by the expiry sweep.",
	})
)
