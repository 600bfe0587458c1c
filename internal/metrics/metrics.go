package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "portal", Name: "requests_total", Help: "Outbound API requests by outcome."},
		[]string{"outcome"},
	)
	Refreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "portal", Name: "refresh_total", Help: "Token refresh calls sent to the server by result."},
		[]string{"result"},
	)
	Retries = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "portal", Name: "retries_total", Help: "Requests re-issued after a successful refresh."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(Requests)
	reg.MustRegister(Refreshes)
	reg.MustRegister(Retries)
}
