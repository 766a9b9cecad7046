// Package metrics exposes Prometheus counters for server lifecycle and
// request interception.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ServersStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simserve_servers_started_total",
			Help: "Total number of servers started, by execution kind",
		},
		[]string{"kind"},
	)

	DelegatedFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "simserve_delegated_fallbacks_total",
			Help: "Total number of delegated execution failures recovered by simulation",
		},
	)

	InterceptedRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "simserve_intercepted_requests_total",
			Help: "Total number of requests answered by the mock network layer",
		},
	)

	ValidationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "simserve_validation_failures_total",
			Help: "Total number of source validations that reported errors",
		},
	)
)
