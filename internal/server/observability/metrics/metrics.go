// Package metrics declares the Prometheus collectors exposed on /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "status"},
	)

	PushDispatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_dispatches_total",
			Help: "Push dispatch attempts per backend and outcome.",
		},
		[]string{"backend", "result"},
	)

	RegistrationsNotifiedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registrations_notified_total",
			Help: "Device registrations included in notification fan-outs.",
		},
		[]string{"backend"},
	)
)

// MustRegister registers all collectors with the default registry.
// Call once at startup.
func MustRegister() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		PushDispatchesTotal,
		RegistrationsNotifiedTotal,
	)
}
