// Package metrics exposes the saga counters in Prometheus format.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcomes of one consumed event.
const (
	OutcomeApplied = "applied"
	OutcomeDropped = "dropped"
	OutcomeRetry   = "retry"
	OutcomeSkipped = "skipped"
)

var (
	OutboxPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "saga",
		Subsystem: "outbox",
		Name:      "published_total",
		Help:      "Outbox rows delivered to the broker.",
	}, []string{"topic"})

	OutboxFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "saga",
		Subsystem: "outbox",
		Name:      "delivery_failures_total",
		Help:      "Failed outbox delivery attempts.",
	}, []string{"topic"})

	EventsConsumed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "saga",
		Subsystem: "consumer",
		Name:      "events_total",
		Help:      "Consumed events by type and outcome.",
	}, []string{"event_type", "outcome"})

	ReservationsExpired = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "saga",
		Subsystem: "inventory",
		Name:      "reservations_expired_total",
		Help:      "Reservations released by the expiry sweeper.",
	})

	SweepFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "saga",
		Subsystem: "inventory",
		Name:      "sweep_failures_total",
		Help:      "Reservations the sweeper could not expire on a pass.",
	})
)

var (
	once     sync.Once
	registry *prometheus.Registry
)

// Registry returns the process registry with the runtime collectors and every
// saga counter registered.
func Registry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			OutboxPublished,
			OutboxFailures,
			EventsConsumed,
			ReservationsExpired,
			SweepFailures,
		)
	})
	return registry
}

func Handler() http.Handler {
	reg := Registry()
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
