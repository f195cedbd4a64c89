// Package telemetry registers the bot's prometheus counters. Exposition is
// the embedder's concern; the default registry is used so any scrape
// endpoint the host process serves picks these up.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChoresProcessed counts chores executed by the scheduler, by kind.
	ChoresProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sechat_chores_processed_total",
		Help: "Chores executed by the scheduler loop.",
	}, []string{"kind"})

	// ChoreFailures counts chore bodies that panicked or errored.
	ChoreFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sechat_chore_failures_total",
		Help: "Chore bodies that failed; the loop continues regardless.",
	}, []string{"kind"})

	// HTTPRetries counts rate-limit retries in the request layer.
	HTTPRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sechat_http_retries_total",
		Help: "Outbound requests resent after a too-many-requests response.",
	})

	// EventsDispatched counts reconstructed events dispatched to room
	// listeners, by kind.
	EventsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sechat_events_dispatched_total",
		Help: "Reconstructed chat events dispatched to listeners.",
	}, []string{"kind"})

	// EventsDropped counts raw frames dropped for an unknown type code.
	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sechat_events_dropped_total",
		Help: "Raw socket events dropped due to an unknown type code.",
	})
)
