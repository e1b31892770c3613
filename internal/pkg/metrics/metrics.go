/*
Package metrics exposes the Prometheus collectors for the chat server.
*/
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveConnections tracks the number of open WebSocket connections.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pulsechat_ws_connections",
		Help: "Number of currently open WebSocket connections.",
	})

	// MessagesTotal counts chat messages accepted by the server.
	MessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pulsechat_messages_total",
		Help: "Total number of chat messages accepted.",
	})

	// EventsPublished counts events fanned out on the broadcast registry,
	// labeled by event type.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsechat_events_published_total",
		Help: "Total number of events published to room subscribers.",
	}, []string{"type"})

	// SessionsActive tracks the number of live auth sessions.
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pulsechat_sessions_active",
		Help: "Number of currently active auth sessions.",
	})
)
