package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebSocketMetrics holds Prometheus metrics for realtime connections.
type WebSocketMetrics struct {
	ActiveConnections prometheus.Gauge
	EventsDelivered   prometheus.Counter
	EventsDropped     prometheus.Counter
}

// NewWebSocketMetrics creates and registers WebSocket metrics on the given registry.
func NewWebSocketMetrics(reg prometheus.Registerer) *WebSocketMetrics {
	m := &WebSocketMetrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "active_connections",
			Help:      "Number of active WebSocket connections.",
		}),
		EventsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "events_delivered_total",
			Help:      "Total number of bookmark events handed to local subscribers.",
		}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "events_dropped_total",
			Help:      "Total number of bookmark events dropped for slow subscribers.",
		}),
	}

	reg.MustRegister(m.ActiveConnections, m.EventsDelivered, m.EventsDropped)
	return m
}

// CacheMetrics counts bookmark list cache lookups.
type CacheMetrics struct {
	Hits   prometheus.Counter
	Misses prometheus.Counter
}

func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	m := &CacheMetrics{
		Hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bookmark_cache",
			Name:      "hits_total",
			Help:      "Total number of bookmark list cache hits.",
		}),
		Misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bookmark_cache",
			Name:      "misses_total",
			Help:      "Total number of bookmark list cache misses.",
		}),
	}

	reg.MustRegister(m.Hits, m.Misses)
	return m
}

// RegisterBreakerState exports a circuit breaker's state as a gauge:
// 0 closed, 1 half-open, 2 open.
func RegisterBreakerState(reg prometheus.Registerer, name string, state func() float64) {
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   "circuit_breaker",
		Name:        "state",
		Help:        "Circuit breaker state (0 closed, 1 half-open, 2 open).",
		ConstLabels: prometheus.Labels{"breaker": name},
	}, state))
}
