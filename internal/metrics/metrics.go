package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "signaling"

// Collector groups the relay's Prometheus series.
type Collector struct {
	Rooms       prometheus.Gauge
	Connections prometheus.Gauge
	Events      *prometheus.CounterVec
	Rejected    *prometheus.CounterVec
	Dropped     prometheus.Counter
	Reaped      prometheus.Counter
	Panics      prometheus.Counter
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		Rooms: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms",
			Help:      "Rooms currently open.",
		}),
		Connections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Websocket connections currently registered.",
		}),
		Events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Inbound events handled, by type.",
		}, []string{"type"}),
		Rejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_rejected_total",
			Help:      "Inbound events rejected as malformed or unknown, by type.",
		}, []string{"type"}),
		Dropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sends_dropped_total",
			Help:      "Outbound messages dropped because the client queue was full or gone.",
		}),
		Reaped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_reaped_total",
			Help:      "Rooms closed by the idle sweep.",
		}),
		Panics: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_panics_total",
			Help:      "Event dispatches that panicked and were dropped.",
		}),
	}
}

// Handler exposes the series gathered from g at /metrics.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
