// Package metrics defines the Prometheus instrumentation for the bridge.
// All collectors are registered on an explicit registry so tests can create
// isolated instances.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the bridge exports.
type Metrics struct {
	// LinesTotal counts raw lines received from the device, valid or not.
	LinesTotal prometheus.Counter

	// DecodeErrorsTotal counts lines discarded because they did not parse.
	DecodeErrorsTotal prometheus.Counter

	// DeliveredTotal counts records accepted by the ingest endpoint.
	DeliveredTotal prometheus.Counter

	// DroppedTotal counts records dropped after the retry budget was spent.
	DroppedTotal prometheus.Counter

	// RetriesTotal counts individual delivery retry attempts.
	RetriesTotal prometheus.Counter

	// ReconnectsTotal counts serial connection attempts after the first.
	ReconnectsTotal prometheus.Counter

	// ConnectionState exports the supervisor state as a 0–3 gauge
	// (disconnected, connecting, open, faulted).
	ConnectionState prometheus.Gauge
}

// New creates and registers the bridge collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LinesTotal:        counter("pipeline", "lines_total", "Raw lines read from the serial device."),
		DecodeErrorsTotal: counter("pipeline", "decode_errors_total", "Lines discarded as undecodable."),
		DeliveredTotal:    counter("delivery", "delivered_total", "Records accepted by the ingest endpoint."),
		DroppedTotal:      counter("delivery", "dropped_total", "Records dropped after exhausting retries."),
		RetriesTotal:      counter("delivery", "retries_total", "Individual delivery retry attempts."),
		ReconnectsTotal:   counter("serial", "reconnects_total", "Serial connection attempts after the first."),
		ConnectionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "serial",
			Name:      "connection_state",
			Help:      "Supervisor state: 0 disconnected, 1 connecting, 2 open, 3 faulted.",
		}),
	}
	reg.MustRegister(
		m.LinesTotal, m.DecodeErrorsTotal,
		m.DeliveredTotal, m.DroppedTotal, m.RetriesTotal,
		m.ReconnectsTotal, m.ConnectionState,
	)
	return m
}

const namespace = "serialbridge"

func counter(subsystem, name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	})
}

// Handler returns the HTTP handler serving reg in Prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
