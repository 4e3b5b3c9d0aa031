// Package metrics exposes the process's Prometheus counters and gauges:
// bars processed, signals generated, store errors and subscriber count.
// This is an ambient observability concern, carried independent of which
// domain features are in scope.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry groups every metric the core registers. A single instance is
// created at startup and handed to InstrumentedSink, which updates
// BarsProcessed and SignalsEmitted; StoreErrors, Subscribers and
// WorkerQueueSize are registered and exported but nothing updates them.
type Registry struct {
	BarsProcessed   *prometheus.CounterVec
	SignalsEmitted  *prometheus.CounterVec
	StoreErrors     *prometheus.CounterVec
	Subscribers     prometheus.Gauge
	WorkerQueueSize *prometheus.GaugeVec
}

// NewRegistry constructs and registers every metric against reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	m := &Registry{
		BarsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalengine_bars_processed_total",
			Help: "Number of closed bars processed, by symbol.",
		}, []string{"symbol"}),
		SignalsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalengine_signals_emitted_total",
			Help: "Number of BUY signals emitted, by symbol.",
		}, []string{"symbol"}),
		StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalengine_store_errors_total",
			Help: "Number of persistence failures, by operation.",
		}, []string{"operation"}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalengine_event_subscribers",
			Help: "Number of currently connected event-bus subscribers.",
		}),
		WorkerQueueSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "signalengine_worker_inbox_size",
			Help: "Current depth of each symbol's bar inbox.",
		}, []string{"symbol"}),
	}

	reg.MustRegister(m.BarsProcessed, m.SignalsEmitted, m.StoreErrors, m.Subscribers, m.WorkerQueueSize)
	return m
}
