// Package metrics wires veostub's per-context event stream into
// Prometheus, replacing the teacher's hand-rolled atomic-counter
// Metrics/Observer pair with github.com/prometheus/client_golang (carried
// from rockstar-0000-aistore's dependency set, the pack's canonical
// metrics stack).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sx-aurora/veostub/internal/constants"
)

// Registry holds the collectors a process handle's communicators
// report into. A nil *Registry behaves like the teacher's
// NoOpObserver: every method is a safe no-op.
type Registry struct {
	submitted      *prometheus.CounterVec
	completed      *prometheus.CounterVec
	failed         *prometheus.CounterVec
	latencySeconds *prometheus.HistogramVec
	peerLosses     prometheus.Counter
	openContexts   prometheus.Gauge
}

// NewRegistry creates and registers a fresh set of collectors against
// reg. Passing prometheus.NewRegistry() keeps tests isolated from the
// global default registry.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		submitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "veostub",
			Name:      "requests_submitted_total",
			Help:      "Requests submitted to a context's communicator, by command.",
		}, []string{"cmd"}),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "veostub",
			Name:      "requests_completed_total",
			Help:      "Requests that received a reply, by command.",
		}, []string{"cmd"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "veostub",
			Name:      "requests_failed_total",
			Help:      "Requests abandoned due to peer loss, by command (no code path increments it).",
		}, []string{"cmd"}),
		latencySeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "veostub",
			Name:      "request_latency_seconds",
			Help:      "Latency passed to ObserveComplete, by command (the communicator reports 0).",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		}, []string{"cmd"}),
		peerLosses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "veostub",
			Name:      "communicator_peer_losses_total",
			Help:      "Number of times a communicator detected its peer was gone.",
		}),
		openContexts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "veostub",
			Name:      "open_contexts",
			Help:      "Number of contexts currently open across all process handles.",
		}),
	}
	reg.MustRegister(r.submitted, r.completed, r.failed, r.latencySeconds, r.peerLosses, r.openContexts)
	return r
}

// ObserveSubmit implements comm.Observer.
func (r *Registry) ObserveSubmit(cmd constants.Cmd) {
	if r == nil {
		return
	}
	r.submitted.WithLabelValues(cmd.String()).Inc()
}

// ObserveComplete implements comm.Observer. It counts the completion
// and records latencyNs in the histogram as given. The communicator
// does not timestamp Submit and always passes 0, so the histogram
// counts completions but carries no timing.
func (r *Registry) ObserveComplete(cmd constants.Cmd, latencyNs int64) {
	if r == nil {
		return
	}
	r.completed.WithLabelValues(cmd.String()).Inc()
	r.latencySeconds.WithLabelValues(cmd.String()).Observe(float64(latencyNs) / 1e9)
}

// ObservePeerLost implements comm.Observer.
func (r *Registry) ObservePeerLost() {
	if r == nil {
		return
	}
	r.peerLosses.Inc()
}

// ContextOpened increments the open-contexts gauge.
func (r *Registry) ContextOpened() {
	if r == nil {
		return
	}
	r.openContexts.Inc()
}

// ContextClosed decrements the open-contexts gauge.
func (r *Registry) ContextClosed() {
	if r == nil {
		return
	}
	r.openContexts.Dec()
}
