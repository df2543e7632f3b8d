// Package metrics exposes Prometheus instrumentation for the setup wizard.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wildcard_bot"

// Recorder holds the wizard's collectors.
type Recorder struct {
	sessionsStarted prometheus.Counter
	sessionsActive  prometheus.Gauge
	inputsRejected  *prometheus.CounterVec
	providerCalls   *prometheus.CounterVec
	outcomes        *prometheus.CounterVec
}

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Number of setup sessions started.",
		}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of setup sessions currently in progress.",
		}),
		inputsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inputs_rejected_total",
			Help:      "Number of user inputs rejected, by wizard state.",
		}, []string{"state"}),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_calls_total",
			Help:      "Number of DNS provider calls, by operation and outcome.",
		}, []string{"operation", "outcome"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wizard_outcomes_total",
			Help:      "Number of finished setup sessions, by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(r.sessionsStarted, r.sessionsActive, r.inputsRejected, r.providerCalls, r.outcomes)
	return r
}

// SessionStarted counts a /setup.
func (r *Recorder) SessionStarted() { r.sessionsStarted.Inc() }

// SessionsActive sets the number of sessions in progress.
func (r *Recorder) SessionsActive(n int) { r.sessionsActive.Set(float64(n)) }

// InputRejected counts input refused in the given wizard state.
func (r *Recorder) InputRejected(state string) { r.inputsRejected.WithLabelValues(state).Inc() }

// ProviderCall counts one provider call; outcome is "ok" or an error kind.
func (r *Recorder) ProviderCall(operation, outcome string) {
	r.providerCalls.WithLabelValues(operation, outcome).Inc()
}

// Outcome counts a finished session: "created", "failed" or "cancelled".
func (r *Recorder) Outcome(outcome string) { r.outcomes.WithLabelValues(outcome).Inc() }
