// Package metrics exposes Prometheus counters for voucher operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "voucherhub"

// Recorder is safe to use as a nil pointer; every method is then a no-op.
type Recorder struct {
	claims      *prometheus.CounterVec
	redemptions *prometheus.CounterVec
	scans       *prometheus.CounterVec
	transitions *prometheus.CounterVec
	suppressed  *prometheus.CounterVec
}

// NewRecorder registers the voucher counters on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claims_total",
			Help:      "Claim attempts by outcome.",
		}, []string{"outcome"}),
		redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redemptions_total",
			Help:      "Redemption attempts by outcome.",
		}, []string{"outcome"}),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Voucher scans by scan type and source.",
		}, []string{"type", "source"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Committed voucher state transitions.",
		}, []string{"from", "to"}),
		suppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suppressed_errors_total",
			Help:      "Side-effect failures that were logged and not returned.",
		}, []string{"operation"}),
	}
	reg.MustRegister(r.claims, r.redemptions, r.scans, r.transitions, r.suppressed)
	return r
}

func (r *Recorder) Claim(outcome string) {
	if r == nil {
		return
	}
	r.claims.WithLabelValues(outcome).Inc()
}

func (r *Recorder) Redemption(outcome string) {
	if r == nil {
		return
	}
	r.redemptions.WithLabelValues(outcome).Inc()
}

func (r *Recorder) Scan(scanType, source string) {
	if r == nil {
		return
	}
	r.scans.WithLabelValues(scanType, source).Inc()
}

func (r *Recorder) Transition(from, to string) {
	if r == nil {
		return
	}
	r.transitions.WithLabelValues(from, to).Inc()
}

func (r *Recorder) Suppressed(operation string) {
	if r == nil {
		return
	}
	r.suppressed.WithLabelValues(operation).Inc()
}
