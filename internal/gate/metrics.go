package gate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts gate outcomes for /metrics.
type Metrics struct {
	ChallengesIssued  prometheus.Counter
	ProofsAccepted    prometheus.Counter
	ProofsRejected    *prometheus.CounterVec
	PassedThrough     prometheus.Counter
	ServedToPurchaser prometheus.Counter
}

// NewMetrics registers the gate's counters on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ChallengesIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "inkgate_challenges_issued_total",
			Help: "Number of 402 challenges issued.",
		}),
		ProofsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Name: "inkgate_proofs_accepted_total",
			Help: "Number of payment proofs accepted.",
		}),
		ProofsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "inkgate_proofs_rejected_total",
			Help: "Number of payment proofs rejected, by reason code.",
		}, []string{"reason"}),
		PassedThrough: factory.NewCounter(prometheus.CounterOpts{
			Name: "inkgate_passthrough_total",
			Help: "Number of requests passed through because the resource is not gated.",
		}),
		ServedToPurchaser: factory.NewCounter(prometheus.CounterOpts{
			Name: "inkgate_served_to_purchaser_total",
			Help: "Number of gated requests served against an existing purchase.",
		}),
	}
}
