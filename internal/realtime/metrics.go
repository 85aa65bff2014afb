package realtime

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/five82/cohort/internal/docstore"
)

// Metrics counts listener activity. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	updates     prometheus.Counter
	errors      *prometheus.CounterVec
	suspensions prometheus.Counter
	skipped     *prometheus.CounterVec
	live        prometheus.Gauge
}

// NewMetrics creates the listener collectors and registers them on reg when
// reg is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		updates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cohort",
			Subsystem: "realtime",
			Name:      "updates_total",
			Help:      "Snapshots delivered to subscription callbacks.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cohort",
			Subsystem: "realtime",
			Name:      "errors_total",
			Help:      "Listener errors by classification.",
		}, []string{"class"}),
		suspensions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cohort",
			Subsystem: "realtime",
			Name:      "suspensions_total",
			Help:      "Listeners suspended after repeated transient errors.",
		}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cohort",
			Subsystem: "realtime",
			Name:      "skipped_subscribes_total",
			Help:      "Subscribe calls that registered a no-op handle.",
		}, []string{"reason"}),
		live: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cohort",
			Subsystem: "realtime",
			Name:      "live_listeners",
			Help:      "Backend subscriptions currently attached.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.updates, m.errors, m.suspensions, m.skipped, m.live)
	}
	return m
}

func (m *Metrics) update() {
	if m != nil {
		m.updates.Inc()
	}
}

func (m *Metrics) error(class docstore.Class) {
	if m != nil {
		m.errors.WithLabelValues(class.String()).Inc()
	}
}

func (m *Metrics) suspended() {
	if m != nil {
		m.suspensions.Inc()
	}
}

func (m *Metrics) skip(reason string) {
	if m != nil {
		m.skipped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) attached(delta float64) {
	if m != nil {
		m.live.Add(delta)
	}
}
