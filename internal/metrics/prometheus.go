package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus implements Recorder with Prometheus collectors.
type Prometheus struct {
	publishes      *prometheus.CounterVec
	autoAssignRuns prometheus.Counter
	unfilledSlots  prometheus.Gauge
	assignments    *prometheus.CounterVec
	storeFailures  *prometheus.CounterVec
	pending        *prometheus.GaugeVec
}

var _ Recorder = (*Prometheus)(nil)

// NewPrometheus creates the collectors and registers them with reg
// (prometheus.DefaultRegisterer if nil) under namespace ("staffplan" if empty).
func NewPrometheus(reg prometheus.Registerer, namespace string) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "staffplan"
	}

	p := &Prometheus{
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "notifications_total",
			Help:      "Notifications published on the reconciliation bus by topic.",
		}, []string{"topic"}),
		autoAssignRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "allocator",
			Name:      "runs_total",
			Help:      "Completed auto-assign runs.",
		}),
		unfilledSlots: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "allocator",
			Name:      "unfilled_slots",
			Help:      "Role slots left unfilled by the most recent auto-assign run.",
		}),
		assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "allocator",
			Name:      "assignments_total",
			Help:      "Assignments created, by phase (exact, fallback, manual).",
		}, []string{"phase"}),
		storeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "failures_total",
			Help:      "Durable store failures by operation.",
		}, []string{"op"}),
		pending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "surface",
			Name:      "pending_changes",
			Help:      "Optimistic changes not yet confirmed by the store, per surface.",
		}, []string{"surface"}),
	}

	for _, c := range []prometheus.Collector{p.publishes, p.autoAssignRuns, p.unfilledSlots, p.assignments, p.storeFailures, p.pending} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prometheus) RecordPublish(topic string) {
	p.publishes.WithLabelValues(topic).Inc()
}

func (p *Prometheus) RecordAutoAssign(assigned, unfilledSlots int) {
	p.autoAssignRuns.Inc()
	p.unfilledSlots.Set(float64(unfilledSlots))
}

func (p *Prometheus) RecordAssignment(phase string) {
	p.assignments.WithLabelValues(phase).Inc()
}

func (p *Prometheus) RecordStoreFailure(op string) {
	p.storeFailures.WithLabelValues(op).Inc()
}

func (p *Prometheus) SetPendingChanges(surface string, n int) {
	p.pending.WithLabelValues(surface).Set(float64(n))
}
