package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/concierge/pkg/domain"
)

// Namespace prefixes every metric name.
const Namespace = "concierge"

// Metrics holds the collectors fed by the lifecycle hooks.
type Metrics struct {
	Turns           *prometheus.CounterVec
	FlowSteps       *prometheus.CounterVec
	FlowsCompleted  *prometheus.CounterVec
	ResolveFailures prometheus.Counter
	FaultDuration   prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "turns_total",
				Help:      "Total number of transcript turns appended",
			},
			[]string{"role", "presentation"},
		),
		FlowSteps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "flow_steps_total",
				Help:      "Total number of form steps prompted",
			},
			[]string{"flow_id", "step_id"},
		),
		FlowsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "flows_completed_total",
				Help:      "Total number of flows that reached their card",
			},
			[]string{"flow_id"},
		),
		ResolveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "resolve_failures_total",
			Help:      "Total number of resolve calls that failed or timed out",
		}),
		FaultDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "resolve_failure_duration_seconds",
			Help:      "Time spent in resolve calls that failed",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	for _, c := range []prometheus.Collector{m.Turns, m.FlowSteps, m.FlowsCompleted, m.ResolveFailures, m.FaultDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurnAppended: func(ctx context.Context, e *domain.TurnEvent) {
			m.Turns.WithLabelValues(string(e.Turn.Role), string(e.Turn.Presentation)).Inc()
		},
		OnFlowStep: func(ctx context.Context, e *domain.FlowEvent) {
			m.FlowSteps.WithLabelValues(e.FlowID, e.StepID).Inc()
		},
		OnFlowCompleted: func(ctx context.Context, e *domain.FlowEvent) {
			m.FlowsCompleted.WithLabelValues(e.FlowID).Inc()
		},
		OnResolveFailed: func(ctx context.Context, e *domain.FaultEvent) {
			m.ResolveFailures.Inc()
			m.FaultDuration.Observe(e.Duration.Seconds())
		},
	}
}
