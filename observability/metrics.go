package observability

import (
	"context"

	modular "github.com/Emilio-01-T/Modular-2"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// MetricsHook records Prometheus metrics for chain runs.
type MetricsHook struct {
	chainRuns      *prometheus.CounterVec
	steps          *prometheus.CounterVec
	stepDuration   *prometheus.HistogramVec
	fallbacks      *prometheus.CounterVec
	conditionSkips *prometheus.CounterVec
}

// NewMetricsHook creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetricsHook(reg prometheus.Registerer) (*MetricsHook, error) {
	h := &MetricsHook{
		chainRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modular_chain_runs_total",
				Help: "Total number of chain runs by outcome",
			},
			[]string{"chain", "outcome"},
		),
		steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modular_steps_total",
				Help: "Total number of executed steps by outcome",
			},
			[]string{"chain", "step", "outcome"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "modular_step_duration_seconds",
				Help:    "Duration of successful step executions",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"chain", "step"},
		),
		fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modular_fallbacks_total",
				Help: "Total number of fallbacks triggered",
			},
			[]string{"chain", "step"},
		),
		conditionSkips: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modular_condition_skips_total",
				Help: "Total number of steps skipped by their condition",
			},
			[]string{"chain", "step"},
		),
	}

	if reg != nil {
		for _, c := range h.collectors() {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return h, nil
}

func (h *MetricsHook) collectors() []prometheus.Collector {
	return []prometheus.Collector{h.chainRuns, h.steps, h.stepDuration, h.fallbacks, h.conditionSkips}
}

func (h *MetricsHook) OnChainEnd(_ context.Context, _ *modular.ExecutionContext, e modular.ChainEndEvent) {
	outcome := OutcomeSuccess
	if e.Err != nil {
		outcome = OutcomeError
	}
	h.chainRuns.WithLabelValues(e.Chain, outcome).Inc()
}

func (h *MetricsHook) OnStepEnd(_ context.Context, _ *modular.ExecutionContext, e modular.StepEndEvent) {
	h.steps.WithLabelValues(e.Chain, e.Step.Name, OutcomeSuccess).Inc()
	h.stepDuration.WithLabelValues(e.Chain, e.Step.Name).Observe(e.Duration.Seconds())
}

func (h *MetricsHook) OnError(_ context.Context, _ *modular.ExecutionContext, e modular.ErrorEvent) {
	h.steps.WithLabelValues(e.Chain, e.Step.Name, OutcomeError).Inc()
}

func (h *MetricsHook) OnFallback(_ context.Context, _ *modular.ExecutionContext, e modular.FallbackEvent) {
	h.fallbacks.WithLabelValues(e.Chain, e.Step.Name).Inc()
}

func (h *MetricsHook) OnCondition(_ context.Context, _ *modular.ExecutionContext, e modular.ConditionEvent) {
	if !e.Result {
		h.conditionSkips.WithLabelValues(e.Chain, e.Step.Name).Inc()
	}
}
