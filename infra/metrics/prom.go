package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/vpp/core/events"
	coremetrics "github.com/kilianp07/vpp/core/metrics"
)

// PromSink exposes search progress and run results as Prometheus metrics.
type PromSink struct {
	generations   *prometheus.CounterVec
	bestObjective *prometheus.GaugeVec
	bestViolation *prometheus.GaugeVec
	feasible      *prometheus.GaugeVec
	evaluations   *prometheus.GaugeVec
	runs          *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	objective     *prometheus.GaugeVec
}

// NewPromSink registers the metrics on the default Prometheus registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Metrics
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.generations, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vpp_search_generations_total",
		Help: "Number of completed search generations",
	}, []string{"run_id"})); err != nil {
		return nil, err
	}
	if s.bestObjective, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vpp_search_best_objective",
		Help: "Profit of the best candidate of the latest generation",
	}, []string{"run_id"})); err != nil {
		return nil, err
	}
	if s.bestViolation, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vpp_search_best_violation",
		Help: "Constraint violation of the best candidate of the latest generation",
	}, []string{"run_id"})); err != nil {
		return nil, err
	}
	if s.feasible, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vpp_search_feasible_individuals",
		Help: "Feasible individuals in the latest population",
	}, []string{"run_id"})); err != nil {
		return nil, err
	}
	if s.evaluations, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vpp_search_evaluations",
		Help: "Objective evaluations performed so far",
	}, []string{"run_id"})); err != nil {
		return nil, err
	}
	if s.runs, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vpp_runs_total",
		Help: "Optimisation runs by lifecycle status",
	}, []string{"status"})); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vpp_run_duration_seconds",
		Help:    "Wall time of finished optimisation runs",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"termination"})); err != nil {
		return nil, err
	}
	if s.objective, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vpp_run_objective",
		Help: "Final profit of the latest finished run per scenario",
	}, []string{"scenario", "feasible"})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, err
	}
	return c, nil
}

// RecordGeneration updates the per-run search gauges.
func (s *PromSink) RecordGeneration(ev events.GenerationEvent) error {
	s.generations.WithLabelValues(ev.RunID).Inc()
	s.bestObjective.WithLabelValues(ev.RunID).Set(ev.BestObjective)
	s.bestViolation.WithLabelValues(ev.RunID).Set(ev.BestViolation)
	s.feasible.WithLabelValues(ev.RunID).Set(float64(ev.Feasible))
	s.evaluations.WithLabelValues(ev.RunID).Set(float64(ev.Evaluations))
	return nil
}

// RecordRun counts lifecycle events and observes finished runs.
func (s *PromSink) RecordRun(ev events.RunEvent) error {
	s.runs.WithLabelValues(string(ev.Status)).Inc()
	if ev.Status != events.RunFinished {
		return nil
	}
	s.duration.WithLabelValues(ev.Termination).Observe(ev.Duration.Seconds())
	feasible := "false"
	if ev.Feasible {
		feasible = "true"
	}
	s.objective.WithLabelValues(ev.Scenario, feasible).Set(ev.Objective)
	return nil
}

var _ coremetrics.MetricsSink = (*PromSink)(nil)
