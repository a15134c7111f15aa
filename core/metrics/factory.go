package metrics

import (
	"fmt"

	"github.com/kilianp07/vpp/core/factory"
)

var runSinks = factory.NewRegistry[MetricsSink]()

// RegisterRunSink makes a run sink type available to NewRunSink. Types
// are registered by infra/metrics at init.
func RegisterRunSink(typ string, f factory.Factory[MetricsSink]) error {
	return runSinks.Register(typ, f)
}

// RunSinkTypes lists the registered run sink types.
func RunSinkTypes() []string { return runSinks.Names() }

// NewRunSink builds the sinks that receive generation and run events of an
// optimisation. No configuration records nothing. Sinks built before a
// failing entry are closed.
func NewRunSink(cfgs []factory.ModuleConfig) (MetricsSink, error) {
	built := make([]MetricsSink, 0, len(cfgs))
	for i, c := range cfgs {
		s, err := runSinks.Create(c)
		if err != nil {
			NewMultiSink(built...).Close()
			return nil, fmt.Errorf("run sink %d (%s): %w", i, c.Type, err)
		}
		built = append(built, s)
	}
	switch len(built) {
	case 0:
		return NopSink{}, nil
	case 1:
		return built[0], nil
	}
	return NewMultiSink(built...), nil
}
