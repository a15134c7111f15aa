package metrics

import "github.com/kilianp07/vpp/core/events"

// GenerationRecorder records per-generation search progress.
type GenerationRecorder interface {
	RecordGeneration(ev events.GenerationEvent) error
}

// RunRecorder records run lifecycle events and final results.
type RunRecorder interface {
	RecordRun(ev events.RunEvent) error
}

// MetricsSink records optimisation metrics for observability purposes.
type MetricsSink interface {
	GenerationRecorder
	RunRecorder
}

// Flusher is implemented by sinks that buffer writes.
type Flusher interface {
	Flush() error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordGeneration(events.GenerationEvent) error { return nil }
func (NopSink) RecordRun(events.RunEvent) error               { return nil }
