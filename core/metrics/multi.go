package metrics

import (
	"errors"

	"github.com/kilianp07/vpp/core/events"
)

// MultiSink forwards every record to all sinks and joins their errors.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink combines sinks. Nil entries are skipped.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	m := &MultiSink{}
	for _, s := range sinks {
		if s != nil {
			m.Sinks = append(m.Sinks, s)
		}
	}
	return m
}

func (m *MultiSink) RecordGeneration(ev events.GenerationEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordGeneration(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordRun(ev events.RunEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordRun(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Flush flushes every sink that buffers writes.
func (m *MultiSink) Flush() error {
	var errs []error
	for _, s := range m.Sinks {
		if f, ok := s.(Flusher); ok {
			if err := f.Flush(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink holding a connection.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		if c, ok := s.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
