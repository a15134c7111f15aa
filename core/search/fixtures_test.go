package search

import (
	"errors"
	"sync"

	"github.com/kilianp07/vpp/core/events"
)

// sphere maximises -sum((x_k - 0.3)^2) over [0,1]^n with the last gene
// binary. The single inequality x_0 + x_1 <= 1.2 is active for some
// samples only.
type sphere struct {
	n    int
	fail bool
}

func (s sphere) Dim() int { return s.n }

func (s sphere) Bounds() ([]float64, []float64) {
	lo, hi := make([]float64, s.n), make([]float64, s.n)
	for k := range hi {
		hi[k] = 1
	}
	return lo, hi
}

func (s sphere) BinaryMask() []bool {
	m := make([]bool, s.n)
	m[s.n-1] = true
	return m
}

func (s sphere) Evaluate(x []float64) (Evaluation, error) {
	if s.fail {
		return Evaluation{}, errors.New("sphere: evaluation failed")
	}
	var obj float64
	for k := 0; k < s.n-1; k++ {
		d := x[k] - 0.3
		obj -= d * d
	}
	if x[s.n-1] > 0.5 {
		obj += 0.1
	}
	return Evaluation{Objective: obj, Inequality: []float64{x[0] + x[1] - 1.2}}, nil
}

// flat scores every candidate the same, so the best never improves.
type flat struct{ n int }

func (f flat) Dim() int { return f.n }

func (f flat) Bounds() ([]float64, []float64) {
	lo, hi := make([]float64, f.n), make([]float64, f.n)
	for k := range hi {
		hi[k] = 1
	}
	return lo, hi
}

func (flat) Evaluate([]float64) (Evaluation, error) { return Evaluation{}, nil }

// memRecorder stores generation events.
type memRecorder struct {
	mu     sync.Mutex
	events []events.GenerationEvent
	hook   func(events.GenerationEvent)
}

func (m *memRecorder) RecordGeneration(ev events.GenerationEvent) error {
	m.mu.Lock()
	m.events = append(m.events, ev)
	m.mu.Unlock()
	if m.hook != nil {
		m.hook(ev)
	}
	return nil
}

func (m *memRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

type memBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *memBus) Publish(ev events.Event) {
	b.mu.Lock()
	b.events = append(b.events, ev)
	b.mu.Unlock()
}

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.PopulationSize = 20
	cfg.Generations = 10
	cfg.Seed = 7
	cfg.Workers = 1
	return cfg
}
