package search

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/vpp/core/events"
	"github.com/kilianp07/vpp/core/model"
)

func TestEngine_DeterministicAcrossWorkers(t *testing.T) {
	p := sphere{n: 10}
	var results []*Result
	for _, workers := range []int{1, 3, 16} {
		cfg := smallConfig()
		cfg.Workers = workers
		e, err := NewEngine(p, cfg)
		require.NoError(t, err)
		res, err := e.Run(context.Background())
		require.NoError(t, err)
		results = append(results, res)
	}
	for _, r := range results[1:] {
		assert.Equal(t, results[0].Best, r.Best)
		assert.Equal(t, results[0].Objective, r.Objective)
		assert.Equal(t, results[0].Evaluations, r.Evaluations)
		assert.Equal(t, len(results[0].History), len(r.History))
		for i := range r.History {
			assert.Equal(t, results[0].History[i].BestFitness, r.History[i].BestFitness)
		}
	}
}

func TestEngine_ImprovesAndReports(t *testing.T) {
	p := sphere{n: 6}
	rec := &memRecorder{}
	bus := &memBus{}
	cfg := smallConfig()
	cfg.Generations = 25
	e, err := NewEngine(p, cfg, WithRecorder(rec), WithBus(bus), WithRunID("run-1"))
	require.NoError(t, err)
	res, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, TerminationBudget, res.Termination)
	assert.Equal(t, 25, res.Generations)
	assert.Len(t, res.History, 25)
	assert.Equal(t, 25, rec.count())
	assert.Len(t, bus.events, 25)
	assert.Equal(t, "run-1", bus.events[0].RunKey())
	assert.True(t, res.Feasible)
	assert.GreaterOrEqual(t, res.History[24].BestObjective, res.History[0].BestObjective)
	assert.Equal(t, res.Objective, -res.Fitness)
	assert.LessOrEqual(t, res.Evaluations, cfg.PopulationSize*cfg.Generations)
	for i := 1; i < len(res.History); i++ {
		// (mu+lambda) survival never loses the best candidate
		assert.LessOrEqual(t, res.History[i].BestFitness, res.History[i-1].BestFitness)
	}
}

func TestEngine_Patience(t *testing.T) {
	cfg := smallConfig()
	cfg.Generations = 50
	cfg.Patience = 4
	e, err := NewEngine(flat{n: 3}, cfg)
	require.NoError(t, err)
	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TerminationPatience, res.Termination)
	assert.Equal(t, 5, res.Generations)
}

func TestEngine_CancelReturnsBestSoFar(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := &memRecorder{hook: func(ev events.GenerationEvent) {
		if ev.Generation == 3 {
			cancel()
		}
	}}
	cfg := smallConfig()
	cfg.Generations = 100
	e, err := NewEngine(sphere{n: 5}, cfg, WithRecorder(rec))
	require.NoError(t, err)
	res, err := e.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, TerminationCancelled, res.Termination)
	assert.Equal(t, 3, res.Generations)
	assert.Len(t, res.Best, 5)
}

func TestEngine_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e, err := NewEngine(sphere{n: 5}, smallConfig())
	require.NoError(t, err)
	_, err = e.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_SeedVectors(t *testing.T) {
	optimum := []float64{0.3, 0.3, 0.3, 0.3, 1}
	cfg := smallConfig()
	cfg.Generations = 2
	e, err := NewEngine(sphere{n: 5}, cfg,
		WithSeedVectors(optimum, []float64{1, 2}, []float64{9, 9, 9, 9, 9}))
	require.NoError(t, err)
	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 0.1, res.Objective, 1e-12)
	assert.True(t, slices.Equal(optimum, res.Best))
}

func TestEngine_EvaluationError(t *testing.T) {
	e, err := NewEngine(sphere{n: 3, fail: true}, smallConfig())
	require.NoError(t, err)
	_, err = e.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "evaluation failed")
}

func TestNewEngine_Validation(t *testing.T) {
	_, err := NewEngine(nil, smallConfig())
	assert.True(t, errors.Is(err, model.ErrConfig))

	cfg := smallConfig()
	cfg.Sampling = "grid"
	_, err = NewEngine(sphere{n: 3}, cfg)
	assert.True(t, errors.Is(err, model.ErrConfig))
}

type shortBounds struct{ sphere }

func (s shortBounds) Bounds() ([]float64, []float64) {
	lo, hi := s.sphere.Bounds()
	return lo[1:], hi
}

func TestEngine_BoundsMismatch(t *testing.T) {
	e, err := NewEngine(shortBounds{sphere{n: 4}}, smallConfig())
	require.NoError(t, err)
	_, err = e.Run(context.Background())
	assert.ErrorIs(t, err, model.ErrConfig)
}
