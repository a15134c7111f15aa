package vpp

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/vpp/core/model"
	"github.com/kilianp07/vpp/core/search"
)

// biomassOnly is a day-ahead case with a single biomass unit and one fixed
// load. There is no storage, renewable output or dispatchable load.
func biomassOnly(t *testing.T) *Problem {
	t.Helper()
	p := model.ParameterSet{
		Biomass: []model.Biomass{{PMin: 0.1, PMax: 1.5, RampUp: 0.5, RampDown: 0.5, Kappa: 0.85, KappaStart: 20.14, Alpha: 0.85}},
		Nl:      1,
	}
	s := model.Series{
		Name:    "biomass-only",
		PL:      constRows(1, 24, 0.6),
		TauPLD:  constSeries(24, 1.0),
		TauDist: constSeries(24, 0.5),
		TauDL:   constSeries(24, 0),
	}
	sc, err := model.NewScenarioContext(s, p.Dims(24), 0.2)
	require.NoError(t, err)
	prob, err := NewProblem(p, sc, DefaultOptions())
	require.NoError(t, err)
	return prob
}

func runSearch(t *testing.T, prob *Problem, workers int, opts ...search.Option) *search.Result {
	t.Helper()
	cfg := search.DefaultConfig()
	cfg.PopulationSize = 40
	cfg.Generations = 15
	cfg.Seed = 3
	cfg.Workers = workers
	e, err := search.NewEngine(prob, cfg, opts...)
	require.NoError(t, err)
	res, err := e.Run(context.Background())
	require.NoError(t, err)
	return res
}

func TestSearch_Reproducible(t *testing.T) {
	prob := biomassOnly(t)
	a := runSearch(t, prob, 1)
	b := runSearch(t, prob, 4)
	require.Equal(t, a.Best, b.Best)
	assert.Equal(t, a.Objective, b.Objective)
	assert.Equal(t, a.Violation, b.Violation)
	assert.Equal(t, a.Evaluations, b.Evaluations)
	assert.Len(t, a.Best, prob.Dim())
	assert.False(t, math.IsNaN(a.Objective))
}

func TestSearch_ResultMatchesSolve(t *testing.T) {
	prob := biomassOnly(t)
	res := runSearch(t, prob, 2)
	sol, err := prob.Solve(res.Best)
	require.NoError(t, err)
	assert.InDelta(t, res.Objective, sol.Profit, 1e-9)
	assert.InDelta(t, res.Violation, sol.TotalViolation, 1e-9)
	assert.Equal(t, res.Feasible, sol.Feasible)
}

func TestSearch_RelaxedSeed(t *testing.T) {
	prob := gridOnlyProblem(t, StartupSigned)
	seed, err := prob.Relax()
	require.NoError(t, err)
	ref, err := prob.Solve(seed)
	require.NoError(t, err)
	res := runSearch(t, prob, 2, search.WithSeedVectors(seed))
	// survival is elitist, so the seeded candidate is never lost
	if ref.Feasible {
		assert.True(t, res.Feasible)
		assert.GreaterOrEqual(t, res.Objective, ref.Profit-1e-12)
		return
	}
	assert.True(t, res.Feasible || res.Violation <= ref.TotalViolation+1e-9)
}
