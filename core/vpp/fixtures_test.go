package vpp

import (
	"math/rand/v2"
	"testing"

	"github.com/kilianp07/vpp/core/model"
)

// testPlant mirrors the reference plant: two biomass units, three solar and
// three wind plants, one battery, two dispatchable and three fixed loads.
func testPlant() model.ParameterSet {
	return model.ParameterSet{
		Biomass: []model.Biomass{
			{PMin: 0.1, PMax: 1.5, RampUp: 0.5, RampDown: 0.5, Kappa: 0.85, KappaStart: 20.14, Alpha: 0.85},
			{PMin: 0.15, PMax: 2.5, RampUp: 0.5, RampDown: 0.5, Kappa: 0.85, KappaStart: 20.14, Alpha: 0.85},
		},
		Batteries: []model.Battery{
			{EtaChg: 0.914, EtaDch: 0.914, SocMin: 0.5, SocMax: 0.75, SocInit: 0.5, PMax: 0.75, Kappa: 0.038},
		},
		KappaPV: []float64{0.022, 0.022, 0.22},
		KappaWT: []float64{0.027, 0.027, 0.027},
		Nl:      3,
		Ndl:     2,
	}
}

func constSeries(nt int, v float64) []float64 {
	out := make([]float64, nt)
	for t := range out {
		out[t] = v
	}
	return out
}

func constRows(rows, nt int, v float64) [][]float64 {
	out := make([][]float64, rows)
	for i := range out {
		out[i] = constSeries(nt, v)
	}
	return out
}

// testSeries builds a flat scenario for p over nt steps.
func testSeries(p model.ParameterSet, nt int) model.Series {
	d := p.Dims(nt)
	return model.Series{
		Name:    "flat",
		PL:      constRows(d.Nl, nt, 0.8),
		PPV:     constRows(d.Npv, nt, 0.3),
		PWT:     constRows(d.Nwt, nt, 0.2),
		PDlRef:  constRows(d.Ndl, nt, 0.4),
		TauPLD:  constSeries(nt, 0.3),
		TauDist: constSeries(nt, 0.5),
		TauDL:   constSeries(nt, 0.075),
	}
}

func testScenario(t *testing.T, p model.ParameterSet, nt int) model.ScenarioContext {
	t.Helper()
	sc, err := model.NewScenarioContext(testSeries(p, nt), p.Dims(nt), 0.2)
	if err != nil {
		t.Fatalf("scenario: %v", err)
	}
	return sc
}

func testProblem(t *testing.T, p model.ParameterSet, nt int) *Problem {
	t.Helper()
	prob, err := NewProblem(p, testScenario(t, p, nt), DefaultOptions())
	if err != nil {
		t.Fatalf("problem: %v", err)
	}
	return prob
}

// randomVector draws a vector inside the problem bounds.
func randomVector(p *Problem, r *rand.Rand) []float64 {
	lo, hi := p.Bounds()
	x := make([]float64, len(lo))
	for k := range x {
		x[k] = lo[k] + r.Float64()*(hi[k]-lo[k])
	}
	return x
}
