package vpp

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/vpp/core/model"
)

// StartupMode selects how biomass on/off transitions are charged.
type StartupMode string

const (
	// StartupSigned charges (u[t]-u[t-1])*kappa_start, so shutdowns earn a
	// credit that offsets the earlier start.
	StartupSigned StartupMode = "signed"
	// StartupOnly charges max(0, u[t]-u[t-1])*kappa_start.
	StartupOnly StartupMode = "startup_only"
)

// ParseStartupMode validates s. An empty string selects StartupSigned.
func ParseStartupMode(s string) (StartupMode, error) {
	switch StartupMode(s) {
	case "", StartupSigned:
		return StartupSigned, nil
	case StartupOnly:
		return StartupOnly, nil
	}
	return "", fmt.Errorf("%w: unknown startup mode %q", ErrConfig, s)
}

// ObjectiveBreakdown lists every revenue and cost term of the profit.
type ObjectiveBreakdown struct {
	Revenue     float64 `json:"revenue"`
	Import      float64 `json:"import_cost"`
	BiomassOp   float64 `json:"biomass_operating_cost"`
	Startup     float64 `json:"biomass_startup_cost"`
	Storage     float64 `json:"storage_cost"`
	Curtailment float64 `json:"curtailment_cost"`
	Wind        float64 `json:"wind_cost"`
	Solar       float64 `json:"solar_cost"`
}

// Cost returns the sum of all cost terms.
func (b ObjectiveBreakdown) Cost() float64 {
	return b.Import + b.BiomassOp + b.Startup + b.Storage + b.Curtailment + b.Wind + b.Solar
}

// Profit returns revenue minus cost.
func (b ObjectiveBreakdown) Profit() float64 { return b.Revenue - b.Cost() }

// ObjectiveEvaluator computes the operating profit of decoded candidates.
type ObjectiveEvaluator struct {
	params  model.ParameterSet
	sc      model.ScenarioContext
	dims    model.Dims
	startup StartupMode
	// must-take generation costs do not depend on the candidate
	wind, solar float64
}

// NewObjectiveEvaluator precomputes the candidate-independent cost terms.
func NewObjectiveEvaluator(p model.ParameterSet, sc model.ScenarioContext, l Layout, mode StartupMode) *ObjectiveEvaluator {
	e := &ObjectiveEvaluator{params: p, sc: sc, dims: l.Dims, startup: mode}
	for i, k := range p.KappaWT {
		e.wind += floats.Sum(sc.PWT.Row(i)) * k
	}
	for i, k := range p.KappaPV {
		e.solar += floats.Sum(sc.PPV.Row(i)) * k
	}
	return e
}

// Profit returns revenue minus cost for v.
func (e *ObjectiveEvaluator) Profit(v *Variables) float64 {
	return e.Breakdown(v).Profit()
}

// Breakdown returns the individual objective terms for v.
func (e *ObjectiveEvaluator) Breakdown(v *Variables) ObjectiveBreakdown {
	d := e.dims
	b := ObjectiveBreakdown{Wind: e.wind, Solar: e.solar}
	b.Revenue = floats.Dot(v.PExp.Data, e.sc.TauPLD)
	b.Import = floats.Dot(v.PImp.Data, e.sc.TauDist)
	for i, bm := range e.params.Biomass {
		b.BiomassOp += floats.Sum(v.GammaBm.Row(i)) * bm.Kappa
		for t := 1; t < d.Nt; t++ {
			step := v.UBm.At(i, t) - v.UBm.At(i, t-1)
			if e.startup == StartupOnly {
				step = math.Max(0, step)
			}
			b.Startup += step * bm.KappaStart
		}
	}
	for i, bat := range e.params.Batteries {
		net := floats.Sum(v.PChg.Row(i)) - floats.Sum(v.PDch.Row(i))
		b.Storage += net * bat.Kappa
	}
	for i := 0; i < d.Ndl; i++ {
		b.Curtailment += floats.Dot(v.PDl.Row(i), e.sc.TauDL)
	}
	return b
}
