package vpp

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/vpp/core/model"
)

// Bounds derives per-variable lower and upper limits aligned with l.
//
// Export is capped per step by installed capacity: PV + wind + the largest
// storage capacity + the largest biomass rating. Import is capped by the
// fixed load minus the largest storage floor; a load below that floor is
// reported as an inverted p_imp bound. soc[i,0] is pinned to the battery's
// initial state of charge.
func Bounds(p model.ParameterSet, sc model.ScenarioContext, l Layout) (lower, upper []float64, err error) {
	if err := checkShapes(p, sc, l); err != nil {
		return nil, nil, err
	}
	d := l.Dims
	lower = make([]float64, l.Len())
	upper = make([]float64, l.Len())

	socMin := make([]float64, d.Nbat)
	socMax := make([]float64, d.Nbat)
	for i, b := range p.Batteries {
		socMin[i], socMax[i] = b.SocMin, b.SocMax
	}
	bmMax := make([]float64, d.Nbm)
	for i, b := range p.Biomass {
		bmMax[i] = b.PMax
	}
	pv, wt, load := sc.PPV.ColSums(), sc.PWT.ColSums(), sc.PL.ColSums()
	extraExp := maxOf(socMax) + maxOf(bmMax)
	floorImp := maxOf(socMin)

	for t := 0; t < d.Nt; t++ {
		k := l.PExp.Index(0, t)
		lower[k], upper[k] = 0, pv[t]+wt[t]+extraExp
		k = l.PImp.Index(0, t)
		lower[k], upper[k] = 0, load[t]-floorImp
	}
	for i, b := range p.Biomass {
		for t := 0; t < d.Nt; t++ {
			k := l.PBm.Index(i, t)
			lower[k], upper[k] = b.PMin, b.PMax
			k = l.GammaBm.Index(i, t)
			lower[k], upper[k] = b.PMin*b.Kappa, b.PMax*b.Kappa
		}
	}
	for i, b := range p.Batteries {
		if b.SocMin > b.SocMax {
			return nil, nil, fmt.Errorf("%w: soc[%d] bounds inverted: soc_min=%v > soc_max=%v", ErrConfig, i, b.SocMin, b.SocMax)
		}
		if b.SocInit < b.SocMin || b.SocInit > b.SocMax {
			return nil, nil, fmt.Errorf("%w: soc[%d,0] initial value %v outside [%v,%v]", ErrConfig, i, b.SocInit, b.SocMin, b.SocMax)
		}
		for t := 0; t < d.Nt; t++ {
			k := l.PChg.Index(i, t)
			lower[k], upper[k] = 0, b.PMax
			k = l.PDch.Index(i, t)
			lower[k], upper[k] = 0, b.PMax
			k = l.Soc.Index(i, t)
			if t == 0 {
				lower[k], upper[k] = b.SocInit, b.SocInit
			} else {
				lower[k], upper[k] = b.SocMin, b.SocMax
			}
		}
	}
	for i := 0; i < d.Ndl; i++ {
		for t := 0; t < d.Nt; t++ {
			k := l.PDl.Index(i, t)
			lower[k], upper[k] = sc.PDlMin.At(i, t), sc.PDlMax.At(i, t)
		}
	}
	for k := l.Nr; k < l.Len(); k++ {
		lower[k], upper[k] = 0, 1
	}

	for k := range lower {
		if lower[k] > upper[k] || math.IsNaN(lower[k]) || math.IsNaN(upper[k]) {
			name, i, t := l.Locate(k)
			return nil, nil, fmt.Errorf("%w: %s[%d,%d] bounds inverted: lower=%v > upper=%v", ErrConfig, name, i, t, lower[k], upper[k])
		}
	}
	return lower, upper, nil
}

// checkShapes verifies that the parameter set and scenario agree with the
// layout dimensions.
func checkShapes(p model.ParameterSet, sc model.ScenarioContext, l Layout) error {
	d := l.Dims
	if got := p.Dims(d.Nt); got != d {
		return fmt.Errorf("%w: parameter set dimensions %+v do not match layout %+v", ErrConfig, got, d)
	}
	blocks := []struct {
		name string
		b    model.Block
		rows int
	}{
		{"p_l", sc.PL, d.Nl},
		{"p_pv", sc.PPV, d.Npv},
		{"p_wt", sc.PWT, d.Nwt},
		{"p_dl_ref", sc.PDlRef, d.Ndl},
		{"p_dl_min", sc.PDlMin, d.Ndl},
		{"p_dl_max", sc.PDlMax, d.Ndl},
	}
	for _, b := range blocks {
		if b.b.Rows != b.rows || b.b.Cols != d.Nt || len(b.b.Data) != b.rows*d.Nt {
			return fmt.Errorf("%w: scenario %s is %dx%d, want %dx%d", ErrConfig, b.name, b.b.Rows, b.b.Cols, b.rows, d.Nt)
		}
	}
	series := map[string][]float64{"tau_pld": sc.TauPLD, "tau_dist": sc.TauDist, "tau_dl": sc.TauDL}
	for name, s := range series {
		if len(s) != d.Nt {
			return fmt.Errorf("%w: scenario %s has %d entries, want %d", ErrConfig, name, len(s), d.Nt)
		}
	}
	return nil
}

// maxOf is floats.Max with an empty-slice value of zero.
func maxOf(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return floats.Max(v)
}
