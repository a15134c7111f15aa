package model

import (
	"fmt"
	"math"
)

// Series is the raw, external form of a scenario: named numeric arrays as
// produced by the time-series generators and stored by the scenario store.
// Two-dimensional arrays are indexed [asset][time step].
type Series struct {
	Name    string      `json:"name" yaml:"name" validate:"required"`
	PL      [][]float64 `json:"p_l" yaml:"p_l"`
	PPV     [][]float64 `json:"p_pv" yaml:"p_pv"`
	PWT     [][]float64 `json:"p_wt" yaml:"p_wt"`
	PDlRef  [][]float64 `json:"p_dl_ref" yaml:"p_dl_ref"`
	PDlMin  [][]float64 `json:"p_dl_min,omitempty" yaml:"p_dl_min,omitempty"`
	PDlMax  [][]float64 `json:"p_dl_max,omitempty" yaml:"p_dl_max,omitempty"`
	TauPLD  []float64   `json:"tau_pld" yaml:"tau_pld" validate:"required,min=1"`
	TauDist []float64   `json:"tau_dist" yaml:"tau_dist" validate:"required,min=1"`
	TauDL   []float64   `json:"tau_dl" yaml:"tau_dl" validate:"required,min=1"`
}

// Horizon returns the length of the price series, which every other array
// must match.
func (s Series) Horizon() int { return len(s.TauPLD) }

// Window returns a copy of the series restricted to steps [start, start+nt).
func (s Series) Window(start, nt int) (Series, error) {
	if start < 0 || nt <= 0 || start+nt > s.Horizon() {
		return Series{}, fmt.Errorf("%w: window [%d,%d) outside horizon %d of scenario %q", ErrConfig, start, start+nt, s.Horizon(), s.Name)
	}
	cut := func(v []float64) []float64 {
		if v == nil {
			return nil
		}
		if len(v) < start+nt {
			// left for NewScenarioContext to report with the field name
			return append([]float64(nil), v...)
		}
		return append([]float64(nil), v[start:start+nt]...)
	}
	cut2 := func(m [][]float64) [][]float64 {
		if m == nil {
			return nil
		}
		out := make([][]float64, len(m))
		for i, r := range m {
			out[i] = cut(r)
		}
		return out
	}
	return Series{
		Name:    s.Name,
		PL:      cut2(s.PL),
		PPV:     cut2(s.PPV),
		PWT:     cut2(s.PWT),
		PDlRef:  cut2(s.PDlRef),
		PDlMin:  cut2(s.PDlMin),
		PDlMax:  cut2(s.PDlMax),
		TauPLD:  cut(s.TauPLD),
		TauDist: cut(s.TauDist),
		TauDL:   cut(s.TauDL),
	}, nil
}

// Scale returns a copy with PV, wind and load arrays multiplied by the given
// capacity factors. Dispatchable load references and explicit bands are
// scaled with the load factor.
func (s Series) Scale(capPV, capWT, capLoad float64) Series {
	mul := func(m [][]float64, f float64) [][]float64 {
		if m == nil {
			return nil
		}
		out := make([][]float64, len(m))
		for i, r := range m {
			out[i] = make([]float64, len(r))
			for t, v := range r {
				out[i][t] = v * f
			}
		}
		return out
	}
	c := s
	c.PPV = mul(s.PPV, capPV)
	c.PWT = mul(s.PWT, capWT)
	c.PL = mul(s.PL, capLoad)
	c.PDlRef = mul(s.PDlRef, capLoad)
	c.PDlMin = mul(s.PDlMin, capLoad)
	c.PDlMax = mul(s.PDlMax, capLoad)
	c.TauPLD = append([]float64(nil), s.TauPLD...)
	c.TauDist = append([]float64(nil), s.TauDist...)
	c.TauDL = append([]float64(nil), s.TauDL...)
	return c
}

// ScenarioContext is the typed, shape-checked per-run time series. It is
// read-only for the duration of a run.
type ScenarioContext struct {
	Name    string
	PL      Block // fixed load [Nl, Nt]
	PPV     Block // solar output [Npv, Nt]
	PWT     Block // wind output [Nwt, Nt]
	PDlRef  Block // dispatchable load reference [Ndl, Nt]
	PDlMin  Block
	PDlMax  Block
	TauPLD  []float64 // export price
	TauDist []float64 // import tariff
	TauDL   []float64 // curtailment compensation
}

// NewScenarioContext converts raw series into a ScenarioContext for dims.
// The dispatchable-load band is taken from the series when present, or
// derived as ref*(1-delta) .. ref*(1+delta) otherwise.
func NewScenarioContext(s Series, dims Dims, delta float64) (ScenarioContext, error) {
	if err := dims.Validate(); err != nil {
		return ScenarioContext{}, err
	}
	if !finite(delta) || delta < 0 {
		return ScenarioContext{}, fmt.Errorf("%w: curtailment band delta must be >= 0, got %v", ErrConfig, delta)
	}
	nt := dims.Nt
	ctx := ScenarioContext{Name: s.Name}
	var err error
	if ctx.PL, err = shaped("p_l", s.PL, dims.Nl, nt); err != nil {
		return ScenarioContext{}, err
	}
	if ctx.PPV, err = shaped("p_pv", s.PPV, dims.Npv, nt); err != nil {
		return ScenarioContext{}, err
	}
	if ctx.PWT, err = shaped("p_wt", s.PWT, dims.Nwt, nt); err != nil {
		return ScenarioContext{}, err
	}
	if ctx.PDlRef, err = shaped("p_dl_ref", s.PDlRef, dims.Ndl, nt); err != nil {
		return ScenarioContext{}, err
	}
	switch {
	case s.PDlMin != nil && s.PDlMax != nil:
		if ctx.PDlMin, err = shaped("p_dl_min", s.PDlMin, dims.Ndl, nt); err != nil {
			return ScenarioContext{}, err
		}
		if ctx.PDlMax, err = shaped("p_dl_max", s.PDlMax, dims.Ndl, nt); err != nil {
			return ScenarioContext{}, err
		}
	case s.PDlMin != nil || s.PDlMax != nil:
		return ScenarioContext{}, fmt.Errorf("%w: p_dl_min and p_dl_max must be given together", ErrConfig)
	default:
		ctx.PDlMin = NewBlock(dims.Ndl, nt)
		ctx.PDlMax = NewBlock(dims.Ndl, nt)
		for k, ref := range ctx.PDlRef.Data {
			ctx.PDlMin.Data[k] = ref - ref*delta
			ctx.PDlMax.Data[k] = ref + ref*delta
		}
	}
	for k := range ctx.PDlMin.Data {
		if ctx.PDlMin.Data[k] > ctx.PDlMax.Data[k] {
			return ScenarioContext{}, fmt.Errorf("%w: p_dl_min > p_dl_max at [%d,%d]", ErrConfig, k/nt, k%nt)
		}
	}
	if ctx.TauPLD, err = vector("tau_pld", s.TauPLD, nt); err != nil {
		return ScenarioContext{}, err
	}
	if ctx.TauDist, err = vector("tau_dist", s.TauDist, nt); err != nil {
		return ScenarioContext{}, err
	}
	if ctx.TauDL, err = vector("tau_dl", s.TauDL, nt); err != nil {
		return ScenarioContext{}, err
	}
	return ctx, nil
}

// Horizon returns the number of time steps.
func (c ScenarioContext) Horizon() int { return len(c.TauPLD) }

func shaped(name string, rows [][]float64, n, nt int) (Block, error) {
	if len(rows) != n {
		return Block{}, fmt.Errorf("%w: %s has %d rows, want %d", ErrConfig, name, len(rows), n)
	}
	return BlockFromRows(name, rows, nt)
}

func vector(name string, v []float64, nt int) ([]float64, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: %s is missing", ErrConfig, name)
	}
	if len(v) != nt {
		return nil, fmt.Errorf("%w: %s has %d entries, want %d", ErrConfig, name, len(v), nt)
	}
	for t, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, fmt.Errorf("%w: %s[%d] is not finite", ErrConfig, name, t)
		}
	}
	return append([]float64(nil), v...), nil
}
