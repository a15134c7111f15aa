package vpp

import (
	"math"

	"github.com/kilianp07/vpp/core/model"
)

// Residual group names. Groups are emitted in this order.
const (
	GroupPowerBalance     = "power_balance"
	GroupSimultaneity     = "simultaneity"
	GroupSocRecursion     = "soc_recursion"
	GroupSocInitial       = "soc_initial"
	GroupImport           = "import"
	GroupExport           = "export"
	GroupBiomassCost      = "biomass_cost"
	GroupBiomassMin       = "biomass_min"
	GroupBiomassMax       = "biomass_max"
	GroupBiomassRampUp    = "biomass_ramp_up"
	GroupBiomassRampDown  = "biomass_ramp_down"
	GroupStorageCharge    = "storage_charge"
	GroupStorageDischarge = "storage_discharge"
	GroupStorageExclusive = "storage_exclusive"
	GroupDlMin            = "dl_min"
	GroupDlMax            = "dl_max"
)

// Kind distinguishes equality (h = 0) from inequality (g <= 0) residuals.
type Kind int

const (
	Equality Kind = iota
	Inequality
)

func (k Kind) String() string {
	if k == Equality {
		return "eq"
	}
	return "ieq"
}

// Group is one named residual sub-vector. Entries for per-asset
// constraints are ordered i*steps+t like the decision vector.
type Group struct {
	Name   string    `json:"name"`
	Kind   Kind      `json:"kind"`
	Values []float64 `json:"values"`
}

// Violation returns the total violation of the group. Equality entries
// contribute |h| beyond tol, inequality entries max(0, g).
func (g Group) Violation(tol float64) float64 {
	var s float64
	for _, v := range g.Values {
		if g.Kind == Equality {
			s += math.Max(0, math.Abs(v)-tol)
		} else {
			s += math.Max(0, v)
		}
	}
	return s
}

// Residuals holds every constraint residual of one candidate.
type Residuals struct {
	Groups []Group `json:"groups"`
}

// Group returns the named sub-vector.
func (r Residuals) Group(name string) ([]float64, bool) {
	for _, g := range r.Groups {
		if g.Name == name {
			return g.Values, true
		}
	}
	return nil, false
}

// Equality concatenates all equality groups in order.
func (r Residuals) Equality() []float64 { return r.concat(Equality) }

// Inequality concatenates all inequality groups in order.
func (r Residuals) Inequality() []float64 { return r.concat(Inequality) }

func (r Residuals) concat(k Kind) []float64 {
	var out []float64
	for _, g := range r.Groups {
		if g.Kind == k {
			out = append(out, g.Values...)
		}
	}
	return out
}

// Violation returns the per-group violation totals.
func (r Residuals) Violation(tol float64) map[string]float64 {
	out := make(map[string]float64, len(r.Groups))
	for _, g := range r.Groups {
		out[g.Name] = g.Violation(tol)
	}
	return out
}

// TotalViolation sums the violation over all groups.
func (r Residuals) TotalViolation(tol float64) float64 {
	var s float64
	for _, g := range r.Groups {
		s += g.Violation(tol)
	}
	return s
}

// ConstraintEvaluator computes constraint residuals for decoded candidates.
// It only reads its inputs and is safe for concurrent use.
type ConstraintEvaluator struct {
	params     model.ParameterSet
	sc         model.ScenarioContext
	dims       model.Dims
	bigMImport float64
	bigMExport float64
	// fixed[t] = wind + solar - fixed load at t
	fixed []float64
}

// NewConstraintEvaluator binds the evaluator to a plant, a scenario and the
// Big-M constants of the import/export exclusivity constraints.
func NewConstraintEvaluator(p model.ParameterSet, sc model.ScenarioContext, l Layout, bigMImport, bigMExport float64) *ConstraintEvaluator {
	d := l.Dims
	fixed := make([]float64, d.Nt)
	for t := range fixed {
		fixed[t] = sc.PWT.ColSum(t) + sc.PPV.ColSum(t) - sc.PL.ColSum(t)
	}
	return &ConstraintEvaluator{
		params:     p,
		sc:         sc,
		dims:       d,
		bigMImport: bigMImport,
		bigMExport: bigMExport,
		fixed:      fixed,
	}
}

// Evaluate returns all residual groups for v. Binary blocks of v are
// expected to be thresholded already.
func (e *ConstraintEvaluator) Evaluate(v *Variables) Residuals {
	d := e.dims
	nt := d.Nt
	r := Residuals{Groups: make([]Group, 0, 16)}
	add := func(name string, k Kind, vals []float64) {
		r.Groups = append(r.Groups, Group{Name: name, Kind: k, Values: vals})
	}

	pb := make([]float64, nt)
	sim := make([]float64, nt)
	for t := 0; t < nt; t++ {
		pb[t] = v.PExp.Data[t] + e.fixed[t] + v.PBm.ColSum(t) - v.PImp.Data[t] -
			v.PDl.ColSum(t) - (v.PChg.ColSum(t) - v.PDch.ColSum(t))
		sim[t] = v.UExp.Data[t] + v.UImp.Data[t] - 1
	}
	add(GroupPowerBalance, Equality, pb)
	add(GroupSimultaneity, Equality, sim)

	rec := make([]float64, 0, d.Nbat*max(nt-1, 0))
	soc0 := make([]float64, d.Nbat)
	for i, b := range e.params.Batteries {
		for t := 1; t < nt; t++ {
			rec = append(rec, v.Soc.At(i, t)-v.Soc.At(i, t-1)-v.PChg.At(i, t)*b.EtaChg+v.PDch.At(i, t)/b.EtaDch)
		}
		soc0[i] = v.Soc.At(i, 0) - b.SocInit
	}
	add(GroupSocRecursion, Equality, rec)
	add(GroupSocInitial, Equality, soc0)

	imp := make([]float64, nt)
	exp := make([]float64, nt)
	for t := 0; t < nt; t++ {
		imp[t] = v.PImp.Data[t] - (1-v.UExp.Data[t])*e.bigMImport
		exp[t] = v.PExp.Data[t] - (1-v.UImp.Data[t])*e.bigMExport
	}
	add(GroupImport, Inequality, imp)
	add(GroupExport, Inequality, exp)

	n := d.Nbm * nt
	cost, bmMin, bmMax := make([]float64, 0, n), make([]float64, 0, n), make([]float64, 0, n)
	rup := make([]float64, 0, d.Nbm*max(nt-1, 0))
	rdn := make([]float64, 0, d.Nbm*max(nt-1, 0))
	for i, b := range e.params.Biomass {
		for t := 0; t < nt; t++ {
			p, u := v.PBm.At(i, t), v.UBm.At(i, t)
			cost = append(cost, b.Alpha*p+b.Beta-v.GammaBm.At(i, t))
			bmMin = append(bmMin, b.PMin*u-p)
			bmMax = append(bmMax, p-b.PMax*u)
		}
		for t := 1; t < nt; t++ {
			delta := v.PBm.At(i, t) - v.PBm.At(i, t-1)
			rup = append(rup, delta-b.RampUp)
			rdn = append(rdn, -delta-b.RampDown)
		}
	}
	add(GroupBiomassCost, Inequality, cost)
	add(GroupBiomassMin, Inequality, bmMin)
	add(GroupBiomassMax, Inequality, bmMax)
	add(GroupBiomassRampUp, Inequality, rup)
	add(GroupBiomassRampDown, Inequality, rdn)

	n = d.Nbat * nt
	chg, dch, excl := make([]float64, 0, n), make([]float64, 0, n), make([]float64, 0, n)
	for i, b := range e.params.Batteries {
		for t := 0; t < nt; t++ {
			uc, ud := v.UChg.At(i, t), v.UDch.At(i, t)
			chg = append(chg, v.PChg.At(i, t)-b.PMax*uc)
			dch = append(dch, v.PDch.At(i, t)-b.PMax*ud)
			excl = append(excl, uc+ud-1)
		}
	}
	add(GroupStorageCharge, Inequality, chg)
	add(GroupStorageDischarge, Inequality, dch)
	add(GroupStorageExclusive, Inequality, excl)

	n = d.Ndl * nt
	dlMin, dlMax := make([]float64, 0, n), make([]float64, 0, n)
	for i := 0; i < d.Ndl; i++ {
		for t := 0; t < nt; t++ {
			p, u := v.PDl.At(i, t), v.UDl.At(i, t)
			dlMin = append(dlMin, e.sc.PDlMin.At(i, t)*u-p)
			dlMax = append(dlMax, p-e.sc.PDlMax.At(i, t)*u)
		}
	}
	add(GroupDlMin, Inequality, dlMin)
	add(GroupDlMax, Inequality, dlMax)
	return r
}
