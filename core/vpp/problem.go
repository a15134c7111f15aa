package vpp

import (
	"fmt"
	"math"
	"slices"

	"github.com/kilianp07/vpp/core/model"
	"github.com/kilianp07/vpp/core/search"
)

// Options are the run parameters of a dispatch problem.
type Options struct {
	// BigMImport and BigMExport deactivate the import/export limits when
	// the opposite flow direction is selected. Each must cover the largest
	// upper bound of its flow; zero selects that bound.
	BigMImport  float64     `json:"big_m_import"`
	BigMExport  float64     `json:"big_m_export"`
	StartupMode StartupMode `json:"startup_mode"`
	// EqualityTolerance is the |h| accepted as satisfied when reporting
	// feasibility. Zero demands exact equality.
	EqualityTolerance float64 `json:"equality_tolerance"`
}

// DefaultOptions returns Big-M values sized from the bounds, signed startup
// costs and an equality tolerance of 1e-4.
func DefaultOptions() Options {
	return Options{StartupMode: StartupSigned, EqualityTolerance: 1e-4}
}

// Problem binds a plant and a scenario into a search problem. It is
// immutable after construction and safe for concurrent evaluation.
type Problem struct {
	params model.ParameterSet
	sc     model.ScenarioContext
	layout Layout
	opts   Options
	lower  []float64
	upper  []float64
	cons   *ConstraintEvaluator
	obj    *ObjectiveEvaluator
}

var _ search.BinaryProblem = (*Problem)(nil)

// NewProblem validates every input eagerly so that no configuration error
// can surface during a search.
func NewProblem(p model.ParameterSet, sc model.ScenarioContext, opts Options) (*Problem, error) {
	params, err := model.NewParameterSet(p)
	if err != nil {
		return nil, err
	}
	layout, err := NewLayout(params.Dims(sc.Horizon()))
	if err != nil {
		return nil, err
	}
	mode, err := ParseStartupMode(string(opts.StartupMode))
	if err != nil {
		return nil, err
	}
	opts.StartupMode = mode
	if !(opts.EqualityTolerance >= 0) || math.IsInf(opts.EqualityTolerance, 0) {
		return nil, fmt.Errorf("%w: equality tolerance must be a finite value >= 0", ErrConfig)
	}
	lower, upper, err := Bounds(params, sc, layout)
	if err != nil {
		return nil, err
	}
	if opts, err = resolveBigM(opts, layout, upper); err != nil {
		return nil, err
	}
	return &Problem{
		params: params,
		sc:     sc,
		layout: layout,
		opts:   opts,
		lower:  lower,
		upper:  upper,
		cons:   NewConstraintEvaluator(params, sc, layout, opts.BigMImport, opts.BigMExport),
		obj:    NewObjectiveEvaluator(params, sc, layout, opts.StartupMode),
	}, nil
}

// resolveBigM defaults unset Big-M values to the largest upper bound of
// their flow and rejects values that would cut into the bounds.
func resolveBigM(opts Options, l Layout, upper []float64) (Options, error) {
	for _, m := range []struct {
		name  string
		value *float64
		span  Span
	}{
		{"big_m_import", &opts.BigMImport, l.PImp},
		{"big_m_export", &opts.BigMExport, l.PExp},
	} {
		bound := maxOf(upper[m.span.Offset:m.span.End()])
		switch v := *m.value; {
		case v < 0 || math.IsNaN(v) || math.IsInf(v, 0):
			return opts, fmt.Errorf("%w: %s must be a finite value >= 0, got %v", ErrConfig, m.name, v)
		case v == 0:
			*m.value = bound
		case v < bound:
			return opts, fmt.Errorf("%w: %s=%v below the flow upper bound %v", ErrConfig, m.name, v, bound)
		}
	}
	return opts, nil
}

// Dim returns the decision vector length.
func (p *Problem) Dim() int { return p.layout.Len() }

// Bounds returns copies of the lower and upper limits.
func (p *Problem) Bounds() (lower, upper []float64) {
	return slices.Clone(p.lower), slices.Clone(p.upper)
}

// BinaryMask marks the binary block.
func (p *Problem) BinaryMask() []bool { return p.layout.BinaryMask() }

// Layout returns the decision vector layout.
func (p *Problem) Layout() Layout { return p.layout }

// Options returns the run parameters.
func (p *Problem) Options() Options { return p.opts }

// Params returns the validated plant parameters.
func (p *Problem) Params() model.ParameterSet { return p.params }

// Scenario returns the bound scenario.
func (p *Problem) Scenario() model.ScenarioContext { return p.sc }

// Decode thresholds and splits x.
func (p *Problem) Decode(x []float64) (*Variables, error) { return p.layout.Decode(x) }

// Evaluate scores x: the objective is the profit, residuals follow the
// h = 0 and g <= 0 convention.
func (p *Problem) Evaluate(x []float64) (search.Evaluation, error) {
	v, err := p.layout.Decode(x)
	if err != nil {
		return search.Evaluation{}, err
	}
	r := p.cons.Evaluate(v)
	return search.Evaluation{
		Objective:  p.obj.Profit(v),
		Equality:   r.Equality(),
		Inequality: r.Inequality(),
	}, nil
}

// Solution is a fully evaluated candidate ready for reporting.
type Solution struct {
	Variables      *Variables         `json:"variables"`
	Profit         float64            `json:"profit"`
	Breakdown      ObjectiveBreakdown `json:"breakdown"`
	Residuals      Residuals          `json:"residuals"`
	Violation      map[string]float64 `json:"violation"`
	TotalViolation float64            `json:"total_violation"`
	Feasible       bool               `json:"feasible"`
}

// Solve evaluates x in full detail.
func (p *Problem) Solve(x []float64) (*Solution, error) {
	v, err := p.layout.Decode(x)
	if err != nil {
		return nil, err
	}
	r := p.cons.Evaluate(v)
	br := p.obj.Breakdown(v)
	total := r.TotalViolation(p.opts.EqualityTolerance)
	return &Solution{
		Variables:      v,
		Profit:         br.Profit(),
		Breakdown:      br,
		Residuals:      r,
		Violation:      r.Violation(p.opts.EqualityTolerance),
		TotalViolation: total,
		Feasible:       total == 0,
	}, nil
}
