package search

import (
	"cmp"
	"fmt"
	"math"

	"github.com/kilianp07/vpp/core/model"
)

// ConstraintHandler turns an evaluation into a comparable score.
type ConstraintHandler interface {
	Name() string
	// Score returns the minimised fitness and the total violation.
	Score(ev Evaluation) (fitness, violation float64)
	// Compare orders two scored individuals, best first.
	Compare(a, b *Individual) int
}

// NewHandler returns the handler selected by cfg.
func NewHandler(cfg Config) (ConstraintHandler, error) {
	switch cfg.ConstraintHandling {
	case HandlerFeasibility, "":
		return FeasibilityRules{Tolerance: cfg.EqualityTolerance}, nil
	case HandlerPenalty:
		return Penalty{Weight: cfg.PenaltyWeight, Tolerance: cfg.EqualityTolerance}, nil
	}
	return nil, fmt.Errorf("%w: unknown constraint handling %q", model.ErrConfig, cfg.ConstraintHandling)
}

// Violation sums |h| beyond tol over equalities and max(0, g) over
// inequalities.
func Violation(ev Evaluation, tol float64) float64 {
	var s float64
	for _, h := range ev.Equality {
		s += math.Max(0, math.Abs(h)-tol)
	}
	for _, g := range ev.Inequality {
		s += math.Max(0, g)
	}
	if math.IsNaN(s) {
		return math.Inf(1)
	}
	return s
}

func objectiveFitness(obj float64) float64 {
	if math.IsNaN(obj) {
		return math.Inf(1)
	}
	return -obj
}

// FeasibilityRules applies Deb's rules: a feasible candidate beats an
// infeasible one, two feasible candidates compare by objective and two
// infeasible ones by violation.
type FeasibilityRules struct {
	Tolerance float64
}

func (FeasibilityRules) Name() string { return HandlerFeasibility }

func (h FeasibilityRules) Score(ev Evaluation) (float64, float64) {
	return objectiveFitness(ev.Objective), Violation(ev, h.Tolerance)
}

func (FeasibilityRules) Compare(a, b *Individual) int {
	af, bf := a.Violation == 0, b.Violation == 0
	switch {
	case af && bf:
		return cmp.Compare(a.Fitness, b.Fitness)
	case af:
		return -1
	case bf:
		return 1
	}
	if c := cmp.Compare(a.Violation, b.Violation); c != 0 {
		return c
	}
	return cmp.Compare(a.Fitness, b.Fitness)
}

// Penalty folds the violation into the fitness:
// fitness = -objective + Weight*violation.
type Penalty struct {
	Weight    float64
	Tolerance float64
}

func (Penalty) Name() string { return HandlerPenalty }

func (h Penalty) Score(ev Evaluation) (float64, float64) {
	v := Violation(ev, h.Tolerance)
	f := objectiveFitness(ev.Objective)
	if v > 0 && h.Weight > 0 {
		f += h.Weight * v
	}
	return f, v
}

func (Penalty) Compare(a, b *Individual) int {
	if c := cmp.Compare(a.Fitness, b.Fitness); c != 0 {
		return c
	}
	return cmp.Compare(a.Violation, b.Violation)
}
