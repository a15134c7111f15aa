package search

import (
	"context"
	"time"
)

// Evaluation is the score of one candidate. Objective is maximised.
// Equality residuals are satisfied at zero, inequality residuals at or
// below zero.
type Evaluation struct {
	Objective  float64
	Equality   []float64
	Inequality []float64
}

// Problem is what the engine optimises. Evaluate must be a pure function
// of x so it can run concurrently.
type Problem interface {
	Dim() int
	Bounds() (lower, upper []float64)
	Evaluate(x []float64) (Evaluation, error)
}

// BinaryProblem marks genes that are thresholded by the problem and
// should be recombined as bits.
type BinaryProblem interface {
	Problem
	BinaryMask() []bool
}

// Bounds is the box the population lives in.
type Bounds struct {
	Lower  []float64
	Upper  []float64
	Binary []bool
}

// Dim returns the number of genes.
func (b Bounds) Dim() int { return len(b.Lower) }

// Clamp moves every gene of x into the box.
func (b Bounds) Clamp(x []float64) {
	for k := range x {
		x[k] = clamp(x[k], b.Lower[k], b.Upper[k])
	}
}

// Individual is a candidate together with its score.
type Individual struct {
	X         []float64
	Eval      Evaluation
	Fitness   float64 // minimised
	Violation float64
	evaluated bool
}

// Feasible reports whether the candidate satisfies every constraint.
func (ind *Individual) Feasible() bool { return ind.evaluated && ind.Violation == 0 }

// Population is an ordered set of individuals.
type Population []*Individual

// Algorithm produces populations. Initialize samples the first population,
// Evolve creates unevaluated offspring from an evaluated population and
// Survive selects the next population from parents and evaluated offspring.
type Algorithm interface {
	Initialize(ctx context.Context, b Bounds, rs Streams) (Population, error)
	Evolve(ctx context.Context, pop Population, b Bounds, rs Streams, gen int) (Population, error)
	Survive(pop, offspring Population) Population
}

// Termination reasons.
const (
	TerminationBudget    = "generation_budget"
	TerminationPatience  = "patience"
	TerminationCancelled = "cancelled"
)

// GenerationStats summarises one generation.
type GenerationStats struct {
	Generation    int     `json:"generation"`
	Evaluations   int     `json:"evaluations"`
	BestFitness   float64 `json:"best_fitness"`
	BestObjective float64 `json:"best_objective"`
	BestViolation float64 `json:"best_violation"`
	MeanFitness   float64 `json:"mean_fitness"`
	StdFitness    float64 `json:"std_fitness"`
	Feasible      int     `json:"feasible"`
}

// Result is returned by Engine.Run whether or not a feasible candidate was
// found.
type Result struct {
	Best        []float64         `json:"best"`
	Objective   float64           `json:"objective"`
	Fitness     float64           `json:"fitness"`
	Violation   float64           `json:"violation"`
	Feasible    bool              `json:"feasible"`
	Equality    []float64         `json:"equality"`
	Inequality  []float64         `json:"inequality"`
	Generations int               `json:"generations"`
	Evaluations int               `json:"evaluations"`
	Termination string            `json:"termination"`
	Duration    time.Duration     `json:"duration"`
	History     []GenerationStats `json:"history"`
}
