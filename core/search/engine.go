package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/vpp/core/events"
	"github.com/kilianp07/vpp/core/logger"
	"github.com/kilianp07/vpp/core/metrics"
	"github.com/kilianp07/vpp/core/model"
	"github.com/kilianp07/vpp/internal/eventbus"
)

// Engine drives an Algorithm over a Problem for a fixed generation budget.
type Engine struct {
	problem  Problem
	cfg      Config
	alg      Algorithm
	handler  ConstraintHandler
	log      logger.Logger
	recorder metrics.GenerationRecorder
	bus      eventbus.Publisher[events.Event]
	runID    string
	seeds    [][]float64
	now      func() time.Time
}

// Option customises an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for progress output.
func WithLogger(l logger.Logger) Option { return func(e *Engine) { e.log = l } }

// WithRecorder records every generation synchronously.
func WithRecorder(r metrics.GenerationRecorder) Option { return func(e *Engine) { e.recorder = r } }

// WithBus publishes a GenerationEvent per generation.
func WithBus(b eventbus.Publisher[events.Event]) Option { return func(e *Engine) { e.bus = b } }

// WithRunID tags events and log lines with id.
func WithRunID(id string) Option { return func(e *Engine) { e.runID = id } }

// WithSeedVectors injects candidates into the initial population. They
// replace sampled individuals and are clamped to the bounds.
func WithSeedVectors(xs ...[]float64) Option {
	return func(e *Engine) { e.seeds = append(e.seeds, xs...) }
}

// WithAlgorithm replaces the default GA.
func WithAlgorithm(a Algorithm) Option { return func(e *Engine) { e.alg = a } }

// WithHandler replaces the constraint handler selected by the config.
func WithHandler(h ConstraintHandler) Option { return func(e *Engine) { e.handler = h } }

// NewEngine validates cfg and prepares an engine for p.
func NewEngine(p Problem, cfg Config, opts ...Option) (*Engine, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil problem", model.ErrConfig)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{problem: p, cfg: cfg, log: logger.NopLogger{}, now: time.Now}
	for _, o := range opts {
		o(e)
	}
	if e.handler == nil {
		h, err := NewHandler(cfg)
		if err != nil {
			return nil, err
		}
		e.handler = h
	}
	if e.alg == nil {
		e.alg = NewGA(cfg, e.handler)
	}
	return e, nil
}

func (e *Engine) bounds() (Bounds, error) {
	lo, hi := e.problem.Bounds()
	n := e.problem.Dim()
	if len(lo) != n || len(hi) != n {
		return Bounds{}, fmt.Errorf("%w: bounds have %d/%d entries, want %d", model.ErrConfig, len(lo), len(hi), n)
	}
	b := Bounds{Lower: lo, Upper: hi}
	if bp, ok := e.problem.(BinaryProblem); ok {
		b.Binary = bp.BinaryMask()
		if len(b.Binary) != n {
			return Bounds{}, fmt.Errorf("%w: binary mask has %d entries, want %d", model.ErrConfig, len(b.Binary), n)
		}
	}
	return b, nil
}

// Run executes the search. The result always carries the best candidate
// found, feasible or not. Cancelling ctx stops the run between
// generations and returns the best candidate so far; an error is only
// returned when evaluation fails or ctx is done before the first
// population is scored.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	start := e.now()
	b, err := e.bounds()
	if err != nil {
		return nil, err
	}
	rs := NewStreams(e.cfg.Seed)

	pop, err := e.alg.Initialize(ctx, b, rs)
	if err != nil {
		return nil, err
	}
	for i, s := range e.seeds {
		if i >= len(pop) {
			break
		}
		if len(s) != b.Dim() {
			e.log.Warnf("seed vector %d has %d entries, want %d: ignored", i, len(s), b.Dim())
			continue
		}
		x := slices.Clone(s)
		b.Clamp(x)
		pop[i] = &Individual{X: x}
	}
	evals, err := e.evaluate(ctx, pop)
	if err != nil {
		return nil, err
	}
	pop = e.alg.Survive(pop, nil)

	res := &Result{Termination: TerminationBudget}
	best := pop[0]
	res.Evaluations = evals
	res.Generations = 1
	e.report(res, 1, pop)

	stale := 0
	for gen := 2; gen <= e.cfg.Generations; gen++ {
		if ctx.Err() != nil {
			res.Termination = TerminationCancelled
			break
		}
		off, err := e.alg.Evolve(ctx, pop, b, rs, gen)
		if err != nil {
			if ctx.Err() != nil {
				res.Termination = TerminationCancelled
				break
			}
			return nil, err
		}
		n, err := e.evaluate(ctx, off)
		if err != nil {
			if ctx.Err() != nil {
				res.Termination = TerminationCancelled
				break
			}
			return nil, err
		}
		res.Evaluations += n
		pop = e.alg.Survive(pop, off)
		res.Generations = gen

		if e.handler.Compare(pop[0], best) < 0 {
			best = pop[0]
			stale = 0
		} else {
			stale++
		}
		e.report(res, gen, pop)
		if e.cfg.Patience > 0 && stale >= e.cfg.Patience {
			res.Termination = TerminationPatience
			break
		}
	}
	if e.handler.Compare(pop[0], best) < 0 {
		best = pop[0]
	}

	res.Best = slices.Clone(best.X)
	res.Objective = best.Eval.Objective
	res.Fitness = best.Fitness
	res.Violation = best.Violation
	res.Feasible = best.Feasible()
	res.Equality = slices.Clone(best.Eval.Equality)
	res.Inequality = slices.Clone(best.Eval.Inequality)
	res.Duration = e.now().Sub(start)
	e.log.Infof("run %s finished after %d generations (%s): objective=%.4f violation=%.4g feasible=%t",
		e.runID, res.Generations, res.Termination, res.Objective, res.Violation, res.Feasible)
	return res, nil
}

// evaluate scores every unevaluated individual on a bounded worker pool.
// Results are written in place, so the outcome does not depend on the
// number of workers.
func (e *Engine) evaluate(ctx context.Context, pop Population) (int, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.cfg.Workers, 1))
	n := 0
	for _, ind := range pop {
		if ind.evaluated {
			continue
		}
		n++
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ev, err := e.problem.Evaluate(ind.X)
			if err != nil {
				return fmt.Errorf("evaluate: %w", err)
			}
			ind.Eval = ev
			ind.Fitness, ind.Violation = e.handler.Score(ev)
			ind.evaluated = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return n, ctxErr
		}
		return n, err
	}
	return n, nil
}

func (e *Engine) report(res *Result, gen int, pop Population) {
	st := e.stats(gen, res.Evaluations, pop)
	res.History = append(res.History, st)
	e.log.Debugw("generation", map[string]any{
		"run_id":         e.runID,
		"generation":     st.Generation,
		"evaluations":    st.Evaluations,
		"best_fitness":   st.BestFitness,
		"best_objective": st.BestObjective,
		"best_violation": st.BestViolation,
		"feasible":       st.Feasible,
	})
	ev := events.GenerationEvent{
		RunID:         e.runID,
		Generation:    st.Generation,
		Evaluations:   st.Evaluations,
		Feasible:      st.Feasible,
		BestFitness:   st.BestFitness,
		BestObjective: st.BestObjective,
		BestViolation: st.BestViolation,
		MeanFitness:   st.MeanFitness,
		StdFitness:    st.StdFitness,
		Time:          e.now(),
	}
	if e.recorder != nil {
		if err := e.recorder.RecordGeneration(ev); err != nil {
			e.log.Errorf("generation metrics error: %v", err)
		}
	}
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}

func (e *Engine) stats(gen, evals int, pop Population) GenerationStats {
	st := GenerationStats{Generation: gen, Evaluations: evals}
	fit := make([]float64, 0, len(pop))
	for _, ind := range pop {
		if ind.Feasible() {
			st.Feasible++
		}
		if !math.IsInf(ind.Fitness, 0) && !math.IsNaN(ind.Fitness) {
			fit = append(fit, ind.Fitness)
		}
	}
	if len(pop) > 0 {
		st.BestFitness = pop[0].Fitness
		st.BestObjective = pop[0].Eval.Objective
		st.BestViolation = pop[0].Violation
	}
	switch len(fit) {
	case 0:
	case 1:
		st.MeanFitness = fit[0]
	default:
		st.MeanFitness, st.StdFitness = stat.MeanStdDev(fit, nil)
	}
	return st
}
