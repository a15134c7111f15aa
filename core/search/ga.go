package search

import (
	"context"
	"math"
	"math/rand/v2"
	"slices"
)

// maxMatingRounds bounds how many matings per requested offspring the GA
// attempts before it gives up on finding unique children.
const maxMatingRounds = 20

// GA is a single-objective genetic algorithm with (mu+lambda) survival.
type GA struct {
	cfg     Config
	handler ConstraintHandler
}

// NewGA returns a GA using handler to rank individuals.
func NewGA(cfg Config, handler ConstraintHandler) *GA {
	return &GA{cfg: cfg, handler: handler}
}

// Initialize samples the first population inside b.
func (g *GA) Initialize(ctx context.Context, b Bounds, rs Streams) (Population, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := g.cfg.PopulationSize
	pop := make(Population, n)
	if g.cfg.Sampling == SamplingLHS {
		for i, x := range sampleLHS(n, b, rs) {
			pop[i] = &Individual{X: x}
		}
		return pop, nil
	}
	// slots after the LHS dimension range keep the two samplers apart
	for i := range pop {
		pop[i] = &Individual{X: sampleUniform(b, rs.At(0, b.Dim()+i))}
	}
	return pop, nil
}

// Evolve creates up to PopulationSize offspring by selection, crossover and
// mutation. Offspring that duplicate a parent or a sibling are discarded.
func (g *GA) Evolve(ctx context.Context, pop Population, b Bounds, rs Streams, gen int) (Population, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := g.cfg.PopulationSize
	dedup := g.cfg.dedup()
	seen := make(map[uint64]struct{}, len(pop)+n)
	if dedup {
		for _, ind := range pop {
			seen[fingerprint(ind.X, b.Binary)] = struct{}{}
		}
	}
	off := make(Population, 0, n)
	for slot := 0; len(off) < n && slot < maxMatingRounds*n; slot++ {
		r := rs.At(gen, slot)
		p1, p2 := g.selectParent(pop, r), g.selectParent(pop, r)
		c1, c2 := g.crossover(p1.X, p2.X, b, r)
		g.mutate(c1, b, r)
		g.mutate(c2, b, r)
		for _, c := range [][]float64{c1, c2} {
			if len(off) == n {
				break
			}
			if dedup {
				fp := fingerprint(c, b.Binary)
				if _, dup := seen[fp]; dup {
					continue
				}
				seen[fp] = struct{}{}
			}
			off = append(off, &Individual{X: c})
		}
	}
	return off, nil
}

// Survive keeps the best PopulationSize individuals of parents and
// offspring. Ties keep parents ahead of offspring.
func (g *GA) Survive(pop, offspring Population) Population {
	merged := make(Population, 0, len(pop)+len(offspring))
	merged = append(merged, pop...)
	merged = append(merged, offspring...)
	slices.SortStableFunc(merged, g.handler.Compare)
	if len(merged) > g.cfg.PopulationSize {
		merged = merged[:g.cfg.PopulationSize]
	}
	return merged
}

func (g *GA) selectParent(pop Population, r *rand.Rand) *Individual {
	a := pop[r.IntN(len(pop))]
	if g.cfg.Selection == SelectionRandom {
		return a
	}
	b := pop[r.IntN(len(pop))]
	if g.handler.Compare(b, a) < 0 {
		return b
	}
	return a
}

func (g *GA) crossover(x1, x2 []float64, b Bounds, r *rand.Rand) ([]float64, []float64) {
	c1, c2 := slices.Clone(x1), slices.Clone(x2)
	cx := g.cfg.Crossover
	if r.Float64() >= cx.Prob {
		return c1, c2
	}
	for k := range c1 {
		if b.Binary != nil && b.Binary[k] {
			if r.Float64() < cx.ProbBin {
				c1[k], c2[k] = c2[k], c1[k]
			}
			continue
		}
		if r.Float64() >= cx.ProbVar {
			continue
		}
		lo, hi := b.Lower[k], b.Upper[k]
		if hi-lo <= 0 || math.Abs(c1[k]-c2[k]) <= 1e-14 {
			continue
		}
		y1, y2 := sbx(c1[k], c2[k], lo, hi, cx.Eta, r)
		if r.Float64() < cx.ProbExch {
			y1, y2 = y2, y1
		}
		c1[k], c2[k] = y1, y2
	}
	return c1, c2
}

func (g *GA) mutate(x []float64, b Bounds, r *rand.Rand) {
	m := g.cfg.Mutation
	if r.Float64() >= m.Prob {
		return
	}
	pv := m.ProbVar
	if pv == 0 {
		pv = 1 / float64(len(x))
	}
	for k := range x {
		if r.Float64() >= pv {
			continue
		}
		lo, hi := b.Lower[k], b.Upper[k]
		if hi-lo <= 0 {
			continue
		}
		if b.Binary != nil && b.Binary[k] {
			x[k] = flip(x[k], lo, hi)
			continue
		}
		x[k] = polynomial(x[k], lo, hi, m.Eta, r)
	}
}
