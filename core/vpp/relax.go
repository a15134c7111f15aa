package vpp

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// ErrRelaxation is returned when the continuous relaxation cannot be
// built or solved.
var ErrRelaxation = errors.New("lp relaxation failed")

// lpSolve points to the function used to solve the LP. It can be
// overridden in tests to simulate solver failures.
var lpSolve = func(c []float64, a mat.Matrix, b []float64) ([]float64, error) {
	_, x, err := lp.Simplex(c, a, b, 1e-7, nil)
	return x, err
}

// Relax solves the continuous relaxation of the dispatch problem: binary
// genes range over [0,1] and every constraint must hold exactly. The
// solution is meant to seed a search. Residuals and profit are affine in
// the decision vector, so their coefficients are recovered by probing
// unit vectors. Only the signed startup mode keeps the objective affine.
func (p *Problem) Relax() ([]float64, error) {
	if p.opts.StartupMode != StartupSigned {
		return nil, fmt.Errorf("%w: startup mode %q is not linear", ErrRelaxation, p.opts.StartupMode)
	}
	n := p.layout.Len()
	probe := func(x []float64) (eq, ieq []float64, profit float64, err error) {
		v, err := p.layout.DecodeRaw(x)
		if err != nil {
			return nil, nil, 0, err
		}
		r := p.cons.Evaluate(v)
		return r.Equality(), r.Inequality(), p.obj.Profit(v), nil
	}

	x := make([]float64, n)
	eq0, ieq0, profit0, err := probe(x)
	if err != nil {
		return nil, err
	}
	me, mg := len(eq0), len(ieq0)
	// A x + eq0 = 0 and G x + ieq0 <= 0, columns filled by probing
	a := mat.NewDense(max(me, 1), n, nil)
	g := mat.NewDense(max(mg, 1), n, nil)
	c := make([]float64, n)
	for k := 0; k < n; k++ {
		x[k] = 1
		eq, ieq, profit, err := probe(x)
		x[k] = 0
		if err != nil {
			return nil, err
		}
		for i := range eq {
			a.Set(i, k, eq[i]-eq0[i])
		}
		for i := range ieq {
			g.Set(i, k, ieq[i]-ieq0[i])
		}
		// minimise the negated profit
		c[k] = -(profit - profit0)
	}

	// Standard form over y = x - lower >= 0 with columns [y | s | t]:
	//   A y         = -eq0 - A lower
	//   G y + s     = -ieq0 - G lower
	//   y       + t = upper - lower
	rows := me + mg + n
	cols := n + mg + n
	std := mat.NewDense(rows, cols, nil)
	b := make([]float64, rows)
	cStd := make([]float64, cols)
	copy(cStd, c)
	lower := p.lower
	for i := 0; i < me; i++ {
		rhs := -eq0[i]
		for k := 0; k < n; k++ {
			v := a.At(i, k)
			std.Set(i, k, v)
			rhs -= v * lower[k]
		}
		b[i] = rhs
	}
	for i := 0; i < mg; i++ {
		row := me + i
		rhs := -ieq0[i]
		for k := 0; k < n; k++ {
			v := g.At(i, k)
			std.Set(row, k, v)
			rhs -= v * lower[k]
		}
		std.Set(row, n+i, 1)
		b[row] = rhs
	}
	for k := 0; k < n; k++ {
		row := me + mg + k
		std.Set(row, k, 1)
		std.Set(row, n+mg+k, 1)
		b[row] = p.upper[k] - lower[k]
	}

	sol, err := lpSolve(cStd, std, b)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRelaxation, err)
	}
	out := make([]float64, n)
	for k := range out {
		out[k] = clampTo(lower[k]+sol[k], lower[k], p.upper[k])
	}
	return out, nil
}

func clampTo(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
