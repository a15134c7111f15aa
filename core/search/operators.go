package search

import (
	"encoding/binary"
	"math"
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"
)

// sampleUniform draws one gene vector uniformly inside the box.
func sampleUniform(b Bounds, r *rand.Rand) []float64 {
	x := make([]float64, b.Dim())
	for k := range x {
		x[k] = b.Lower[k] + r.Float64()*(b.Upper[k]-b.Lower[k])
	}
	return x
}

// sampleLHS draws n vectors by Latin hypercube sampling: every gene range
// is split into n strata and each stratum is used exactly once.
func sampleLHS(n int, b Bounds, rs Streams) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, b.Dim())
	}
	for k := 0; k < b.Dim(); k++ {
		r := rs.At(0, k)
		perm := r.Perm(n)
		width := b.Upper[k] - b.Lower[k]
		for i := range out {
			out[i][k] = b.Lower[k] + (float64(perm[i])+r.Float64())/float64(n)*width
		}
	}
	return out
}

// sbx applies bounded simulated binary crossover to a pair of real genes.
func sbx(y1, y2, lo, hi, eta float64, r *rand.Rand) (float64, float64) {
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	d := y2 - y1
	u := r.Float64()

	beta := 1 + 2*(y1-lo)/d
	alpha := 2 - math.Pow(beta, -(eta+1))
	c1 := 0.5 * ((y1 + y2) - betaQ(u, alpha, eta)*d)

	beta = 1 + 2*(hi-y2)/d
	alpha = 2 - math.Pow(beta, -(eta+1))
	c2 := 0.5 * ((y1 + y2) + betaQ(u, alpha, eta)*d)

	return clamp(c1, lo, hi), clamp(c2, lo, hi)
}

func betaQ(u, alpha, eta float64) float64 {
	if u <= 1/alpha {
		return math.Pow(u*alpha, 1/(eta+1))
	}
	return math.Pow(1/(2-u*alpha), 1/(eta+1))
}

// polynomial applies bounded polynomial mutation to one real gene.
func polynomial(y, lo, hi, eta float64, r *rand.Rand) float64 {
	d := hi - lo
	if d <= 0 {
		return lo
	}
	d1, d2 := (y-lo)/d, (hi-y)/d
	u := r.Float64()
	mp := 1 / (eta + 1)
	var dq float64
	if u < 0.5 {
		val := 2*u + (1-2*u)*math.Pow(1-d1, eta+1)
		dq = math.Pow(val, mp) - 1
	} else {
		val := 2*(1-u) + 2*(u-0.5)*math.Pow(1-d2, eta+1)
		dq = 1 - math.Pow(val, mp)
	}
	return clamp(y+dq*d, lo, hi)
}

// flip mirrors a continuous binary gene around 0.5, which inverts its
// thresholded value.
func flip(y, lo, hi float64) float64 {
	return clamp(lo+hi-y, lo, hi)
}

// fingerprint hashes a gene vector with binary genes thresholded, so
// candidates that decode identically collide.
func fingerprint(x []float64, mask []bool) uint64 {
	h := xxhash.New()
	var buf [8]byte
	for k, v := range x {
		if k < len(mask) && mask[k] {
			if v > 0.5 {
				v = 1
			} else {
				v = 0
			}
		}
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
