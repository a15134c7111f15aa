package search

import (
	"math"
	"math/rand/v2"
	"testing"
)

func TestSBX_StaysInBounds(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 10000; i++ {
		lo := r.Float64()*10 - 5
		hi := lo + r.Float64()*10 + 1e-6
		y1 := lo + r.Float64()*(hi-lo)
		y2 := lo + r.Float64()*(hi-lo)
		if y1 == y2 {
			continue
		}
		c1, c2 := sbx(y1, y2, lo, hi, 15, r)
		if c1 < lo || c1 > hi || c2 < lo || c2 > hi || math.IsNaN(c1) || math.IsNaN(c2) {
			t.Fatalf("children %v %v outside [%v,%v]", c1, c2, lo, hi)
		}
	}
}

func TestPolynomial_StaysInBounds(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	for i := 0; i < 10000; i++ {
		lo := r.Float64()*10 - 5
		hi := lo + r.Float64()*10
		y := lo + r.Float64()*(hi-lo)
		got := polynomial(y, lo, hi, 20, r)
		if got < lo || got > hi || math.IsNaN(got) {
			t.Fatalf("mutant %v outside [%v,%v]", got, lo, hi)
		}
	}
	if got := polynomial(2, 2, 2, 20, r); got != 2 {
		t.Fatalf("degenerate range must return the bound, got %v", got)
	}
}

func TestFlip_InvertsThreshold(t *testing.T) {
	for _, y := range []float64{0, 0.2, 0.49, 0.51, 0.8, 1} {
		before := y > 0.5
		after := flip(y, 0, 1) > 0.5
		if before == after {
			t.Fatalf("flip(%v) = %v did not invert", y, flip(y, 0, 1))
		}
	}
}

func TestSampleLHS_Strata(t *testing.T) {
	n, dim := 16, 5
	b := Bounds{Lower: make([]float64, dim), Upper: make([]float64, dim)}
	for k := range b.Upper {
		b.Lower[k] = -1
		b.Upper[k] = float64(k + 1)
	}
	xs := sampleLHS(n, b, NewStreams(11))
	for k := 0; k < dim; k++ {
		used := make([]bool, n)
		width := b.Upper[k] - b.Lower[k]
		for _, x := range xs {
			s := int((x[k] - b.Lower[k]) / width * float64(n))
			if s < 0 || s >= n || used[s] {
				t.Fatalf("gene %d: stratum %d reused or out of range", k, s)
			}
			used[s] = true
		}
	}
}

func TestSampleUniform_InBounds(t *testing.T) {
	b := Bounds{Lower: []float64{-2, 0, 5}, Upper: []float64{2, 0, 6}}
	r := rand.New(rand.NewPCG(5, 6))
	for i := 0; i < 1000; i++ {
		x := sampleUniform(b, r)
		for k := range x {
			if x[k] < b.Lower[k] || x[k] > b.Upper[k] {
				t.Fatalf("gene %d = %v outside bounds", k, x[k])
			}
		}
	}
}

func TestFingerprint(t *testing.T) {
	mask := []bool{false, true}
	if fingerprint([]float64{0.1, 0.7}, mask) != fingerprint([]float64{0.1, 0.9}, mask) {
		t.Fatal("binary genes that decode alike must collide")
	}
	if fingerprint([]float64{0.1, 0.7}, mask) == fingerprint([]float64{0.1, 0.3}, mask) {
		t.Fatal("different binary decisions must not collide")
	}
	if fingerprint([]float64{0.1, 0.7}, mask) == fingerprint([]float64{0.2, 0.7}, mask) {
		t.Fatal("different real genes must not collide")
	}
	if fingerprint([]float64{0.7}, nil) == fingerprint([]float64{0.9}, nil) {
		t.Fatal("without a mask every gene is real")
	}
}

func TestBoundsClamp(t *testing.T) {
	b := Bounds{Lower: []float64{0, -1}, Upper: []float64{1, 1}}
	x := []float64{3, -4}
	b.Clamp(x)
	if x[0] != 1 || x[1] != -1 {
		t.Fatalf("clamp got %v", x)
	}
}
