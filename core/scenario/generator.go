package scenario

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/kilianp07/vpp/core/model"
)

// Distribution tariff levels of a three-period time-of-use tariff.
const (
	TariffOffPeak      = 0.5706
	TariffIntermediate = 0.8802
	TariffPeak         = 1.33333
)

// CurtailmentShare is the fraction of the distribution tariff paid as
// compensation for dispatchable load deviation.
const CurtailmentShare = 0.15

// Generate returns n synthetic hourly scenarios sized for dims. The output
// depends only on seed and the arguments.
func Generate(n int, dims model.Dims, seed uint64) ([]model.Series, error) {
	if err := dims.Validate(); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: scenario count must be positive, got %d", model.ErrConfig, n)
	}
	out := make([]model.Series, n)
	for k := range out {
		rng := rand.New(rand.NewPCG(seed, uint64(k)))
		out[k] = generate(fmt.Sprintf("scenario-%03d", k), dims, rng)
	}
	return out, nil
}

func generate(name string, d model.Dims, rng *rand.Rand) model.Series {
	s := model.Series{
		Name:    name,
		PL:      rows(d.Nl, d.Nt),
		PPV:     rows(d.Npv, d.Nt),
		PWT:     rows(d.Nwt, d.Nt),
		PDlRef:  rows(d.Ndl, d.Nt),
		TauPLD:  make([]float64, d.Nt),
		TauDist: make([]float64, d.Nt),
		TauDL:   make([]float64, d.Nt),
	}
	for j := range s.PPV {
		capacity := 0.8 + 0.2*rng.Float64()
		for t := range s.PPV[j] {
			s.PPV[j][t] = solar(hour(t), capacity, rng)
		}
	}
	for j := range s.PWT {
		phase := 24 * rng.Float64()
		for t := range s.PWT[j] {
			s.PWT[j][t] = wind(hour(t), phase, rng)
		}
	}
	for j := range s.PL {
		scale := 0.8 + 0.4*rng.Float64()
		for t := range s.PL[j] {
			s.PL[j][t] = math.Max(0, scale*load(hour(t))*(1+0.05*rng.NormFloat64()))
		}
	}
	for j := range s.PDlRef {
		for t := range s.PDlRef[j] {
			s.PDlRef[j][t] = 0.2 + 0.1*bell(hour(t), 14, 3)
		}
	}
	for t := 0; t < d.Nt; t++ {
		h := hour(t)
		s.TauPLD[t] = math.Max(0, 0.35+0.1*bell(h, 12, 3)+0.6*bell(h, 19, 1.5)+0.03*rng.NormFloat64())
		s.TauDist[t] = Tariff(h)
		s.TauDL[t] = CurtailmentShare * s.TauDist[t]
	}
	return s
}

func rows(n, nt int) [][]float64 {
	if n == 0 {
		return nil
	}
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, nt)
	}
	return out
}

func hour(t int) float64 { return float64(t % 24) }

func bell(h, centre, width float64) float64 {
	z := (h - centre) / width
	return math.Exp(-z * z / 2)
}

func solar(h, capacity float64, rng *rand.Rand) float64 {
	if h < 6 || h > 18 {
		return 0
	}
	cloud := 0.3 * rng.Float64()
	return capacity * bell(h, 12, 2.5) * (1 - cloud)
}

func wind(h, phase float64, rng *rand.Rand) float64 {
	v := 0.4 + 0.25*math.Sin(2*math.Pi*(h+phase)/24) + 0.1*rng.NormFloat64()
	return math.Min(1, math.Max(0, v))
}

func load(h float64) float64 {
	return 0.3 + 0.25*bell(h, 8, 2) + 0.45*bell(h, 19, 2.5)
}

// Tariff returns the distribution tariff for hour of day h: peak from 18h to
// 21h, intermediate one hour either side of it and off-peak otherwise.
func Tariff(h float64) float64 {
	switch {
	case h >= 18 && h < 21:
		return TariffPeak
	case h >= 16 && h < 18, h >= 21 && h < 22:
		return TariffIntermediate
	default:
		return TariffOffPeak
	}
}
