package vpp

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/kilianp07/vpp/core/model"
)

func TestObjective_Linearity(t *testing.T) {
	p := testPlant()
	prob := testProblem(t, p, 4)
	l := prob.Layout()
	sc := prob.Scenario()
	r := rand.New(rand.NewPCG(42, 1))
	base, err := l.Decode(randomVector(prob, r))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	f0 := prob.obj.Profit(base)

	cases := []struct {
		name  string
		block func(v *Variables) model.Block
		i, t  int
		slope float64
	}{
		{"p_exp", func(v *Variables) model.Block { return v.PExp }, 0, 2, sc.TauPLD[2]},
		{"p_imp", func(v *Variables) model.Block { return v.PImp }, 0, 1, -sc.TauDist[1]},
		{"gamma_bm", func(v *Variables) model.Block { return v.GammaBm }, 1, 3, -p.Biomass[1].Kappa},
		{"p_dl", func(v *Variables) model.Block { return v.PDl }, 0, 0, -sc.TauDL[0]},
		{"p_chg", func(v *Variables) model.Block { return v.PChg }, 0, 0, -p.Batteries[0].Kappa},
		{"p_dch", func(v *Variables) model.Block { return v.PDch }, 0, 3, p.Batteries[0].Kappa},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, delta := range []float64{0.1, 1, 7.5} {
				v := base.Clone()
				b := tc.block(v)
				b.Set(tc.i, tc.t, b.At(tc.i, tc.t)+delta)
				got := prob.obj.Profit(v) - f0
				if math.Abs(got-tc.slope*delta) > 1e-9 {
					t.Fatalf("delta %v: profit changed by %v want %v", delta, got, tc.slope*delta)
				}
			}
		})
	}
}

func TestObjective_ConstantCommitmentHasNoStartupCost(t *testing.T) {
	prob := testProblem(t, testPlant(), 6)
	for _, on := range []float64{0, 1} {
		v := prob.Layout().NewVariables()
		for k := range v.UBm.Data {
			v.UBm.Data[k] = on
		}
		if got := prob.obj.Breakdown(v).Startup; got != 0 {
			t.Fatalf("u_bm=%v: startup cost %v", on, got)
		}
	}
}

func TestObjective_StartupModes(t *testing.T) {
	p := testPlant()
	sc := testScenario(t, p, 4)
	l, _ := NewLayout(p.Dims(4))
	v := l.NewVariables()
	// unit 0: off, on, off, on
	for tt, u := range []float64{0, 1, 0, 1} {
		v.UBm.Set(0, tt, u)
	}
	ks := p.Biomass[0].KappaStart
	signed := NewObjectiveEvaluator(p, sc, l, StartupSigned).Breakdown(v).Startup
	if math.Abs(signed-ks) > 1e-12 {
		t.Fatalf("signed startup cost %v want %v", signed, ks)
	}
	only := NewObjectiveEvaluator(p, sc, l, StartupOnly).Breakdown(v).Startup
	if math.Abs(only-2*ks) > 1e-12 {
		t.Fatalf("startup-only cost %v want %v", only, 2*ks)
	}
}

func TestObjective_ZeroTariffs(t *testing.T) {
	p := testPlant()
	for i := range p.Biomass {
		p.Biomass[i].Kappa, p.Biomass[i].KappaStart = 0, 0
	}
	p.Batteries[0].Kappa = 0
	p.KappaPV = []float64{0, 0, 0}
	p.KappaWT = []float64{0, 0, 0}
	s := testSeries(p, 3)
	s.TauPLD = constSeries(3, 0)
	s.TauDist = constSeries(3, 0)
	s.TauDL = constSeries(3, 0)
	sc, err := model.NewScenarioContext(s, p.Dims(3), 0.2)
	if err != nil {
		t.Fatalf("scenario: %v", err)
	}
	prob, err := NewProblem(p, sc, DefaultOptions())
	if err != nil {
		t.Fatalf("problem: %v", err)
	}
	r := rand.New(rand.NewPCG(9, 9))
	for trial := 0; trial < 10; trial++ {
		ev, err := prob.Evaluate(randomVector(prob, r))
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if ev.Objective != 0 || math.IsNaN(ev.Objective) {
			t.Fatalf("objective %v want 0", ev.Objective)
		}
	}
}

func TestObjective_MustTakeCosts(t *testing.T) {
	p := testPlant()
	prob := testProblem(t, p, 2)
	br := prob.obj.Breakdown(prob.Layout().NewVariables())
	// three plants at 0.3 over two steps
	wantSolar := (0.022 + 0.022 + 0.22) * 0.3 * 2
	wantWind := 0.027 * 3 * 0.2 * 2
	if math.Abs(br.Solar-wantSolar) > 1e-12 || math.Abs(br.Wind-wantWind) > 1e-12 {
		t.Fatalf("solar %v wind %v want %v %v", br.Solar, br.Wind, wantSolar, wantWind)
	}
	if math.Abs(br.Profit()+wantSolar+wantWind) > 1e-12 {
		t.Fatalf("idle profit %v", br.Profit())
	}
}

func TestParseStartupMode(t *testing.T) {
	for in, want := range map[string]StartupMode{"": StartupSigned, "signed": StartupSigned, "startup_only": StartupOnly} {
		got, err := ParseStartupMode(in)
		if err != nil || got != want {
			t.Fatalf("%q: got %q, %v", in, got, err)
		}
	}
	if _, err := ParseStartupMode("both"); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}
