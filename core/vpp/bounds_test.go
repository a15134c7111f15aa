package vpp

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/kilianp07/vpp/core/model"
)

func TestBounds_Valid(t *testing.T) {
	p := testPlant()
	for _, nt := range []int{1, 2, 24} {
		sc := testScenario(t, p, nt)
		l, _ := NewLayout(p.Dims(nt))
		lo, hi, err := Bounds(p, sc, l)
		if err != nil {
			t.Fatalf("nt=%d: %v", nt, err)
		}
		if len(lo) != l.Len() || len(hi) != l.Len() {
			t.Fatalf("nt=%d: bounds length %d/%d want %d", nt, len(lo), len(hi), l.Len())
		}
		for k := range lo {
			if lo[k] > hi[k] {
				name, i, tt := l.Locate(k)
				t.Fatalf("nt=%d: %s[%d,%d] inverted", nt, name, i, tt)
			}
		}
	}
}

func TestBounds_Values(t *testing.T) {
	p := testPlant()
	sc := testScenario(t, p, 4)
	l, _ := NewLayout(p.Dims(4))
	lo, hi, err := Bounds(p, sc, l)
	if err != nil {
		t.Fatalf("bounds: %v", err)
	}
	// PV 3*0.3 + WT 3*0.2 + soc_max 0.75 + p_bm_max 2.5
	if got := hi[l.PExp.Index(0, 2)]; math.Abs(got-4.75) > 1e-12 {
		t.Fatalf("export upper %v", got)
	}
	// load 3*0.8 - soc_min 0.5
	if got := hi[l.PImp.Index(0, 2)]; math.Abs(got-1.9) > 1e-12 {
		t.Fatalf("import upper %v", got)
	}
	k := l.GammaBm.Index(1, 0)
	if lo[k] != 0.15*0.85 || hi[k] != 2.5*0.85 {
		t.Fatalf("gamma_bm bounds [%v,%v]", lo[k], hi[k])
	}
	k = l.Soc.Index(0, 0)
	if lo[k] != 0.5 || hi[k] != 0.5 {
		t.Fatalf("soc[0,0] must be pinned, got [%v,%v]", lo[k], hi[k])
	}
	k = l.Soc.Index(0, 1)
	if lo[k] != 0.5 || hi[k] != 0.75 {
		t.Fatalf("soc[0,1] bounds [%v,%v]", lo[k], hi[k])
	}
	k = l.PDl.Index(1, 3)
	if math.Abs(lo[k]-0.32) > 1e-12 || math.Abs(hi[k]-0.48) > 1e-12 {
		t.Fatalf("p_dl bounds [%v,%v]", lo[k], hi[k])
	}
	for k := l.Nr; k < l.Len(); k++ {
		if lo[k] != 0 || hi[k] != 1 {
			t.Fatalf("binary gene %d bounds [%v,%v]", k, lo[k], hi[k])
		}
	}
}

func TestBounds_ImportInverted(t *testing.T) {
	p := testPlant()
	s := testSeries(p, 3)
	s.PL = constRows(3, 3, 0.1)
	sc, err := model.NewScenarioContext(s, p.Dims(3), 0.2)
	if err != nil {
		t.Fatalf("scenario: %v", err)
	}
	l, _ := NewLayout(p.Dims(3))
	_, _, err = Bounds(p, sc, l)
	if !errors.Is(err, ErrConfig) || !strings.Contains(err.Error(), "p_imp[0,0]") {
		t.Fatalf("load below soc_min must invert p_imp, got %v", err)
	}
}

func TestBounds_ImportWithoutBattery(t *testing.T) {
	p := testPlant()
	p.Batteries = nil
	s := testSeries(p, 2)
	s.PL = constRows(3, 2, 0.1)
	sc, err := model.NewScenarioContext(s, p.Dims(2), 0.2)
	if err != nil {
		t.Fatalf("scenario: %v", err)
	}
	l, _ := NewLayout(p.Dims(2))
	_, hi, err := Bounds(p, sc, l)
	if err != nil {
		t.Fatalf("bounds: %v", err)
	}
	if got := hi[l.PImp.Index(0, 1)]; math.Abs(got-0.3) > 1e-12 {
		t.Fatalf("import upper %v want 0.3", got)
	}
}

func TestBounds_InvertedSoc(t *testing.T) {
	p := testPlant()
	p.Batteries[0].SocMin, p.Batteries[0].SocMax = 0.8, 0.6
	p.Batteries[0].SocInit = 0.7
	sc := testScenario(t, p, 4)
	l, _ := NewLayout(p.Dims(4))
	_, _, err := Bounds(p, sc, l)
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
	if !strings.Contains(err.Error(), "soc") {
		t.Fatalf("error should name the soc block: %v", err)
	}
}

func TestBounds_InvertedBiomass(t *testing.T) {
	p := testPlant()
	p.Biomass[1].PMin, p.Biomass[1].PMax = 3, 2
	sc := testScenario(t, p, 2)
	l, _ := NewLayout(p.Dims(2))
	_, _, err := Bounds(p, sc, l)
	if !errors.Is(err, ErrConfig) || !strings.Contains(err.Error(), "p_bm[1,0]") {
		t.Fatalf("expected config error naming p_bm[1,0], got %v", err)
	}
}

func TestBounds_ShapeMismatch(t *testing.T) {
	p := testPlant()
	sc := testScenario(t, p, 4)
	l, _ := NewLayout(p.Dims(5))
	if _, _, err := Bounds(p, sc, l); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}
