package model

import (
	"fmt"
	"math"
)

// Biomass describes a controllable thermal unit.
type Biomass struct {
	PMin       float64 `json:"p_min"`       // minimum output when on (MW)
	PMax       float64 `json:"p_max"`       // maximum output (MW)
	RampUp     float64 `json:"ramp_up"`     // max increase between steps (MW)
	RampDown   float64 `json:"ramp_down"`   // max decrease between steps (MW)
	Kappa      float64 `json:"kappa"`       // operating cost rate
	KappaStart float64 `json:"kappa_start"` // start-up cost rate
	// Alpha and Beta define the cost epigraph alpha*p + beta <= gamma.
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
}

// Battery describes a storage unit.
type Battery struct {
	EtaChg  float64 `json:"eta_chg"`  // charge efficiency in (0,1]
	EtaDch  float64 `json:"eta_dch"`  // discharge efficiency in (0,1]
	SocMin  float64 `json:"soc_min"`  // minimum stored energy
	SocMax  float64 `json:"soc_max"`  // maximum stored energy
	SocInit float64 `json:"soc_init"` // stored energy at t=0
	PMax    float64 `json:"p_max"`    // charge/discharge power limit
	Kappa   float64 `json:"kappa"`    // operating cost rate
}

// ParameterSet holds the static technical and economic data of the plant.
// It is read-only for the lifetime of a run; NewParameterSet copies every
// slice so later changes by the caller do not leak in.
type ParameterSet struct {
	Biomass   []Biomass `json:"biomass"`
	Batteries []Battery `json:"batteries"`
	KappaPV   []float64 `json:"kappa_pv"` // one rate per solar plant
	KappaWT   []float64 `json:"kappa_wt"` // one rate per wind plant
	Nl        int       `json:"nl"`
	Ndl       int       `json:"ndl"`
}

// NewParameterSet validates p and returns an independent copy.
func NewParameterSet(p ParameterSet) (ParameterSet, error) {
	if err := p.Validate(); err != nil {
		return ParameterSet{}, err
	}
	out := ParameterSet{
		Biomass:   append([]Biomass(nil), p.Biomass...),
		Batteries: append([]Battery(nil), p.Batteries...),
		KappaPV:   append([]float64(nil), p.KappaPV...),
		KappaWT:   append([]float64(nil), p.KappaWT...),
		Nl:        p.Nl,
		Ndl:       p.Ndl,
	}
	return out, nil
}

// Dims returns the problem dimensions for a horizon of nt steps.
func (p ParameterSet) Dims(nt int) Dims {
	return Dims{
		Nt:   nt,
		Nbm:  len(p.Biomass),
		Npv:  len(p.KappaPV),
		Nwt:  len(p.KappaWT),
		Nbat: len(p.Batteries),
		Ndl:  p.Ndl,
		Nl:   p.Nl,
	}
}

// Validate checks value ranges. Ordering of min/max pairs is left to the
// bounds derivation, which reports the offending decision variable.
func (p ParameterSet) Validate() error {
	if p.Nl < 0 || p.Ndl < 0 {
		return fmt.Errorf("%w: load counts must not be negative", ErrConfig)
	}
	for i, b := range p.Biomass {
		vals := map[string]float64{
			"p_min": b.PMin, "p_max": b.PMax, "ramp_up": b.RampUp, "ramp_down": b.RampDown,
			"kappa": b.Kappa, "kappa_start": b.KappaStart, "alpha": b.Alpha, "beta": b.Beta,
		}
		for name, v := range vals {
			if !finite(v) {
				return fmt.Errorf("%w: biomass[%d].%s is not finite", ErrConfig, i, name)
			}
		}
		if b.PMin < 0 || b.RampUp < 0 || b.RampDown < 0 {
			return fmt.Errorf("%w: biomass[%d] limits must not be negative", ErrConfig, i)
		}
	}
	for i, b := range p.Batteries {
		if !finite(b.EtaChg) || b.EtaChg <= 0 || b.EtaChg > 1 {
			return fmt.Errorf("%w: batteries[%d].eta_chg=%v outside (0,1]", ErrConfig, i, b.EtaChg)
		}
		if !finite(b.EtaDch) || b.EtaDch <= 0 || b.EtaDch > 1 {
			return fmt.Errorf("%w: batteries[%d].eta_dch=%v outside (0,1]", ErrConfig, i, b.EtaDch)
		}
		for name, v := range map[string]float64{"soc_min": b.SocMin, "soc_max": b.SocMax, "soc_init": b.SocInit, "p_max": b.PMax, "kappa": b.Kappa} {
			if !finite(v) {
				return fmt.Errorf("%w: batteries[%d].%s is not finite", ErrConfig, i, name)
			}
		}
		if b.PMax < 0 {
			return fmt.Errorf("%w: batteries[%d].p_max must not be negative", ErrConfig, i)
		}
		if b.SocInit < b.SocMin || b.SocInit > b.SocMax {
			return fmt.Errorf("%w: batteries[%d].soc_init=%v outside [%v,%v]", ErrConfig, i, b.SocInit, b.SocMin, b.SocMax)
		}
	}
	for i, k := range p.KappaPV {
		if !finite(k) {
			return fmt.Errorf("%w: kappa_pv[%d] is not finite", ErrConfig, i)
		}
	}
	for i, k := range p.KappaWT {
		if !finite(k) {
			return fmt.Errorf("%w: kappa_wt[%d] is not finite", ErrConfig, i)
		}
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
