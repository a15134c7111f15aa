package config

import "github.com/kilianp07/vpp/core/model"

// PlantConfig holds the static plant parameters.
type PlantConfig struct {
	model.ParameterSet `json:",squash"`
}

// DefaultPlant returns the reference plant: two biomass units, three solar
// and three wind plants, one battery, two dispatchable and three fixed loads.
func DefaultPlant() model.ParameterSet {
	bm := func(pMin, pMax float64) model.Biomass {
		return model.Biomass{PMin: pMin, PMax: pMax, RampUp: 0.5, RampDown: 0.5, Kappa: 0.85, KappaStart: 20.14, Alpha: 0.85}
	}
	return model.ParameterSet{
		Biomass:   []model.Biomass{bm(0.1, 1.5), bm(0.15, 2.5)},
		Batteries: []model.Battery{{EtaChg: 0.914, EtaDch: 0.914, SocMin: 0.5, SocMax: 0.75, SocInit: 0.5, PMax: 0.75, Kappa: 0.038}},
		KappaPV:   []float64{0.022, 0.022, 0.22},
		KappaWT:   []float64{0.027, 0.027, 0.027},
		Nl:        3,
		Ndl:       2,
	}
}

func (c PlantConfig) empty() bool {
	p := c.ParameterSet
	return len(p.Biomass) == 0 && len(p.Batteries) == 0 && len(p.KappaPV) == 0 &&
		len(p.KappaWT) == 0 && p.Nl == 0 && p.Ndl == 0
}

// SetDefaults uses DefaultPlant when no plant is configured. Otherwise the
// biomass cost slope defaults to the operating cost rate and the initial
// state of charge to the minimum.
func (c *PlantConfig) SetDefaults() {
	if c.empty() {
		c.ParameterSet = DefaultPlant()
		return
	}
	for i := range c.Biomass {
		if c.Biomass[i].Alpha == 0 {
			c.Biomass[i].Alpha = c.Biomass[i].Kappa
		}
	}
	for i := range c.Batteries {
		if c.Batteries[i].SocInit == 0 {
			c.Batteries[i].SocInit = c.Batteries[i].SocMin
		}
	}
}

func (c PlantConfig) Validate() error { return c.ParameterSet.Validate() }
