package config

import (
	"github.com/kilianp07/vpp/core/search"
	"github.com/kilianp07/vpp/core/vpp"
)

// SearchConfig groups the genetic search settings and the run parameters of
// the dispatch problem.
type SearchConfig struct {
	GA      search.Config `json:"ga"`
	Problem vpp.Options   `json:"problem"`
	// LPSeed injects the continuous relaxation into the initial population.
	LPSeed bool `json:"lp_seed"`
}

// SetDefaults fills zero values. Big-M values stay zero so that the
// problem sizes them from its bounds.
func (c *SearchConfig) SetDefaults() {
	c.GA.SetDefaults()
	if c.Problem.StartupMode == "" {
		c.Problem.StartupMode = vpp.DefaultOptions().StartupMode
	}
}

func (c SearchConfig) Validate() error {
	if err := c.GA.Validate(); err != nil {
		return err
	}
	if _, err := vpp.ParseStartupMode(string(c.Problem.StartupMode)); err != nil {
		return err
	}
	return nil
}
