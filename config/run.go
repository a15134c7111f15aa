package config

// RunConfig selects the scenario and horizon of an optimisation.
type RunConfig struct {
	// Nt is the horizon in time steps. Longer scenarios are windowed from
	// Start.
	Nt    int `json:"nt" validate:"gt=0"`
	Start int `json:"start" validate:"gte=0"`
	// Scenario is a JSON or YAML scenario file. When empty a synthetic
	// scenario is generated from GeneratorSeed.
	Scenario      string `json:"scenario"`
	ScenarioName  string `json:"scenario_name"`
	ScenarioIndex int    `json:"scenario_index" validate:"gte=0"`
	GeneratorSeed uint64 `json:"generator_seed"`
	// Capacity multipliers applied to the scenario series.
	CapPV   float64 `json:"cap_pv" validate:"gte=0"`
	CapWT   float64 `json:"cap_wt" validate:"gte=0"`
	CapLoad float64 `json:"cap_load" validate:"gte=0"`
	// Delta is the relative dispatchable-load band around the reference.
	Delta float64 `json:"delta" validate:"gte=0,lte=1"`
	// Output directory for the JSON and CSV schedules.
	Output string `json:"output"`
}

// SetDefaults applies a 24 step day with unit capacities. Delta and
// GeneratorSeed are meaningful at zero and default only when absent.
func (c *RunConfig) SetDefaults() {
	if c.Nt == 0 {
		c.Nt = 24
	}
	if c.CapPV == 0 {
		c.CapPV = 1
	}
	if c.CapWT == 0 {
		c.CapWT = 1
	}
	if c.CapLoad == 0 {
		c.CapLoad = 1
	}
}

func (c RunConfig) Validate() error { return structErr(c) }
