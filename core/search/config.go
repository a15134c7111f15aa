package search

import (
	"fmt"
	"runtime"

	"github.com/go-playground/validator/v10"

	"github.com/kilianp07/vpp/core/model"
)

// Sampling strategies.
const (
	SamplingUniform = "uniform"
	SamplingLHS     = "lhs"
)

// Selection strategies.
const (
	SelectionTournament = "tournament"
	SelectionRandom     = "random"
)

// Constraint handling strategies.
const (
	HandlerFeasibility = "feasibility"
	HandlerPenalty     = "penalty"
)

// CrossoverConfig parameterises simulated binary crossover for real genes
// and uniform crossover for binary genes.
type CrossoverConfig struct {
	Prob     float64 `json:"prob" validate:"gte=0,lte=1"`      // per mating
	ProbVar  float64 `json:"prob_var" validate:"gte=0,lte=1"`  // per real gene
	Eta      float64 `json:"eta" validate:"gt=0"`              // distribution index
	ProbExch float64 `json:"prob_exch" validate:"gte=0,lte=1"` // children swap a crossed gene
	ProbBin  float64 `json:"prob_bin" validate:"gte=0,lte=1"`  // binary gene swap
}

// MutationConfig parameterises polynomial mutation for real genes and bit
// flips for binary genes.
type MutationConfig struct {
	Prob    float64 `json:"prob" validate:"gte=0,lte=1"`     // per offspring
	ProbVar float64 `json:"prob_var" validate:"gte=0,lte=1"` // per gene, 0 means 1/dim
	Eta     float64 `json:"eta" validate:"gt=0"`
}

// Config holds the search settings.
type Config struct {
	PopulationSize      int             `json:"population_size" validate:"gt=0"`
	Generations         int             `json:"generations" validate:"gt=0"`
	Seed                int64           `json:"seed"`
	Workers             int             `json:"workers" validate:"gte=0"`
	Sampling            string          `json:"sampling" validate:"oneof=uniform lhs"`
	Selection           string          `json:"selection" validate:"oneof=tournament random"`
	Crossover           CrossoverConfig `json:"crossover"`
	Mutation            MutationConfig  `json:"mutation"`
	ConstraintHandling  string          `json:"constraint_handling" validate:"oneof=feasibility penalty"`
	PenaltyWeight       float64         `json:"penalty_weight" validate:"gte=0"`
	EqualityTolerance   float64         `json:"equality_tolerance" validate:"gte=0"`
	EliminateDuplicates *bool           `json:"eliminate_duplicates,omitempty"`
	// Patience stops the run after that many generations without
	// improvement of the best candidate. Zero disables the rule.
	Patience int `json:"patience" validate:"gte=0"`
}

// DefaultConfig returns the reference settings: 250 individuals over 200
// generations with seed 1 and an equality tolerance of 1e-4.
func DefaultConfig() Config {
	var c Config
	c.SetDefaults()
	c.Seed = 1
	c.EqualityTolerance = 1e-4
	return c
}

// SetDefaults fills zero values of the settings for which zero is not a
// usable value. Seed and EqualityTolerance are left as given.
func (c *Config) SetDefaults() {
	if c.PopulationSize == 0 {
		c.PopulationSize = 250
	}
	if c.Generations == 0 {
		c.Generations = 200
	}
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Sampling == "" {
		c.Sampling = SamplingUniform
	}
	if c.Selection == "" {
		c.Selection = SelectionTournament
	}
	if c.Crossover == (CrossoverConfig{}) {
		c.Crossover = CrossoverConfig{Prob: 0.9, ProbVar: 0.75, Eta: 15, ProbExch: 0.9, ProbBin: 0.35}
	}
	if c.Mutation == (MutationConfig{}) {
		c.Mutation = MutationConfig{Prob: 0.15, Eta: 20}
	}
	if c.ConstraintHandling == "" {
		c.ConstraintHandling = HandlerFeasibility
	}
	if c.PenaltyWeight == 0 {
		c.PenaltyWeight = 100
	}
	if c.EliminateDuplicates == nil {
		t := true
		c.EliminateDuplicates = &t
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks ranges and enum values against the struct tags.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", model.ErrConfig, err)
	}
	return nil
}

func (c Config) dedup() bool { return c.EliminateDuplicates == nil || *c.EliminateDuplicates }
