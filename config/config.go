package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/vpp/core/metrics"
	"github.com/kilianp07/vpp/core/model"
)

type Config struct {
	Run     RunConfig      `json:"run"`
	Plant   PlantConfig    `json:"plant"`
	Search  SearchConfig   `json:"search"`
	Metrics metrics.Config `json:"metrics"`
	MQTT    MQTTConfig     `json:"mqtt"`
	Logging LoggingConfig  `json:"logging"`
	API     APIConfig      `json:"api"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// zeroDefaults are settings for which zero is a valid choice. They are
// defaulted only when the key is absent. Order matters: the problem
// tolerance follows the search tolerance.
var zeroDefaults = []struct {
	key string
	set func(*Config)
}{
	{"run.delta", func(c *Config) { c.Run.Delta = 0.2 }},
	{"run.generator_seed", func(c *Config) { c.Run.GeneratorSeed = 1 }},
	{"search.ga.seed", func(c *Config) { c.Search.GA.Seed = 1 }},
	{"search.ga.equality_tolerance", func(c *Config) { c.Search.GA.EqualityTolerance = 1e-4 }},
	{"search.problem.equality_tolerance", func(c *Config) {
		c.Search.Problem.EqualityTolerance = c.Search.GA.EqualityTolerance
	}},
}

// Default returns a configuration with every section defaulted.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	for _, d := range zeroDefaults {
		d.set(&cfg)
	}
	return &cfg
}

// Load reads path, applies K_ environment overrides, defaults and
// validates. K_SEARCH__GA__GENERATIONS=50 overrides search.ga.generations.
// Keys set to zero explicitly keep their zero value.
// An empty path loads defaults and environment overrides only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	for _, d := range zeroDefaults {
		if !k.Exists(d.key) {
			d.set(&cfg)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills zero values of every section.
func (c *Config) SetDefaults() {
	c.Run.SetDefaults()
	c.Plant.SetDefaults()
	c.Search.SetDefaults()
	c.MQTT.SetDefaults()
	c.Logging.SetDefaults()
	c.API.SetDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"run", c.Run.Validate},
		{"plant", c.Plant.Validate},
		{"search", c.Search.Validate},
		{"mqtt", c.MQTT.Validate},
		{"logging", c.Logging.Validate},
		{"api", c.API.Validate},
	}
	for _, ch := range checks {
		if err := ch.fn(); err != nil {
			return fmt.Errorf("%s: %w", ch.name, err)
		}
	}
	return nil
}

// structErr validates v with struct tags and wraps failures as
// configuration errors.
func structErr(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", model.ErrConfig, err)
	}
	return nil
}
