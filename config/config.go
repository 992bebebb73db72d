// Package config loads the training and serving configuration from YAML.
package config

import (
	"os"

	"github.com/pkg/errors"
	"github.com/zeu5/evo-rl-tuning/evo"
	"github.com/zeu5/evo-rl-tuning/evoenv"
	"github.com/zeu5/evo-rl-tuning/logging"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate and Load
var ErrInvalidConfig = errors.New("invalid config")

// EnvironmentConfig overrides the environment wiring, zero values keep the
// defaults
type EnvironmentConfig struct {
	PopulationSize   int     `yaml:"population_size"`
	Dimension        int     `yaml:"dimension"`
	MinValue         float64 `yaml:"min_value"`
	MaxValue         float64 `yaml:"max_value"`
	MutationStrength float64 `yaml:"mutation_strength"`
	EliteSize        int     `yaml:"elite_size"`
	Generations      int     `yaml:"generations"`
}

// TrainConfig configures the train and serve commands
type TrainConfig struct {
	Runs     int `yaml:"runs"`
	Episodes int `yaml:"episodes"`
	Horizon  int `yaml:"horizon"`
	MaxSteps int `yaml:"max_steps"`

	Alpha       float64 `yaml:"alpha"`
	Gamma       float64 `yaml:"gamma"`
	Epsilon     float64 `yaml:"epsilon"`
	Temperature float64 `yaml:"temperature"`

	Seed      *uint64 `yaml:"seed"`
	Objective string  `yaml:"objective"`

	Environment EnvironmentConfig `yaml:"environment"`

	RecordPath   string `yaml:"record_path"`
	RecordPolicy bool   `yaml:"record_policy"`
	RecordTraces bool   `yaml:"record_traces"`
	RedisAddr    string `yaml:"redis_addr"`
	RedisKey     string `yaml:"redis_key"`

	LogLevel   string `yaml:"log_level"`
	ListenAddr string `yaml:"listen_addr"`
}

// Default returns the configuration the experiments were originally run with
func Default() *TrainConfig {
	return &TrainConfig{
		Runs:        1,
		Episodes:    50,
		Horizon:     5,
		MaxSteps:    20,
		Alpha:       0.8,
		Gamma:       0.9,
		Epsilon:     0.1,
		Temperature: 1,
		Objective:   "schwefel",
		RecordPath:  "results",
		RedisKey:    "evo-rl:episodes",
		LogLevel:    "info",
		ListenAddr:  "localhost:8080",
	}
}

// Load reads the YAML file at path on top of the defaults
func Load(path string) (*TrainConfig, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	return Parse(bs)
}

// Parse decodes YAML bytes on top of the defaults and validates the result
func Parse(data []byte) (*TrainConfig, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(ErrInvalidConfig, "parsing yaml: %s", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *TrainConfig) Validate() error {
	switch {
	case c.Runs < 1:
		return errors.Wrapf(ErrInvalidConfig, "runs %d", c.Runs)
	case c.Episodes < 1:
		return errors.Wrapf(ErrInvalidConfig, "episodes %d", c.Episodes)
	case c.Horizon < 1:
		return errors.Wrapf(ErrInvalidConfig, "horizon %d", c.Horizon)
	case c.MaxSteps < 1:
		return errors.Wrapf(ErrInvalidConfig, "max_steps %d", c.MaxSteps)
	case c.Alpha <= 0 || c.Alpha > 1:
		return errors.Wrapf(ErrInvalidConfig, "alpha %v not in (0, 1]", c.Alpha)
	case c.Gamma < 0 || c.Gamma > 1:
		return errors.Wrapf(ErrInvalidConfig, "gamma %v not in [0, 1]", c.Gamma)
	case c.Epsilon < 0 || c.Epsilon > 1:
		return errors.Wrapf(ErrInvalidConfig, "epsilon %v not in [0, 1]", c.Epsilon)
	case c.Temperature <= 0:
		return errors.Wrapf(ErrInvalidConfig, "temperature %v", c.Temperature)
	case !logging.Valid(c.LogLevel):
		return errors.Wrapf(ErrInvalidConfig, "log_level %q", c.LogLevel)
	}
	if _, err := evo.ObjectiveByName(c.Objective); err != nil {
		return errors.Wrapf(ErrInvalidConfig, "objective %q", c.Objective)
	}
	if err := c.EnvConfig().Validate(); err != nil {
		return errors.Wrapf(ErrInvalidConfig, "environment: %s", err)
	}
	return nil
}

// EnvConfig applies the environment overrides to the default wiring
func (c *TrainConfig) EnvConfig() evoenv.Config {
	e := evoenv.DefaultConfig()
	o := c.Environment
	if o.PopulationSize != 0 {
		e.PopulationSize = o.PopulationSize
	}
	if o.Dimension != 0 {
		e.Dimension = o.Dimension
	}
	if o.MinValue != 0 || o.MaxValue != 0 {
		e.MinValue = o.MinValue
		e.MaxValue = o.MaxValue
	}
	if o.MutationStrength != 0 {
		e.MutationStrength = o.MutationStrength
	}
	if o.EliteSize != 0 {
		e.EliteSize = o.EliteSize
	}
	if o.Generations != 0 {
		e.Generations = o.Generations
	}
	return e
}

// Options builds the environment options for the configuration. The seed,
// when set, is offset so that several environments built from the same
// configuration do not share a random stream.
func (c *TrainConfig) Options(offset uint64) ([]evoenv.Option, error) {
	objective, err := evo.ObjectiveByName(c.Objective)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidConfig, "objective %q", c.Objective)
	}
	opts := []evoenv.Option{
		evoenv.WithConfig(c.EnvConfig()),
		evoenv.WithObjective(objective),
	}
	if c.Seed != nil {
		opts = append(opts, evoenv.WithSeed(*c.Seed+offset))
	}
	return opts, nil
}

// Write stores the configuration as YAML
func (c *TrainConfig) Write(path string) error {
	bs, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, bs, 0644)
}
