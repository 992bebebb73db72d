package evoenv

import (
	"github.com/pkg/errors"
)

// Config holds the fixed wiring of the environment. The defaults are the
// values the environment was designed and tuned with.
type Config struct {
	// initial population
	PopulationSize int
	Dimension      int
	MinValue       float64
	MaxValue       float64

	// optimizer run per step
	MutationStrength float64
	EliteSize        int
	Generations      int
	// Crossover is never applied with the default of 0, whatever crossover
	// type the action selects
	CrossoverProbability float64

	// action grid: crossover types x mutation levels over [0, 1]
	MutationLevels int

	// observation grid: success bins x distance bins
	ObsRows     int
	ObsCols     int
	SuccessMax  float64
	DistanceMax float64
}

// DefaultConfig returns the standard wiring
func DefaultConfig() Config {
	return Config{
		PopulationSize: 200,
		Dimension:      10,
		MinValue:       -50,
		MaxValue:       50,

		MutationStrength:     50,
		EliteSize:            20,
		Generations:          10,
		CrossoverProbability: 0,

		MutationLevels: 5,

		ObsRows:     10,
		ObsCols:     100,
		SuccessMax:  1,
		DistanceMax: 1e11,
	}
}

// Validate checks the ranges of the configuration values
func (c Config) Validate() error {
	switch {
	case c.PopulationSize <= 0:
		return errors.Wrapf(ErrInvalidConfiguration, "population size %d", c.PopulationSize)
	case c.Dimension <= 0:
		return errors.Wrapf(ErrInvalidConfiguration, "dimension %d", c.Dimension)
	case !(c.MinValue < c.MaxValue):
		return errors.Wrapf(ErrInvalidConfiguration, "range [%v, %v)", c.MinValue, c.MaxValue)
	case c.EliteSize < 0 || c.EliteSize > c.PopulationSize:
		return errors.Wrapf(ErrInvalidConfiguration, "elite size %d", c.EliteSize)
	case c.Generations < 0:
		return errors.Wrapf(ErrInvalidConfiguration, "generations %d", c.Generations)
	case c.CrossoverProbability < 0 || c.CrossoverProbability > 1:
		return errors.Wrapf(ErrInvalidConfiguration, "crossover probability %v", c.CrossoverProbability)
	case c.MutationStrength < 0:
		return errors.Wrapf(ErrInvalidConfiguration, "mutation strength %v", c.MutationStrength)
	case c.MutationLevels < 1:
		return errors.Wrapf(ErrInvalidConfiguration, "mutation levels %d", c.MutationLevels)
	case c.ObsRows < 2 || c.ObsCols < 2:
		return errors.Wrapf(ErrInvalidConfiguration, "observation shape (%d, %d)", c.ObsRows, c.ObsCols)
	case !(c.SuccessMax > 0) || !(c.DistanceMax > 0):
		return errors.Wrapf(ErrInvalidConfiguration, "metric domains [0, %v] and [0, %v]", c.SuccessMax, c.DistanceMax)
	}
	return nil
}
