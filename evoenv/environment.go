// Package evoenv exposes the control of an evolutionary algorithm as a
// discrete environment. An action selects the crossover type and the mutation
// probability used for one bounded run of the algorithm. The observation is
// the binned success ratio and binned average population distance after the
// run, and the reward favours an increasing success bin and a decreasing
// distance bin.
package evoenv

import (
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/zeu5/evo-rl-tuning/discretize"
	"github.com/zeu5/evo-rl-tuning/evo"
	"github.com/zeu5/evo-rl-tuning/logging"
	"github.com/zeu5/evo-rl-tuning/space"
	"github.com/zeu5/evo-rl-tuning/types"
	"golang.org/x/exp/rand"
)

var (
	// ErrInvalidConfiguration is returned for out of range construction parameters
	ErrInvalidConfiguration = evo.ErrInvalidConfiguration
	// ErrInvalidAction is returned when the action is not in the action space
	ErrInvalidAction = errors.New("invalid action")
	// ErrNotReady is returned by Step outside of a running episode
	ErrNotReady = errors.New("environment not ready, call Reset")
	// ErrRunnerContract is returned when the runner result does not preserve
	// the shape of the population
	ErrRunnerContract = errors.New("runner returned an invalid result")
)

const (
	rewardStep        = -1.0
	rewardImprovement = 10.0
)

// Phase of the episode lifecycle
type Phase int

const (
	Uninitialized Phase = iota
	Ready
	Stepping
	Terminal
)

func (p Phase) String() string {
	switch p {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case Stepping:
		return "stepping"
	case Terminal:
		return "terminal"
	}
	return "unknown"
}

// Configuration is the optimizer setting an action decodes to
type Configuration struct {
	Crossover           evo.CrossoverType
	MutationLevel       int
	MutationProbability float64
}

func (c Configuration) String() string {
	return fmt.Sprintf("%s/%.2f", c.Crossover, c.MutationProbability)
}

// Environment drives the evolutionary algorithm one bounded run per step.
// It is not safe for concurrent use.
type Environment struct {
	config    Config
	maxSteps  int
	runner    evo.Runner
	objective evo.Objective
	rng       *rand.Rand
	logger    log.Logger

	actionShape    space.Shape
	obsShape       space.Shape
	mutationLevels []float64
	success        *discretize.Digitizer
	distance       *discretize.Digitizer

	// episode state
	phase       Phase
	population  evo.Population
	step        int
	bestQuality float64
	successBin  int
	distanceBin int
}

var _ types.Environment = &Environment{}

// Option configures the environment
type Option func(*Environment)

// WithRunner replaces the default evolutionary algorithm
func WithRunner(r evo.Runner) Option {
	return func(e *Environment) { e.runner = r }
}

// WithObjective sets the function minimized by the runner
func WithObjective(f evo.Objective) Option {
	return func(e *Environment) { e.objective = f }
}

// WithSeed seeds the random source used for populations and runs
func WithSeed(seed uint64) Option {
	return func(e *Environment) { e.rng = rand.New(rand.NewSource(seed)) }
}

// WithRand injects the random source
func WithRand(rng *rand.Rand) Option {
	return func(e *Environment) { e.rng = rng }
}

func WithLogger(l log.Logger) Option {
	return func(e *Environment) { e.logger = l }
}

// WithConfig replaces the default wiring
func WithConfig(c Config) Option {
	return func(e *Environment) { e.config = c }
}

// New creates an environment whose episodes last maxSteps steps. The
// environment is unusable until Reset is called.
func New(maxSteps int, opts ...Option) (*Environment, error) {
	if maxSteps < 1 {
		return nil, errors.Wrapf(ErrInvalidConfiguration, "max steps %d", maxSteps)
	}
	e := &Environment{
		config:    DefaultConfig(),
		maxSteps:  maxSteps,
		runner:    evo.NewAlgorithm(),
		objective: evo.Schwefel,
		phase:     Uninitialized,
	}
	for _, o := range opts {
		o(e)
	}
	if err := e.config.Validate(); err != nil {
		return nil, err
	}
	if e.runner == nil || e.objective == nil {
		return nil, errors.Wrap(ErrInvalidConfiguration, "runner and objective are required")
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(rand.Uint64()))
	}
	e.logger = logging.OrNop(e.logger)

	var err error
	e.success, err = discretize.NewLinearDigitizer(0, e.config.SuccessMax, e.config.ObsRows)
	if err != nil {
		return nil, errors.Wrap(err, "success bins")
	}
	e.distance, err = discretize.NewLinearDigitizer(0, e.config.DistanceMax, e.config.ObsCols)
	if err != nil {
		return nil, errors.Wrap(err, "distance bins")
	}
	e.actionShape = space.Shape{Rows: evo.NumCrossoverTypes, Cols: e.config.MutationLevels}
	e.obsShape = space.Shape{Rows: e.config.ObsRows, Cols: e.config.ObsCols}
	e.mutationLevels = discretize.Linspace(0, 1, e.config.MutationLevels)
	return e, nil
}

func (e *Environment) ActionSpace() space.Discrete {
	return space.Discrete{N: e.actionShape.Size()}
}

func (e *Environment) ObservationSpace() space.Discrete {
	return space.Discrete{N: e.obsShape.Size()}
}

func (e *Environment) ActionShape() space.Shape      { return e.actionShape }
func (e *Environment) ObservationShape() space.Shape { return e.obsShape }
func (e *Environment) MaxSteps() int                 { return e.maxSteps }
func (e *Environment) StepCount() int                { return e.step }
func (e *Environment) Phase() Phase                  { return e.phase }

// BestQuality is the best fitness reported by the last step, 0 at the start
// of an episode
func (e *Environment) BestQuality() float64 { return e.bestQuality }

// Bins returns the current (success, distance) bins
func (e *Environment) Bins() (int, int) { return e.successBin, e.distanceBin }

// Population returns a copy of the current population
func (e *Environment) Population() evo.Population {
	return e.population.Clone()
}

// Decode maps an action index to the optimizer configuration
func (e *Environment) Decode(action int) (Configuration, error) {
	crossover, mutation, err := space.Unflatten(e.actionShape, action)
	if err != nil {
		return Configuration{}, errors.Wrapf(ErrInvalidAction, "action %d: %s", action, err)
	}
	return Configuration{
		Crossover:           evo.CrossoverType(crossover),
		MutationLevel:       mutation,
		MutationProbability: e.mutationLevels[mutation],
	}, nil
}

// Encode is the inverse of Decode
func (e *Environment) Encode(c Configuration) (int, error) {
	action, err := space.Flatten(e.actionShape, int(c.Crossover), c.MutationLevel)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidAction, "configuration %s: %s", c, err)
	}
	return action, nil
}

// Reset starts a new episode with a fresh population. A non-nil seed
// reseeds the random source. Options are accepted for compatibility and
// ignored.
func (e *Environment) Reset(seed *uint64, _ types.Info) (int, types.Info, error) {
	if seed != nil {
		e.rng.Seed(*seed)
	}
	c := e.config
	population, err := evo.GeneratePopulation(c.PopulationSize, c.Dimension, c.MinValue, c.MaxValue, e.rng)
	if err != nil {
		return 0, nil, errors.Wrap(err, "generating population")
	}
	distanceBin := e.distance.Bin(evo.AverageDistance(population))
	state, err := space.Flatten(e.obsShape, 0, distanceBin)
	if err != nil {
		return 0, nil, err
	}

	e.step = 0
	e.population = population
	e.bestQuality = 0
	e.successBin = 0
	e.distanceBin = distanceBin
	e.phase = Ready

	level.Debug(e.logger).Log("msg", "reset", "state", state, "distance_bin", distanceBin)
	return state, types.Info{}, nil
}

// Step runs the algorithm once with the configuration the action decodes
// to. On error the environment is left unchanged.
func (e *Environment) Step(action int) (*types.StepResult, error) {
	if e.phase != Ready && e.phase != Stepping {
		return nil, errors.Wrapf(ErrNotReady, "phase %s", e.phase)
	}
	if !e.ActionSpace().Contains(action) {
		return nil, errors.Wrapf(ErrInvalidAction, "action %d not in [0, %d)", action, e.ActionSpace().N)
	}
	conf, err := e.Decode(action)
	if err != nil {
		return nil, err
	}

	result, err := e.runner.Run(evo.RunConfig{
		Objective:            e.objective,
		MutationStrength:     e.config.MutationStrength,
		MutationProbability:  conf.MutationProbability,
		EliteSize:            e.config.EliteSize,
		Generations:          e.config.Generations,
		Crossover:            conf.Crossover,
		CrossoverProbability: e.config.CrossoverProbability,
		Rand:                 e.rng,
	}, e.population.Clone())
	if err != nil {
		return nil, errors.Wrapf(err, "running optimizer with %s", conf)
	}
	if result == nil || !e.population.SameShape(result.Population) {
		return nil, errors.Wrapf(ErrRunnerContract, "expected %d candidates of dimension %d", e.population.Size(), e.population.Dim())
	}

	successBin := e.success.Bin(result.SuccessRatio)
	distanceBin := e.distance.Bin(result.AverageDistance)
	state, err := space.Flatten(e.obsShape, successBin, distanceBin)
	if err != nil {
		return nil, err
	}
	// compared against the bins held before this step
	reward := e.reward(successBin, distanceBin)
	terminated := e.step+1 >= e.maxSteps

	e.population = result.Population.Clone()
	e.bestQuality = result.BestFitness
	e.successBin = successBin
	e.distanceBin = distanceBin
	e.step += 1
	e.phase = Stepping
	if terminated {
		e.phase = Terminal
	}

	level.Debug(e.logger).Log(
		"msg", "step",
		"step", e.step,
		"action", action,
		"config", conf,
		"best", result.BestFitness,
		"success", result.SuccessRatio,
		"distance", result.AverageDistance,
		"state", state,
		"reward", reward,
		"terminated", terminated,
	)

	return &types.StepResult{
		State:      state,
		Reward:     reward,
		Terminated: terminated,
		Truncated:  false,
		Info:       types.Info{},
	}, nil
}

func (e *Environment) reward(successBin, distanceBin int) float64 {
	reward := rewardStep
	if successBin > e.successBin {
		reward += rewardImprovement
	}
	if distanceBin < e.distanceBin {
		reward += rewardImprovement
	}
	return reward
}
