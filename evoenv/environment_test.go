package evoenv

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/evo-rl-tuning/evo"
	"github.com/zeu5/evo-rl-tuning/space"
)

type metrics struct {
	success  float64
	distance float64
}

// scriptedRunner returns the input population with the scripted metrics and
// records the configurations it was called with
type scriptedRunner struct {
	script  []metrics
	calls   []evo.RunConfig
	fitness float64
	err     error
}

func (s *scriptedRunner) Run(cfg evo.RunConfig, pop evo.Population) (*evo.RunResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	m := s.script[len(s.calls)%len(s.script)]
	s.calls = append(s.calls, cfg)
	s.fitness -= 1
	return &evo.RunResult{
		Population:      pop,
		BestFitness:     s.fitness,
		SuccessRatio:    m.success,
		AverageDistance: m.distance,
	}, nil
}

func newScripted(t *testing.T, maxSteps int, script ...metrics) (*Environment, *scriptedRunner) {
	runner := &scriptedRunner{script: script}
	env, err := New(maxSteps, WithRunner(runner), WithSeed(1))
	require.NoError(t, err)
	return env, runner
}

func TestSpaces(t *testing.T) {
	env, _ := newScripted(t, 5, metrics{})
	assert.Equal(t, evo.NumCrossoverTypes*5, env.ActionSpace().N)
	assert.Equal(t, 1000, env.ObservationSpace().N)
	assert.Equal(t, space.Shape{Rows: 10, Cols: 100}, env.ObservationShape())
	assert.Equal(t, Uninitialized, env.Phase())
}

func TestNewInvalid(t *testing.T) {
	_, err := New(0)
	assert.True(t, errors.Is(err, ErrInvalidConfiguration))

	c := DefaultConfig()
	c.PopulationSize = 0
	_, err = New(3, WithConfig(c))
	assert.True(t, errors.Is(err, ErrInvalidConfiguration))

	c = DefaultConfig()
	c.MinValue = 50
	_, err = New(3, WithConfig(c))
	assert.True(t, errors.Is(err, ErrInvalidConfiguration))

	_, err = New(3, WithRunner(nil))
	assert.True(t, errors.Is(err, ErrInvalidConfiguration))
}

func TestStepBeforeReset(t *testing.T) {
	env, runner := newScripted(t, 5, metrics{0.5, 10})
	_, err := env.Step(0)
	assert.True(t, errors.Is(err, ErrNotReady))
	assert.Empty(t, runner.calls)
}

func TestReset(t *testing.T) {
	env, _ := newScripted(t, 5, metrics{0.5, 10})
	state, info, err := env.Reset(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, info)
	assert.Equal(t, Ready, env.Phase())

	pop := env.Population()
	assert.Equal(t, 200, pop.Size())
	assert.Equal(t, 10, pop.Dim())

	successBin, distanceBin := env.Bins()
	assert.Equal(t, 0, successBin)
	expected, err := space.Flatten(env.ObservationShape(), 0, distanceBin)
	require.NoError(t, err)
	assert.Equal(t, expected, state)
	assert.Equal(t, 0.0, env.BestQuality())
	assert.Equal(t, 0, env.StepCount())
}

func TestResetSeedReproducible(t *testing.T) {
	env, _ := newScripted(t, 5, metrics{0.5, 10})
	seed := uint64(42)
	_, _, err := env.Reset(&seed, nil)
	require.NoError(t, err)
	first := env.Population()

	_, _, err = env.Reset(nil, nil)
	require.NoError(t, err)
	assert.NotEqual(t, first, env.Population())

	_, _, err = env.Reset(&seed, nil)
	require.NoError(t, err)
	assert.Equal(t, first, env.Population())
}

func TestScenarioSingleStepEpisode(t *testing.T) {
	env, runner := newScripted(t, 1, metrics{0.3, 100})
	_, _, err := env.Reset(nil, nil)
	require.NoError(t, err)

	conf, err := env.Decode(0)
	require.NoError(t, err)
	assert.Equal(t, evo.CrossoverType(0), conf.Crossover)
	assert.Equal(t, 0, conf.MutationLevel)
	assert.Equal(t, 0.0, conf.MutationProbability)

	result, err := env.Step(0)
	require.NoError(t, err)
	assert.True(t, result.Terminated)
	assert.False(t, result.Truncated)
	assert.Empty(t, result.Info)
	assert.Equal(t, Terminal, env.Phase())

	require.Len(t, runner.calls, 1)
	call := runner.calls[0]
	assert.Equal(t, 0.0, call.MutationProbability)
	assert.Equal(t, evo.OnePoint, call.Crossover)
	assert.Equal(t, 50.0, call.MutationStrength)
	assert.Equal(t, 20, call.EliteSize)
	assert.Equal(t, 10, call.Generations)
	assert.NotNil(t, call.Rand)
	assert.NotNil(t, call.Objective)
	// crossover stays disabled whatever type is selected
	assert.Equal(t, 0.0, call.CrossoverProbability)

	_, err = env.Step(0)
	assert.True(t, errors.Is(err, ErrNotReady))
}

func TestTerminationAfterMaxSteps(t *testing.T) {
	env, _ := newScripted(t, 2, metrics{0.3, 100})
	_, _, err := env.Reset(nil, nil)
	require.NoError(t, err)

	r1, err := env.Step(1)
	require.NoError(t, err)
	assert.False(t, r1.Terminated)
	assert.Equal(t, Stepping, env.Phase())

	r2, err := env.Step(1)
	require.NoError(t, err)
	assert.True(t, r2.Terminated)
	assert.Equal(t, 2, env.StepCount())

	_, _, err = env.Reset(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, env.StepCount())
	r, err := env.Step(1)
	require.NoError(t, err)
	assert.False(t, r.Terminated)
}

func TestRewardImprovingBoth(t *testing.T) {
	env, _ := newScripted(t, 10, metrics{0.1, 5.05e10}, metrics{0.5, 1e9})
	_, _, err := env.Reset(nil, nil)
	require.NoError(t, err)

	_, err = env.Step(3)
	require.NoError(t, err)
	successBin, distanceBin := env.Bins()
	assert.Equal(t, 1, successBin)
	assert.Equal(t, 50, distanceBin)

	result, err := env.Step(3)
	require.NoError(t, err)
	assert.Equal(t, 19.0, result.Reward)
	expected, err := space.Flatten(env.ObservationShape(), 5, 1)
	require.NoError(t, err)
	assert.Equal(t, expected, result.State)
}

func TestRewardNoImprovement(t *testing.T) {
	env, _ := newScripted(t, 10, metrics{0.6, 300})
	_, _, err := env.Reset(nil, nil)
	require.NoError(t, err)

	_, err = env.Step(2)
	require.NoError(t, err)
	result, err := env.Step(2)
	require.NoError(t, err)
	assert.Equal(t, -1.0, result.Reward)
}

func TestRewardComparesWithPreviousStep(t *testing.T) {
	// success bins 5, 2, 3: the third step improves on the second one only
	env, _ := newScripted(t, 10, metrics{0.6, 300}, metrics{0.2, 300}, metrics{0.3, 300})
	_, _, err := env.Reset(nil, nil)
	require.NoError(t, err)

	r1, err := env.Step(0)
	require.NoError(t, err)
	assert.Equal(t, 9.0, r1.Reward)
	r2, err := env.Step(0)
	require.NoError(t, err)
	assert.Equal(t, -1.0, r2.Reward)
	r3, err := env.Step(0)
	require.NoError(t, err)
	assert.Equal(t, 9.0, r3.Reward)
}

func TestZeroSuccessIsFirstBin(t *testing.T) {
	// a success ratio of exactly 0 lands on the first boundary, one bin above
	// the reset value
	env, _ := newScripted(t, 10, metrics{0, 300})
	_, _, err := env.Reset(nil, nil)
	require.NoError(t, err)
	result, err := env.Step(0)
	require.NoError(t, err)
	assert.Equal(t, 9.0, result.Reward)
	successBin, _ := env.Bins()
	assert.Equal(t, 1, successBin)
}

func TestOutOfDomainMetricsClamp(t *testing.T) {
	env, _ := newScripted(t, 10, metrics{7, 1e20}, metrics{-3, -1})
	_, _, err := env.Reset(nil, nil)
	require.NoError(t, err)

	r, err := env.Step(0)
	require.NoError(t, err)
	assert.Equal(t, 999, r.State)
	r, err = env.Step(0)
	require.NoError(t, err)
	assert.Equal(t, 0, r.State)
	assert.Equal(t, 9.0, r.Reward)
}

func TestInvalidActionLeavesStateUnchanged(t *testing.T) {
	env, runner := newScripted(t, 10, metrics{0.6, 300})
	_, _, err := env.Reset(nil, nil)
	require.NoError(t, err)
	_, err = env.Step(1)
	require.NoError(t, err)

	pop := env.Population()
	successBin, distanceBin := env.Bins()
	best := env.BestQuality()

	for _, action := range []int{env.ActionSpace().N, -1, 1000} {
		_, err = env.Step(action)
		assert.True(t, errors.Is(err, ErrInvalidAction), "action %d", action)
	}
	assert.Len(t, runner.calls, 1)
	assert.Equal(t, pop, env.Population())
	s, d := env.Bins()
	assert.Equal(t, successBin, s)
	assert.Equal(t, distanceBin, d)
	assert.Equal(t, best, env.BestQuality())
	assert.Equal(t, 1, env.StepCount())
}

func TestRunnerErrorLeavesStateUnchanged(t *testing.T) {
	env, runner := newScripted(t, 10, metrics{0.6, 300})
	_, _, err := env.Reset(nil, nil)
	require.NoError(t, err)
	pop := env.Population()

	failure := errors.New("boom")
	runner.err = failure
	_, err = env.Step(0)
	assert.True(t, errors.Is(err, failure))
	assert.Equal(t, pop, env.Population())
	assert.Equal(t, 0, env.StepCount())
	assert.Equal(t, Ready, env.Phase())

	runner.err = nil
	_, err = env.Step(0)
	assert.NoError(t, err)
}

func TestRunnerContract(t *testing.T) {
	shrinking := evo.RunnerFunc(func(_ evo.RunConfig, pop evo.Population) (*evo.RunResult, error) {
		return &evo.RunResult{Population: pop[:10]}, nil
	})
	env, err := New(3, WithRunner(shrinking), WithSeed(3))
	require.NoError(t, err)
	_, _, err = env.Reset(nil, nil)
	require.NoError(t, err)
	_, err = env.Step(0)
	assert.True(t, errors.Is(err, ErrRunnerContract))
	assert.Equal(t, 200, env.Population().Size())
}

func TestRunnerCannotMutatePopulation(t *testing.T) {
	tampering := evo.RunnerFunc(func(_ evo.RunConfig, pop evo.Population) (*evo.RunResult, error) {
		pop[0][0] = 1e6
		return nil, errors.New("failed after tampering")
	})
	env, err := New(3, WithRunner(tampering), WithSeed(3))
	require.NoError(t, err)
	_, _, err = env.Reset(nil, nil)
	require.NoError(t, err)
	before := env.Population()
	_, err = env.Step(0)
	assert.Error(t, err)
	assert.Equal(t, before, env.Population())
}

func TestEncodeDecode(t *testing.T) {
	env, _ := newScripted(t, 3, metrics{})
	levels := []float64{0, 0.25, 0.5, 0.75, 1}
	for action := 0; action < env.ActionSpace().N; action++ {
		conf, err := env.Decode(action)
		require.NoError(t, err)
		assert.Equal(t, evo.CrossoverType(action/5), conf.Crossover)
		assert.Equal(t, levels[action%5], conf.MutationProbability)
		back, err := env.Encode(conf)
		require.NoError(t, err)
		assert.Equal(t, action, back)
	}
	_, err := env.Decode(env.ActionSpace().N)
	assert.True(t, errors.Is(err, ErrInvalidAction))
}

func TestEpisodeWithAlgorithm(t *testing.T) {
	env, err := New(3, WithSeed(7))
	require.NoError(t, err)
	_, _, err = env.Reset(nil, nil)
	require.NoError(t, err)

	rewards := map[float64]bool{-1: true, 9: true, 19: true}
	for i := 0; i < 3; i++ {
		result, err := env.Step(env.ActionSpace().N - 1)
		require.NoError(t, err)
		assert.True(t, rewards[result.Reward], "reward %v", result.Reward)
		assert.True(t, env.ObservationSpace().Contains(result.State))
		assert.Equal(t, i == 2, result.Terminated)
		assert.Equal(t, 200, env.Population().Size())
		assert.Equal(t, 10, env.Population().Dim())
	}
	assert.NotEqual(t, 0.0, env.BestQuality())
}
