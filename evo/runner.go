package evo

import (
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// RunConfig parameterizes one bounded run of the optimizer
type RunConfig struct {
	Objective Objective
	// standard deviation of the gaussian mutation
	MutationStrength float64
	// probability that an individual is mutated
	MutationProbability float64
	// number of best parents kept across a generation
	EliteSize int
	// number of generations to run
	Generations          int
	Crossover            CrossoverType
	CrossoverProbability float64
	Rand                 *rand.Rand
}

// RunResult of a single run
type RunResult struct {
	Population      Population
	BestFitness     float64
	SuccessRatio    float64
	AverageDistance float64
}

// Runner executes the optimizer on a population
type Runner interface {
	Run(RunConfig, Population) (*RunResult, error)
}

// RunnerFunc adapts a function to the Runner interface
type RunnerFunc func(RunConfig, Population) (*RunResult, error)

func (f RunnerFunc) Run(cfg RunConfig, pop Population) (*RunResult, error) {
	return f(cfg, pop)
}

// Algorithm is an elitist evolutionary algorithm minimizing the objective.
// Each generation every offspring is a tournament winner, optionally
// recombined with a second winner and optionally mutated. The next population
// is the best of the elite parents and the offspring.
type Algorithm struct {
	TournamentSize int
}

var _ Runner = &Algorithm{}

// NewAlgorithm with binary tournaments
func NewAlgorithm() *Algorithm {
	return &Algorithm{TournamentSize: 2}
}

func validate(cfg RunConfig, pop Population) error {
	switch {
	case cfg.Objective == nil:
		return errors.Wrap(ErrInvalidConfiguration, "objective is required")
	case cfg.Rand == nil:
		return errors.Wrap(ErrInvalidConfiguration, "random source is required")
	case pop.Size() == 0 || pop.Dim() == 0:
		return errors.Wrap(ErrInvalidConfiguration, "empty population")
	case !pop.SameShape(pop):
		return errors.Wrap(ErrInvalidConfiguration, "candidates of different dimensions")
	case cfg.EliteSize < 0 || cfg.EliteSize > pop.Size():
		return errors.Wrapf(ErrInvalidConfiguration, "elite size %d for population of %d", cfg.EliteSize, pop.Size())
	case cfg.Generations < 0:
		return errors.Wrapf(ErrInvalidConfiguration, "generations %d", cfg.Generations)
	case cfg.MutationProbability < 0 || cfg.MutationProbability > 1:
		return errors.Wrapf(ErrInvalidConfiguration, "mutation probability %v", cfg.MutationProbability)
	case cfg.CrossoverProbability < 0 || cfg.CrossoverProbability > 1:
		return errors.Wrapf(ErrInvalidConfiguration, "crossover probability %v", cfg.CrossoverProbability)
	case cfg.MutationStrength < 0:
		return errors.Wrapf(ErrInvalidConfiguration, "mutation strength %v", cfg.MutationStrength)
	case !cfg.Crossover.Valid():
		return errors.Wrapf(ErrInvalidConfiguration, "crossover type %d", cfg.Crossover)
	}
	return nil
}

// Run the algorithm for cfg.Generations generations starting from pop.
// pop is not modified.
func (a *Algorithm) Run(cfg RunConfig, pop Population) (*RunResult, error) {
	if err := validate(cfg, pop); err != nil {
		return nil, err
	}
	current := pop.Clone()
	scores := evaluate(cfg.Objective, current)
	best := floats.Min(scores)
	successes := 0

	for t := 0; t < cfg.Generations; t++ {
		offspring := a.reproduce(cfg, current, scores)
		offScores := evaluate(cfg.Objective, offspring)
		if bestOff := floats.Min(offScores); bestOff < best {
			best = bestOff
			successes += 1
		}
		current, scores = succession(current, scores, offspring, offScores, cfg.EliteSize)
	}

	ratio := 0.0
	if cfg.Generations > 0 {
		ratio = float64(successes) / float64(cfg.Generations)
	}
	return &RunResult{
		Population:      current,
		BestFitness:     best,
		SuccessRatio:    ratio,
		AverageDistance: AverageDistance(current),
	}, nil
}

func (a *Algorithm) reproduce(cfg RunConfig, pop Population, scores []float64) Population {
	rng := cfg.Rand
	mutation := distuv.Normal{Mu: 0, Sigma: cfg.MutationStrength, Src: rng}
	offspring := make(Population, len(pop))
	for i := range offspring {
		parent := pop[a.tournament(scores, rng)]
		var child []float64
		if rng.Float64() < cfg.CrossoverProbability {
			other := pop[a.tournament(scores, rng)]
			child = cross(cfg.Crossover, parent, other, rng)
		} else {
			child = make([]float64, len(parent))
			copy(child, parent)
		}
		if rng.Float64() < cfg.MutationProbability && cfg.MutationStrength > 0 {
			for j := range child {
				child[j] += mutation.Rand()
			}
		}
		offspring[i] = child
	}
	return offspring
}

// tournament returns the index of the best of TournamentSize random picks
func (a *Algorithm) tournament(scores []float64, rng *rand.Rand) int {
	size := a.TournamentSize
	if size < 1 {
		size = 1
	}
	best := rng.Intn(len(scores))
	for i := 1; i < size; i++ {
		candidate := rng.Intn(len(scores))
		if scores[candidate] < scores[best] {
			best = candidate
		}
	}
	return best
}

func evaluate(f Objective, pop Population) []float64 {
	scores := make([]float64, len(pop))
	for i, c := range pop {
		scores[i] = f(c)
	}
	return scores
}

type scored struct {
	candidate []float64
	score     float64
}

// succession keeps the elite of the parents together with the offspring and
// returns the best len(parents) of them
func succession(parents Population, parentScores []float64, offspring Population, offScores []float64, elite int) (Population, []float64) {
	ranked := make([]scored, len(parents))
	for i := range parents {
		ranked[i] = scored{parents[i], parentScores[i]}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score < ranked[j].score })

	pool := make([]scored, 0, elite+len(offspring))
	pool = append(pool, ranked[:elite]...)
	for i := range offspring {
		pool = append(pool, scored{offspring[i], offScores[i]})
	}
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].score < pool[j].score })

	next := make(Population, len(parents))
	nextScores := make([]float64, len(parents))
	for i := range next {
		next[i] = pool[i].candidate
		nextScores[i] = pool[i].score
	}
	return next, nextScores
}
