package evo

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrInvalidConfiguration is returned when population or run parameters are
// outside of their allowed ranges
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Population is an ordered set of candidate vectors
type Population [][]float64

// Size is the number of candidates
func (p Population) Size() int {
	return len(p)
}

// Dim is the dimension of the candidates, 0 for an empty population
func (p Population) Dim() int {
	if len(p) == 0 {
		return 0
	}
	return len(p[0])
}

// Clone deep copies the population
func (p Population) Clone() Population {
	out := make(Population, len(p))
	for i, c := range p {
		out[i] = make([]float64, len(c))
		copy(out[i], c)
	}
	return out
}

// SameShape checks that other has the same number of candidates, each of the
// same dimension
func (p Population) SameShape(other Population) bool {
	if len(p) != len(other) {
		return false
	}
	dim := p.Dim()
	for _, c := range other {
		if len(c) != dim {
			return false
		}
	}
	return true
}

// GeneratePopulation draws size vectors with every coordinate uniform in [min, max)
func GeneratePopulation(size, dim int, min, max float64, rng *rand.Rand) (Population, error) {
	if size <= 0 {
		return nil, errors.Wrapf(ErrInvalidConfiguration, "population size %d", size)
	}
	if dim <= 0 {
		return nil, errors.Wrapf(ErrInvalidConfiguration, "dimension %d", dim)
	}
	if !(min < max) {
		return nil, errors.Wrapf(ErrInvalidConfiguration, "range [%v, %v)", min, max)
	}
	if rng == nil {
		return nil, errors.Wrap(ErrInvalidConfiguration, "random source is required")
	}
	uniform := distuv.Uniform{Min: min, Max: max, Src: rng}
	pop := make(Population, size)
	for i := range pop {
		pop[i] = make([]float64, dim)
		for j := range pop[i] {
			pop[i][j] = uniform.Rand()
		}
	}
	return pop, nil
}

// AverageDistance is the mean euclidean distance over all pairs of candidates
func AverageDistance(p Population) float64 {
	n := len(p)
	if n < 2 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sum += floats.Distance(p[i], p[j], 2)
		}
	}
	return sum / float64(n*(n-1)/2)
}
