package evo

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
)

// CrossoverType selects the recombination operator used by the algorithm
type CrossoverType int

const (
	// OnePoint cuts both parents at the same random position
	OnePoint CrossoverType = iota
	// Uniform picks every coordinate from either parent with equal chance
	Uniform
	// Interpolation takes a random convex combination of the parents
	Interpolation

	// NumCrossoverTypes is the number of crossover types
	NumCrossoverTypes = 3
)

func (c CrossoverType) String() string {
	switch c {
	case OnePoint:
		return "one-point"
	case Uniform:
		return "uniform"
	case Interpolation:
		return "interpolation"
	}
	return "unknown"
}

// Valid reports whether c is one of the declared types
func (c CrossoverType) Valid() bool {
	return c >= 0 && c < NumCrossoverTypes
}

// cross produces a child from two parents of the same dimension
func cross(t CrossoverType, a, b []float64, rng *rand.Rand) []float64 {
	child := make([]float64, len(a))
	switch t {
	case OnePoint:
		cut := len(a)
		if len(a) > 1 {
			cut = 1 + rng.Intn(len(a)-1)
		}
		copy(child, a[:cut])
		copy(child[cut:], b[cut:])
	case Uniform:
		for i := range child {
			if rng.Float64() < 0.5 {
				child[i] = a[i]
			} else {
				child[i] = b[i]
			}
		}
	case Interpolation:
		w := rng.Float64()
		// child = b + w*(a-b)
		floats.SubTo(child, a, b)
		floats.AddScaledTo(child, b, w, child)
	}
	return child
}
