// Package discretize bins continuous optimizer metrics into bounded integers.
package discretize

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// ErrUnsorted is returned when boundaries are not strictly ascending
var ErrUnsorted = errors.New("boundaries are not ascending")

// Linspace returns n evenly spaced boundaries over [lo, hi]
func Linspace(lo, hi float64, n int) []float64 {
	switch {
	case n <= 0:
		return []float64{}
	case n == 1:
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}

// Digitize returns i such that boundaries[i-1] <= value < boundaries[i].
// Values below the first boundary map to 0 and values at or above the last
// one map to len(boundaries). NaN maps to 0.
func Digitize(value float64, boundaries []float64) int {
	if math.IsNaN(value) {
		return 0
	}
	return sort.Search(len(boundaries), func(i int) bool {
		return boundaries[i] > value
	})
}

// Digitizer holds a fixed set of boundaries
type Digitizer struct {
	boundaries []float64
}

// NewDigitizer copies the boundaries, they should be strictly ascending
func NewDigitizer(boundaries []float64) (*Digitizer, error) {
	for i := 1; i < len(boundaries); i++ {
		if !(boundaries[i-1] < boundaries[i]) {
			return nil, errors.Wrapf(ErrUnsorted, "boundary %d (%v) after %v", i, boundaries[i], boundaries[i-1])
		}
	}
	b := make([]float64, len(boundaries))
	copy(b, boundaries)
	return &Digitizer{boundaries: b}, nil
}

// NewLinearDigitizer creates a digitizer producing bins in [0, bins) over
// the domain [lo, hi]
func NewLinearDigitizer(lo, hi float64, bins int) (*Digitizer, error) {
	if bins < 2 {
		return nil, errors.Errorf("need at least two bins, got %d", bins)
	}
	return NewDigitizer(Linspace(lo, hi, bins-1))
}

// Bin of the value
func (d *Digitizer) Bin(value float64) int {
	return Digitize(value, d.boundaries)
}

// NumBins is the number of distinct values Bin can return
func (d *Digitizer) NumBins() int {
	return len(d.boundaries) + 1
}

// Boundaries returns a copy of the boundaries
func (d *Digitizer) Boundaries() []float64 {
	b := make([]float64, len(d.boundaries))
	copy(b, d.boundaries)
	return b
}
