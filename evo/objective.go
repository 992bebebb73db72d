package evo

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// Objective is a function to be minimized
type Objective func([]float64) float64

// Sphere is the sum of squares
func Sphere(x []float64) float64 {
	s := 0.0
	for _, v := range x {
		s += v * v
	}
	return s
}

// Rastrigin function, minimum 0 at the origin
func Rastrigin(x []float64) float64 {
	s := 10 * float64(len(x))
	for _, v := range x {
		s += v*v - 10*math.Cos(2*math.Pi*v)
	}
	return s
}

// Schwefel function, minimum close to 0 at x_i = 420.9687
func Schwefel(x []float64) float64 {
	s := 418.9829 * float64(len(x))
	for _, v := range x {
		s -= v * math.Sin(math.Sqrt(math.Abs(v)))
	}
	return s
}

var objectives = map[string]Objective{
	"sphere":    Sphere,
	"rastrigin": Rastrigin,
	"schwefel":  Schwefel,
}

// ObjectiveByName looks up one of the bundled objectives
func ObjectiveByName(name string) (Objective, error) {
	f, ok := objectives[name]
	if !ok {
		return nil, errors.Errorf("unknown objective %q, available: %v", name, ObjectiveNames())
	}
	return f, nil
}

// ObjectiveNames lists the bundled objectives in sorted order
func ObjectiveNames() []string {
	names := make([]string, 0, len(objectives))
	for name := range objectives {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
