// Package space maps two dimensional grid coordinates to flat indices so that
// a pair of discrete choices can be exposed as a single discrete space.
package space

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrOutOfRange is returned when a coordinate or index does not fit the shape
var ErrOutOfRange = errors.New("index out of range")

// Shape of a two dimensional grid
type Shape struct {
	Rows int
	Cols int
}

// Size is the number of cells in the grid
func (s Shape) Size() int {
	if s.Rows <= 0 || s.Cols <= 0 {
		return 0
	}
	return s.Rows * s.Cols
}

func (s Shape) String() string {
	return fmt.Sprintf("(%d, %d)", s.Rows, s.Cols)
}

func (s Shape) valid() error {
	if s.Rows <= 0 || s.Cols <= 0 {
		return errors.Wrapf(ErrOutOfRange, "invalid shape %s", s)
	}
	return nil
}

// Flatten encodes (r, c) as r*cols + c
func Flatten(shape Shape, r, c int) (int, error) {
	if err := shape.valid(); err != nil {
		return 0, err
	}
	if r < 0 || r >= shape.Rows || c < 0 || c >= shape.Cols {
		return 0, errors.Wrapf(ErrOutOfRange, "coordinate (%d, %d) not in shape %s", r, c, shape)
	}
	return r*shape.Cols + c, nil
}

// Unflatten is the inverse of Flatten
func Unflatten(shape Shape, idx int) (int, int, error) {
	if err := shape.valid(); err != nil {
		return 0, 0, err
	}
	if idx < 0 || idx >= shape.Size() {
		return 0, 0, errors.Wrapf(ErrOutOfRange, "index %d not in [0, %d)", idx, shape.Size())
	}
	return idx / shape.Cols, idx % shape.Cols, nil
}

// Discrete space of N elements {0, ..., N-1}
type Discrete struct {
	N int `json:"n"`
}

// Contains checks if i is a member of the space
func (d Discrete) Contains(i int) bool {
	return i >= 0 && i < d.N
}
