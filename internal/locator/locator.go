// Package locator converts n-dimensional coordinates to and from a linear
// row-major position.
//
// For sizes {2,5,4} the offsets are {20,4,1} and the data size is 40:
//
//	pos = loc[0]*20 + loc[1]*4 + loc[2]*1
package locator

import (
	"fmt"

	"github.com/xtxerr/spark/internal/errors"
)

// Offsets returns the row-major offsets for sizes: offset[i] is the product
// of sizes[i+1:], and the last offset is always 1.
func Offsets(sizes []int) []int {
	if len(sizes) == 0 {
		return nil
	}
	off := make([]int, len(sizes))
	off[len(sizes)-1] = 1
	for i := len(sizes) - 2; i >= 0; i-- {
		off[i] = off[i+1] * sizes[i+1]
	}
	return off
}

// DataSize returns the product of all sizes. An empty list has no capacity.
func DataSize(sizes []int) int {
	if len(sizes) == 0 {
		return 0
	}
	n := 1
	for _, s := range sizes {
		n *= s
	}
	return n
}

// Linearize returns the linear position of loc. offsets must come from
// Offsets; len(loc) must equal len(offsets).
func Linearize(offsets, loc []int) (int, error) {
	if len(loc) != len(offsets) {
		return 0, fmt.Errorf("locator has %d coordinates, category has %d dimensions: %w",
			len(loc), len(offsets), errors.ErrDimensionMismatch)
	}
	pos := 0
	for i, l := range loc {
		pos += l * offsets[i]
	}
	return pos, nil
}

// Delinearize is the left inverse of Linearize for positions in [0, DataSize).
func Delinearize(offsets []int, pos int) []int {
	loc := make([]int, len(offsets))
	for i, o := range offsets {
		loc[i] = pos / o
		pos %= o
	}
	return loc
}
