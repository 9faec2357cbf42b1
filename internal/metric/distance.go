// Package metric provides the distance and selection functions shared by
// the conceptual space, the association matrix and the game driver.
// Everything here is pure: no state, no randomness.
package metric

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

// ErrLengthMismatch is returned when two vectors of different lengths are
// compared. It is an input contract violation and is never retried.
var ErrLengthMismatch = errors.New("vector length mismatch")

// Euclidean returns the straight-line distance between a and b.
func Euclidean(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("euclidean %d vs %d: %w", len(a), len(b), ErrLengthMismatch)
	}
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// Tolerant returns the distance from y to the band x ± xsd. A component of y
// that falls inside its band contributes nothing; one outside contributes the
// squared distance to the nearest edge.
func Tolerant(x, xsd, y []float64) (float64, error) {
	if len(x) != len(y) || len(xsd) != len(x) {
		return 0, fmt.Errorf("tolerant %d/%d vs %d: %w", len(x), len(xsd), len(y), ErrLengthMismatch)
	}
	sum := 0.0
	for i := range x {
		hi := x[i] + xsd[i]
		lo := x[i] - xsd[i]
		switch {
		case y[i] > hi:
			sum += (y[i] - hi) * (y[i] - hi)
		case y[i] < lo:
			sum += (lo - y[i]) * (lo - y[i])
		}
	}
	return math.Sqrt(sum), nil
}

// ArgMax returns the index of the largest value. Ties go to the lowest
// index. Returns -1 for an empty slice.
func ArgMax[T constraints.Ordered](values []T) int {
	if len(values) == 0 {
		return -1
	}
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}

// ArgMin returns the index of the smallest value. Ties go to the lowest
// index. Returns -1 for an empty slice.
func ArgMin[T constraints.Ordered](values []T) int {
	if len(values) == 0 {
		return -1
	}
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] < values[best] {
			best = i
		}
	}
	return best
}
