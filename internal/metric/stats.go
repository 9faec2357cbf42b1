package metric

import "math"

// Point is a mean with its population standard deviation.
type Point struct {
	Mean float64 `json:"mean"`
	SD   float64 `json:"sd"`
}

// MeanSD aggregates equally long series column by column, e.g. the
// per-cycle guessing success of several replicas. Series shorter than the
// first one are ignored for the columns they lack.
func MeanSD(series [][]float64) []Point {
	if len(series) == 0 {
		return nil
	}
	width := len(series[0])
	out := make([]Point, width)
	for col := 0; col < width; col++ {
		n := 0
		sum := 0.0
		for _, s := range series {
			if col < len(s) {
				sum += s[col]
				n++
			}
		}
		if n == 0 {
			continue
		}
		mean := sum / float64(n)
		ss := 0.0
		for _, s := range series {
			if col < len(s) {
				d := s[col] - mean
				ss += d * d
			}
		}
		out[col] = Point{Mean: mean, SD: math.Sqrt(ss / float64(n))}
	}
	return out
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
