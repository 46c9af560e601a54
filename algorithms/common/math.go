// Package common holds small numeric helpers shared across the analysis
// algorithms.
package common

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Mean returns the arithmetic mean, 0 for an empty slice
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// RMS returns the root mean square level of a signal, 0 for an empty one
func RMS(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, v := range data {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(data)))
}

// Round rounds a value to the given number of decimal places. Report fields
// carry fixed precision so serialized output stays stable across runs.
func Round(value float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(value*scale) / scale
}

// ClampIndex constrains a slice index to [0, length-1]. Returns 0 for empty
// slices so callers can guard on length separately.
func ClampIndex(i, length int) int {
	if length <= 0 || i < 0 {
		return 0
	}
	if i >= length {
		return length - 1
	}
	return i
}
