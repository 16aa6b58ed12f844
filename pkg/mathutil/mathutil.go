// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"
)

// Round rounds a value to the given number of decimals.
func Round(val float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(val*p) / p
}

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// Clamp bounds val to [lo, hi]. When lo > hi the lower bound wins.
func Clamp(val, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, val))
}

// Clamp01 bounds val to [0, 1].
func Clamp01(val float64) float64 {
	return Clamp(val, 0, 1)
}

// Linspace returns n evenly spaced values from start to end inclusive.
func Linspace(start, end float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{start}
	}
	values := make([]float64, n)
	step := (end - start) / float64(n-1)
	for i := range values {
		values[i] = start + step*float64(i)
	}
	values[n-1] = end
	return values
}

// LogNorm maps x onto a log10 scale relative to scale: log10(max(floor, x)) / log10(max(scaleFloor, scale)).
func LogNorm(x, floor, scale, scaleFloor float64) float64 {
	return math.Log10(math.Max(floor, x)) / math.Log10(math.Max(scaleFloor, scale))
}

// IsIntegral reports whether v is within tol of an integer.
func IsIntegral(v, tol float64) bool {
	return math.Abs(v-math.Round(v)) <= tol
}
