// Package math32 provides float32 vector kernels for the distance package.
// Accumulation happens in float64 so results do not depend on vector length
// rounding drift. This is an internal package; use the distance package.
package math32

import "math"

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length.
func Dot(a, b []float32) float64 {
	var ret float64
	for i := range a {
		ret += float64(a[i]) * float64(b[i])
	}
	return ret
}

// SquaredL2 calculates the squared L2 distance.
// Assumes vectors are the same length.
func SquaredL2(a, b []float32) float64 {
	var distance float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		distance += d * d
	}
	return distance
}

// Norm returns the L2 norm of a.
func Norm(a []float32) float64 {
	return math.Sqrt(Dot(a, a))
}

// ScaleInPlace multiplies all elements of a by scalar.
func ScaleInPlace(a []float32, scalar float64) {
	for i := range a {
		a[i] = float32(float64(a[i]) * scalar)
	}
}

// AddInPlace accumulates src into the float64 accumulator dst.
func AddInPlace(dst []float64, src []float32) {
	for i := range src {
		dst[i] += float64(src[i])
	}
}
