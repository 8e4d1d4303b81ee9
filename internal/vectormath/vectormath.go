// Package vectormath provides fixed-dimension vector operations used by the
// retrieval pipeline. All functions are pure and allocation-free except
// Normalize.
package vectormath

import (
	"fmt"
	"math"

	"github.com/mediflow-labs/mediflow/internal/core/domain"
)

// Dot returns the dot product of two equal-length vectors.
func Dot(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", domain.ErrDimensionMismatch, len(a), len(b))
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum, nil
}

// Norm returns the Euclidean norm of v.
func Norm(v []float32) float64 {
	// Dot cannot fail against itself.
	sum, _ := Dot(v, v)
	return math.Sqrt(sum)
}

// CosineSimilarity returns the cosine of the angle between a and b, in
// [-1, 1]. Similarity against a zero vector is defined as exactly 0 rather
// than propagating a division by zero; that makes degraded (zero-vector)
// chunks permanent non-matches.
func CosineSimilarity(a, b []float32) (float64, error) {
	dot, err := Dot(a, b)
	if err != nil {
		return 0, err
	}

	normA := Norm(a)
	normB := Norm(b)
	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (normA * normB), nil
}

// Normalize returns v scaled to unit length. A zero vector is returned
// unchanged.
func Normalize(v []float32) []float32 {
	magnitude := Norm(v)
	if magnitude == 0 {
		return v
	}

	out := make([]float32, len(v))
	for i, val := range v {
		out[i] = float32(float64(val) / magnitude)
	}
	return out
}
