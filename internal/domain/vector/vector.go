// Package vector holds the embedding vector type and cosine similarity scoring.
package vector

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/kailas-cloud/vecmatch/internal/domain"
)

// Vector is a fixed-dimension embedding.
type Vector []float32

// Dim returns the number of components.
func (v Vector) Dim() int { return len(v) }

// DimensionMismatchError reports the two lengths of an invalid comparison.
type DimensionMismatchError struct {
	Left  int
	Right int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: %d vs %d", domain.ErrDimensionMismatch.Error(), e.Left, e.Right)
}

func (e *DimensionMismatchError) Unwrap() error { return domain.ErrDimensionMismatch }

// Similarity returns cosine similarity scaled to percent, in [-100, 100].
// A zero-norm operand yields 0 rather than NaN.
func Similarity(a, b Vector) (float64, error) {
	if len(a) != len(b) {
		return 0, &DimensionMismatchError{Left: len(a), Right: len(b)}
	}

	var dot, sumA, sumB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		sumA += x * x
		sumB += y * y
	}
	if sumA == 0 || sumB == 0 {
		return 0, nil
	}
	// One square root over the product keeps Similarity(v, v) at exactly 100.
	return dot / math.Sqrt(sumA*sumB) * 100, nil
}

// ParseJSON decodes the embedding_json storage format (a JSON array of numbers).
func ParseJSON(data []byte) (Vector, error) {
	var v Vector
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse embedding json: %w", err)
	}
	return v, nil
}

// MarshalJSON encodes v into the embedding_json storage format.
func MarshalJSON(v Vector) ([]byte, error) {
	if v == nil {
		v = Vector{}
	}
	data, err := json.Marshal([]float32(v))
	if err != nil {
		return nil, fmt.Errorf("marshal embedding json: %w", err)
	}
	return data, nil
}
