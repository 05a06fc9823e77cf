package indexing

import (
	"math"
	"slices"
)

// NormalizeVector normalizes a vector to unit length.
// Returns a new vector. If the input is a zero vector, returns a zero vector.
func NormalizeVector(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	var magnitude float64
	for _, val := range v {
		magnitude += float64(val) * float64(val)
	}
	magnitude = math.Sqrt(magnitude)

	result := make([]float32, len(v))
	if magnitude == 0 {
		return result
	}
	for i, val := range v {
		result[i] = float32(float64(val) / magnitude)
	}
	return result
}

// IsZeroVector reports whether every component of v is zero.
func IsZeroVector(v []float32) bool {
	for _, val := range v {
		if val != 0 {
			return false
		}
	}
	return true
}

// PageNumbers reads a page list out of decoded metadata. Stores hand back
// ints, floats or untyped lists depending on their codec; anything else
// yields nil. The result is sorted and unique.
func PageNumbers(v any) []int {
	var out []int
	switch pages := v.(type) {
	case []int:
		out = slices.Clone(pages)
	case []int64:
		for _, p := range pages {
			out = append(out, int(p))
		}
	case []float64:
		for _, p := range pages {
			out = append(out, int(p))
		}
	case []any:
		for _, p := range pages {
			if n, ok := AsFloat(p); ok {
				out = append(out, int(n))
			}
		}
	default:
		return nil
	}
	slices.Sort(out)
	return slices.Compact(out)
}
