package identity

import (
	"math"
)

// EuclideanDistance returns the L2 distance between two descriptors.
// Callers must check lengths first.
func EuclideanDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// CosineSimilarity calculates the cosine similarity between two descriptors.
// Returns a value between -1.0 (opposite) and 1.0 (identical), or 0 for
// mismatched lengths and zero vectors.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dotProduct, norm1, norm2 float64
	for i := range a {
		dotProduct += a[i] * b[i]
		norm1 += a[i] * a[i]
		norm2 += b[i] * b[i]
	}

	if norm1 == 0 || norm2 == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(norm1) * math.Sqrt(norm2))
}
