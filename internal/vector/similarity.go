// Package vector implements similarity scoring over embedding vectors.
package vector

import "math"

// Cosine computes cosine similarity between two vectors, in [-1, 1].
// Returns 0 for nil, empty, or length-mismatched vectors and for zero
// magnitudes: "no signal" rather than an error, so vectorless chunks never
// break a scoring pass, they simply never surface.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
