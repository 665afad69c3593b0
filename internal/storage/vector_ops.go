package storage

import (
	"math"
	"sort"
)

// cosineSimilarity computes the cosine similarity between two vectors.
// Vectors of different lengths or with a zero norm score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dotProduct += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// candidate is a scored row, index points into the decoded rows
type candidate struct {
	index int
	score float64
}

// sortCandidates orders by score descending; equal scores keep row order
func sortCandidates(candidates []candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
}

