package types

// RetrievedChunk is a stored chunk returned by similarity search
type RetrievedChunk struct {
	ChunkID    string
	DocumentID string
	Title      string
	PageNumber int
	ChunkIndex int
	Text       string

	// Similarity is the cosine similarity to the query vector, in [-1, 1]
	Similarity float64
}

// SearchResult is a ranked RetrievedChunk as presented to callers
type SearchResult struct {
	Rank int // Position in result set (1-based)
	RetrievedChunk
}

// Rank converts chunks returned in descending similarity order to results
func Rank(chunks []RetrievedChunk) []SearchResult {
	results := make([]SearchResult, len(chunks))
	for i, c := range chunks {
		results[i] = SearchResult{Rank: i + 1, RetrievedChunk: c}
	}
	return results
}
