// Package searcher answers similarity queries over the stored policy chunks.
//
// A query is normalized the same way page text is during ingestion,
// embedded with the configured provider and compared against every stored
// chunk by cosine similarity.
//
//	s := searcher.NewSearcher(store, emb)
//
//	resp, err := s.Search(ctx, "how many vacation days do I get", 4)
//	for _, r := range resp.Results {
//	    fmt.Printf("[%d] %s p.%d (%.3f)\n", r.Rank, r.Title, r.PageNumber, r.Similarity)
//	}
//
// # Caching
//
// Responses are cached in an LRU keyed by the normalized query and topK for
// DefaultCacheTTL. InvalidateCache must be called after re-indexing.
package searcher
