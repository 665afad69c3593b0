// Package indexer coordinates the end-to-end ingestion pipeline for policy
// documents.
//
// # Basic Usage
//
//	idx := indexer.New(store, emb, logger)
//
//	stats, err := idx.Build(ctx, indexer.Options{
//	    Dir:       "policies",
//	    ChunkSize: 220,
//	    Overlap:   40,
//	})
//	if errors.Is(err, indexer.ErrNoDocuments) {
//	    // nothing to index
//	}
//
//	fmt.Printf("Indexed %d chunks in %v\n", stats.ChunksStored, stats.Duration)
//
// # Pipeline
//
//  1. Discover: list .pdf and .txt files directly in Dir
//  2. Chunk: extract page text, strip boilerplate, cut overlapping windows
//  3. Embed: send fixed-size batches to the provider, Workers at a time
//  4. Store: lock the embedding dimension, optionally clear the index, and
//     upsert everything in one transaction
//
// A document that cannot be read is logged and skipped. Its error is listed
// in Statistics.Errors. Any embedding or storage failure aborts the run
// before anything is written.
//
// # Concurrency
//
// Only embedding runs concurrently. Results are placed by position, so the
// order of vectors always matches the order of chunks. IndexLock lets a
// long-running server refuse overlapping builds without blocking.
package indexer
