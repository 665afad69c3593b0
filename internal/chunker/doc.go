// Package chunker divides cleaned document text into overlapping chunks of
// whole sentences for embedding and retrieval.
//
// # Basic Usage
//
//	c := chunker.New(chunker.WithChunkSize(220), chunker.WithOverlap(40))
//	chunks, failures, err := c.ChunkDocuments(ctx, docs)
//	if err != nil {
//	    return err
//	}
//	for _, f := range failures {
//	    log.Printf("skipped %s", f.Document.Title)
//	}
//
// # Chunking Strategy
//
// Each page is chunked on its own, so a chunk never spans pages. Text is
// split into sentences by a Segmenter, then sentences are packed into a
// window until adding the next one would exceed the word budget. A window
// always holds at least one sentence, so a sentence longer than the budget
// becomes a chunk by itself.
//
// The next window starts far enough back to repeat about overlap words of
// the previous one, rounded to whole sentences, but always at least one
// sentence later than the previous window's start. This guarantees
// progress even when the overlap is larger than the chunk size.
//
// Chunk identifiers are "{document}_p{page}_c{index}" with a 1-based page
// number and an index that restarts at 0 on every page.
package chunker
