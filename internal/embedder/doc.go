// Package embedder turns chunk and query text into vector embeddings.
//
// Three providers implement the Embedder interface:
//
//   - openai: the OpenAI embeddings API (or any compatible endpoint) through
//     the official Go SDK
//   - ollama: a local or hosted Ollama server via POST /api/embed
//   - local: a deterministic hashed bag-of-words model that needs no network
//
// # Basic Usage
//
//	emb, err := embedder.New(cfg.Embedder)
//	if err != nil {
//	    return err
//	}
//	defer emb.Close()
//
//	vectors, err := emb.EmbedBatch(ctx, []string{"first chunk", "second chunk"})
//
// Vectors come back in input order. Batches hold at most MaxBatchSize texts;
// use Batches to split larger inputs.
//
// # Provider Selection
//
// New picks the provider named in the configuration. When none is named it
// uses OpenAI if an API key is configured and falls back to the local
// provider otherwise.
//
// # Caching
//
// Remote providers share an LRU cache keyed by the SHA-256 of the text, so
// re-indexing unchanged documents does not hit the API again.
//
// # Error Handling
//
// Transient failures (network errors, HTTP 408, 429 and 5xx) are retried
// with exponential backoff, three attempts from 100ms up to 5s. Anything
// that still fails is returned wrapped in ErrProviderFailed:
//
//	if errors.Is(err, embedder.ErrProviderFailed) {
//	    // provider unavailable or rejected the request
//	}
package embedder
