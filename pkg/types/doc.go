// Package types provides shared type definitions for policyindex.
//
// The types here cross package boundaries: the source discoverer produces
// Documents, the chunker produces Chunks, and the storage layer returns
// RetrievedChunks from similarity search.
//
// # Identifiers
//
// Document IDs are derived from the file stem and Chunk IDs are derived from
// the owning document, page and position:
//
//	doc := types.Document{ID: types.DocumentID("Code of Conduct.pdf"), Title: "Code of Conduct.pdf"}
//	// doc.ID == "code_of_conduct"
//
//	id := types.ChunkID(doc.ID, 2, 0)
//	// id == "code_of_conduct_p2_c0"
//
// Both are deterministic so re-ingesting the same files converges on the
// same rows instead of duplicating them.
package types
