// Package memory retrieves long-term memories by semantic similarity,
// scoped to who may see them and bounded in time so they never overlap
// with the short-term history already in the prompt.
//
// Architecture:
//   - Record: one stored memory with its canon scope (global, personal,
//     or session) and owning identities
//   - Store: vector storage backend (chromem-go for the embedded case,
//     a networked vector database in production)
//   - Resolver: validates scope requests, embeds the query text, and
//     delegates the similarity search to the Store
//
// The temporal exclusion boundary (ExclusionBoundary) keeps short-term
// and long-term sources from describing the same events twice: records
// at or after the boundary are excluded from retrieval because the raw
// messages covering them are still in the prompt.
package memory
