// Package vectorstore defines the narrow contract the retrieval engine
// expects from an embedding store. Metadata values are scalar strings only;
// composite fields are JSON-encoded by the caller before they reach this
// boundary.
package vectorstore

import "context"

// Entry is one stored unit: a whole document or a single chunk.
type Entry struct {
	ID       string
	Content  string
	Metadata map[string]string
	// Embedding is optional on upsert; when empty the store computes it
	// from Content.
	Embedding []float32
}

// Hit is a similarity-query candidate. Distance uses the Chroma convention:
// 1 - cosine similarity, in [0, 2], smaller is closer.
type Hit struct {
	ID       string
	Content  string
	Metadata map[string]string
	Distance float64
}

// Store is the embedding store consumed by the engine. Implementations
// provide their own persistence and internal concurrency guarantees.
type Store interface {
	Upsert(ctx context.Context, entries ...Entry) error
	Get(ctx context.Context, id string) (Entry, bool, error)
	Delete(ctx context.Context, ids ...string) error
	// DeleteWhere removes every entry whose metadata matches all given
	// key/value pairs.
	DeleteWhere(ctx context.Context, where map[string]string) error
	// Query runs one similarity query per text and returns the combined
	// candidates, at most n per text.
	Query(ctx context.Context, texts []string, n int) ([]Hit, error)
	Count(ctx context.Context) (int, error)
	// Reset drops and recreates the underlying collection.
	Reset(ctx context.Context) error
}
