// Package chromemdb backs the vectorstore contract with a chromem-go
// collection, persisted on disk unless configured in-memory. Text is turned
// into vectors through a langchaingo embedder, so callers hand over plain
// text and ids only.
package chromemdb

import (
	"context"
	"fmt"
	"runtime"

	"github.com/philippgille/chromem-go"
	"github.com/tmc/langchaingo/embeddings"

	"document-search/internal/vectorstore"
)

const compress = false

type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	name       string
	embedder   embeddings.Embedder
}

var _ vectorstore.Store = (*Store)(nil)

// New opens (or creates) the named collection. Documents carry precomputed
// embeddings, so the collection itself needs no embedding function.
func New(dbPath, collectionName string, inMemory bool, embedder embeddings.Embedder) (*Store, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}

	return &Store{
		db:         db,
		collection: collection,
		name:       collectionName,
		embedder:   embedder,
	}, nil
}

func (s *Store) Upsert(ctx context.Context, entries ...vectorstore.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(entries))
	var missing []int
	var texts []string
	for i, e := range entries {
		docs[i] = chromem.Document{
			ID:        e.ID,
			Content:   e.Content,
			Metadata:  e.Metadata,
			Embedding: e.Embedding,
		}
		if len(e.Embedding) == 0 {
			missing = append(missing, i)
			texts = append(texts, e.Content)
		}
	}

	if len(missing) > 0 {
		vectors, err := s.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed documents: %w", err)
		}
		if len(vectors) != len(missing) {
			return fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(missing))
		}
		for j, i := range missing {
			docs[i].Embedding = vectors[j]
		}
	}

	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (vectorstore.Entry, bool, error) {
	doc, err := s.collection.GetByID(ctx, id)
	if err != nil {
		// chromem reports a missing id as an error; treat it as absence.
		return vectorstore.Entry{}, false, nil
	}
	return vectorstore.Entry{
		ID:        doc.ID,
		Content:   doc.Content,
		Metadata:  doc.Metadata,
		Embedding: doc.Embedding,
	}, true, nil
}

func (s *Store) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.collection.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}
	return nil
}

func (s *Store) DeleteWhere(ctx context.Context, where map[string]string) error {
	if len(where) == 0 {
		return nil
	}
	if err := s.collection.Delete(ctx, where, nil); err != nil {
		return fmt.Errorf("failed to delete by metadata: %w", err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, texts []string, n int) ([]vectorstore.Hit, error) {
	count := s.collection.Count()
	if count == 0 || n <= 0 {
		return nil, nil
	}
	// chromem rejects requests for more results than stored documents.
	if n > count {
		n = count
	}

	var hits []vectorstore.Hit
	for _, text := range texts {
		vector, err := s.embedder.EmbedQuery(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed query: %w", err)
		}
		results, err := s.collection.QueryWithOptions(ctx, chromem.QueryOptions{
			QueryEmbedding: vector,
			NResults:       n,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query by similarity: %w", err)
		}
		for _, r := range results {
			hits = append(hits, vectorstore.Hit{
				ID:       r.ID,
				Content:  r.Content,
				Metadata: r.Metadata,
				Distance: 1 - float64(r.Similarity),
			})
		}
	}
	return hits, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	return s.collection.Count(), nil
}

func (s *Store) Reset(ctx context.Context) error {
	if err := s.db.DeleteCollection(s.name); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	collection, err := s.db.GetOrCreateCollection(s.name, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to recreate collection: %w", err)
	}
	s.collection = collection
	return nil
}
