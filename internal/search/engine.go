// Package search implements the semantic retrieval engine: it writes
// chunked documents into an embedding store, answers similarity queries with
// tag filtering and per-document aggregation, and runs the bulk maintenance
// workflows over the corpus.
package search

import (
	"context"

	"github.com/rs/zerolog/log"

	"document-search/internal/chunker"
	"document-search/internal/config"
	"document-search/internal/vectorstore"
)

// TagSource is the read-only view of the relational metadata store. TagsFor
// reports ok=false when the path is not known at all, which is distinct
// from a known file with no tags.
type TagSource interface {
	TagsFor(ctx context.Context, path string) (tags []string, ok bool, err error)
	Paths(ctx context.Context) ([]string, error)
}

// Extractor turns a file into plain text. Empty text means "nothing to
// index"; the engine skips such files.
type Extractor func(path string) (string, error)

// Summarizer produces a short document summary. Failures never abort
// indexing; the engine falls back to a heuristic summary.
type Summarizer interface {
	Summarize(ctx context.Context, path, content string) (string, error)
}

// Deps are the collaborators the engine drives. Store may be nil: the
// engine then runs degraded, logging a warning and returning empty/false
// from every operation instead of failing, so batch callers keep going.
type Deps struct {
	Store     vectorstore.Store
	Tags      TagSource
	Extract   Extractor
	Summarize Summarizer
}

// Engine is the retrieval core. It assumes a single in-process caller; the
// store supplies its own internal concurrency guarantees.
type Engine struct {
	store     vectorstore.Store
	tags      TagSource
	extract   Extractor
	summarize Summarizer

	chunker      *chunker.Chunker
	expander     *Expander
	score        ScoreParams
	excerptFloor float64
	maxExcerpts  int
	snippetLen   int
	limit        int
}

// New assembles an Engine from its collaborators and search settings.
func New(deps Deps, cfg config.SearchConfig) *Engine {
	cfg.ApplyDefaults()
	return &Engine{
		store:        deps.Store,
		tags:         deps.Tags,
		extract:      deps.Extract,
		summarize:    deps.Summarize,
		chunker:      chunker.New(cfg.MinChunkSize, cfg.MaxChunkSize, cfg.ChunkOverlap),
		expander:     NewExpander(cfg.Synonyms),
		score:        ScoreParams{BoostExponent: cfg.BoostExponent, ScaleFloor: cfg.ScaleFloor, ScaleRange: cfg.ScaleRange},
		excerptFloor: cfg.ExcerptFloor,
		maxExcerpts:  cfg.MaxExcerpts,
		snippetLen:   cfg.ExcerptLength,
		limit:        cfg.Limit,
	}
}

// Degraded reports whether the engine is running without a vector store.
func (e *Engine) Degraded() bool { return e.store == nil }

// EntryCount reports how many entries the vector store holds.
func (e *Engine) EntryCount(ctx context.Context) (int, error) {
	if e.store == nil {
		return 0, nil
	}
	return e.store.Count(ctx)
}

func (e *Engine) warnDegraded(op string) bool {
	if e.store == nil {
		log.Warn().Str("op", op).Msg("vector store not initialized, operation skipped")
		return true
	}
	return false
}
