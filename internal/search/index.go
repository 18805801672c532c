package search

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"document-search/internal/chunker"
	"document-search/internal/vectorstore"
)

// previewSize caps the content stored on the document entry of a chunked
// document. Retrieval against a chunked document goes through its chunks;
// the preview only has to carry enough text for display.
const previewSize = 1500

// Index writes a document into the vector store, replacing any previous
// entries for the same path. Content over the chunk-size limit is split and
// stored as one entry per chunk plus a preview document entry, so queries
// match against focused sections instead of a diluted whole-file embedding.
func (e *Engine) Index(ctx context.Context, path, content string, extra map[string]string) error {
	if e.warnDegraded("index") {
		return nil
	}
	if strings.TrimSpace(content) == "" {
		log.Debug().Str("path", path).Msg("no indexable content, skipping")
		return nil
	}

	// Replace, not append: stale entries from a previous indexing of this
	// path must not survive, including ones beyond the new chunk count.
	e.Remove(ctx, path)

	tags, ok, err := e.tagsFor(ctx, path)
	if err != nil {
		return fmt.Errorf("look up tags for %s: %w", path, err)
	}
	if !ok {
		tags = nil
	}

	meta := entryMeta{
		Path:      path,
		Filename:  filepath.Base(path),
		IndexedAt: time.Now().UTC().Format(time.RFC3339),
		Tags:      tags,
		Summary:   e.summaryFor(ctx, path, content),
		Extra:     extra,
	}

	chunks := e.chunker.Chunk(content)
	if len(chunks) <= 1 {
		doc := documentEntry{entryMeta: meta}
		return e.store.Upsert(ctx, vectorstore.Entry{
			ID:       DocumentID(path).String(),
			Content:  content,
			Metadata: doc.metadata(),
		})
	}

	entries := make([]vectorstore.Entry, 0, len(chunks)+1)
	for i, chunk := range chunks {
		ce := chunkEntry{
			entryMeta:  meta,
			ChunkID:    i,
			ChunkTotal: len(chunks),
			Title:      chunker.ExtractTitle(chunk),
		}
		entries = append(entries, vectorstore.Entry{
			ID:       ChunkID(path, i).String(),
			Content:  chunk,
			Metadata: ce.metadata(),
		})
	}

	preview := content
	if len(preview) > previewSize {
		preview = preview[:previewSize] + "..."
	}
	doc := documentEntry{entryMeta: meta, HasChunks: true, NumChunks: len(chunks)}
	entries = append(entries, vectorstore.Entry{
		ID:       DocumentID(path).String(),
		Content:  preview,
		Metadata: doc.metadata(),
	})

	if err := e.store.Upsert(ctx, entries...); err != nil {
		return fmt.Errorf("store %d entries for %s: %w", len(entries), path, err)
	}
	log.Info().Str("path", path).Int("chunks", len(chunks)).Msg("indexed document")
	return nil
}

// Remove deletes every stored entry for a path, document and chunks alike.
// It reports whether anything was actually removed.
func (e *Engine) Remove(ctx context.Context, path string) bool {
	if e.warnDegraded("remove") {
		return false
	}
	before, err := e.store.Count(ctx)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("count before removal failed")
		return false
	}
	if err := e.store.DeleteWhere(ctx, map[string]string{metaPath: path}); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("removal failed")
		return false
	}
	after, err := e.store.Count(ctx)
	if err != nil {
		return false
	}
	return after < before
}

// RefreshMetadata rewrites the stored metadata of an already-indexed path
// from the current tag store, keeping the existing content and embeddings.
// It reports false when the path is unknown to either store.
func (e *Engine) RefreshMetadata(ctx context.Context, path string) bool {
	if e.warnDegraded("refresh metadata") {
		return false
	}
	doc, found, err := e.store.Get(ctx, DocumentID(path).String())
	if err != nil || !found {
		return false
	}
	tags, ok, err := e.tagsFor(ctx, path)
	if err != nil || !ok {
		return false
	}

	summary := doc.Metadata[metaSummary]
	if summary == "" {
		// Older entries were indexed before summaries existed. Backfill
		// from the file on disk when we can.
		if text, err := e.extractContent(path); err == nil && text != "" {
			summary = e.summaryFor(ctx, path, text)
		}
	}

	meta := entryMeta{
		Path:      path,
		Filename:  filepath.Base(path),
		IndexedAt: time.Now().UTC().Format(time.RFC3339),
		Tags:      tags,
		Summary:   summary,
	}

	entries := []vectorstore.Entry{docRefreshEntry(doc, meta)}
	if doc.Metadata[metaHasChunks] == "true" {
		n := parseCount(doc.Metadata[metaNumChunks])
		for i := 0; i < n; i++ {
			chunk, found, err := e.store.Get(ctx, ChunkID(path, i).String())
			if err != nil || !found {
				continue
			}
			ce := chunkEntry{
				entryMeta:  meta,
				ChunkID:    i,
				ChunkTotal: n,
				Title:      chunk.Metadata[metaChunkTitle],
			}
			entries = append(entries, vectorstore.Entry{
				ID:        chunk.ID,
				Content:   chunk.Content,
				Metadata:  ce.metadata(),
				Embedding: chunk.Embedding,
			})
		}
	}

	if err := e.store.Upsert(ctx, entries...); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("metadata refresh failed")
		return false
	}
	return true
}

func docRefreshEntry(doc vectorstore.Entry, meta entryMeta) vectorstore.Entry {
	de := documentEntry{entryMeta: meta}
	if doc.Metadata[metaHasChunks] == "true" {
		de.HasChunks = true
		de.NumChunks = parseCount(doc.Metadata[metaNumChunks])
	}
	return vectorstore.Entry{
		ID:        doc.ID,
		Content:   doc.Content,
		Metadata:  de.metadata(),
		Embedding: doc.Embedding,
	}
}

func (e *Engine) tagsFor(ctx context.Context, path string) ([]string, bool, error) {
	if e.tags == nil {
		return nil, false, nil
	}
	return e.tags.TagsFor(ctx, path)
}

func (e *Engine) extractContent(path string) (string, error) {
	if e.extract == nil {
		return "", nil
	}
	return e.extract(path)
}

// summaryFor asks the summarizer for a document summary and falls back to a
// heuristic one when no summarizer is wired or it fails.
func (e *Engine) summaryFor(ctx context.Context, path, content string) string {
	if e.summarize != nil {
		s, err := e.summarize.Summarize(ctx, path, content)
		if err == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
		if err != nil {
			log.Debug().Err(err).Str("path", path).Msg("summarizer failed, using heuristic summary")
		}
	}
	return basicSummary(content)
}

// basicSummary takes the first reasonably-sized paragraph, or failing that
// the head of the text.
func basicSummary(content string) string {
	for _, para := range strings.Split(content, "\n\n") {
		para = strings.TrimSpace(para)
		if len(para) > 30 && len(para) < 200 {
			return para
		}
	}
	content = strings.TrimSpace(content)
	if len(content) <= 150 {
		return content
	}
	return content[:150] + "..."
}

func parseCount(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
