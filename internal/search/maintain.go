package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ReindexAll rebuilds the vector store from scratch: it resets the
// collection, then re-extracts and re-indexes every path known to the tag
// store. Individual file failures are logged and skipped so one bad file
// cannot abort the rebuild. progress, if non-nil, receives coarse status
// updates with a 0-100 percentage.
func (e *Engine) ReindexAll(ctx context.Context, progress func(msg string, pct int)) error {
	if e.warnDegraded("reindex") {
		return fmt.Errorf("vector store not initialized")
	}
	if e.tags == nil {
		return fmt.Errorf("no tag store configured")
	}
	report := func(msg string, pct int) {
		if progress != nil {
			progress(msg, pct)
		}
	}

	job := uuid.NewString()
	logger := log.With().Str("job", job).Logger()
	logger.Info().Msg("full reindex started")
	report("Clearing existing index", 5)

	if err := e.store.Reset(ctx); err != nil {
		logger.Warn().Err(err).Msg("collection reset failed, bulk-deleting entries instead")
		if err := e.clearEntries(ctx); err != nil {
			return fmt.Errorf("clear existing entries: %w", err)
		}
	}

	paths, err := e.tags.Paths(ctx)
	if err != nil {
		return fmt.Errorf("list indexed paths: %w", err)
	}
	report(fmt.Sprintf("Indexing %d files", len(paths)), 5)

	indexed, failed := 0, 0
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		content, err := e.extractContent(path)
		if err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("extraction failed, skipping")
			failed++
			continue
		}
		if err := e.Index(ctx, path, content, nil); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("indexing failed, skipping")
			failed++
			continue
		}
		// Index quietly skips empty extractions; don't count those as
		// indexed files.
		if strings.TrimSpace(content) != "" {
			indexed++
		}
		if len(paths) > 0 {
			pct := 5 + (i+1)*90/len(paths)
			report(fmt.Sprintf("Indexed %d/%d files", i+1, len(paths)), pct)
		}
	}

	report("Finalizing index", 98)
	count, err := e.store.Count(ctx)
	if err != nil {
		count = -1
	}
	logger.Info().
		Int("files", len(paths)).
		Int("indexed", indexed).
		Int("failed", failed).
		Int("entries", count).
		Msg("full reindex finished")
	report(fmt.Sprintf("Reindexed %d files (%d failed)", indexed, failed), 100)
	return nil
}

// clearEntries bulk-deletes every entry the index writer can have produced.
// The store offers no id enumeration, but every written entry carries the
// is_chunk flag, so its two values partition the stored set. Entries for
// paths no longer tracked must not survive a rebuild.
func (e *Engine) clearEntries(ctx context.Context) error {
	for _, v := range []string{"true", "false"} {
		if err := e.store.DeleteWhere(ctx, map[string]string{metaIsChunk: v}); err != nil {
			return fmt.Errorf("delete entries with is_chunk=%s: %w", v, err)
		}
	}
	return nil
}

// FixAllMetadata refreshes the stored metadata of every path known to the
// tag store without re-embedding anything. It returns how many paths were
// refreshed out of how many were examined.
func (e *Engine) FixAllMetadata(ctx context.Context) (fixed, total int, err error) {
	if e.warnDegraded("fix metadata") {
		return 0, 0, nil
	}
	if e.tags == nil {
		return 0, 0, fmt.Errorf("no tag store configured")
	}
	paths, err := e.tags.Paths(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list indexed paths: %w", err)
	}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return fixed, total, err
		}
		total++
		if e.RefreshMetadata(ctx, path) {
			fixed++
		}
	}
	log.Info().Int("fixed", fixed).Int("total", total).Msg("metadata fix pass finished")
	return fixed, total, nil
}
