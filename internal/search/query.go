package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"document-search/internal/snippet"
	"document-search/internal/vectorstore"
)

// minFilteredCandidates widens the candidate pool when tag filtering is
// active, since filtering discards an unknown share of the hits.
const minFilteredCandidates = 100

// Options narrows a search. Tags filters results to documents carrying the
// given tags; MatchAny switches that filter from all-of to any-of. A zero
// Limit uses the engine's configured result cap.
type Options struct {
	Tags     []string
	MatchAny bool
	Limit    int
}

// Result is one ranked document, aggregated from every matching entry of
// that document. Score is the best similarity among them and ChunksFound
// counts the matching entries, the document entry included.
type Result struct {
	Path         string
	Filename     string
	FileType     string
	DocumentType string
	Tags         []string
	Summary      string
	Score        float64
	ChunksFound  int
	Excerpts     []string
}

// Results is a ranked result set. FilterBypassed reports that the tag
// filter matched nothing and was dropped, so Items hold unfiltered results
// the caller should label accordingly.
type Results struct {
	Items          []Result
	FilterBypassed bool
}

// Search runs the query, with expansion, against the store and aggregates
// the hits per document. When a tag filter eliminates every candidate the
// filter is bypassed rather than returning nothing.
func (e *Engine) Search(ctx context.Context, query string, opts Options) (Results, error) {
	if e.warnDegraded("search") {
		return Results{}, nil
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return Results{}, nil
	}

	total, err := e.store.Count(ctx)
	if err != nil {
		return Results{}, fmt.Errorf("count entries: %w", err)
	}
	if total == 0 {
		return Results{}, nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = e.limit
	}
	filter := normalizeTags(opts.Tags)

	// Fetch more candidates than the result cap: aggregation collapses
	// chunks into documents and filtering discards hits.
	n := limit * 3
	if len(filter) > 0 && n < minFilteredCandidates {
		n = minFilteredCandidates
	}

	queries := e.expander.Expand(query)
	hits, err := e.store.Query(ctx, queries, n)
	if err != nil {
		return Results{}, fmt.Errorf("query store: %w", err)
	}
	if len(hits) == 0 {
		return Results{}, nil
	}
	hits = dedupeHits(hits)

	items, kept := e.collect(hits, query, filter, opts.MatchAny)
	bypassed := false
	if len(filter) > 0 && kept == 0 {
		log.Info().Strs("tags", filter).Msg("tag filter matched nothing, returning unfiltered results")
		items, _ = e.collect(hits, query, nil, false)
		bypassed = true
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })
	if len(items) > limit {
		items = items[:limit]
	}
	return Results{Items: items, FilterBypassed: bypassed}, nil
}

// collect aggregates store hits into per-document results, applying the tag
// filter. It returns the results and how many hits survived the filter.
func (e *Engine) collect(hits []vectorstore.Hit, query string, filter []string, matchAny bool) ([]Result, int) {
	byPath := make(map[string]*Result)
	order := make([]string, 0, len(hits))
	kept := 0

	for _, hit := range hits {
		id := ParseEntryID(hit.ID)
		tags := decodeTags(hit.Metadata[metaTags])
		if len(filter) > 0 && !matchTags(tags, filter, matchAny) {
			continue
		}
		kept++

		score := e.score.Similarity(hit.Distance)
		res, seen := byPath[id.Path]
		if !seen {
			res = &Result{
				Path:         id.Path,
				Filename:     hit.Metadata[metaFilename],
				FileType:     fileType(id.Path),
				DocumentType: TypeLabel(id.Path),
				Tags:         tags,
				Summary:      hit.Metadata[metaSummary],
			}
			if res.Filename == "" {
				res.Filename = id.Path
			}
			byPath[id.Path] = res
			order = append(order, id.Path)
		}
		if res.Summary == "" {
			res.Summary = hit.Metadata[metaSummary]
		}
		res.ChunksFound++
		if score > res.Score {
			res.Score = score
		}
		if score > e.excerptFloor && len(res.Excerpts) < e.maxExcerpts {
			got := snippet.Extract(hit.Content, query, e.maxExcerpts-len(res.Excerpts), e.snippetLen)
			res.Excerpts = append(res.Excerpts, got...)
		}
	}

	items := make([]Result, 0, len(order))
	for _, path := range order {
		items = append(items, *byPath[path])
	}
	return items, kept
}

// dedupeHits collapses hits returned by more than one expanded query,
// keeping the closest distance for each entry.
func dedupeHits(hits []vectorstore.Hit) []vectorstore.Hit {
	best := make(map[string]int, len(hits))
	out := hits[:0]
	for _, hit := range hits {
		if i, seen := best[hit.ID]; seen {
			if hit.Distance < out[i].Distance {
				out[i] = hit
			}
			continue
		}
		best[hit.ID] = len(out)
		out = append(out, hit)
	}
	return out
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// matchTags checks a document's tags against a normalized filter, all-of by
// default or any-of when matchAny is set.
func matchTags(tags, filter []string, matchAny bool) bool {
	have := make(map[string]bool, len(tags))
	for _, t := range tags {
		have[strings.ToLower(t)] = true
	}
	for _, want := range filter {
		if have[want] {
			if matchAny {
				return true
			}
		} else if !matchAny {
			return false
		}
	}
	return !matchAny
}
