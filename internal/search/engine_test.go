package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-search/internal/config"
	"document-search/internal/vectorstore"
)

// fakeStore is an in-memory vectorstore.Store. Query scores by substring:
// entries containing the query text rank close (0.4), the rest far (1.6),
// with ties broken by id for deterministic ordering.
type fakeStore struct {
	mu       sync.Mutex
	entries  map[string]vectorstore.Entry
	resetErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]vectorstore.Entry)}
}

func (s *fakeStore) Upsert(_ context.Context, entries ...vectorstore.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if len(e.Embedding) == 0 {
			e.Embedding = []float32{1, 2, 3}
		}
		s.entries[e.ID] = e
	}
	return nil
}

func (s *fakeStore) Get(_ context.Context, id string) (vectorstore.Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	return e, ok, nil
}

func (s *fakeStore) Delete(_ context.Context, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.entries, id)
	}
	return nil
}

func (s *fakeStore) DeleteWhere(_ context.Context, where map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		match := true
		for k, v := range where {
			if e.Metadata[k] != v {
				match = false
				break
			}
		}
		if match {
			delete(s.entries, id)
		}
	}
	return nil
}

func (s *fakeStore) Query(_ context.Context, texts []string, n int) ([]vectorstore.Hit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []vectorstore.Hit
	for _, text := range texts {
		var hits []vectorstore.Hit
		for id, e := range s.entries {
			dist := 1.6
			if strings.Contains(strings.ToLower(e.Content), strings.ToLower(text)) {
				dist = 0.4
			}
			hits = append(hits, vectorstore.Hit{ID: id, Content: e.Content, Metadata: e.Metadata, Distance: dist})
		}
		sort.Slice(hits, func(i, j int) bool {
			if hits[i].Distance != hits[j].Distance {
				return hits[i].Distance < hits[j].Distance
			}
			return hits[i].ID < hits[j].ID
		})
		if len(hits) > n {
			hits = hits[:n]
		}
		out = append(out, hits...)
	}
	return out, nil
}

func (s *fakeStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries), nil
}

func (s *fakeStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resetErr != nil {
		return s.resetErr
	}
	s.entries = make(map[string]vectorstore.Entry)
	return nil
}

func (s *fakeStore) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type fakeTags struct {
	tags  map[string][]string
	order []string
}

func (f *fakeTags) TagsFor(_ context.Context, path string) ([]string, bool, error) {
	t, ok := f.tags[path]
	return t, ok, nil
}

func (f *fakeTags) Paths(_ context.Context) ([]string, error) {
	return f.order, nil
}

func newTestEngine(store vectorstore.Store, tags TagSource, extract Extractor) *Engine {
	return New(Deps{Store: store, Tags: tags, Extract: extract}, config.SearchConfig{})
}

// longContent builds multi-paragraph text that the default chunker splits.
func longContent(phrase string, paragraphs int) string {
	sentence := fmt.Sprintf("This section covers the %s in considerable operational detail. ", phrase)
	para := strings.TrimSpace(strings.Repeat(sentence, 5))
	parts := make([]string, paragraphs)
	for i := range parts {
		parts[i] = para
	}
	return strings.Join(parts, "\n\n")
}

func TestIndexStoresSingleDocument(t *testing.T) {
	store := newFakeStore()
	tags := &fakeTags{tags: map[string][]string{"/docs/note.txt": {"infra"}}}
	e := newTestEngine(store, tags, nil)

	content := "A short note about the cluster upgrade schedule for next month."
	require.NoError(t, e.Index(context.Background(), "/docs/note.txt", content, nil))

	assert.Equal(t, []string{"/docs/note.txt"}, store.ids())
	entry, ok, err := store.Get(context.Background(), "/docs/note.txt")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, content, entry.Content)
	assert.Equal(t, "false", entry.Metadata[metaIsChunk])
	assert.Equal(t, "note.txt", entry.Metadata[metaFilename])
	assert.Equal(t, `["infra"]`, entry.Metadata[metaTags])
	assert.NotEmpty(t, entry.Metadata[metaIndexedAt])
	assert.NotEmpty(t, entry.Metadata[metaSummary])
	assert.Empty(t, entry.Metadata[metaHasChunks])
}

func TestIndexChunksLongDocument(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(store, &fakeTags{}, nil)

	content := longContent("deployment rollout", 6)
	require.NoError(t, e.Index(context.Background(), "/docs/guide.md", content, nil))

	doc, ok, err := store.Get(context.Background(), "/docs/guide.md")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "true", doc.Metadata[metaHasChunks])
	n := parseCount(doc.Metadata[metaNumChunks])
	require.Greater(t, n, 1)
	assert.LessOrEqual(t, len(doc.Content), previewSize+len("..."))

	require.Len(t, store.ids(), n+1)
	for i := 0; i < n; i++ {
		chunk, ok, err := store.Get(context.Background(), fmt.Sprintf("/docs/guide.md#chunk%d", i))
		require.NoError(t, err)
		require.True(t, ok, "chunk %d", i)
		assert.Equal(t, "true", chunk.Metadata[metaIsChunk])
		assert.Equal(t, fmt.Sprint(i), chunk.Metadata[metaChunkID])
		assert.Equal(t, fmt.Sprint(n), chunk.Metadata[metaChunkTotal])
		assert.NotEmpty(t, chunk.Metadata[metaChunkTitle])
	}
}

func TestIndexReplacesPreviousEntries(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(store, &fakeTags{}, nil)
	ctx := context.Background()

	require.NoError(t, e.Index(ctx, "/docs/a.md", longContent("release process", 6), nil))
	require.Greater(t, len(store.ids()), 2)

	// Reindex with short content: every stale chunk entry must go.
	require.NoError(t, e.Index(ctx, "/docs/a.md", "Now just a stub file.", nil))
	assert.Equal(t, []string{"/docs/a.md"}, store.ids())
}

func TestIndexSkipsEmptyContent(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(store, &fakeTags{}, nil)

	require.NoError(t, e.Index(context.Background(), "/docs/blank.txt", "   \n\t ", nil))
	assert.Empty(t, store.ids())
}

func TestIndexCarriesExtraMetadata(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(store, &fakeTags{}, nil)

	extra := map[string]string{"source": "scanner"}
	require.NoError(t, e.Index(context.Background(), "/docs/x.txt", "Some scanned text content.", extra))

	entry, _, _ := store.Get(context.Background(), "/docs/x.txt")
	assert.Equal(t, "scanner", entry.Metadata["source"])
	// Reserved keys win over extras.
	assert.Equal(t, "/docs/x.txt", entry.Metadata[metaPath])
}

func TestRemove(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(store, &fakeTags{}, nil)
	ctx := context.Background()

	require.NoError(t, e.Index(ctx, "/docs/a.md", longContent("backup policy", 6), nil))
	require.NoError(t, e.Index(ctx, "/docs/b.txt", "Unrelated short file.", nil))

	assert.True(t, e.Remove(ctx, "/docs/a.md"))
	assert.Equal(t, []string{"/docs/b.txt"}, store.ids())
	assert.False(t, e.Remove(ctx, "/docs/a.md"))
}

func TestRefreshMetadata(t *testing.T) {
	store := newFakeStore()
	tags := &fakeTags{tags: map[string][]string{"/docs/a.md": {"draft"}}}
	e := newTestEngine(store, tags, nil)
	ctx := context.Background()

	require.NoError(t, e.Index(ctx, "/docs/a.md", longContent("migration plan", 6), nil))
	before, _, _ := store.Get(ctx, "/docs/a.md")

	tags.tags["/docs/a.md"] = []string{"final", "infra"}
	require.True(t, e.RefreshMetadata(ctx, "/docs/a.md"))

	doc, _, _ := store.Get(ctx, "/docs/a.md")
	assert.Equal(t, `["final","infra"]`, doc.Metadata[metaTags])
	assert.Equal(t, before.Content, doc.Content)
	assert.Equal(t, before.Embedding, doc.Embedding)
	assert.Equal(t, before.Metadata[metaSummary], doc.Metadata[metaSummary])
	assert.Equal(t, before.Metadata[metaNumChunks], doc.Metadata[metaNumChunks])

	chunk, ok, _ := store.Get(ctx, "/docs/a.md#chunk0")
	require.True(t, ok)
	assert.Equal(t, `["final","infra"]`, chunk.Metadata[metaTags])
	assert.Equal(t, "true", chunk.Metadata[metaIsChunk])
}

func TestRefreshMetadataUnknownPath(t *testing.T) {
	store := newFakeStore()
	tags := &fakeTags{tags: map[string][]string{"/docs/a.md": {"x"}}}
	e := newTestEngine(store, tags, nil)
	ctx := context.Background()

	// Not in the vector store.
	assert.False(t, e.RefreshMetadata(ctx, "/docs/missing.md"))

	// In the vector store but no longer in the tag store.
	require.NoError(t, e.Index(ctx, "/docs/a.md", "Some content to index here.", nil))
	delete(tags.tags, "/docs/a.md")
	assert.False(t, e.RefreshMetadata(ctx, "/docs/a.md"))
}

// seedCorpus indexes the three-document fixture used by the search tests.
func seedCorpus(t *testing.T, e *Engine) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.Index(ctx, "/docs/A.md", longContent("kubernetes deployment pipeline", 6), nil))
	require.NoError(t, e.Index(ctx, "/docs/B.txt", "Meeting notes. We discussed the kubernetes upgrade briefly at the end.", nil))
	require.NoError(t, e.Index(ctx, "/docs/C.txt", "Recipe collection for the office party, mostly desserts.", nil))
}

func corpusTags() *fakeTags {
	return &fakeTags{
		tags: map[string][]string{
			"/docs/A.md":  {"infra", "k8s"},
			"/docs/B.txt": {"notes"},
			"/docs/C.txt": {"infra"},
		},
		order: []string{"/docs/A.md", "/docs/B.txt", "/docs/C.txt"},
	}
}

func TestSearchRanksAndAggregates(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(store, corpusTags(), nil)
	seedCorpus(t, e)

	res, err := e.Search(context.Background(), "kubernetes", Options{})
	require.NoError(t, err)
	require.Len(t, res.Items, 3)
	assert.False(t, res.FilterBypassed)

	a, b, c := res.Items[0], res.Items[1], res.Items[2]
	assert.Equal(t, "/docs/A.md", a.Path)
	assert.Equal(t, "/docs/B.txt", b.Path)
	assert.Equal(t, "/docs/C.txt", c.Path)

	// A's entries collapse into one result counting every hit; B's single
	// document hit counts as one.
	assert.Greater(t, a.ChunksFound, 1)
	assert.Equal(t, 1, b.ChunksFound)
	assert.Equal(t, a.Score, b.Score)
	assert.Greater(t, b.Score, c.Score)

	assert.Equal(t, "A.md", a.Filename)
	assert.Equal(t, "md", a.FileType)
	assert.Equal(t, "Markdown document", a.DocumentType)
	assert.Equal(t, []string{"infra", "k8s"}, a.Tags)
	assert.NotEmpty(t, a.Summary)

	require.NotEmpty(t, a.Excerpts)
	assert.Contains(t, strings.ToLower(a.Excerpts[0]), "kubernetes")
}

func TestSearchTagFilterAllOf(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(store, corpusTags(), nil)
	seedCorpus(t, e)

	res, err := e.Search(context.Background(), "kubernetes", Options{Tags: []string{"infra", "k8s"}})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "/docs/A.md", res.Items[0].Path)
	assert.False(t, res.FilterBypassed)
}

func TestSearchTagFilterAnyOf(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(store, corpusTags(), nil)
	seedCorpus(t, e)

	res, err := e.Search(context.Background(), "kubernetes", Options{Tags: []string{"k8s", "notes"}, MatchAny: true})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "/docs/A.md", res.Items[0].Path)
	assert.Equal(t, "/docs/B.txt", res.Items[1].Path)
}

func TestSearchFilterFallback(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(store, corpusTags(), nil)
	seedCorpus(t, e)

	res, err := e.Search(context.Background(), "kubernetes", Options{Tags: []string{"nonexistent"}})
	require.NoError(t, err)
	assert.True(t, res.FilterBypassed)
	assert.Len(t, res.Items, 3)
}

func TestSearchLimit(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(store, corpusTags(), nil)
	seedCorpus(t, e)

	res, err := e.Search(context.Background(), "kubernetes", Options{Limit: 1})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "/docs/A.md", res.Items[0].Path)
}

func TestSearchEmptyStoreAndQuery(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(store, &fakeTags{}, nil)

	res, err := e.Search(context.Background(), "anything", Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Items)

	seedCorpus(t, e)
	res, err = e.Search(context.Background(), "   ", Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}

func TestDegradedMode(t *testing.T) {
	e := New(Deps{}, config.SearchConfig{})
	ctx := context.Background()

	assert.True(t, e.Degraded())
	assert.NoError(t, e.Index(ctx, "/docs/a.md", "content", nil))
	assert.False(t, e.Remove(ctx, "/docs/a.md"))
	assert.False(t, e.RefreshMetadata(ctx, "/docs/a.md"))

	res, err := e.Search(ctx, "query", Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Items)

	assert.Error(t, e.ReindexAll(ctx, nil))
}

func TestSearchEndToEnd(t *testing.T) {
	store := newFakeStore()
	tags := &fakeTags{tags: map[string][]string{
		"/docs/A.md":  {},
		"/docs/B.txt": {"draft"},
		"/docs/C.txt": {"final"},
	}}
	e := newTestEngine(store, tags, nil)
	ctx := context.Background()

	aContent := "# Intro\n\n" + strings.TrimSpace(strings.Repeat("An opening paragraph about the project scope and goals. ", 10)) +
		"\n\n# Details\n\n" + strings.TrimSpace(strings.Repeat("The details of the rollout are explained in this section. ", 40))
	require.Greater(t, len(aContent), 2500)
	require.NoError(t, e.Index(ctx, "/docs/A.md", aContent, nil))
	require.NoError(t, e.Index(ctx, "/docs/B.txt", "A short draft note that says nothing in particular about anything.", nil))
	require.NoError(t, e.Index(ctx, "/docs/C.txt", "A short final note that also says nothing in particular at all.", nil))

	// AND-filtering on "final" legitimately narrows to C; no fallback.
	res, err := e.Search(ctx, "details", Options{Tags: []string{"final"}})
	require.NoError(t, err)
	assert.False(t, res.FilterBypassed)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "/docs/C.txt", res.Items[0].Path)

	// Unfiltered, the chunked A.md outranks the short notes and carries a
	// sentence-bounded excerpt around the matched word.
	res, err = e.Search(ctx, "details", Options{})
	require.NoError(t, err)
	require.NotEmpty(t, res.Items)
	assert.Equal(t, "/docs/A.md", res.Items[0].Path)
	require.NotEmpty(t, res.Items[0].Excerpts)
	assert.Contains(t, strings.ToLower(res.Items[0].Excerpts[0]), "details")
}

func TestReindexAll(t *testing.T) {
	store := newFakeStore()
	tags := corpusTags()
	contents := map[string]string{
		"/docs/A.md":  longContent("incident response", 6),
		"/docs/C.txt": "Short unrelated file.",
	}
	extract := func(path string) (string, error) {
		text, ok := contents[path]
		if !ok {
			return "", fmt.Errorf("unreadable: %s", path)
		}
		return text, nil
	}
	e := newTestEngine(store, tags, extract)

	// Pre-seed something that a reset must wipe.
	require.NoError(t, store.Upsert(context.Background(), vectorstore.Entry{ID: "stale", Content: "old"}))

	var pcts []int
	err := e.ReindexAll(context.Background(), func(_ string, pct int) { pcts = append(pcts, pct) })
	require.NoError(t, err)

	ids := store.ids()
	assert.NotContains(t, ids, "stale")
	assert.Contains(t, ids, "/docs/C.txt")
	assert.Contains(t, ids, "/docs/A.md#chunk0")
	for _, id := range ids {
		assert.NotContains(t, id, "B.txt", "failed extraction must leave no entries")
	}

	require.NotEmpty(t, pcts)
	assert.Equal(t, 5, pcts[0])
	assert.Equal(t, 100, pcts[len(pcts)-1])
	assert.True(t, sort.IntsAreSorted(pcts))
}

func TestReindexAllResetFailureStillClears(t *testing.T) {
	store := newFakeStore()
	tags := &fakeTags{
		tags:  map[string][]string{"/docs/kept.txt": {}},
		order: []string{"/docs/kept.txt"},
	}
	extract := func(string) (string, error) { return "Fresh content for the kept file.", nil }
	e := newTestEngine(store, tags, extract)
	ctx := context.Background()

	// Entries left over from a path that is no longer tracked.
	require.NoError(t, e.Index(ctx, "/docs/removed.txt", longContent("decommissioned service", 6), nil))
	require.NotEmpty(t, store.ids())

	store.resetErr = errors.New("drop not supported")
	require.NoError(t, e.ReindexAll(ctx, nil))

	ids := store.ids()
	assert.Contains(t, ids, "/docs/kept.txt")
	for _, id := range ids {
		assert.NotContains(t, id, "removed.txt", "untracked entries must not survive a rebuild")
	}
}

func TestReindexAllCountsOnlyIndexedFiles(t *testing.T) {
	store := newFakeStore()
	tags := &fakeTags{
		tags:  map[string][]string{},
		order: []string{"/docs/a.txt", "/docs/empty.txt", "/docs/bad.txt"},
	}
	extract := func(path string) (string, error) {
		switch path {
		case "/docs/a.txt":
			return "Real content worth indexing.", nil
		case "/docs/empty.txt":
			return "", nil
		default:
			return "", errors.New("unreadable")
		}
	}
	e := newTestEngine(store, tags, extract)

	var last string
	require.NoError(t, e.ReindexAll(context.Background(), func(msg string, _ int) { last = msg }))

	// The empty extraction is neither indexed nor failed.
	assert.Equal(t, "Reindexed 1 files (1 failed)", last)
	assert.Equal(t, []string{"/docs/a.txt"}, store.ids())
}

func TestExcerptFloorIsExclusive(t *testing.T) {
	store := newFakeStore()
	e := New(Deps{Store: store, Tags: &fakeTags{}}, config.SearchConfig{
		ExcerptFloor: DefaultScoreParams().Similarity(0.4),
	})
	ctx := context.Background()

	require.NoError(t, e.Index(ctx, "/docs/a.txt", "Notes about the kubernetes upgrade window.", nil))

	// The hit's similarity lands exactly on the floor; excerpts attach
	// only above it.
	res, err := e.Search(ctx, "kubernetes", Options{})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Empty(t, res.Items[0].Excerpts)
}

func TestReindexAllCancel(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(store, corpusTags(), func(string) (string, error) { return "text", nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := e.ReindexAll(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFixAllMetadata(t *testing.T) {
	store := newFakeStore()
	tags := corpusTags()
	e := newTestEngine(store, tags, nil)
	ctx := context.Background()

	// Only two of the three known paths are actually in the vector store.
	require.NoError(t, e.Index(ctx, "/docs/A.md", "Content about scheduled maintenance windows.", nil))
	require.NoError(t, e.Index(ctx, "/docs/B.txt", "Content about meeting notes.", nil))

	tags.tags["/docs/A.md"] = []string{"updated"}
	fixed, total, err := e.FixAllMetadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, fixed)
	assert.Equal(t, 3, total)

	doc, _, _ := store.Get(ctx, "/docs/A.md")
	assert.Equal(t, `["updated"]`, doc.Metadata[metaTags])
}
