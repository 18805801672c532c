package search

import "strings"

const (
	maxExpandedQueries = 3
	maxSynonymsPerWord = 2
	maxExpandableWords = 3
)

// Expander derives alternative phrasings for short queries by substituting
// one word at a time from a synonym table, improving recall on sparse
// corpora. The original query always comes first.
type Expander struct {
	synonyms map[string][]string
}

// NewExpander builds an Expander; a nil table falls back to the built-in
// document-domain synonyms.
func NewExpander(synonyms map[string][]string) *Expander {
	if synonyms == nil {
		synonyms = DefaultSynonyms()
	}
	return &Expander{synonyms: synonyms}
}

// Expand returns up to three queries, the original first. Queries longer
// than three words are returned unmodified.
func (e *Expander) Expand(query string) []string {
	expanded := []string{query}

	words := strings.Fields(strings.ToLower(query))
	if len(words) > maxExpandableWords {
		return expanded
	}

	for i, word := range words {
		syns, ok := e.synonyms[word]
		if !ok {
			continue
		}
		if len(syns) > maxSynonymsPerWord {
			syns = syns[:maxSynonymsPerWord]
		}
		for _, syn := range syns {
			alt := make([]string, len(words))
			copy(alt, words)
			alt[i] = syn
			expanded = append(expanded, strings.Join(alt, " "))
			if len(expanded) >= maxExpandedQueries {
				return expanded
			}
		}
	}

	return expanded
}

// DefaultSynonyms is the stock substitution table for file-search queries.
func DefaultSynonyms() map[string][]string {
	return map[string][]string{
		"document":     {"file", "content", "text", "doc"},
		"text":         {"content", "document", "writing", "words"},
		"image":        {"picture", "photo", "jpg", "jpeg", "png"},
		"video":        {"movie", "mp4", "film", "clip"},
		"pdf":          {"document", "acrobat", "paper"},
		"presentation": {"slides", "powerpoint", "ppt", "slideshow"},
		"spreadsheet":  {"excel", "xls", "xlsx", "table", "worksheet"},
		"code":         {"source", "programming", "script", "py", "js"},
		"email":        {"mail", "message", "correspondence"},
		"music":        {"audio", "song", "mp3", "sound"},
		"important":    {"critical", "essential", "key", "urgent"},
		"report":       {"analysis", "summary", "document", "results"},
		"search":       {"find", "query", "lookup", "locate"},
		"folder":       {"directory", "collection", "group"},
		"old":          {"archive", "outdated", "previous"},
		"new":          {"recent", "latest", "current", "updated"},
	}
}
