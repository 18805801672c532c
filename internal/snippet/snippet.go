// Package snippet extracts short, sentence-aligned excerpts around query
// term occurrences, used to show why a document matched a search.
package snippet

import (
	"sort"
	"strings"
)

const (
	DefaultMaxSnippets = 3
	DefaultLength      = 150

	// How far a window boundary may be moved to reach a sentence edge.
	boundaryScan = 150
	minTermLen   = 3
)

type occurrence struct {
	pos  int
	term string
}

// Extract returns up to maxSnippets excerpts of roughly length bytes around
// occurrences of the query terms in text. Terms shorter than three characters
// are ignored; with no usable terms (or no occurrences) the head of the text
// is returned as a single excerpt.
func Extract(text, query string, maxSnippets, length int) []string {
	if maxSnippets <= 0 {
		maxSnippets = DefaultMaxSnippets
	}
	if length <= 0 {
		length = DefaultLength
	}
	if text == "" || query == "" {
		return nil
	}

	var terms []string
	for _, t := range strings.Fields(strings.ToLower(query)) {
		if len(t) >= minTermLen {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		return []string{head(text, length) + "..."}
	}

	occs := findOccurrences(text, terms)
	if len(occs) == 0 {
		return []string{head(text, length) + "..."}
	}

	var snippets []string
	curStart, curEnd := -1, -1
	for _, o := range occs {
		if len(snippets) >= maxSnippets {
			break
		}
		start := o.pos - length/2
		if start < 0 {
			start = 0
		}
		end := o.pos + len(o.term) + length/2
		if end > len(text) {
			end = len(text)
		}

		// A nearby occurrence extends the open window instead of starting
		// a new one.
		if curStart >= 0 && start <= curEnd+length/3 {
			curEnd = end
			continue
		}
		if curStart >= 0 {
			snippets = append(snippets, render(text, curStart, curEnd))
		}
		curStart, curEnd = start, end
	}
	if curStart >= 0 && len(snippets) < maxSnippets {
		snippets = append(snippets, render(text, curStart, curEnd))
	}

	return snippets
}

func findOccurrences(text string, terms []string) []occurrence {
	// ASCII-only lowering keeps byte offsets aligned with the original text.
	lower := lowerASCII(text)
	var occs []occurrence
	for _, term := range terms {
		from := 0
		for {
			i := strings.Index(lower[from:], term)
			if i < 0 {
				break
			}
			pos := from + i
			occs = append(occs, occurrence{pos: pos, term: term})
			from = pos + 1
		}
	}
	sort.Slice(occs, func(i, j int) bool {
		if occs[i].pos != occs[j].pos {
			return occs[i].pos < occs[j].pos
		}
		return occs[i].term < occs[j].term
	})
	return occs
}

// render snaps the window to sentence boundaries and adds ellipses where the
// excerpt does not touch the true start or end of the text.
func render(text string, start, end int) string {
	start = sentenceStart(text, start)
	end = sentenceEndPos(text, end)

	prefix, suffix := "", ""
	if start > 0 {
		prefix = "..."
	}
	if end < len(text) {
		suffix = "..."
	}
	return prefix + text[start:end] + suffix
}

// sentenceStart walks backward up to boundaryScan bytes looking for terminal
// punctuation; the sentence starts just after it.
func sentenceStart(text string, pos int) int {
	low := pos - boundaryScan
	if low < 0 {
		low = 0
	}
	for i := pos; i > low; i-- {
		if i > 0 && isTerminal(text[i-1]) {
			return i
		}
	}
	return low
}

// sentenceEndPos walks forward up to boundaryScan bytes for terminal
// punctuation, then past any trailing punctuation and whitespace.
func sentenceEndPos(text string, pos int) int {
	limit := pos + boundaryScan
	if limit > len(text) {
		limit = len(text)
	}
	for i := pos; i < limit; i++ {
		if !isTerminal(text[i]) {
			continue
		}
		jLimit := i + 10
		if jLimit > len(text) {
			jLimit = len(text)
		}
		for j := i + 1; j < jLimit; j++ {
			if !isTerminal(text[j]) && !isSpace(text[j]) {
				return j
			}
		}
		return i + 1
	}
	return limit
}

func isTerminal(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func head(text string, n int) string {
	if len(text) <= n {
		return text
	}
	// Stay on a rune boundary.
	for n > 0 && text[n]&0xC0 == 0x80 {
		n--
	}
	return text[:n]
}

func lowerASCII(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		b.WriteByte(c)
	}
	return b.String()
}
