// Package chunker splits extracted document text into semantically coherent
// chunks. Documents with markdown-style headings are split at heading
// boundaries; everything else is split on paragraph breaks with a small
// sentence overlap carried between consecutive chunks.
package chunker

import (
	"regexp"
	"strings"
)

const (
	DefaultMinSize = 200
	DefaultMaxSize = 1000
	DefaultOverlap = 50

	titleLimit = 50
)

var (
	// A heading line is one or more '#' followed by whitespace and a word.
	headingProbe = regexp.MustCompile(`(?m)^#+\s+\w`)
	headingLine  = regexp.MustCompile(`(?m)^(#+)\s+(.+)$`)
	paragraphSep = regexp.MustCompile(`\n\s*\n`)
	sentenceEnd  = regexp.MustCompile(`[^.!?]+[.!?]`)
)

// Chunker holds the size parameters for splitting. Sizes are in bytes.
type Chunker struct {
	minSize int
	maxSize int
	overlap int
}

// New returns a Chunker; non-positive sizes and a negative overlap fall back
// to the defaults.
func New(minSize, maxSize, overlap int) *Chunker {
	if minSize <= 0 {
		minSize = DefaultMinSize
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	return &Chunker{minSize: minSize, maxSize: maxSize, overlap: overlap}
}

// Chunk splits text into ordered chunks. Empty input yields no chunks and
// text within maxSize is returned as a single chunk.
func (c *Chunker) Chunk(text string) []string {
	if text == "" {
		return nil
	}
	if len(text) <= c.maxSize {
		return []string{text}
	}
	if headingProbe.MatchString(text) {
		return c.chunkByHeadings(text)
	}
	return c.chunkByParagraphs(text, c.maxSize)
}

// chunkByHeadings splits at each heading boundary. Sections still exceeding
// maxSize are sub-chunked by paragraphs, with the owning heading re-prefixed
// onto each sub-chunk so every chunk remains self-describing.
func (c *Chunker) chunkByHeadings(text string) []string {
	locs := headingLine.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return c.chunkByParagraphs(text, c.maxSize)
	}

	var chunks []string
	for i, loc := range locs {
		start := loc[0]
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		heading := text[loc[0]:loc[1]]
		section := text[start:end]

		if len(section) > c.maxSize {
			for _, sub := range c.chunkByParagraphs(section, c.maxSize-len(heading)) {
				if strings.HasPrefix(sub, heading) {
					chunks = append(chunks, sub)
				} else {
					chunks = append(chunks, heading+"\n"+sub)
				}
			}
		} else {
			chunks = append(chunks, section)
		}
	}

	// Text before the first heading becomes its own chunk when substantial.
	if locs[0][0] > 0 {
		prefix := text[:locs[0][0]]
		if len(strings.TrimSpace(prefix)) > c.minSize {
			chunks = append([]string{prefix}, chunks...)
		}
	}

	return chunks
}

// chunkByParagraphs accumulates paragraphs into chunks of at most maxSize,
// seeding each new chunk with the trailing sentences of the previous one.
func (c *Chunker) chunkByParagraphs(text string, maxSize int) []string {
	var chunks []string
	var current string

	for _, para := range paragraphSep.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if len(current)+len(para)+2 > maxSize && len(current) >= c.minSize {
			chunks = append(chunks, current)
			current = c.overlapTail(current)
		}

		if current != "" && !strings.HasSuffix(current, "\n") {
			current += "\n\n"
		}
		current += para
	}

	if current != "" && len(current) >= c.minSize {
		chunks = append(chunks, current)
	}

	return chunks
}

// overlapTail returns the last couple of sentences found within the final
// overlap*2 bytes of a closed chunk, used to seed the next chunk.
func (c *Chunker) overlapTail(closed string) string {
	if c.overlap <= 0 || len(closed) <= c.overlap {
		return ""
	}
	from := len(closed) - c.overlap*2
	if from < 0 {
		from = 0
	}
	sentences := sentenceEnd.FindAllString(closed[from:], -1)
	if len(sentences) == 0 {
		return ""
	}
	if len(sentences) > 2 {
		sentences = sentences[len(sentences)-2:]
	}
	return strings.Join(sentences, "")
}

// ExtractTitle derives a short label for a chunk: the first heading if one
// exists, else the first non-blank line truncated to 50 characters.
func ExtractTitle(chunk string) string {
	if m := headingLine.FindStringSubmatch(chunk); m != nil {
		return strings.TrimSpace(m[2])
	}
	for _, line := range strings.Split(chunk, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		return truncate(line, titleLimit)
	}
	return "Untitled chunk"
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	// Back off to a rune boundary so the cut never splits a character.
	cut := limit
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut] + "..."
}
