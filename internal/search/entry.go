package search

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Metadata keys shared by every stored entry. The store only accepts scalar
// values, so tags are JSON-encoded at this boundary.
const (
	metaPath       = "path"
	metaFilename   = "filename"
	metaIndexedAt  = "indexed_at"
	metaTags       = "tags"
	metaSummary    = "summary"
	metaIsChunk    = "is_chunk"
	metaHasChunks  = "has_chunks"
	metaNumChunks  = "num_chunks"
	metaChunkID    = "chunk_id"
	metaChunkTotal = "chunk_total"
	metaChunkTitle = "chunk_title"
)

// EntryID identifies a stored entry: a document by path, or one of its
// chunks by path plus chunk index. The compound "path#chunkN" string exists
// only at the store boundary.
type EntryID struct {
	Path  string
	Chunk int // -1 for the document entry
}

func DocumentID(path string) EntryID { return EntryID{Path: path, Chunk: -1} }

func ChunkID(path string, n int) EntryID { return EntryID{Path: path, Chunk: n} }

func (id EntryID) IsChunk() bool { return id.Chunk >= 0 }

func (id EntryID) String() string {
	if id.Chunk < 0 {
		return id.Path
	}
	return fmt.Sprintf("%s#chunk%d", id.Path, id.Chunk)
}

// ParseEntryID recovers an EntryID from its stored form. Anything without a
// well-formed "#chunkN" suffix is a document id.
func ParseEntryID(s string) EntryID {
	if i := strings.LastIndex(s, "#chunk"); i >= 0 {
		if n, err := strconv.Atoi(s[i+len("#chunk"):]); err == nil && n >= 0 {
			return EntryID{Path: s[:i], Chunk: n}
		}
	}
	return EntryID{Path: s, Chunk: -1}
}

// entryMeta is the metadata base shared by document and chunk entries.
type entryMeta struct {
	Path      string
	Filename  string
	IndexedAt string
	Tags      []string
	Summary   string
	Extra     map[string]string
}

func (m entryMeta) encode() map[string]string {
	out := make(map[string]string, 8+len(m.Extra))
	for k, v := range m.Extra {
		out[k] = v
	}
	out[metaPath] = m.Path
	out[metaFilename] = m.Filename
	out[metaIndexedAt] = m.IndexedAt
	out[metaTags] = encodeTags(m.Tags)
	if m.Summary != "" {
		out[metaSummary] = m.Summary
	}
	return out
}

// documentEntry is the entry stored under the bare document path.
type documentEntry struct {
	entryMeta
	HasChunks bool
	NumChunks int
}

func (d documentEntry) metadata() map[string]string {
	out := d.encode()
	out[metaIsChunk] = "false"
	if d.HasChunks {
		out[metaHasChunks] = "true"
		out[metaNumChunks] = strconv.Itoa(d.NumChunks)
	}
	return out
}

// chunkEntry is one chunk of a multi-chunk document.
type chunkEntry struct {
	entryMeta
	ChunkID    int
	ChunkTotal int
	Title      string
}

func (c chunkEntry) metadata() map[string]string {
	out := c.encode()
	out[metaIsChunk] = "true"
	out[metaChunkID] = strconv.Itoa(c.ChunkID)
	out[metaChunkTotal] = strconv.Itoa(c.ChunkTotal)
	out[metaChunkTitle] = c.Title
	return out
}

func encodeTags(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// decodeTags parses the stored JSON tag list. Malformed or non-array values
// decode to an empty set, never an error.
func decodeTags(s string) []string {
	if s == "" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(s), &tags); err != nil {
		return nil
	}
	return tags
}

var typeLabels = map[string]string{
	"pdf":      "PDF document",
	"doc":      "Word document",
	"docx":     "Word document",
	"md":       "Markdown document",
	"markdown": "Markdown document",
	"txt":      "Text document",
	"text":     "Text document",
	"log":      "Text document",
	"csv":      "Spreadsheet",
	"xls":      "Spreadsheet",
	"xlsx":     "Spreadsheet",
	"ods":      "Spreadsheet",
	"ppt":      "Presentation",
	"pptx":     "Presentation",
	"html":     "Web page",
	"htm":      "Web page",
}

// TypeLabel returns a human-readable document type for a file path.
func TypeLabel(path string) string {
	if label, ok := typeLabels[fileType(path)]; ok {
		return label
	}
	return "Document"
}

func fileType(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return ""
	}
	return strings.ToLower(ext[1:])
}
