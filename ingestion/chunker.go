package ingestion

import (
	"strings"
	"unicode/utf8"
)

const (
	defaultChunkSize    = 500
	defaultChunkOverlap = 100
)

// separators is the split priority: paragraph break, line break, sentence
// end, space, and finally a hard character cut.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Chunker splits text into segments of at most Size characters, with
// consecutive segments overlapping by up to Overlap characters. Splitting is
// deterministic for a given input and configuration.
type Chunker struct {
	size    int
	overlap int
}

func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = defaultChunkSize
	}
	if overlap < 0 {
		overlap = defaultChunkOverlap
	}
	if overlap >= size {
		overlap = size / 2
	}
	return &Chunker{size: size, overlap: overlap}
}

// Chunk splits text into overlapping segments. Empty or whitespace-only
// input yields nil.
func (c *Chunker) Chunk(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	pieces := c.splitPieces(text, 0)
	return c.merge(pieces)
}

// splitPieces reduces text to fragments no longer than the chunk size,
// preferring the earliest separator that gets a fragment under the limit.
// Separators stay attached to the preceding fragment so merged chunks
// reproduce the original text.
func (c *Chunker) splitPieces(text string, sepIdx int) []string {
	if len(text) <= c.size {
		return []string{text}
	}

	if sepIdx >= len(separators) || separators[sepIdx] == "" {
		return c.hardSplit(text)
	}

	sep := separators[sepIdx]
	parts := strings.SplitAfter(text, sep)

	pieces := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		if len(part) <= c.size {
			pieces = append(pieces, part)
			continue
		}
		pieces = append(pieces, c.splitPieces(part, sepIdx+1)...)
	}
	return pieces
}

// hardSplit cuts text with no usable separator into fixed-width fragments,
// leaving room for the overlap carried in by merge. Cuts back up to the
// nearest rune boundary so no fragment ends mid-rune.
func (c *Chunker) hardSplit(text string) []string {
	width := c.size - c.overlap
	if width <= 0 {
		width = c.size
	}

	pieces := make([]string, 0, len(text)/width+1)
	for start := 0; start < len(text); {
		end := start + width
		if end >= len(text) {
			pieces = append(pieces, text[start:])
			break
		}
		for end > start+1 && !utf8.RuneStart(text[end]) {
			end--
		}
		pieces = append(pieces, text[start:end])
		start = end
	}
	return pieces
}

// merge packs fragments into chunks of at most size characters, seeding each
// new chunk with the tail of the previous one to preserve context across the
// boundary.
func (c *Chunker) merge(pieces []string) []string {
	chunks := make([]string, 0)
	current := ""

	for _, piece := range pieces {
		if current != "" && len(current)+len(piece) > c.size {
			chunks = append(chunks, current)

			tail := c.overlap
			if tail > len(current) {
				tail = len(current)
			}
			if len(piece)+tail > c.size {
				tail = c.size - len(piece)
				if tail < 0 {
					tail = 0
				}
			}
			start := len(current) - tail
			for start < len(current) && !utf8.RuneStart(current[start]) {
				start++
			}
			current = current[start:]
		}
		current += piece
	}

	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, current)
	}

	return chunks
}
