package services

import (
	"strings"
	"unicode/utf8"

	"pdf-chat-backend/models"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// defaultSeparators are tried in order: paragraph, line, sentence end, word.
// The empty separator splits into single characters.
var defaultSeparators = []string{"\n\n", "\n", ". ", "! ", "? ", " ", ""}

// Chunker splits page text into overlapping windows that prefer natural
// boundaries. Sizes are counted in characters (runes). A Chunker holds no
// mutable state and is safe for concurrent use.
type Chunker struct {
	size       int
	overlap    int
	separators []string
}

// NewChunker creates a chunker. Non-positive size falls back to the default;
// overlap is clamped to [0, size).
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	return &Chunker{size: size, overlap: overlap, separators: defaultSeparators}
}

// Chunk turns pages into ordered chunks. Blank pages are skipped and a chunk
// never spans two pages. Ordinal counts chunks across the whole input.
func (c *Chunker) Chunk(pages []models.Page) []models.TextChunk {
	chunks := []models.TextChunk{}
	for _, page := range pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		for _, text := range c.SplitText(page.Text) {
			chunks = append(chunks, models.TextChunk{
				Text:    text,
				Page:    page.Number,
				Ordinal: len(chunks),
			})
		}
	}
	return chunks
}

// SplitText splits one page worth of text. Returned pieces are trimmed and non-empty.
func (c *Chunker) SplitText(text string) []string {
	return c.split(text, c.separators)
}

func (c *Chunker) split(text string, separators []string) []string {
	sep := ""
	var rest []string
	for i, s := range separators {
		if s == "" || strings.Contains(text, s) {
			sep = s
			rest = separators[i+1:]
			break
		}
	}

	var out, fitting []string
	for _, piece := range splitKeep(text, sep) {
		if utf8.RuneCountInString(piece) <= c.size {
			fitting = append(fitting, piece)
			continue
		}
		if len(fitting) > 0 {
			out = append(out, c.merge(fitting)...)
			fitting = nil
		}
		out = append(out, c.split(piece, rest)...)
	}
	if len(fitting) > 0 {
		out = append(out, c.merge(fitting)...)
	}
	return out
}

// merge packs pieces into windows of at most c.size runes, carrying up to
// c.overlap runes of trailing pieces into the next window.
func (c *Chunker) merge(pieces []string) []string {
	var out []string
	var window []string
	total := 0

	for _, piece := range pieces {
		n := utf8.RuneCountInString(piece)
		if total+n > c.size && len(window) > 0 {
			if chunk := strings.TrimSpace(strings.Join(window, "")); chunk != "" {
				out = append(out, chunk)
			}
			for total > c.overlap || (total+n > c.size && total > 0) {
				total -= utf8.RuneCountInString(window[0])
				window = window[1:]
			}
		}
		window = append(window, piece)
		total += n
	}

	if chunk := strings.TrimSpace(strings.Join(window, "")); chunk != "" {
		out = append(out, chunk)
	}
	return out
}

// splitKeep splits text after every sep, keeping sep at the end of each
// piece so that joining the pieces restores text exactly.
func splitKeep(text, sep string) []string {
	if sep == "" {
		pieces := make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}

	var pieces []string
	for {
		i := strings.Index(text, sep)
		if i < 0 {
			break
		}
		pieces = append(pieces, text[:i+len(sep)])
		text = text[i+len(sep):]
	}
	if text != "" {
		pieces = append(pieces, text)
	}
	return pieces
}
