package ingest

import (
	"fmt"
	"iter"
	"unicode"
	"unicode/utf8"

	"github.com/akolanti/LegalRAG/internal/domain/commonModels"
)

// Splitter cuts text into chunks of at most Size runes, adjacent chunks
// sharing exactly Overlap runes.
type Splitter struct {
	size    int
	overlap int
}

func NewSplitter(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunk overlap must not be negative, got %d", overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", overlap, size)
	}
	return &Splitter{size: size, overlap: overlap}, nil
}

func (s *Splitter) Size() int    { return s.size }
func (s *Splitter) Overlap() int { return s.overlap }

// Split yields the chunks lazily. Every range over the result starts again
// from the beginning of text. Chunks are slices of text, so an invalid byte
// counts as one rune and comes back unchanged.
func (s *Splitter) Split(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		runes, offsets := decode(text)
		n := len(runes)
		start := 0
		for start < n {
			if n-start <= s.size {
				yield(text[offsets[start]:])
				return
			}
			end := s.cut(runes, start)
			if !yield(text[offsets[start]:offsets[end]]) {
				return
			}
			start = end - s.overlap
		}
	}
}

// decode returns the runes of text and the byte offset each one starts at,
// plus len(text) as the final offset.
func decode(text string) ([]rune, []int) {
	runes := make([]rune, 0, len(text))
	offsets := make([]int, 0, len(text)+1)
	for pos := 0; pos < len(text); {
		r, width := utf8.DecodeRuneInString(text[pos:])
		runes = append(runes, r)
		offsets = append(offsets, pos)
		pos += width
	}
	return runes, append(offsets, len(text))
}

// Chunks collects Split into indexed chunks.
func (s *Splitter) Chunks(text string) []commonModels.Chunk {
	var chunks []commonModels.Chunk
	for piece := range s.Split(text) {
		chunks = append(chunks, commonModels.Chunk{Index: len(chunks), Text: piece})
	}
	return chunks
}

// cut picks the end of the chunk starting at start. Paragraph breaks win over
// sentence ends, sentence ends over whitespace. Only cuts in the back half of
// the window and past the overlap count, anything else is a hard cut.
func (s *Splitter) cut(runes []rune, start int) int {
	limit := start + s.size
	minEnd := start + s.size/2
	if minEnd < start+s.overlap+1 {
		minEnd = start + s.overlap + 1
	}
	if minEnd < start+2 {
		minEnd = start + 2
	}
	if minEnd > limit {
		return limit
	}

	if end := lastCut(runes, minEnd, limit, isParagraphEnd); end > 0 {
		return end
	}
	if end := lastCut(runes, minEnd, limit, isSentenceEnd); end > 0 {
		return end
	}
	if end := lastCut(runes, minEnd, limit, isWordEnd); end > 0 {
		return end
	}
	return limit
}

// lastCut scans candidate ends from hi down to lo; the cut falls right after runes[end-1].
func lastCut(runes []rune, lo, hi int, boundary func(prev, last rune) bool) int {
	for end := hi; end >= lo; end-- {
		if boundary(runes[end-2], runes[end-1]) {
			return end
		}
	}
	return 0
}

func isParagraphEnd(prev, last rune) bool {
	return prev == '\n' && last == '\n'
}

func isSentenceEnd(prev, last rune) bool {
	switch prev {
	case '.', '!', '?':
		return last == ' ' || (prev == '.' && last == '\n')
	}
	return false
}

func isWordEnd(_, last rune) bool {
	return unicode.IsSpace(last)
}
