package transcripts

import "strings"

// Default splitting parameters. The index artifact records the values it was
// built with; query-time config must match or retrieval quality degrades.
const (
	DefaultChunkSize    = 1200
	DefaultChunkOverlap = 250
)

// Splitter breaks text into chunks of at most chunkSize characters with
// roughly overlap characters shared between consecutive chunks. It tries the
// coarsest separator first (paragraph, then line, then word) and falls back to
// a raw character split only when a single word exceeds the chunk size.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// NewSplitter creates a splitter. Non-positive size or negative overlap fall
// back to the defaults; overlap is clamped below the chunk size.
func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultChunkOverlap
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		chunkSize:  chunkSize,
		overlap:    overlap,
		separators: []string{"\n\n", "\n", " ", ""},
	}
}

// Split returns the chunks of text in order. Whitespace-only chunks are
// dropped.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	sep := separators[len(separators)-1]
	rest := separators
	for i, cand := range separators {
		if cand == "" || strings.Contains(text, cand) {
			sep = cand
			rest = separators[i+1:]
			break
		}
	}

	if sep == "" {
		return s.splitRunes(text)
	}

	var chunks []string
	var pending []string // under-sized pieces awaiting merge
	for _, piece := range strings.Split(text, sep) {
		if piece == "" {
			continue
		}
		if len(piece) < s.chunkSize {
			pending = append(pending, piece)
			continue
		}
		// Oversized piece: flush what we have, then recurse on a finer
		// separator.
		if len(pending) > 0 {
			chunks = append(chunks, s.merge(pending, sep)...)
			pending = nil
		}
		chunks = append(chunks, s.split(piece, rest)...)
	}
	if len(pending) > 0 {
		chunks = append(chunks, s.merge(pending, sep)...)
	}
	return chunks
}

// merge joins consecutive pieces with sep into chunks no longer than
// chunkSize, carrying up to overlap trailing characters into the next chunk.
func (s *Splitter) merge(pieces []string, sep string) []string {
	var chunks []string
	var window []string
	total := 0 // length of window joined with sep

	joined := func() int {
		if len(window) == 0 {
			return 0
		}
		return total + (len(window)-1)*len(sep)
	}

	for _, p := range pieces {
		for len(window) > 0 && joined()+len(sep)+len(p) > s.chunkSize {
			if chunk := strings.TrimSpace(strings.Join(window, sep)); chunk != "" {
				chunks = append(chunks, chunk)
			}
			// Slide the window: drop leading pieces until the retained tail
			// fits the overlap budget.
			for joined() > s.overlap || (len(window) > 0 && joined()+len(sep)+len(p) > s.chunkSize) {
				total -= len(window[0])
				window = window[1:]
			}
			break
		}
		window = append(window, p)
		total += len(p)
	}
	if chunk := strings.TrimSpace(strings.Join(window, sep)); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// splitRunes is the last-resort character split for text with no usable
// separator, stepping by chunkSize minus overlap.
func (s *Splitter) splitRunes(text string) []string {
	runes := []rune(text)
	step := s.chunkSize - s.overlap
	if step <= 0 {
		step = s.chunkSize
	}
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
