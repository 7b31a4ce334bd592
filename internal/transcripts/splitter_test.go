package transcripts

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitterChunkSizeBound(t *testing.T) {
	s := NewSplitter(100, 20)

	var b strings.Builder
	for i := 0; i < 80; i++ {
		b.WriteString("revenue grew again this quarter ")
	}
	chunks := s.Split(b.String())

	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.LessOrEqual(t, len(c), 100, "chunk %d exceeds size bound", i)
		assert.NotEmpty(t, strings.TrimSpace(c))
	}
}

func TestSplitterOverlap(t *testing.T) {
	s := NewSplitter(100, 30)

	words := make([]string, 60)
	for i := range words {
		words[i] = fmt.Sprintf("word%02d", i)
	}
	chunks := s.Split(strings.Join(words, " "))
	require.Greater(t, len(chunks), 1)

	// Consecutive chunks share a tail/head region of roughly the configured
	// overlap: the end of one chunk reappears at the start of the next.
	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1], chunks[i]
		shared := 0
		for l := 1; l <= len(prev) && l <= len(cur); l++ {
			if strings.HasPrefix(cur, prev[len(prev)-l:]) {
				shared = l
			}
		}
		assert.Greater(t, shared, 0, "chunks %d and %d do not overlap", i-1, i)
		assert.LessOrEqual(t, shared, 30+10, "overlap between chunks %d and %d too large", i-1, i)
	}
}

func TestSplitterPrefersParagraphBoundaries(t *testing.T) {
	s := NewSplitter(50, 0)

	paras := []string{
		"the first paragraph talks about revenue",
		"the second paragraph covers gross margin",
		"the third paragraph mentions full year guidance",
	}
	chunks := s.Split(strings.Join(paras, "\n\n"))

	// Each paragraph fits a chunk on its own but no two fit together, so the
	// splitter must cut exactly on the paragraph boundaries.
	require.Equal(t, paras, chunks)
}

func TestSplitterLongWordFallsBackToCharacters(t *testing.T) {
	s := NewSplitter(20, 5)

	chunks := s.Split(strings.Repeat("x", 95))
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 20)
	}
	// Every character of the input must be covered.
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	assert.GreaterOrEqual(t, total, 95)
}

func TestSplitterShortInputSingleChunk(t *testing.T) {
	s := NewSplitter(1200, 250)
	chunks := s.Split("Revenue grew 12% year over year.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "Revenue grew 12% year over year.", chunks[0])
}

func TestSplitterEmptyInput(t *testing.T) {
	s := NewSplitter(1200, 250)
	assert.Empty(t, s.Split(""))
	assert.Empty(t, s.Split("   \n \n  "))
}

func TestSplitterDefaults(t *testing.T) {
	s := NewSplitter(0, -1)
	assert.Equal(t, DefaultChunkSize, s.chunkSize)
	assert.Equal(t, DefaultChunkOverlap, s.overlap)

	clamped := NewSplitter(100, 200)
	assert.Less(t, clamped.overlap, clamped.chunkSize)
}
