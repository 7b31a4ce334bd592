package transcripts

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

// TranscriptExt is the file extension the loader picks up.
const TranscriptExt = ".txt"

var (
	// Boilerplate blocks are delimited by repeated-equals headers and
	// footers, e.g. "=== Disclaimer === ... === End ===".
	boilerplateRe = regexp.MustCompile(`(?s)={3,}.*?={3,}`)
	blankRunRe    = regexp.MustCompile(`\n{2,}`)
)

// DecodeError reports a transcript file that is not readable as text.
// The load of that file is aborted; there is no partial recovery.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transcript %s is not decodable as text: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("transcript %s is not decodable as text", e.Path)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Loader walks a corpus of earnings-call transcripts and produces chunks
// ready for embedding.
type Loader struct {
	splitter *Splitter
}

func NewLoader(chunkSize, chunkOverlap int) *Loader {
	return &Loader{splitter: NewSplitter(chunkSize, chunkOverlap)}
}

// Preprocess strips boilerplate blocks and collapses runs of newlines to a
// single newline.
func Preprocess(text string) string {
	text = boilerplateRe.ReplaceAllString(text, "")
	text = blankRunRe.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}

// LoadAndChunk recursively visits every transcript under root (or
// root/companyFilter when a filter is given) and returns the chunks in
// traversal order. Chunk IDs are source path plus ordinal within the file,
// stable across rebuilds of an unchanged corpus.
func (l *Loader) LoadAndChunk(root, companyFilter string) ([]Chunk, error) {
	target := root
	if companyFilter != "" {
		target = filepath.Join(root, companyFilter)
	}

	var chunks []Chunk
	err := filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), TranscriptExt) {
			return nil
		}

		fileChunks, err := l.loadFile(path)
		if err != nil {
			return err
		}
		chunks = append(chunks, fileChunks...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load transcripts from %s: %w", target, err)
	}

	log.Printf("Loaded %d chunks from %s", len(chunks), target)
	return chunks, nil
}

func (l *Loader) loadFile(path string) ([]Chunk, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript %s: %w", path, err)
	}
	if !utf8.Valid(raw) {
		return nil, &DecodeError{Path: path}
	}

	content := Preprocess(string(raw))
	company, date := ParseSourcePath(path)

	parts := l.splitter.Split(content)
	chunks := make([]Chunk, 0, len(parts))
	for i, text := range parts {
		chunks = append(chunks, Chunk{
			Text: text,
			Metadata: Metadata{
				Company: company,
				Date:    date,
				Source:  path,
				ChunkID: fmt.Sprintf("%s_%d", path, i),
			},
		})
	}
	return chunks, nil
}
