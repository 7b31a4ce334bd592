// Package index implements the persisted nearest-neighbor structure over
// transcript chunks. The index is an immutable artifact per corpus snapshot:
// there is no incremental update or delete, changing the corpus means a full
// rebuild. Saves are atomic (temp file plus rename) so a rebuild can be
// swapped under a serving process.
package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Hughclaw18/Enterprise-Rag/internal/provider"
	"github.com/Hughclaw18/Enterprise-Rag/internal/transcripts"
)

var (
	// ErrNotFound means no index artifact exists at the configured path.
	// The operator must build one before querying.
	ErrNotFound = errors.New("vector index artifact not found")

	// ErrCorrupt means an artifact exists but cannot be deserialized.
	// Rebuilding is the only recovery.
	ErrCorrupt = errors.New("vector index artifact is corrupt")
)

// Manifest records the parameters the index was built with. Load-time
// validation against the current configuration catches the silent skew that
// arises when the embedding model or chunking parameters change without a
// rebuild.
type Manifest struct {
	EmbeddingModel string    `json:"embedding_model"`
	ChunkSize      int       `json:"chunk_size"`
	ChunkOverlap   int       `json:"chunk_overlap"`
	BuiltAt        time.Time `json:"built_at"`
	Entries        int       `json:"entries"`
}

// MismatchError reports a loaded index whose build parameters disagree with
// the current configuration.
type MismatchError struct {
	Field string
	Built string
	Want  string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("index %s mismatch: built with %q, configured %q; rebuild the index", e.Field, e.Built, e.Want)
}

type entry struct {
	Vector []float32         `json:"vector"`
	Chunk  transcripts.Chunk `json:"chunk"`
}

type artifact struct {
	Manifest Manifest `json:"manifest"`
	Entries  []entry  `json:"entries"`
}

// Index holds embedded chunks and answers top-k similarity queries. It is
// read-only after Build or Load, so concurrent searches are safe.
type Index struct {
	manifest Manifest
	entries  []entry
}

// Result is one similarity hit, best match first in a Search return.
type Result struct {
	Chunk transcripts.Chunk
	Score float32
}

// Build embeds every chunk through the batch interface and assembles the
// search structure. The manifest fields EmbeddingModel, ChunkSize and
// ChunkOverlap must describe how chunks were produced.
func Build(ctx context.Context, chunks []transcripts.Chunk, embedder provider.Embedder, m Manifest) (*Index, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed %d chunks: %w", len(chunks), err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	entries := make([]entry, len(chunks))
	for i := range chunks {
		entries[i] = entry{Vector: vectors[i], Chunk: chunks[i]}
	}

	m.BuiltAt = time.Now().UTC()
	m.Entries = len(entries)
	return &Index{manifest: m, entries: entries}, nil
}

// Manifest returns the build parameters recorded in the artifact.
func (ix *Index) Manifest() Manifest { return ix.manifest }

// Len returns the number of indexed chunks.
func (ix *Index) Len() int { return len(ix.entries) }

// Save writes the artifact to path, overwriting any previous one. The write
// goes to a temp file in the same directory followed by a rename, so a reader
// never observes a half-written index.
func (ix *Index) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	data, err := json.Marshal(artifact{Manifest: ix.manifest, Entries: ix.entries})
	if err != nil {
		return fmt.Errorf("failed to serialize index: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".index-*")
	if err != nil {
		return fmt.Errorf("failed to create temp index file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp index file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace index artifact: %w", err)
	}
	return nil
}

// Load reads an artifact from disk. A missing path yields ErrNotFound and an
// undecodable artifact yields ErrCorrupt, so callers can tell the operator to
// rebuild rather than chase a generic failure.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read index %s: %w", path, err)
	}

	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w at %s: %v", ErrCorrupt, path, err)
	}
	if a.Manifest.Entries != len(a.Entries) {
		return nil, fmt.Errorf("%w at %s: manifest claims %d entries, found %d", ErrCorrupt, path, a.Manifest.Entries, len(a.Entries))
	}

	return &Index{manifest: a.Manifest, entries: a.Entries}, nil
}

// CheckCompat validates the loaded manifest against the current
// configuration.
func (ix *Index) CheckCompat(embeddingModel string, chunkSize, chunkOverlap int) error {
	if ix.manifest.EmbeddingModel != embeddingModel {
		return &MismatchError{Field: "embedding model", Built: ix.manifest.EmbeddingModel, Want: embeddingModel}
	}
	if ix.manifest.ChunkSize != chunkSize {
		return &MismatchError{Field: "chunk size", Built: fmt.Sprint(ix.manifest.ChunkSize), Want: fmt.Sprint(chunkSize)}
	}
	if ix.manifest.ChunkOverlap != chunkOverlap {
		return &MismatchError{Field: "chunk overlap", Built: fmt.Sprint(ix.manifest.ChunkOverlap), Want: fmt.Sprint(chunkOverlap)}
	}
	return nil
}

// Search returns up to k entries nearest to the query vector by cosine
// similarity, best match first. Ties keep insertion order.
func (ix *Index) Search(queryVector []float32, k int) []Result {
	if k <= 0 || len(ix.entries) == 0 {
		return nil
	}

	results := make([]Result, 0, len(ix.entries))
	for _, e := range ix.entries {
		score, err := cosineSimilarity(queryVector, e.Vector)
		if err != nil {
			log.Printf("Skipping chunk %s in search: %v", e.Chunk.Metadata.ChunkID, err)
			continue
		}
		results = append(results, Result{Chunk: e.Chunk, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}
