// Package pipeline composes the retrieval chain: embed the question, search
// the vector index, rerank the candidates, fill the prompt and generate the
// answer. One query is one linear pass; there is no retry or partial-result
// fallback, any failing step surfaces as the single error of Answer.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/Hughclaw18/Enterprise-Rag/internal/eval"
	"github.com/Hughclaw18/Enterprise-Rag/internal/index"
	"github.com/Hughclaw18/Enterprise-Rag/internal/prompt"
	"github.com/Hughclaw18/Enterprise-Rag/internal/provider"
	"github.com/Hughclaw18/Enterprise-Rag/internal/rerank"
	"github.com/Hughclaw18/Enterprise-Rag/internal/transcripts"
)

// Default retrieval widths: cast a wide similarity net, then let the
// reranker cut it down to what actually fits a prompt.
const (
	DefaultRetrievalK = 40
	DefaultRerankTopN = 3
)

// Config fixes the pipeline's retrieval parameters and where to find the
// index artifact. EmbeddingModel, ChunkSize and ChunkOverlap are checked
// against the artifact's manifest on load.
type Config struct {
	IndexPath      string
	EmbeddingModel string
	ChunkSize      int
	ChunkOverlap   int
	RetrievalK     int
	RerankTopN     int
}

// Answer is the result of one query: the generated text plus the chunks the
// prompt was conditioned on, in rank order. Scores is non-nil only when an
// evaluator is attached and its best-effort pass succeeded.
type Answer struct {
	Text    string
	Sources []transcripts.Chunk
	Scores  *eval.Scores
}

// Pipeline is constructed once in main and handed to request handlers; the
// index artifact is loaded lazily on the first query and reused for the
// process lifetime. Loaded indexes are read-only, so concurrent queries are
// safe; rebuilding while serving must go through Save's atomic rename.
type Pipeline struct {
	embedder  provider.Embedder
	reranker  rerank.Reranker
	generator provider.Generator
	evaluator *eval.Evaluator // optional
	cfg       Config

	mu  sync.Mutex
	idx *index.Index
}

func New(embedder provider.Embedder, reranker rerank.Reranker, generator provider.Generator, evaluator *eval.Evaluator, cfg Config) *Pipeline {
	if cfg.RetrievalK <= 0 {
		cfg.RetrievalK = DefaultRetrievalK
	}
	if cfg.RerankTopN <= 0 {
		cfg.RerankTopN = DefaultRerankTopN
	}
	return &Pipeline{
		embedder:  embedder,
		reranker:  reranker,
		generator: generator,
		evaluator: evaluator,
		cfg:       cfg,
	}
}

// loadIndex loads and validates the artifact on first use. A failed load is
// retried on the next query, so building the index does not require a
// restart.
func (p *Pipeline) loadIndex() (*index.Index, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.idx != nil {
		return p.idx, nil
	}

	ix, err := index.Load(p.cfg.IndexPath)
	if err != nil {
		return nil, err
	}
	if err := ix.CheckCompat(p.cfg.EmbeddingModel, p.cfg.ChunkSize, p.cfg.ChunkOverlap); err != nil {
		return nil, err
	}

	log.Printf("Loaded vector index from %s (%d entries, built %s)", p.cfg.IndexPath, ix.Len(), ix.Manifest().BuiltAt.Format("2006-01-02 15:04:05"))
	p.idx = ix
	return ix, nil
}

// Answer runs the full chain for one question.
func (p *Pipeline) Answer(ctx context.Context, question string) (*Answer, error) {
	ix, err := p.loadIndex()
	if err != nil {
		return nil, err
	}

	queryVec, err := p.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	candidates := ix.Search(queryVec, p.cfg.RetrievalK)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("vector search returned no candidates")
	}

	chunks := make([]transcripts.Chunk, len(candidates))
	for i, c := range candidates {
		chunks[i] = c.Chunk
	}

	ranked, err := p.reranker.Rerank(ctx, question, chunks, p.cfg.RerankTopN)
	if err != nil {
		return nil, fmt.Errorf("failed to rerank candidates: %w", err)
	}

	sources := make([]transcripts.Chunk, len(ranked))
	excerpts := make([]string, len(ranked))
	for i, r := range ranked {
		sources[i] = r.Chunk
		excerpts[i] = r.Chunk.Text
	}

	text, err := p.generator.Complete(ctx, prompt.Assemble(question, excerpts))
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	answer := &Answer{Text: text, Sources: sources}
	if p.evaluator != nil {
		if scores, err := p.evaluator.Evaluate(ctx, question, text, excerpts); err != nil {
			log.Printf("Answer evaluation failed (ignored): %v", err)
		} else {
			answer.Scores = &scores
		}
	}
	return answer, nil
}
