package rerank

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/Hughclaw18/Enterprise-Rag/internal/transcripts"
)

// LexicalReranker scores candidates by query-term overlap. It is the local,
// offline-capable stand-in for a hosted cross-encoder: much weaker, but it
// needs no credentials and keeps the pipeline runnable in development and
// tests.
type LexicalReranker struct{}

func NewLexicalReranker() *LexicalReranker {
	return &LexicalReranker{}
}

func (r *LexicalReranker) Rerank(_ context.Context, query string, candidates []transcripts.Chunk, topN int) ([]Result, error) {
	if len(candidates) == 0 || topN <= 0 {
		return nil, nil
	}

	queryTerms := termSet(query)
	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, Result{Chunk: c, Score: overlapScore(queryTerms, c.Text)})
	}
	return truncate(results, topN), nil
}

func termSet(text string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, t := range tokenize(text) {
		terms[t] = struct{}{}
	}
	return terms
}

// overlapScore counts distinct query terms present in the candidate,
// dampened by candidate length so short on-topic chunks are not drowned out
// by long rambling ones.
func overlapScore(queryTerms map[string]struct{}, text string) float32 {
	tokens := tokenize(text)
	if len(tokens) == 0 || len(queryTerms) == 0 {
		return 0
	}

	seen := make(map[string]struct{})
	matched := 0
	for _, t := range tokens {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTerms[t]; ok {
			matched++
		}
	}
	return float32(matched) / float32(math.Sqrt(float64(len(tokens))))
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
