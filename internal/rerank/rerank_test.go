package rerank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hughclaw18/Enterprise-Rag/internal/provider"
	"github.com/Hughclaw18/Enterprise-Rag/internal/transcripts"
)

func chunksFromTexts(texts ...string) []transcripts.Chunk {
	chunks := make([]transcripts.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = transcripts.Chunk{Text: t}
	}
	return chunks
}

func TestLexicalRerankOrdersByOverlap(t *testing.T) {
	candidates := chunksFromTexts(
		"The weather was pleasant throughout the conference call.",
		"Revenue growth was twelve percent on strong cloud demand.",
		"Operating margin and revenue both improved this quarter.",
	)

	results, err := NewLexicalReranker().Rerank(context.Background(), "revenue growth", candidates, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Contains(t, results[0].Chunk.Text, "Revenue growth")
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
	assert.Zero(t, results[2].Score, "candidate sharing no query terms scores zero")
}

func TestLexicalRerankCapsAtTopN(t *testing.T) {
	candidates := chunksFromTexts("revenue", "revenue revenue", "revenue again", "nothing here")

	results, err := NewLexicalReranker().Rerank(context.Background(), "revenue", candidates, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = NewLexicalReranker().Rerank(context.Background(), "revenue", candidates[:1], 5)
	require.NoError(t, err)
	assert.Len(t, results, 1, "fewer candidates than topN returns what exists")
}

func TestLexicalRerankTiesKeepCandidateOrder(t *testing.T) {
	candidates := chunksFromTexts("margin up", "margin down", "margin flat")

	results, err := NewLexicalReranker().Rerank(context.Background(), "margin", candidates, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "margin up", results[0].Chunk.Text)
	assert.Equal(t, "margin down", results[1].Chunk.Text)
	assert.Equal(t, "margin flat", results[2].Chunk.Text)
}

func TestLexicalRerankEmptyInputs(t *testing.T) {
	r := NewLexicalReranker()

	results, err := r.Rerank(context.Background(), "query", nil, 3)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = r.Rerank(context.Background(), "query", chunksFromTexts("text"), 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHostedRerank(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ranking", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Model string `json:"model"`
			Query struct {
				Text string `json:"text"`
			} `json:"query"`
			Passages []struct {
				Text string `json:"text"`
			} `json:"passages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nvidia/llama-3.2-nv-rerankqa-1b-v2", req.Model)
		assert.Equal(t, "revenue growth", req.Query.Text)
		require.Len(t, req.Passages, 3)

		json.NewEncoder(w).Encode(map[string]any{
			"rankings": []map[string]any{
				{"index": 2, "logit": 4.5},
				{"index": 0, "logit": 1.25},
				{"index": 1, "logit": -3.0},
			},
		})
	}))
	defer srv.Close()

	r := NewHostedReranker(HostedConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Model:   "nvidia/llama-3.2-nv-rerankqa-1b-v2",
	})

	candidates := chunksFromTexts("first", "second", "third")
	results, err := r.Rerank(context.Background(), "revenue growth", candidates, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "third", results[0].Chunk.Text)
	assert.InDelta(t, 4.5, results[0].Score, 1e-6)
	assert.Equal(t, "first", results[1].Chunk.Text)
}

func TestHostedRerankAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r := NewHostedReranker(HostedConfig{BaseURL: srv.URL, Model: "m"})
	_, err := r.Rerank(context.Background(), "q", chunksFromTexts("a"), 1)

	var perr *provider.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "rerank", perr.Op)
	assert.False(t, perr.Timeout)
}

func TestHostedRerankOutOfRangeIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"rankings": []map[string]any{{"index": 9, "logit": 1.0}},
		})
	}))
	defer srv.Close()

	r := NewHostedReranker(HostedConfig{BaseURL: srv.URL, Model: "m"})
	_, err := r.Rerank(context.Background(), "q", chunksFromTexts("a", "b"), 2)
	assert.Error(t, err)
}
