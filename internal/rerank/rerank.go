// Package rerank re-scores an initial candidate set with a more precise
// model than the embedding similarity used for first-pass retrieval.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/Hughclaw18/Enterprise-Rag/internal/provider"
	"github.com/Hughclaw18/Enterprise-Rag/internal/transcripts"
)

// Result is one reranked candidate. A Rerank return is at most
// min(topN, len(candidates)) long, descending by score with ties keeping the
// original candidate order.
type Result struct {
	Chunk transcripts.Chunk
	Score float32
}

// Reranker re-scores candidates for a query. Implementations are swappable
// between a hosted ranking endpoint and a local scorer without affecting the
// orchestrator.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []transcripts.Chunk, topN int) ([]Result, error)
}

// HostedReranker calls an NVIDIA-style hosted ranking endpoint.
type HostedReranker struct {
	baseURL    string
	apiKey     string
	model      string
	timeout    time.Duration
	httpClient *http.Client
}

// HostedConfig configures the hosted reranker.
type HostedConfig struct {
	BaseURL string
	APIKey  string
	Model   string // e.g. nvidia/llama-3.2-nv-rerankqa-1b-v2
	Timeout time.Duration
}

func NewHostedReranker(cfg HostedConfig) *HostedReranker {
	t := cfg.Timeout
	if t == 0 {
		t = 60 * time.Second
	}
	return &HostedReranker{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		timeout:    t,
		httpClient: &http.Client{},
	}
}

func (r *HostedReranker) Rerank(ctx context.Context, query string, candidates []transcripts.Chunk, topN int) ([]Result, error) {
	if len(candidates) == 0 || topN <= 0 {
		return nil, nil
	}

	type passage struct {
		Text string `json:"text"`
	}
	passages := make([]passage, len(candidates))
	for i, c := range candidates {
		passages[i] = passage{Text: c.Text}
	}
	payload := map[string]any{
		"model":    r.model,
		"query":    passage{Text: query},
		"passages": passages,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, provider.WrapError("rerank", fmt.Errorf("marshal request: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/ranking", bytes.NewReader(body))
	if err != nil {
		return nil, provider.WrapError("rerank", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, provider.WrapError("rerank", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, provider.WrapError("rerank", fmt.Errorf("ranking API error (%d): %s", resp.StatusCode, msg))
	}

	var out struct {
		Rankings []struct {
			Index int     `json:"index"`
			Logit float32 `json:"logit"`
		} `json:"rankings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, provider.WrapError("rerank", fmt.Errorf("decode response: %w", err))
	}

	results := make([]Result, 0, len(out.Rankings))
	for _, rk := range out.Rankings {
		if rk.Index < 0 || rk.Index >= len(candidates) {
			return nil, provider.WrapError("rerank", fmt.Errorf("ranking index %d out of range", rk.Index))
		}
		results = append(results, Result{Chunk: candidates[rk.Index], Score: rk.Logit})
	}

	return truncate(results, topN), nil
}

// truncate orders results best first (stable, so ties keep the order the
// scorer handed back, which is the original candidate order) and caps the
// length at topN.
func truncate(results []Result, topN int) []Result {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topN {
		results = results[:topN]
	}
	return results
}
