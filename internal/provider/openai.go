package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	// MaxEmbedChars approximates the hosted embedding model's input window.
	// Inputs over this length are rejected rather than cut; silent
	// truncation would corrupt retrieval without any visible failure.
	MaxEmbedChars = 16384

	defaultCallTimeout = 60 * time.Second
	defaultMaxRetries  = 3
	embedBatchSize     = 32
)

// retryBaseDelay is a variable so tests can shrink the backoff.
var retryBaseDelay = 500 * time.Millisecond

// OpenAIClient talks to an OpenAI-compatible hosted API (the reference
// deployment uses the NVIDIA integrate endpoint). It implements both Embedder
// and Generator.
type OpenAIClient struct {
	baseURL     string
	apiKey      string
	embedModel  string
	chatModel   string
	temperature float64
	timeout     time.Duration
	maxRetries  int
	httpClient  *http.Client
}

// OpenAIConfig configures the hosted client.
type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	EmbedModel  string
	ChatModel   string
	Temperature float64
	Timeout     time.Duration // per remote call; 0 means the default
}

func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	t := cfg.Timeout
	if t == 0 {
		t = defaultCallTimeout
	}
	return &OpenAIClient{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		embedModel:  cfg.EmbedModel,
		chatModel:   cfg.ChatModel,
		temperature: cfg.Temperature,
		timeout:     t,
		maxRetries:  defaultMaxRetries,
		httpClient:  &http.Client{},
	}
}

func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *OpenAIClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	for i, t := range texts {
		if len(t) > MaxEmbedChars {
			return nil, WrapError("embed", fmt.Errorf("input %d is %d chars, over the %d char limit", i, len(t), MaxEmbedChars))
		}
	}

	all := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		all = append(all, vecs...)
	}
	return all, nil
}

func (c *OpenAIClient) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	payload := map[string]any{
		"model": c.embedModel,
		"input": texts,
	}

	var out struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := c.post(ctx, "/embeddings", payload, &out); err != nil {
		return nil, WrapError("embed", err)
	}
	if len(out.Data) != len(texts) {
		return nil, WrapError("embed", fmt.Errorf("expected %d embeddings, got %d", len(texts), len(out.Data)))
	}

	vecs := make([][]float32, len(texts))
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			return nil, WrapError("embed", fmt.Errorf("embedding index %d out of range", d.Index))
		}
		vecs[d.Index] = d.Embedding
	}
	return vecs, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{
		"model": c.chatModel,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": c.temperature,
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := c.post(ctx, "/chat/completions", payload, &out); err != nil {
		return "", WrapError("generate", err)
	}
	if len(out.Choices) == 0 {
		return "", WrapError("generate", fmt.Errorf("no completion choices returned"))
	}
	return out.Choices[0].Message.Content, nil
}

// post sends one JSON request with a bounded deadline, retrying with
// exponential backoff on 429 and 5xx responses. The no-retry default of the
// pipeline lives above this layer; retrying transient upstream errors here is
// a deliberate hardening over the reference behavior.
func (c *OpenAIClient) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryDelay(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		lastErr = c.doOnce(callCtx, path, body, out)
		cancel()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

type httpStatusError struct {
	status int
	body   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.status, e.body)
}

func retryable(err error) bool {
	if se, ok := err.(*httpStatusError); ok {
		return se.status == http.StatusTooManyRequests || se.status >= 500
	}
	return false
}

func retryDelay(attempt int) time.Duration {
	d := retryBaseDelay << (attempt - 1)
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

func (c *OpenAIClient) doOnce(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &httpStatusError{status: resp.StatusCode, body: truncateForLog(string(payload))}
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncateForLog(s string) string {
	const max = 256
	if len(s) <= max {
		return s
	}
	return s[:max] + "... (" + strconv.Itoa(len(s)) + " bytes)"
}
