package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OllamaClient runs the pipeline against a locally hosted Ollama instance,
// for development without hosted API credentials.
type OllamaClient struct {
	baseURL     string
	embedModel  string
	chatModel   string
	temperature float64
	timeout     time.Duration
	httpClient  *http.Client
}

// OllamaConfig configures the local provider.
type OllamaConfig struct {
	BaseURL     string // e.g. http://localhost:11434
	EmbedModel  string
	ChatModel   string
	Temperature float64
	Timeout     time.Duration
}

func NewOllamaClient(cfg OllamaConfig) *OllamaClient {
	t := cfg.Timeout
	if t == 0 {
		t = defaultCallTimeout
	}
	return &OllamaClient{
		baseURL:     cfg.BaseURL,
		embedModel:  cfg.EmbedModel,
		chatModel:   cfg.ChatModel,
		temperature: cfg.Temperature,
		timeout:     t,
		httpClient:  &http.Client{},
	}
}

func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *OllamaClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	for i, t := range texts {
		if len(t) > MaxEmbedChars {
			return nil, WrapError("embed", fmt.Errorf("input %d is %d chars, over the %d char limit", i, len(t), MaxEmbedChars))
		}
	}

	payload := map[string]any{
		"model": c.embedModel,
		"input": texts,
	}
	var out struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := c.post(ctx, "/api/embed", payload, &out); err != nil {
		return nil, WrapError("embed", err)
	}
	if len(out.Embeddings) != len(texts) {
		return nil, WrapError("embed", fmt.Errorf("expected %d embeddings, got %d", len(texts), len(out.Embeddings)))
	}
	return out.Embeddings, nil
}

func (c *OllamaClient) Complete(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{
		"model": c.chatModel,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"stream":  false,
		"options": map[string]any{"temperature": c.temperature},
	}

	var out struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := c.post(ctx, "/api/chat", payload, &out); err != nil {
		return "", WrapError("generate", err)
	}
	if out.Message.Content == "" {
		return "", WrapError("generate", fmt.Errorf("empty completion from ollama"))
	}
	return out.Message.Content, nil
}

func (c *OllamaClient) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ollama API error (%d): %s", resp.StatusCode, truncateForLog(string(msg)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
