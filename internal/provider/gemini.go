package provider

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient backs the Embedder and Generator contracts with the Google
// GenAI SDK, as an alternative to the OpenAI-compatible hosted provider.
type GeminiClient struct {
	client      *genai.Client
	embedModel  string
	chatModel   string
	temperature float32
	timeout     time.Duration
}

// GeminiConfig configures the Gemini-backed provider.
type GeminiConfig struct {
	APIKey      string
	EmbedModel  string // e.g. text-embedding-004
	ChatModel   string // e.g. gemini-1.5-flash-latest
	Temperature float64
	Timeout     time.Duration
}

func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	t := cfg.Timeout
	if t == 0 {
		t = defaultCallTimeout
	}
	return &GeminiClient{
		client:      client,
		embedModel:  cfg.EmbedModel,
		chatModel:   cfg.ChatModel,
		temperature: float32(cfg.Temperature),
		timeout:     t,
	}, nil
}

func (c *GeminiClient) Close() {
	if c.client != nil {
		if err := c.client.Close(); err != nil {
			log.Printf("Error closing GenAI client: %v", err)
		}
	}
}

func (c *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if len(text) > MaxEmbedChars {
		return nil, WrapError("embed", fmt.Errorf("input is %d chars, over the %d char limit", len(text), MaxEmbedChars))
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	em := c.client.EmbeddingModel(c.embedModel)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, WrapError("embed", err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, WrapError("embed", fmt.Errorf("no embedding data received from gemini"))
	}
	return res.Embedding.Values, nil
}

func (c *GeminiClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	for i, t := range texts {
		if len(t) > MaxEmbedChars {
			return nil, WrapError("embed", fmt.Errorf("input %d is %d chars, over the %d char limit", i, len(t), MaxEmbedChars))
		}
	}

	em := c.client.EmbeddingModel(c.embedModel)
	all := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}

		b := em.NewBatch()
		for _, t := range texts[start:end] {
			b.AddContent(genai.Text(t))
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		res, err := em.BatchEmbedContents(callCtx, b)
		cancel()
		if err != nil {
			return nil, WrapError("embed", err)
		}
		if len(res.Embeddings) != end-start {
			return nil, WrapError("embed", fmt.Errorf("expected %d embeddings, got %d", end-start, len(res.Embeddings)))
		}
		for _, e := range res.Embeddings {
			all = append(all, e.Values)
		}
	}
	return all, nil
}

func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	model := c.client.GenerativeModel(c.chatModel)
	temp := c.temperature
	model.GenerationConfig = genai.GenerationConfig{Temperature: &temp}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", WrapError("generate", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", WrapError("generate", fmt.Errorf("gemini response had no candidates"))
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		} else {
			log.Printf("Gemini response part was not text: %T", part)
		}
	}
	if text.Len() == 0 {
		return "", WrapError("generate", fmt.Errorf("gemini response contained no text parts"))
	}
	return text.String(), nil
}
