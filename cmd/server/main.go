package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Hughclaw18/Enterprise-Rag/internal/api"
	"github.com/Hughclaw18/Enterprise-Rag/internal/config"
	"github.com/Hughclaw18/Enterprise-Rag/internal/eval"
	"github.com/Hughclaw18/Enterprise-Rag/internal/index"
	"github.com/Hughclaw18/Enterprise-Rag/internal/pipeline"
	"github.com/Hughclaw18/Enterprise-Rag/internal/provider"
	"github.com/Hughclaw18/Enterprise-Rag/internal/rerank"
	"github.com/Hughclaw18/Enterprise-Rag/internal/store"
	"github.com/Hughclaw18/Enterprise-Rag/internal/transcripts"
)

func main() {
	// Load configuration
	config.LoadConfig()
	cfg := config.AppConfig

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if cfg.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	buildIndexFlag := flag.Bool("build-index", false, "Build the vector index from the transcript corpus and exit")
	companyFlag := flag.String("company", "", "Restrict -build-index to one company subdirectory")
	flag.Parse()

	embedder, generator, closeProviders, err := newProviders(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize model provider: %v", err)
	}
	defer closeProviders()

	if *buildIndexFlag {
		if err := buildIndex(cfg, embedder, *companyFlag); err != nil {
			log.Fatalf("Index build failed: %v", err)
		}
		os.Exit(0)
	}

	// Initialize database store
	dbStore, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbStore.Close()

	// Assemble the query pipeline. The index artifact is loaded lazily on
	// the first query, so the server starts (and reports a useful error)
	// even before the index has been built.
	var evaluator *eval.Evaluator
	if cfg.EvalEnabled {
		evaluator = eval.New(generator)
	}
	ragPipeline := pipeline.New(embedder, newReranker(cfg), generator, evaluator, pipeline.Config{
		IndexPath:      cfg.IndexPath,
		EmbeddingModel: cfg.EmbeddingModel,
		ChunkSize:      cfg.ChunkSize,
		ChunkOverlap:   cfg.ChunkOverlap,
		RetrievalK:     cfg.RetrievalK,
		RerankTopN:     cfg.RerankTopN,
	})

	apiHandler := api.NewAPIHandler(ragPipeline, dbStore, cfg.UploadDir)
	router := api.NewRouter(apiHandler, []string{"http://localhost:3000", "http://localhost:3001"})

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // retrieval + generation can take a while
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exiting gracefully")
}

// newProviders wires the configured embedding and generation backend.
func newProviders(cfg config.Config) (provider.Embedder, provider.Generator, func(), error) {
	switch cfg.Provider {
	case "gemini":
		client, err := provider.NewGeminiClient(context.Background(), provider.GeminiConfig{
			APIKey:      cfg.GeminiAPIKey,
			EmbedModel:  cfg.EmbeddingModel,
			ChatModel:   cfg.LLMModel,
			Temperature: cfg.LLMTemperature,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return client, client, client.Close, nil
	case "ollama":
		client := provider.NewOllamaClient(provider.OllamaConfig{
			BaseURL:     cfg.OllamaBaseURL,
			EmbedModel:  cfg.EmbeddingModel,
			ChatModel:   cfg.LLMModel,
			Temperature: cfg.LLMTemperature,
		})
		return client, client, func() {}, nil
	default: // "hosted"
		client := provider.NewOpenAIClient(provider.OpenAIConfig{
			BaseURL:     cfg.NvidiaAPIBase,
			APIKey:      cfg.NvidiaAPIKey,
			EmbedModel:  cfg.EmbeddingModel,
			ChatModel:   cfg.LLMModel,
			Temperature: cfg.LLMTemperature,
		})
		return client, client, func() {}, nil
	}
}

// newReranker prefers the hosted ranking endpoint and falls back to the
// local lexical scorer when no reranking model is configured.
func newReranker(cfg config.Config) rerank.Reranker {
	if cfg.Provider == "hosted" && cfg.RerankingModel != "" {
		return rerank.NewHostedReranker(rerank.HostedConfig{
			BaseURL: cfg.NvidiaAPIBase,
			APIKey:  cfg.NvidiaAPIKey,
			Model:   cfg.RerankingModel,
		})
	}
	log.Println("No hosted reranking model configured, using the lexical reranker")
	return rerank.NewLexicalReranker()
}

// buildIndex runs the offline phase: load and chunk the corpus, embed every
// chunk, write the artifact. Rebuilding an unchanged corpus with unchanged
// parameters is idempotent; the save overwrites atomically, so a serving
// process can keep answering while the new artifact lands.
func buildIndex(cfg config.Config, embedder provider.Embedder, companyFilter string) error {
	log.Printf("Building index from %s (company filter: %q)", cfg.TranscriptsDir, companyFilter)

	loader := transcripts.NewLoader(cfg.ChunkSize, cfg.ChunkOverlap)
	chunks, err := loader.LoadAndChunk(cfg.TranscriptsDir, companyFilter)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return fmt.Errorf("no transcript chunks found under %s", cfg.TranscriptsDir)
	}

	log.Printf("Embedding %d chunks (this may take a while)...", len(chunks))
	ix, err := index.Build(context.Background(), chunks, embedder, index.Manifest{
		EmbeddingModel: cfg.EmbeddingModel,
		ChunkSize:      cfg.ChunkSize,
		ChunkOverlap:   cfg.ChunkOverlap,
	})
	if err != nil {
		return err
	}

	if err := ix.Save(cfg.IndexPath); err != nil {
		return err
	}
	log.Printf("Index build complete: %d entries written to %s", ix.Len(), cfg.IndexPath)
	return nil
}
