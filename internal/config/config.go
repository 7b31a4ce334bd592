package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Hosted provider (OpenAI-compatible, e.g. the NVIDIA integrate API).
	Provider      string // "hosted", "gemini" or "ollama"
	NvidiaAPIKey  string
	NvidiaAPIBase string
	GeminiAPIKey  string
	OllamaBaseURL string

	// Model identifiers.
	LLMModel       string
	EmbeddingModel string
	RerankingModel string // empty disables the hosted reranker

	// Corpus and artifacts.
	TranscriptsDir string
	IndexPath      string
	UploadDir      string

	// Retrieval parameters. Chunk size and overlap must match how the index
	// artifact was built; the manifest check enforces this at load time.
	ChunkSize      int
	ChunkOverlap   int
	RetrievalK     int
	RerankTopN     int
	LLMTemperature float64
	EvalEnabled    bool

	DatabaseURL string
	HTTPPort    string
	LogLevel    string
	JWTSecret   string
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		Provider:      getEnv("PROVIDER", "hosted"),
		NvidiaAPIKey:  getEnv("NVIDIA_API_KEY", ""),
		NvidiaAPIBase: getEnv("NVIDIA_API_BASE", "https://integrate.api.nvidia.com/v1"),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),

		LLMModel:       getEnv("LLM_MODEL", "nvidia/llama-3.3-nemotron-super-49b-v1"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "nvidia/llama-3.2-nv-embedqa-1b-v2"),
		RerankingModel: getEnv("RERANKING_MODEL", "nvidia/llama-3.2-nv-rerankqa-1b-v2"),

		TranscriptsDir: getEnv("TRANSCRIPTS_DIR", "Call_Transcripts/Transcripts"),
		IndexPath:      getEnv("INDEX_PATH", "models/vector_index.json"),
		UploadDir:      getEnv("UPLOAD_DIR", "Call_Transcripts/Uploaded"),

		ChunkSize:      getEnvAsInt("CHUNK_SIZE", 1200),
		ChunkOverlap:   getEnvAsInt("CHUNK_OVERLAP", 250),
		RetrievalK:     getEnvAsInt("RETRIEVAL_K", 40),
		RerankTopN:     getEnvAsInt("RERANK_TOP_N", 3),
		LLMTemperature: getEnvAsFloat("LLM_TEMPERATURE", 0.3),
		EvalEnabled:    getEnv("EVAL_ENABLED", "false") == "true",

		DatabaseURL: getEnv("DATABASE_URL", "chat_history.db"),
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:   getEnv("JWT_SECRET", ""),
	}

	switch AppConfig.Provider {
	case "hosted":
		if AppConfig.NvidiaAPIKey == "" {
			log.Fatal("NVIDIA_API_KEY environment variable is required for the hosted provider")
		}
	case "gemini":
		if AppConfig.GeminiAPIKey == "" {
			log.Fatal("GEMINI_API_KEY environment variable is required for the gemini provider")
		}
	case "ollama":
		// local, no credentials
	default:
		log.Fatalf("Unknown PROVIDER %q (want hosted, gemini or ollama)", AppConfig.Provider)
	}

	if AppConfig.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}
