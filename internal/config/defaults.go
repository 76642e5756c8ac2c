package config

import "time"

// Provider names.
const (
	ProviderGemini = "gemini"
	ProviderEcho   = "echo"

	EmbeddingMock  = "mock"
	EmbeddingGenAI = "genai"
)

// DefaultPreamble is the instruction placed at the top of every prompt.
const DefaultPreamble = "You are a helpful assistant. Your task is to respond to the user query as clearly and concisely as possible. " +
	"Maintain a friendly and informative tone. When the answer is long, break it down into smaller parts."

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.CORSOrigins == nil {
		cfg.Server.CORSOrigins = []string{"*"}
	}
	if cfg.Server.RateLimitRPS == 0 {
		cfg.Server.RateLimitRPS = 10
	}
	if cfg.Server.RateLimitBurst == 0 {
		cfg.Server.RateLimitBurst = 20
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 2 * time.Minute
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/hanashi/data/db/hanashi.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/hanashi/data/indices/bleve"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = "/usr/local/var/hanashi/data/indices/vectors.bin"
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = ProviderGemini
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gemini-1.5-flash"
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = "GEMINI_API_KEY"
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 60 * time.Second
	}
	if cfg.LLM.Preamble == "" {
		cfg.LLM.Preamble = DefaultPreamble
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = EmbeddingMock
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "gemini-embedding-001"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 768
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Memory.DefaultSession == "" {
		cfg.Memory.DefaultSession = "default"
	}
	if cfg.Knowledge.ChunkSize == 0 {
		cfg.Knowledge.ChunkSize = 200
	}
	if cfg.Knowledge.ChunkOverlap == 0 {
		cfg.Knowledge.ChunkOverlap = 40
	}
	if cfg.Knowledge.TopK == 0 {
		cfg.Knowledge.TopK = 3
	}
	if cfg.Knowledge.KeywordWeight == 0 && cfg.Knowledge.SemanticWeight == 0 {
		cfg.Knowledge.KeywordWeight = 0.4
		cfg.Knowledge.SemanticWeight = 0.6
	}
	if cfg.Knowledge.IngestWorkers == 0 {
		cfg.Knowledge.IngestWorkers = 4
	}
	if cfg.Stream.ChunkChars == 0 {
		cfg.Stream.ChunkChars = 20
	}
	if cfg.Stream.Delay == 0 {
		cfg.Stream.Delay = 50 * time.Millisecond
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md", ".rst", ".pdf", ".docx", ".xlsx", ".pptx", ".odt", ".odp", ".ods", ".rtf"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
