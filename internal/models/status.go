package models

// Status is the body of GET /api/v1/status.
type Status struct {
	Sessions        int64         `json:"sessions"`
	Messages        int64         `json:"messages"`
	Documents       int64         `json:"documents"`
	Chunks          int64         `json:"chunks"`
	VectorIndexSize int           `json:"vector_index_size"`
	DiskUsageBytes  *int64        `json:"disk_usage_bytes,omitempty"`
	UptimeSeconds   int64         `json:"uptime_seconds"`
	Config          *StatusConfig `json:"config,omitempty"`
}

// StatusConfig is the configuration summary included in Status.
type StatusConfig struct {
	LLMProvider         string `json:"llm_provider"`
	Model               string `json:"model"`
	KnowledgeEnabled    bool   `json:"knowledge_enabled"`
	EmbeddingProvider   string `json:"embedding_provider,omitempty"`
	EmbeddingDimensions int    `json:"embedding_dimensions,omitempty"`
	ChunkSize           int    `json:"chunk_size,omitempty"`
	ChunkOverlap        int    `json:"chunk_overlap,omitempty"`
	MaxTurns            int    `json:"max_turns"`
	DatabasePath        string `json:"database_path,omitempty"`
	BleveIndexPath      string `json:"bleve_index_path,omitempty"`
	VectorIndexPath     string `json:"vector_index_path,omitempty"`
}
