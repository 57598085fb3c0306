// Package config provides configuration loading and structs for the Kotae server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Index     IndexConfig     `yaml:"index"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// BearerToken, when set, is required in the Authorization header of API calls.
	BearerToken string `yaml:"bearer_token"`
}

// PipelineConfig holds chunking, retrieval, and concurrency settings.
type PipelineConfig struct {
	ChunkSize              int     `yaml:"chunk_size"`    // characters per chunk
	ChunkOverlap           int     `yaml:"chunk_overlap"` // characters shared between neighbors
	TopK                   int     `yaml:"top_k"`
	MinScore               float64 `yaml:"min_score"`
	MaxDocumentSizeMB      int     `yaml:"max_document_size_mb"`
	MaxConcurrentDocuments int     `yaml:"max_concurrent_documents"`
	MaxConcurrentQuestions int     `yaml:"max_concurrent_questions"`
	RequestTimeoutSeconds  int     `yaml:"request_timeout_seconds"`
	ContextBudgetChars     int     `yaml:"context_budget_chars"`
}

// EmbeddingConfig holds remote and local embedding provider settings.
type EmbeddingConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKeyEnv      string `yaml:"api_key_env"`
	Model          string `yaml:"model"`
	Dimensions     int    `yaml:"dimensions"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
	BatchSize      int    `yaml:"batch_size"`
	MaxChars       int    `yaml:"max_chars"` // per-text truncation limit
	CacheSize      int    `yaml:"cache_size"`
	// Local fallback settings.
	LocalDimensions int    `yaml:"local_dimensions"`
	ONNXModelPath   string `yaml:"onnx_model_path"`
	ONNXMaxTokens   int    `yaml:"onnx_max_tokens"`
}

// LLMConfig holds generative model settings for answer synthesis.
type LLMConfig struct {
	BaseURL        string  `yaml:"base_url"`
	APIKeyEnv      string  `yaml:"api_key_env"`
	Model          string  `yaml:"model"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	MaxRetries     int     `yaml:"max_retries"`
	MaxTokens      int     `yaml:"max_tokens"`
	Temperature    float64 `yaml:"temperature"`
}

// IndexConfig holds vector index backend settings.
type IndexConfig struct {
	// Backend selects the primary backend: "sqlite" or "memory".
	Backend string `yaml:"backend"`
	// PersistPath, when set, enables the fingerprint-keyed entry cache so
	// unchanged document sets are not re-embedded across requests.
	PersistPath string `yaml:"persist_path"`
}

// RequestTimeout returns the overall per-request budget.
func (p *PipelineConfig) RequestTimeout() time.Duration {
	return time.Duration(p.RequestTimeoutSeconds) * time.Second
}

// MaxDocumentSizeBytes returns the document size limit in bytes.
func (p *PipelineConfig) MaxDocumentSizeBytes() int64 {
	return int64(p.MaxDocumentSizeMB) * 1024 * 1024
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Index.PersistPath = expandPath(cfg.Index.PersistPath, configDir)
	cfg.Embedding.ONNXModelPath = expandPath(cfg.Embedding.ONNXModelPath, configDir)

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
