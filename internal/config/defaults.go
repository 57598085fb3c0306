package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Pipeline.ChunkSize == 0 {
		cfg.Pipeline.ChunkSize = 1000
	}
	if cfg.Pipeline.ChunkOverlap == 0 {
		cfg.Pipeline.ChunkOverlap = 200
	}
	if cfg.Pipeline.TopK == 0 {
		cfg.Pipeline.TopK = 10
	}
	if cfg.Pipeline.MinScore == 0 {
		cfg.Pipeline.MinScore = 0.25
	}
	if cfg.Pipeline.MaxDocumentSizeMB == 0 {
		cfg.Pipeline.MaxDocumentSizeMB = 50
	}
	if cfg.Pipeline.MaxConcurrentDocuments == 0 {
		cfg.Pipeline.MaxConcurrentDocuments = 5
	}
	if cfg.Pipeline.MaxConcurrentQuestions == 0 {
		cfg.Pipeline.MaxConcurrentQuestions = 4
	}
	if cfg.Pipeline.RequestTimeoutSeconds == 0 {
		cfg.Pipeline.RequestTimeoutSeconds = 120
	}
	if cfg.Pipeline.ContextBudgetChars == 0 {
		cfg.Pipeline.ContextBudgetChars = 8000
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "KOTAE_EMBEDDING_API_KEY"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 768
	}
	if cfg.Embedding.TimeoutSeconds == 0 {
		cfg.Embedding.TimeoutSeconds = 30
	}
	if cfg.Embedding.MaxRetries == 0 {
		cfg.Embedding.MaxRetries = 3
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 64
	}
	if cfg.Embedding.MaxChars == 0 {
		cfg.Embedding.MaxChars = 8000
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.LocalDimensions == 0 {
		cfg.Embedding.LocalDimensions = 384
	}
	if cfg.Embedding.ONNXMaxTokens == 0 {
		cfg.Embedding.ONNXMaxTokens = 256
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = "KOTAE_LLM_API_KEY"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4.1-mini"
	}
	if cfg.LLM.TimeoutSeconds == 0 {
		cfg.LLM.TimeoutSeconds = 60
	}
	if cfg.LLM.MaxRetries == 0 {
		cfg.LLM.MaxRetries = 2
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 1500
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.2
	}
	if cfg.Index.Backend == "" {
		cfg.Index.Backend = "sqlite"
	}
}
