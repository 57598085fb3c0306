package embedding

import (
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
)

// NewFromConfig builds the embedding chain: a remote provider when an API key
// is configured, an ONNX model when available, and the hashing embedder as the
// fallback of last resort. The result is wrapped in an LRU cache.
func NewFromConfig(cfg *config.EmbeddingConfig, logger *zap.Logger) Embedder {
	local := newLocal(cfg, logger)

	var primary Embedder
	if apiKey := os.Getenv(cfg.APIKeyEnv); apiKey != "" {
		remote, err := NewRemoteEmbedder(RemoteConfig{
			BaseURL:    cfg.BaseURL,
			APIKey:     apiKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Timeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
			MaxRetries: cfg.MaxRetries,
			BatchSize:  cfg.BatchSize,
			MaxChars:   cfg.MaxChars,
		}, logger)
		if err != nil {
			logger.Warn("remote embedder unavailable", zap.Error(err))
		} else {
			primary = remote
		}
	} else {
		logger.Info("no embedding API key set, using local embedder",
			zap.String("env", cfg.APIKeyEnv))
	}

	provider := NewProvider(primary, local, logger)
	return NewCachedEmbedder(provider, cfg.CacheSize)
}

// newLocal prefers the ONNX model when configured and loadable.
func newLocal(cfg *config.EmbeddingConfig, logger *zap.Logger) Embedder {
	if cfg.ONNXModelPath != "" {
		onnx, err := NewONNXEmbedder(cfg.ONNXModelPath, cfg.LocalDimensions, cfg.ONNXMaxTokens)
		if err == nil {
			logger.Info("using ONNX embedder", zap.String("model", cfg.ONNXModelPath))
			return onnx
		}
		logger.Warn("ONNX embedder unavailable, using hashing embedder", zap.Error(err))
	}
	return NewHashingEmbedder(cfg.LocalDimensions)
}
