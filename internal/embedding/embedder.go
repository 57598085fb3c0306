// Package embedding provides text embedding via a remote provider with local fallback.
package embedding

import (
	"context"
	"fmt"
)

// Embedder produces vector embeddings for text. All vectors from one embedder
// share the same dimension and are L2-normalized.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Name() string
	Close() error
}

// ProviderError reports an embedding provider that failed after bounded retries.
type ProviderError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("embedding provider %s: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("embedding provider %s: %s", e.Provider, e.Reason)
}

func (e *ProviderError) Unwrap() error { return e.Err }
