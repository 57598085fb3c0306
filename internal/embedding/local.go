package embedding

import (
	"context"
	"strings"

	"github.com/hyperjump/kotae/pkg/utils"
)

// HashingEmbedder is a deterministic, dependency-free feature-hashing embedder.
// Each word is hashed into a fixed number of signed buckets and the result is
// L2-normalized, so texts sharing vocabulary get high cosine similarity. It is
// the fallback of last resort when neither the remote provider nor the ONNX
// model is available.
type HashingEmbedder struct {
	dimensions int
}

// NewHashingEmbedder returns an embedder producing vectors of the given dimensions.
func NewHashingEmbedder(dimensions int) *HashingEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &HashingEmbedder{dimensions: dimensions}
}

// Embed returns the feature-hashed embedding of text.
func (e *HashingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dimensions)
	dims := uint32(e.dimensions)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := hashToken(word)
		idx := h % dims
		// Sign from a higher hash bit keeps bucket collisions from always adding up.
		if (h/dims)%2 == 0 {
			vec[idx]++
		} else {
			vec[idx]--
		}
	}
	utils.NormalizeL2(vec)
	return vec, nil
}

// EmbedBatch calls Embed for each text.
func (e *HashingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *HashingEmbedder) Dimensions() int { return e.dimensions }

// Name returns the provider identifier.
func (e *HashingEmbedder) Name() string { return "local-hash" }

// Close is a no-op for HashingEmbedder.
func (e *HashingEmbedder) Close() error { return nil }
