// Package retriever ranks indexed chunks against a question, by vector
// similarity when a query embedding is available and by lexical match
// otherwise.
package retriever

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
)

// Retriever serves top-k retrieval over one request's indexes.
type Retriever struct {
	index    vector.Index
	lexical  *keyword.ChunkIndex
	embedder embedding.Embedder
	topK     int
	minScore float64
	logger   *zap.Logger
}

// New creates a retriever over the given indexes.
func New(index vector.Index, lexical *keyword.ChunkIndex, embedder embedding.Embedder, topK int, minScore float64, logger *zap.Logger) *Retriever {
	return &Retriever{
		index:    index,
		lexical:  lexical,
		embedder: embedder,
		topK:     topK,
		minScore: minScore,
		logger:   logger,
	}
}

// Retrieve embeds the question and returns up to topK chunks scoring at least
// minScore, ordered by score descending. When the question cannot be embedded,
// or the query vector no longer matches the index dimension, it degrades to
// the lexical index rather than failing the question.
func (r *Retriever) Retrieve(ctx context.Context, question string) (*models.RetrievalResult, error) {
	queryVec, err := r.embedder.Embed(ctx, question)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		r.logger.Warn("query embedding failed, using lexical retrieval",
			zap.String("question", question), zap.Error(err))
		return r.retrieveLexical(ctx, question)
	}

	hits, err := r.index.Search(ctx, queryVec, r.topK)
	if err != nil {
		// The embedder can fall back to a different provider after the
		// index was built, and its query vectors no longer fit. The
		// chunks are still searchable lexically.
		var dimErr *vector.DimensionError
		if errors.As(err, &dimErr) && ctx.Err() == nil {
			r.logger.Warn("query vector does not fit the index, using lexical retrieval",
				zap.String("question", question), zap.Error(err))
			return r.retrieveLexical(ctx, question)
		}
		return nil, fmt.Errorf("vector search: %w", err)
	}

	result := &models.RetrievalResult{Question: question}
	for _, hit := range hits {
		if hit.Score < r.minScore {
			// Hits are score-descending, nothing below passes either.
			break
		}
		chunk := hit.Chunk
		result.Chunks = append(result.Chunks, &models.RetrievedChunk{Chunk: &chunk, Score: hit.Score})
	}
	return result, nil
}

// retrieveLexical serves the keyword fallback. Lexical scores are not cosine
// similarities, so minScore does not apply; the Lexical flag tells the
// synthesizer to discount confidence instead.
func (r *Retriever) retrieveLexical(ctx context.Context, question string) (*models.RetrievalResult, error) {
	hits, err := r.lexical.Search(ctx, question, r.topK)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	result := &models.RetrievalResult{Question: question, Lexical: true}
	for _, hit := range hits {
		chunk := hit.Chunk
		result.Chunks = append(result.Chunks, &models.RetrievedChunk{Chunk: &chunk, Score: hit.Score})
	}
	return result, nil
}
