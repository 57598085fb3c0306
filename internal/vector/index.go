// Package vector provides vector indexing and cosine similarity search over
// document chunks.
package vector

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/kotae/internal/models"
)

// ErrBackendUnavailable signals that an index backend cannot be used in this
// build or environment and the caller should fall back.
var ErrBackendUnavailable = errors.New("vector index backend unavailable")

// Entry is one indexed chunk with its embedding.
type Entry struct {
	Chunk  models.DocumentChunk
	Vector []float32
}

// Hit is a single search result.
type Hit struct {
	Chunk models.DocumentChunk
	Score float64 // cosine similarity, 0-1 for normalized vectors
}

// Index stores chunk embeddings and serves top-k cosine similarity search.
// All vectors in one index share the same dimension; results are ordered by
// score descending with insertion order breaking ties.
type Index interface {
	Add(ctx context.Context, entries []Entry) error
	Search(ctx context.Context, query []float32, k int) ([]Hit, error)
	Reset(ctx context.Context) error
	Save(path string) error
	Load(path string) error
	Size() int
	Dimensions() int
	Close() error
}

// DimensionError reports a vector whose dimension does not match the index.
type DimensionError struct {
	Got  int
	Want int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("vector dimension mismatch: got %d, expected %d", e.Got, e.Want)
}
