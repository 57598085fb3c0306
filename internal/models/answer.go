package models

import "time"

// RetrievedChunk pairs a chunk with its similarity score for one query.
type RetrievedChunk struct {
	Chunk *DocumentChunk `json:"chunk"`
	Score float64        `json:"score"`
}

// RetrievalResult is the ordered outcome of one retrieval: scores are
// non-increasing and every entry scored at least the configured minimum.
type RetrievalResult struct {
	Question string            `json:"question"`
	Chunks   []*RetrievedChunk `json:"chunks"`
	// Lexical marks results produced by the keyword fallback rather than vector search.
	Lexical bool `json:"lexical,omitempty"`
}

// ChunkRef points back at a supporting chunk so answers stay traceable.
type ChunkRef struct {
	DocumentID string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
}

// Answer is the synthesized response for one question.
type Answer struct {
	Question   string        `json:"question"`
	Text       string        `json:"answer"`
	Confidence float64       `json:"confidence"`
	Sources    []ChunkRef    `json:"sources,omitempty"`
	Elapsed    time.Duration `json:"-"`
	ElapsedMS  int64         `json:"elapsed_ms"`
	// Err is set when the question degraded to an error placeholder.
	Err string `json:"error,omitempty"`
}
