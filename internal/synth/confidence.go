package synth

import (
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// fallbackPenalty discounts confidence when the answer was produced without
// the primary embedding provider (local embeddings or lexical retrieval).
const fallbackPenalty = 0.85

// ConfidenceScorer estimates how well the retrieved evidence supports an answer.
type ConfidenceScorer interface {
	Score(result *models.RetrievalResult, degraded bool) float64
}

// RetrievalScorer scores confidence from the retrieval score distribution:
// high, tightly clustered similarity scores mean strong evidence, a wide
// spread means the retrieval was ambiguous.
type RetrievalScorer struct{}

// NewRetrievalScorer creates the default confidence scorer.
func NewRetrievalScorer() *RetrievalScorer {
	return &RetrievalScorer{}
}

// Score returns a confidence in [0,1]. No evidence scores zero. Lexical
// results have no cosine scale, so they get a flat degraded baseline.
func (s *RetrievalScorer) Score(result *models.RetrievalResult, degraded bool) float64 {
	if result == nil || len(result.Chunks) == 0 {
		return 0
	}
	if result.Lexical {
		return 0.3
	}
	scores := make([]float64, len(result.Chunks))
	for i, rc := range result.Chunks {
		scores[i] = rc.Score
	}
	confidence := utils.Clamp01(utils.Mean(scores) - utils.StdDev(scores))
	if degraded {
		confidence *= fallbackPenalty
	}
	return confidence
}
