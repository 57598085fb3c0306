package synth

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
)

// noEvidenceAnswer is returned when retrieval found nothing relevant. Honest
// emptiness beats hallucination.
const noEvidenceAnswer = "The provided documents do not contain information relevant to this question."

// Synthesizer produces one grounded answer per question.
type Synthesizer struct {
	llm         LLMClient
	scorer      ConfidenceScorer
	budgetChars int
	logger      *zap.Logger
}

// NewSynthesizer creates a synthesizer with the given context character budget.
func NewSynthesizer(llm LLMClient, scorer ConfidenceScorer, budgetChars int, logger *zap.Logger) *Synthesizer {
	if scorer == nil {
		scorer = NewRetrievalScorer()
	}
	return &Synthesizer{
		llm:         llm,
		scorer:      scorer,
		budgetChars: budgetChars,
		logger:      logger,
	}
}

// Synthesize answers one question from its retrieval result. degraded marks
// answers produced without the primary embedding provider, which discounts
// confidence. An empty retrieval yields an honest no-evidence answer rather
// than an error; only LLM failure returns a SynthesisError.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, hints *models.QueryHints, retrieval *models.RetrievalResult, degraded bool) (*models.Answer, error) {
	started := time.Now()

	if retrieval == nil || len(retrieval.Chunks) == 0 {
		elapsed := time.Since(started)
		return &models.Answer{
			Question:   question,
			Text:       noEvidenceAnswer,
			Confidence: 0,
			Elapsed:    elapsed,
			ElapsedMS:  elapsed.Milliseconds(),
		}, nil
	}

	userPrompt, included := buildUserPrompt(question, hints, retrieval.Chunks, s.budgetChars)
	if len(included) < len(retrieval.Chunks) {
		s.logger.Debug("context budget dropped chunks",
			zap.String("question", question),
			zap.Int("retrieved", len(retrieval.Chunks)),
			zap.Int("included", len(included)),
		)
	}

	text, err := s.llm.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, &SynthesisError{Question: question, Reason: "completion failed", Err: err}
	}

	sources := make([]models.ChunkRef, len(included))
	for i, rc := range included {
		sources[i] = models.ChunkRef{
			DocumentID: rc.Chunk.DocumentID,
			ChunkIndex: rc.Chunk.ChunkIndex,
			Score:      rc.Score,
		}
	}

	elapsed := time.Since(started)
	return &models.Answer{
		Question:   question,
		Text:       text,
		Confidence: s.scorer.Score(retrieval, degraded),
		Sources:    sources,
		Elapsed:    elapsed,
		ElapsedMS:  elapsed.Milliseconds(),
	}, nil
}
