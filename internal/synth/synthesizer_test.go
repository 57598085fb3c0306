package synth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
)

// stubLLM records the prompts it gets and returns a canned completion.
type stubLLM struct {
	system string
	user   string
	reply  string
	err    error
}

func (s *stubLLM) Complete(ctx context.Context, system, user string) (string, error) {
	s.system = system
	s.user = user
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func retrievalWith(contents ...string) *models.RetrievalResult {
	r := &models.RetrievalResult{Question: "q"}
	for i, content := range contents {
		r.Chunks = append(r.Chunks, &models.RetrievedChunk{
			Chunk: &models.DocumentChunk{
				ID: "d_" + string(rune('0'+i)), DocumentID: "d", ChunkIndex: i,
				Content: content, PrevIndex: -1, NextIndex: -1,
			},
			Score: 0.9 - 0.1*float64(i),
		})
	}
	return r
}

func TestSynthesizer_Answer(t *testing.T) {
	llm := &stubLLM{reply: "The warranty period is two years."}
	s := NewSynthesizer(llm, nil, 0, zap.NewNop())

	retrieval := retrievalWith("warranty is two years", "refunds in fourteen days")
	ans, err := s.Synthesize(context.Background(), "how long is the warranty", nil, retrieval, false)
	if err != nil {
		t.Fatal(err)
	}
	if ans.Text != "The warranty period is two years." {
		t.Errorf("Text=%q", ans.Text)
	}
	if len(ans.Sources) != 2 {
		t.Errorf("expected 2 sources, got %d", len(ans.Sources))
	}
	if ans.Confidence <= 0 || ans.Confidence > 1 {
		t.Errorf("confidence out of range: %f", ans.Confidence)
	}
	if !strings.Contains(llm.user, "[Context 1]") {
		t.Error("prompt should contain numbered context blocks")
	}
	if !strings.Contains(llm.user, "how long is the warranty") {
		t.Error("prompt should contain the question")
	}
}

func TestSynthesizer_NoEvidence(t *testing.T) {
	llm := &stubLLM{reply: "should never be called"}
	s := NewSynthesizer(llm, nil, 0, zap.NewNop())

	ans, err := s.Synthesize(context.Background(), "anything", nil, &models.RetrievalResult{}, false)
	if err != nil {
		t.Fatal(err)
	}
	if ans.Text != noEvidenceAnswer {
		t.Errorf("Text=%q", ans.Text)
	}
	if ans.Confidence != 0 {
		t.Errorf("no-evidence confidence should be 0, got %f", ans.Confidence)
	}
	if llm.user != "" {
		t.Error("LLM should not be called without evidence")
	}
}

func TestSynthesizer_LLMErrorWrapped(t *testing.T) {
	llm := &stubLLM{err: errors.New("boom")}
	s := NewSynthesizer(llm, nil, 0, zap.NewNop())

	_, err := s.Synthesize(context.Background(), "q", nil, retrievalWith("content"), false)
	var serr *SynthesisError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SynthesisError, got %v", err)
	}
	if serr.Question != "q" {
		t.Errorf("Question=%q", serr.Question)
	}
}

func TestSynthesizer_ContextBudgetDropsLowestScored(t *testing.T) {
	llm := &stubLLM{reply: "ok"}
	long := strings.Repeat("x", 500)
	s := NewSynthesizer(llm, nil, 700, zap.NewNop())

	retrieval := retrievalWith(long, long, long)
	ans, err := s.Synthesize(context.Background(), "q", nil, retrieval, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(ans.Sources) != 1 {
		t.Fatalf("expected 1 source after budget, got %d", len(ans.Sources))
	}
	// The survivor must be the highest-scoring chunk.
	if ans.Sources[0].ChunkIndex != 0 {
		t.Errorf("budget should keep highest-scored chunk, kept index %d", ans.Sources[0].ChunkIndex)
	}
	if strings.Contains(llm.user, "[Context 2]") {
		t.Error("dropped chunks must not appear in the prompt")
	}
}

func TestSynthesizer_DegradedDiscountsConfidence(t *testing.T) {
	llm := &stubLLM{reply: "ok"}
	s := NewSynthesizer(llm, nil, 0, zap.NewNop())
	retrieval := retrievalWith("content one", "content two")

	full, err := s.Synthesize(context.Background(), "q", nil, retrieval, false)
	if err != nil {
		t.Fatal(err)
	}
	degraded, err := s.Synthesize(context.Background(), "q", nil, retrieval, true)
	if err != nil {
		t.Fatal(err)
	}
	if degraded.Confidence >= full.Confidence {
		t.Errorf("degraded confidence %f should be below %f", degraded.Confidence, full.Confidence)
	}
}

func TestRetrievalScorer_Lexical(t *testing.T) {
	scorer := NewRetrievalScorer()
	r := retrievalWith("content")
	r.Lexical = true
	if got := scorer.Score(r, true); got != 0.3 {
		t.Errorf("lexical confidence should be flat 0.3, got %f", got)
	}
}
