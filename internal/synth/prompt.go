package synth

import (
	"fmt"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

const systemPrompt = `You are a careful assistant answering questions strictly from the provided document excerpts.
Rules:
- Answer only from the numbered context blocks. Do not use outside knowledge.
- If the context does not contain the answer, say so plainly.
- Be concise and cite specifics (durations, amounts, conditions) verbatim where they matter.`

// buildUserPrompt renders the question with its context blocks. Chunks arrive
// score-descending; when the rendered context would exceed budgetChars the
// lowest-scoring chunks are dropped first. Returns the prompt and the chunks
// that made it in, so sources reflect what the model actually saw.
func buildUserPrompt(question string, hints *models.QueryHints, chunks []*models.RetrievedChunk, budgetChars int) (string, []*models.RetrievedChunk) {
	included := chunks
	if budgetChars > 0 {
		total := 0
		for i, rc := range chunks {
			total += len(rc.Chunk.Content) + 64 // block header overhead
			if total > budgetChars {
				included = chunks[:i]
				break
			}
		}
		if len(included) == 0 && len(chunks) > 0 {
			// Never send an empty context when we retrieved something.
			included = chunks[:1]
		}
	}

	var b strings.Builder
	for i, rc := range included {
		fmt.Fprintf(&b, "[Context %d] (document %s, relevance %.2f)\n%s\n\n",
			i+1, rc.Chunk.DocumentID, rc.Score, rc.Chunk.Content)
	}
	if hints != nil && len(hints.Keywords) > 0 {
		fmt.Fprintf(&b, "Key terms: %s\n\n", strings.Join(hints.Keywords, ", "))
	}
	fmt.Fprintf(&b, "Question: %s", question)
	return b.String(), included
}
