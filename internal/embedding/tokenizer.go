package embedding

import (
	"hash/fnv"
	"strings"
)

// Tokenizer produces the input_ids, attention_mask and token_type_ids slices
// that BERT-style ONNX models expect.
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

const (
	clsTokenID = 101
	sepTokenID = 102
	vocabSize  = 30000
)

// hashTokenizer maps whitespace-separated words to hashed token IDs. It is not
// a real wordpiece vocabulary, but it is deterministic and keeps the ONNX path
// running without shipping a vocab file.
type hashTokenizer struct{}

func (hashTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0] = clsTokenID
	attentionMask[0] = 1

	pos := 1
	for _, word := range strings.Fields(text) {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = int64(hashToken(word) % vocabSize)
		attentionMask[pos] = 1
		pos++
	}
	if pos < maxTokens {
		inputIDs[pos] = sepTokenID
		attentionMask[pos] = 1
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

// hashToken returns a deterministic hash of word, shared by the tokenizer and
// the feature-hashing embedder.
func hashToken(word string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(word))
	return h.Sum32()
}
