// Package fingerprint derives deterministic identifiers for documents and
// document sets, so repeated requests over the same corpus are recognizable.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/hyperjump/kotae/internal/models"
)

const docPrefix = "doc:"

// DocID returns a stable document ID for a source reference. The same URL or
// upload name always yields the same ID, which keeps chunk IDs idempotent
// across repeated requests.
func DocID(source string) string {
	hash := sha256.Sum256([]byte(source))
	return docPrefix + hex.EncodeToString(hash[:12])
}

// Corpus returns a fingerprint over a document set: the SHA-256 of the sorted
// (source, size) pairs. Order of the input does not matter; any change to a
// document's source or size changes the fingerprint.
func Corpus(docs []*models.Document) string {
	pairs := make([]string, len(docs))
	for i, doc := range docs {
		pairs[i] = fmt.Sprintf("%s\x00%d", doc.Source, doc.Size)
	}
	sort.Strings(pairs)
	h := sha256.New()
	for _, p := range pairs {
		h.Write([]byte(p))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
