// Package models defines core data structures for documents, chunks, retrieval results, and answers.
package models

// Document represents one acquired source document. It is immutable once fetched
// and owned by the orchestrator for the duration of a single request.
type Document struct {
	ID       string `json:"id"`
	Source   string `json:"source"` // URL or upload handle
	Filename string `json:"filename"`
	Format   string `json:"format"` // pdf, docx, odt, rtf, xlsx, html, txt
	Size     int64  `json:"size_bytes"`
	Raw      []byte `json:"-"`
	Text     string `json:"-"`
}

// DocumentChunk is a contiguous span of a document's text, the unit of retrieval.
// StartChar/EndChar are rune offsets into the extracted text; overlap regions are
// the only text shared with the previous/next chunk.
type DocumentChunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	ChunkIndex int    `json:"chunk_index"`
	Content    string `json:"content"`
	StartChar  int    `json:"start_char"`
	EndChar    int    `json:"end_char"`
	// PrevIndex/NextIndex are the chunk indices sharing overlap with this chunk, -1 when none.
	PrevIndex int `json:"prev_index"`
	NextIndex int `json:"next_index"`
}
