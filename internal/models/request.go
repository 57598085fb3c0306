package models

// Upload is a raw document handed in by the transport layer.
type Upload struct {
	Filename string `json:"filename"`
	Data     []byte `json:"data"` // JSON: base64-encoded
}

// AskRequest is the transport payload: document sources plus questions.
type AskRequest struct {
	Documents []string `json:"documents,omitempty"` // URLs or local paths
	Uploads   []Upload `json:"uploads,omitempty"`
	Questions []string `json:"questions"`
}

// AskResponse lists exactly one Answer per submitted question, in question order.
type AskResponse struct {
	Answers        []*Answer `json:"answers"`
	ProcessingMS   int64     `json:"processing_time_ms"`
	DocumentCount  int       `json:"document_count"`
	ChunkCount     int       `json:"chunk_count"`
	Warnings       []string  `json:"warnings,omitempty"`
	EmbeddingModel string    `json:"embedding_model,omitempty"`
}
