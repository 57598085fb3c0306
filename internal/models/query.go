package models

// QueryHints carries the optional parsed structure of a question: an intent label,
// extracted entities, and content keywords. Hints are advisory; retrieval works
// without them.
type QueryHints struct {
	Intent   string            `json:"intent"`
	Entities map[string]string `json:"entities,omitempty"`
	Keywords []string          `json:"keywords,omitempty"`
}
