package types

import "time"

// DocumentLabel is the fixed label for document nodes.
const DocumentLabel = "Document"

// Document is a full-text source node. Within one scope at most one
// document exists per exact text value; re-ingestion returns the existing
// document instead of inserting.
type Document struct {
	ID        string         `json:"id"`
	ScopeID   string         `json:"scopeId"`
	Text      string         `json:"text"`
	ContextID string         `json:"contextId,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Embedding []float32      `json:"embedding,omitempty"`

	RecordedAt time.Time `json:"recordedAt,omitempty"`

	// Similarity is set on vector search results only, never persisted.
	Similarity float64 `json:"similarity,omitempty"`
}

// Validate checks the fields required before a document can be written.
func (d *Document) Validate() error {
	if d.Text == "" {
		return ErrEmptyText
	}
	if d.ScopeID == "" {
		return ErrEmptyScopeID
	}
	return nil
}
