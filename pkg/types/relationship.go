package types

import (
	"fmt"
	"time"
)

// MentionsRelationshipType links a document to each entity mentioned in it.
const MentionsRelationshipType = "MENTIONS"

// Relationship is a typed edge between two nodes. Relationships do not
// carry context ids; contextual lineage lives on the nodes they connect.
type Relationship struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	FromID     string         `json:"from"`
	ToID       string         `json:"to"`
	ScopeID    string         `json:"scopeId"`
	Properties map[string]any `json:"properties,omitempty"`
	RecordedAt time.Time      `json:"recordedAt,omitempty"`
}

// Validate checks the fields required before a relationship can be written.
func (r *Relationship) Validate() error {
	if r.FromID == "" || r.ToID == "" {
		return NewValidationError("relationship", "from and to ids are required")
	}
	if r.ScopeID == "" {
		return ErrEmptyScopeID
	}
	return ValidateRelationshipType(r.Type)
}

// Key identifies a relationship by endpoints and type, used to collapse
// exact duplicates.
func (r *Relationship) Key() string {
	return fmt.Sprintf("%s|%s|%s", r.FromID, r.ToID, r.Type)
}
