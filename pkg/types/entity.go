package types

import (
	"time"
)

// Reserved property keys. These are managed by the engine and are stripped
// from any property map before it reaches an LLM context.
const (
	PropScopeID    = "scopeId"
	PropContextIDs = "contextIds"
	PropEmbedding  = "embedding"
	PropSimilarity = "_similarity"
	PropRecordedAt = "_recordedAt"
	PropValidFrom  = "_validFrom"
	PropValidTo    = "_validTo"
)

// ReservedPropertyKeys returns the set of property keys the engine manages
// itself. Callers must not set these through a property patch.
func ReservedPropertyKeys() []string {
	return []string{
		PropScopeID,
		PropContextIDs,
		PropEmbedding,
		PropSimilarity,
		PropRecordedAt,
		PropValidFrom,
		PropValidTo,
	}
}

// IsReservedPropertyKey reports whether key is managed by the engine.
func IsReservedPropertyKey(key string) bool {
	switch key {
	case PropScopeID, PropContextIDs, PropEmbedding, PropSimilarity,
		PropRecordedAt, PropValidFrom, PropValidTo:
		return true
	}
	return false
}

// Entity is a node in the knowledge graph. Within one scope at most one
// entity exists per distinct name; re-ingesting the same name merges
// context ids instead of creating a duplicate.
type Entity struct {
	ID         string         `json:"id"`
	Label      string         `json:"label"`
	Name       string         `json:"name"`
	ScopeID    string         `json:"scopeId"`
	ContextIDs []string       `json:"contextIds,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	Embedding  []float32      `json:"embedding,omitempty"`
	RecordedAt time.Time      `json:"recordedAt,omitempty"`
	ValidFrom  *time.Time     `json:"validFrom,omitempty"`
	ValidTo    *time.Time     `json:"validTo,omitempty"`

	// Similarity is set on vector search results only. It is never
	// persisted and never echoed unless the caller asked for it.
	Similarity float64 `json:"similarity,omitempty"`
}

// Validate checks the fields required before an entity can be written.
func (e *Entity) Validate() error {
	if e.Name == "" {
		return ErrEmptyName
	}
	if e.ScopeID == "" {
		return ErrEmptyScopeID
	}
	return ValidateEntityLabel(e.Label)
}

// MergeContextIDs adds any context ids not already present and reports
// whether the set changed.
func (e *Entity) MergeContextIDs(ids []string) bool {
	seen := make(map[string]struct{}, len(e.ContextIDs))
	for _, id := range e.ContextIDs {
		seen[id] = struct{}{}
	}
	changed := false
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; !ok {
			e.ContextIDs = append(e.ContextIDs, id)
			seen[id] = struct{}{}
			changed = true
		}
	}
	return changed
}

// ValidAt reports whether the entity's business-validity window contains t.
// An unset bound is open on that side.
func (e *Entity) ValidAt(t time.Time) bool {
	if e.ValidFrom != nil && t.Before(*e.ValidFrom) {
		return false
	}
	if e.ValidTo != nil && t.After(*e.ValidTo) {
		return false
	}
	return true
}

// ScrubProperties returns a copy of props without any reserved keys.
// A nil map yields an empty map.
func ScrubProperties(props map[string]any) map[string]any {
	clean := make(map[string]any, len(props))
	for k, v := range props {
		if IsReservedPropertyKey(k) {
			continue
		}
		clean[k] = v
	}
	return clean
}
