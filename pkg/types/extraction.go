package types

// ExtractedEntity is one entity as reported by the extraction model,
// before validation and deduplication.
type ExtractedEntity struct {
	Name       string         `json:"name"`
	Title      string         `json:"title,omitempty"`
	Label      string         `json:"label"`
	Properties map[string]any `json:"properties,omitempty"`
}

// DisplayName returns the entity's name, falling back to its title.
func (e *ExtractedEntity) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.Title
}

// ExtractedRelationship is one relationship as reported by the extraction
// model. From and To reference entities by declared name.
type ExtractedRelationship struct {
	From       string         `json:"from"`
	To         string         `json:"to"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
}

// ExtractionPayload is the structured shape the extraction model must
// return: a top-level object with entity and relationship arrays.
type ExtractionPayload struct {
	Entities      []ExtractedEntity       `json:"entities"`
	Relationships []ExtractedRelationship `json:"relationships"`
}
