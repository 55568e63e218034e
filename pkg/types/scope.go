package types

import "time"

// Scope is the tenant-isolation unit. Every node and edge belongs to
// exactly one scope; no query may silently cross scopes. Isolation is
// logical, not a security boundary.
type Scope struct {
	ID   string `json:"id"`
	Type string `json:"type,omitempty"`
	Name string `json:"name,omitempty"`
}

// Context represents one ingestion event. Entities and documents
// accumulate the context ids under which they were observed, so a single
// node can belong to many contexts.
type Context struct {
	ID        string     `json:"id"`
	ScopeID   string     `json:"scopeId"`
	Name      string     `json:"name,omitempty"`
	Source    string     `json:"source,omitempty"`
	ValidFrom *time.Time `json:"validFrom,omitempty"`
	ValidTo   *time.Time `json:"validTo,omitempty"`
}

// Validate checks the fields required before a context can be written.
func (c *Context) Validate() error {
	if c.ID == "" {
		return ErrEmptyID
	}
	if c.ScopeID == "" {
		return ErrEmptyScopeID
	}
	return nil
}
