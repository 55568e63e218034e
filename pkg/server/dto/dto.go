// Package dto defines the request and response bodies of the HTTP API.
package dto

import (
	"errors"
	"strings"
	"time"
)

// MaxTextLength bounds a single ingestion text.
const MaxTextLength = 1_000_000

// ErrTextTooLong is returned when an ingestion text exceeds
// MaxTextLength.
var ErrTextTooLong = errors.New("text exceeds maximum length")

// LearnRequest is the body of POST /api/v1/learn.
type LearnRequest struct {
	Text        string     `json:"text" binding:"required"`
	ScopeID     string     `json:"scope_id,omitempty"`
	ContextName string     `json:"context_name,omitempty"`
	Source      string     `json:"source,omitempty"`
	ValidFrom   *time.Time `json:"valid_from,omitempty"`
	ValidTo     *time.Time `json:"valid_to,omitempty"`
}

// Validate performs validation on LearnRequest.
func (r *LearnRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return errors.New("text cannot be empty")
	}
	if len(r.Text) > MaxTextLength {
		return ErrTextTooLong
	}
	return nil
}

// LearnBatchRequest is the body of POST /api/v1/learn/batch.
type LearnBatchRequest struct {
	Texts       []string   `json:"texts" binding:"required"`
	ScopeID     string     `json:"scope_id,omitempty"`
	ContextName string     `json:"context_name,omitempty"`
	Source      string     `json:"source,omitempty"`
	ValidFrom   *time.Time `json:"valid_from,omitempty"`
	ValidTo     *time.Time `json:"valid_to,omitempty"`
}

// Validate performs validation on LearnBatchRequest.
func (r *LearnBatchRequest) Validate() error {
	if len(r.Texts) == 0 {
		return errors.New("texts array cannot be empty")
	}
	for _, t := range r.Texts {
		if strings.TrimSpace(t) == "" {
			return errors.New("texts cannot contain empty entries")
		}
		if len(t) > MaxTextLength {
			return ErrTextTooLong
		}
	}
	return nil
}

// AskRequest is the body of POST /api/v1/ask.
type AskRequest struct {
	Query      string     `json:"query" binding:"required"`
	ScopeID    string     `json:"scope_id,omitempty"`
	ContextIDs []string   `json:"context_ids,omitempty"`
	ValidAt    *time.Time `json:"valid_at,omitempty"`
	Strategy   string     `json:"strategy,omitempty"`
	Limit      int        `json:"limit,omitempty"`
	MaxDepth   int        `json:"max_depth,omitempty"`
	Threshold  *float64   `json:"threshold,omitempty"`

	// IncludeEmbeddings opts in to embedding vectors and similarity
	// scores in the response; they are omitted by default.
	IncludeEmbeddings bool `json:"include_embeddings,omitempty"`
}

// Validate performs validation on AskRequest.
func (r *AskRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return errors.New("query cannot be empty")
	}
	switch r.Strategy {
	case "", "entities", "documents", "both":
	default:
		return errors.New("strategy must be entities, documents, or both")
	}
	return nil
}

// UpdateEntityRequest is the body of PATCH /api/v1/entities/:id.
type UpdateEntityRequest struct {
	Properties map[string]any `json:"properties" binding:"required"`
	ScopeID    string         `json:"scope_id,omitempty"`
}

// SubgraphRequest is the body of POST /api/v1/subgraph.
type SubgraphRequest struct {
	EntityLabels      []string `json:"entity_labels,omitempty"`
	RelationshipTypes []string `json:"relationship_types,omitempty"`
	SeedEntityIDs     []string `json:"seed_entity_ids,omitempty"`
	ScopeID           string   `json:"scope_id,omitempty"`
	MaxDepth          int      `json:"max_depth,omitempty"`
	Limit             int      `json:"limit,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// DeleteResponse reports a deletion and its cascade count.
type DeleteResponse struct {
	Deleted              bool `json:"deleted"`
	RelationshipsRemoved int  `json:"relationships_removed,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Provider string `json:"provider,omitempty"`
	Detail   string `json:"detail,omitempty"`
}
