package mnemo

import (
	"context"

	"github.com/soundprediction/mnemo/pkg/store"
	"github.com/soundprediction/mnemo/pkg/types"
)

// ListOptions filters direct list operations.
type ListOptions = store.ListOptions

// TraverseOptions selects a subgraph. At least one of EntityLabels or
// SeedEntityIDs must be set or the traversal short-circuits to an empty
// result without touching the backend.
type TraverseOptions struct {
	EntityLabels      []string
	RelationshipTypes []string
	SeedEntityIDs     []string
	ScopeID           string
	MaxDepth          int
	Limit             int
}

// GetEntity retrieves an entity by id. Missing records return nil, not
// an error.
func (e *Engine) GetEntity(ctx context.Context, id, scopeID string) (*types.Entity, error) {
	if id == "" {
		return nil, types.ErrEmptyID
	}
	return e.store.GetEntity(ctx, id, e.scopeOrDefault(scopeID))
}

// GetDocument retrieves a document by id.
func (e *Engine) GetDocument(ctx context.Context, id, scopeID string) (*types.Document, error) {
	if id == "" {
		return nil, types.ErrEmptyID
	}
	return e.store.GetDocument(ctx, id, e.scopeOrDefault(scopeID))
}

// GetRelationship retrieves a relationship by id.
func (e *Engine) GetRelationship(ctx context.Context, id, scopeID string) (*types.Relationship, error) {
	if id == "" {
		return nil, types.ErrEmptyID
	}
	return e.store.GetRelationship(ctx, id, e.scopeOrDefault(scopeID))
}

// ListEntities lists entities in a scope.
func (e *Engine) ListEntities(ctx context.Context, opts ListOptions) ([]*types.Entity, error) {
	opts.ScopeID = e.scopeOrDefault(opts.ScopeID)
	return e.store.ListEntities(ctx, opts)
}

// ListDocuments lists documents in a scope.
func (e *Engine) ListDocuments(ctx context.Context, opts ListOptions) ([]*types.Document, error) {
	opts.ScopeID = e.scopeOrDefault(opts.ScopeID)
	return e.store.ListDocuments(ctx, opts)
}

// ListRelationships lists relationships in a scope.
func (e *Engine) ListRelationships(ctx context.Context, opts ListOptions) ([]*types.Relationship, error) {
	opts.ScopeID = e.scopeOrDefault(opts.ScopeID)
	return e.store.ListRelationships(ctx, opts)
}

// Subgraph expands a subgraph per opts.
func (e *Engine) Subgraph(ctx context.Context, opts TraverseOptions) (*types.Subgraph, error) {
	depth := opts.MaxDepth
	if depth <= 0 {
		depth = e.config.TraversalDepth
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = e.config.TraversalLimit
	}
	return e.store.Subgraph(ctx, store.SubgraphOptions{
		EntityLabels:      opts.EntityLabels,
		RelationshipTypes: opts.RelationshipTypes,
		SeedEntityIDs:     opts.SeedEntityIDs,
		ScopeID:           e.scopeOrDefault(opts.ScopeID),
		MaxDepth:          depth,
		Limit:             limit,
	})
}

// Stats summarizes a scope's graph.
func (e *Engine) Stats(ctx context.Context, scopeID string) (*types.GraphStats, error) {
	return e.store.Stats(ctx, e.scopeOrDefault(scopeID))
}

// UpdateEntity merges patch into an entity's open properties. Reserved
// keys in the patch are rejected.
func (e *Engine) UpdateEntity(ctx context.Context, id string, patch map[string]any, scopeID string) (*types.Entity, error) {
	if id == "" {
		return nil, types.ErrEmptyID
	}
	return e.store.UpdateEntity(ctx, id, patch, e.scopeOrDefault(scopeID))
}

// DeleteEntity removes an entity and its relationships, returning the
// relationship count removed with it.
func (e *Engine) DeleteEntity(ctx context.Context, id, scopeID string) (int, error) {
	if id == "" {
		return 0, types.ErrEmptyID
	}
	return e.store.DeleteEntity(ctx, id, e.scopeOrDefault(scopeID))
}

// DeleteDocument removes a document and its relationships.
func (e *Engine) DeleteDocument(ctx context.Context, id, scopeID string) (int, error) {
	if id == "" {
		return 0, types.ErrEmptyID
	}
	return e.store.DeleteDocument(ctx, id, e.scopeOrDefault(scopeID))
}

// DeleteRelationship removes a relationship by id.
func (e *Engine) DeleteRelationship(ctx context.Context, id, scopeID string) error {
	if id == "" {
		return types.ErrEmptyID
	}
	return e.store.DeleteRelationship(ctx, id, e.scopeOrDefault(scopeID))
}

// ListContexts lists ingestion contexts in a scope.
func (e *Engine) ListContexts(ctx context.Context, scopeID string) ([]*types.Context, error) {
	return e.store.ListContexts(ctx, e.scopeOrDefault(scopeID))
}

// HealthCheck reports backend liveness as a BackendUnavailableError.
func (e *Engine) HealthCheck(ctx context.Context) error {
	if err := e.store.Ping(ctx); err != nil {
		return &BackendUnavailableError{Provider: string(e.store.Provider()), Err: err}
	}
	return nil
}
