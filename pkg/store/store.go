package store

import (
	"context"
	"time"

	"github.com/soundprediction/mnemo/pkg/types"
)

// Provider identifies the backing graph engine.
type Provider string

const (
	// ProviderNeo4j is the networked graph server backend.
	ProviderNeo4j Provider = "neo4j"
	// ProviderBadger is the embedded, pure-Go graph engine backend.
	ProviderBadger Provider = "badger"
)

// ListOptions constrains a listing call. ScopeID, when set, restricts
// results to one scope; Labels/Types filter entity labels or relationship
// types respectively. Zero Limit falls back to a server-side default.
type ListOptions struct {
	ScopeID string
	Labels  []string
	Types   []string
	Limit   int
	Offset  int
}

// VectorSearchOptions constrains a similarity search.
type VectorSearchOptions struct {
	Limit      int
	Threshold  float64
	ScopeID    string
	ContextIDs []string
	ValidAt    *time.Time
}

// Filtered reports whether any non-vector predicate is present. Filtered
// searches must oversample candidates before post-filtering; see
// CandidateLimit.
func (o VectorSearchOptions) Filtered() bool {
	return o.ScopeID != "" || len(o.ContextIDs) > 0 || o.ValidAt != nil
}

// SubgraphOptions constrains a depth-bounded traversal. Traversal expands
// from SeedEntityIDs or from entities matching EntityLabels; with neither
// set the traversal short-circuits to an empty result without touching the
// backend.
type SubgraphOptions struct {
	EntityLabels      []string
	RelationshipTypes []string
	MaxDepth          int
	Limit             int
	SeedEntityIDs     []string
	ScopeID           string
}

// EntityStore provides entity CRUD. Lookups for ids that do not exist
// return (nil, nil), never an error.
type EntityStore interface {
	// CreateEntities persists new entities, assigning ids and recording
	// timestamps. Labels are validated before any query text is built.
	CreateEntities(ctx context.Context, entities []*types.Entity) ([]*types.Entity, error)

	// UpsertEntity writes an entity in full, keyed by id.
	UpsertEntity(ctx context.Context, entity *types.Entity) error

	// GetEntity retrieves an entity by id, restricted to scopeID when set.
	GetEntity(ctx context.Context, id, scopeID string) (*types.Entity, error)

	// FindEntityByName retrieves the entity with the given name in a scope.
	// Name is the identity key within a scope.
	FindEntityByName(ctx context.Context, name, scopeID string) (*types.Entity, error)

	// UpdateEntity merges patch into the entity's open property map.
	// Reserved keys in the patch are rejected.
	UpdateEntity(ctx context.Context, id string, patch map[string]any, scopeID string) (*types.Entity, error)

	// DeleteEntity removes an entity and its dependent relationships,
	// reporting how many relationships were removed.
	DeleteEntity(ctx context.Context, id, scopeID string) (int, error)

	// ListEntities lists entities matching the options.
	ListEntities(ctx context.Context, opts ListOptions) ([]*types.Entity, error)
}

// DocumentStore provides document CRUD and the document-entity link.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *types.Document) error
	GetDocument(ctx context.Context, id, scopeID string) (*types.Document, error)

	// FindDocumentByText retrieves the document with exactly this text in a
	// scope. Exact text is the identity key within a scope.
	FindDocumentByText(ctx context.Context, text, scopeID string) (*types.Document, error)

	DeleteDocument(ctx context.Context, id, scopeID string) (int, error)
	ListDocuments(ctx context.Context, opts ListOptions) ([]*types.Document, error)

	// LinkEntityToDocument records that the document mentions the entity.
	LinkEntityToDocument(ctx context.Context, entityID, documentID, scopeID string) error

	// EntitiesForDocuments returns the distinct entities mentioned by any
	// of the given documents.
	EntitiesForDocuments(ctx context.Context, documentIDs []string, scopeID string) ([]*types.Entity, error)
}

// RelationshipStore provides relationship CRUD.
type RelationshipStore interface {
	CreateRelationship(ctx context.Context, rel *types.Relationship) error
	GetRelationship(ctx context.Context, id, scopeID string) (*types.Relationship, error)

	// FindRelationship retrieves the relationship with the given endpoints
	// and type, used to collapse exact duplicates on ingestion.
	FindRelationship(ctx context.Context, fromID, toID, relType, scopeID string) (*types.Relationship, error)

	DeleteRelationship(ctx context.Context, id, scopeID string) error
	ListRelationships(ctx context.Context, opts ListOptions) ([]*types.Relationship, error)
}

// VectorSearcher provides similarity search over stored embeddings.
// Results are ranked by cosine similarity, cut at opts.Threshold, and
// annotated with a transient similarity score.
type VectorSearcher interface {
	SearchEntitiesByVector(ctx context.Context, vec []float32, opts VectorSearchOptions) ([]*types.Entity, error)
	SearchDocumentsByVector(ctx context.Context, vec []float32, opts VectorSearchOptions) ([]*types.Document, error)
}

// Traverser provides depth-bounded subgraph expansion.
type Traverser interface {
	// Subgraph expands from seeds or labeled entities up to
	// opts.MaxDepth hops (1-10), returning distinct entities and
	// relationships deduplicated by id.
	Subgraph(ctx context.Context, opts SubgraphOptions) (*types.Subgraph, error)
}

// ContextStore persists ingestion contexts.
type ContextStore interface {
	UpsertContext(ctx context.Context, c *types.Context) error
	ListContexts(ctx context.Context, scopeID string) ([]*types.Context, error)
}

// Admin provides lifecycle and maintenance operations.
type Admin interface {
	Stats(ctx context.Context, scopeID string) (*types.GraphStats, error)
	EnsureIndexes(ctx context.Context) error
	Ping(ctx context.Context) error
	Provider() Provider
	Close() error
}

// GraphStore is the full capability contract every backend implements.
// Backends are interchangeable implementations selected by configuration;
// the orchestrator never switches on the concrete type.
type GraphStore interface {
	EntityStore
	DocumentStore
	RelationshipStore
	VectorSearcher
	Traverser
	ContextStore
	Admin
}

// Compile-time checks that both backends satisfy the contract.
var (
	_ GraphStore = (*Neo4jStore)(nil)
	_ GraphStore = (*BadgerStore)(nil)
)
