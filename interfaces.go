package mnemo

import (
	"context"

	"github.com/soundprediction/mnemo/pkg/types"
)

// This file defines focused interfaces composed into the full engine
// contract. Consumers should depend on the smallest interface that
// meets their needs.

// Learner ingests free text into the knowledge graph.
type Learner interface {
	// Learn extracts entities and relationships from text, deduplicates
	// them against the graph, and persists what is new.
	Learn(ctx context.Context, text string, opts LearnOptions) (*types.LearnResult, error)

	// LearnBatch ingests several texts, isolating per-item failures.
	LearnBatch(ctx context.Context, texts []string, opts LearnOptions) (*types.LearnBatchResult, error)
}

// Asker answers natural-language questions from the graph.
type Asker interface {
	// Ask retrieves relevant graph context for the query and generates
	// a grounded answer. When nothing relevant is found, no model call
	// is made and Found is false.
	Ask(ctx context.Context, query string, opts AskOptions) (*types.AskResult, error)
}

// GraphReader provides read access to stored graph records.
type GraphReader interface {
	GetEntity(ctx context.Context, id, scopeID string) (*types.Entity, error)
	GetDocument(ctx context.Context, id, scopeID string) (*types.Document, error)
	GetRelationship(ctx context.Context, id, scopeID string) (*types.Relationship, error)
	ListEntities(ctx context.Context, opts ListOptions) ([]*types.Entity, error)
	ListDocuments(ctx context.Context, opts ListOptions) ([]*types.Document, error)
	ListRelationships(ctx context.Context, opts ListOptions) ([]*types.Relationship, error)
	Subgraph(ctx context.Context, opts TraverseOptions) (*types.Subgraph, error)
	Stats(ctx context.Context, scopeID string) (*types.GraphStats, error)
}

// GraphWriter provides direct write access to stored graph records,
// bypassing extraction.
type GraphWriter interface {
	UpdateEntity(ctx context.Context, id string, patch map[string]any, scopeID string) (*types.Entity, error)
	DeleteEntity(ctx context.Context, id, scopeID string) (int, error)
	DeleteDocument(ctx context.Context, id, scopeID string) (int, error)
	DeleteRelationship(ctx context.Context, id, scopeID string) error
}

// HealthChecker reports backend liveness.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// KnowledgeGraph is the full engine contract.
type KnowledgeGraph interface {
	Learner
	Asker
	GraphReader
	GraphWriter
	HealthChecker
	Close() error
}

var _ KnowledgeGraph = (*Engine)(nil)
