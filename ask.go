package mnemo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/soundprediction/mnemo/pkg/llm"
	"github.com/soundprediction/mnemo/pkg/prompts"
	"github.com/soundprediction/mnemo/pkg/store"
	"github.com/soundprediction/mnemo/pkg/types"
)

// RetrievalStrategy selects which vector spaces seed retrieval.
type RetrievalStrategy string

const (
	// StrategyEntities retrieves by entity-name similarity only.
	StrategyEntities RetrievalStrategy = "entities"
	// StrategyDocuments retrieves by document similarity only.
	StrategyDocuments RetrievalStrategy = "documents"
	// StrategyBoth merges both retrieval paths.
	StrategyBoth RetrievalStrategy = "both"
)

// AskOptions tunes a question-answering call.
type AskOptions struct {
	// ScopeID selects the tenant partition; empty uses the configured
	// default scope.
	ScopeID string

	// ContextIDs restricts retrieval to entities carrying any of the
	// given ingestion contexts.
	ContextIDs []string

	// ValidAt restricts retrieval to knowledge valid at that instant.
	ValidAt *time.Time

	// Strategy defaults to StrategyBoth.
	Strategy RetrievalStrategy

	// Limit bounds each retrieval leg; zero uses the engine default.
	Limit int

	// MaxDepth bounds the subgraph expansion around retrieved
	// entities; zero uses the engine default.
	MaxDepth int

	// Threshold discards matches scoring below it; nil uses the engine
	// default. A pointer so an explicit zero is distinguishable from
	// unset.
	Threshold *float64

	// IncludeEmbeddings echoes embedding vectors and similarity scores
	// on the returned entities and documents. Off by default: vectors
	// are large and callers rarely want them back.
	IncludeEmbeddings bool
}

// Ask retrieves graph context relevant to query and generates a
// grounded answer. When retrieval finds nothing, Found is false and no
// model call is made.
func (e *Engine) Ask(ctx context.Context, query string, opts AskOptions) (*types.AskResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, types.NewValidationError("query", "must not be empty")
	}
	scopeID := e.scopeOrDefault(opts.ScopeID)

	strategy := opts.Strategy
	if strategy == "" {
		strategy = StrategyBoth
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = e.config.SearchLimit
	}
	threshold := e.config.SearchThreshold
	if opts.Threshold != nil {
		threshold = *opts.Threshold
	}
	depth := opts.MaxDepth
	if depth <= 0 {
		depth = e.config.TraversalDepth
	}
	if err := store.ValidateMaxDepth(depth); err != nil {
		return nil, err
	}

	queryVec, err := e.embedder.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	searchOpts := store.VectorSearchOptions{
		Limit:      limit,
		Threshold:  threshold,
		ScopeID:    scopeID,
		ContextIDs: opts.ContextIDs,
		ValidAt:    opts.ValidAt,
	}

	var entities []*types.Entity
	var docs []*types.Document

	if strategy == StrategyEntities || strategy == StrategyBoth {
		entities, err = e.store.SearchEntitiesByVector(ctx, queryVec, searchOpts)
		if err != nil {
			return nil, err
		}
	}
	if strategy == StrategyDocuments || strategy == StrategyBoth {
		docs, err = e.store.SearchDocumentsByVector(ctx, queryVec, searchOpts)
		if err != nil {
			return nil, err
		}
		// Documents ground answers through the entities they mention.
		mentioned, err := e.entitiesFromDocs(ctx, docs, scopeID)
		if err != nil {
			return nil, err
		}
		entities = mergeEntities(entities, mentioned)
	}

	if len(entities) == 0 && len(docs) == 0 {
		e.logger.Info("ask found no relevant knowledge", "scope_id", scopeID)
		return &types.AskResult{Found: false}, nil
	}

	subgraph, err := e.expandAround(ctx, entities, scopeID, depth)
	if err != nil {
		return nil, err
	}
	entities = mergeEntities(entities, subgraph.Entities)

	graphContext := buildContext(docs, entities, subgraph.Relationships)
	answer, err := e.llm.GenerateResponse(ctx,
		prompts.AnswerSystemPrompt,
		prompts.AnswerUserPrompt(query, graphContext),
		llm.Options{})
	if err != nil {
		return nil, fmt.Errorf("answer generation failed: %w", err)
	}

	if !opts.IncludeEmbeddings {
		entities = stripEntityVectors(entities)
		docs = stripDocumentVectors(docs)
	}

	return &types.AskResult{
		Answer:        answer.Content,
		Found:         true,
		Entities:      entities,
		Relationships: subgraph.Relationships,
		Documents:     docs,
	}, nil
}

// stripEntityVectors copies the entities without their embedding
// vectors or similarity scores. The inputs stay untouched since the
// backend may hand out shared records.
func stripEntityVectors(entities []*types.Entity) []*types.Entity {
	out := make([]*types.Entity, len(entities))
	for i, entity := range entities {
		clean := *entity
		clean.Embedding = nil
		clean.Similarity = 0
		out[i] = &clean
	}
	return out
}

// stripDocumentVectors is stripEntityVectors for documents.
func stripDocumentVectors(docs []*types.Document) []*types.Document {
	out := make([]*types.Document, len(docs))
	for i, doc := range docs {
		clean := *doc
		clean.Embedding = nil
		clean.Similarity = 0
		out[i] = &clean
	}
	return out
}

// entitiesFromDocs resolves the entities mentioned by retrieved
// documents.
func (e *Engine) entitiesFromDocs(ctx context.Context, docs []*types.Document, scopeID string) ([]*types.Entity, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return e.store.EntitiesForDocuments(ctx, ids, scopeID)
}

// expandAround traverses outward from the retrieved entities.
func (e *Engine) expandAround(ctx context.Context, seeds []*types.Entity, scopeID string, depth int) (*types.Subgraph, error) {
	if len(seeds) == 0 {
		return types.EmptySubgraph(), nil
	}
	seedIDs := make([]string, 0, len(seeds))
	for _, s := range seeds {
		seedIDs = append(seedIDs, s.ID)
	}
	return e.store.Subgraph(ctx, store.SubgraphOptions{
		SeedEntityIDs: seedIDs,
		ScopeID:       scopeID,
		MaxDepth:      depth,
		Limit:         e.config.TraversalLimit,
	})
}

// mergeEntities unions two entity lists by id, preserving order of
// first appearance.
func mergeEntities(a, b []*types.Entity) []*types.Entity {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]*types.Entity, 0, len(a)+len(b))
	for _, list := range [][]*types.Entity{a, b} {
		for _, entity := range list {
			if _, ok := seen[entity.ID]; ok {
				continue
			}
			seen[entity.ID] = struct{}{}
			out = append(out, entity)
		}
	}
	return out
}
