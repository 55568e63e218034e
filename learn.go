package mnemo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/soundprediction/mnemo/pkg/checkpoint"
	"github.com/soundprediction/mnemo/pkg/types"
)

// LearnOptions scopes and annotates an ingestion call.
type LearnOptions struct {
	// ScopeID selects the tenant partition; empty uses the configured
	// default scope.
	ScopeID string

	// ContextName, when set, groups this ingestion under a named
	// context. Entities touched by the ingestion accumulate the
	// context id; re-learning under a new context extends, never
	// replaces, an entity's contexts.
	ContextName string

	// Source annotates the context with its provenance.
	Source string

	// ValidFrom and ValidTo bound the real-world validity of the
	// ingested knowledge. Nil bounds are open.
	ValidFrom *time.Time
	ValidTo   *time.Time
}

// Learn runs the full ingestion pipeline for one text: extraction,
// deduplication against the existing graph, and persistence of whatever
// is new. Re-learning the same text in the same scope creates nothing.
func (e *Engine) Learn(ctx context.Context, text string, opts LearnOptions) (*types.LearnResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, types.NewValidationError("text", "must not be empty")
	}
	scopeID := e.scopeOrDefault(opts.ScopeID)

	result := &types.LearnResult{}

	ingestionContext, err := e.resolveContext(ctx, scopeID, opts)
	if err != nil {
		return nil, err
	}
	result.Context = ingestionContext

	contextID := ""
	if ingestionContext != nil {
		contextID = ingestionContext.ID
	}

	// Extract before anything text-derived is committed, so a malformed
	// model response leaves no orphaned document behind.
	payload, err := e.extract(ctx, text)
	if err != nil {
		return nil, err
	}

	doc, docReused, err := e.upsertDocument(ctx, text, scopeID, contextID)
	if err != nil {
		return nil, err
	}
	result.Document = doc
	if docReused {
		result.Reused.Document = 1
	} else {
		result.Created.Document = 1
	}

	entityByName := make(map[string]*types.Entity, len(payload.Entities))
	for _, extracted := range payload.Entities {
		entity, created, err := e.upsertEntity(ctx, extracted, scopeID, contextID, opts)
		if err != nil {
			return nil, err
		}
		entityByName[extracted.Name] = entity
		result.Entities = append(result.Entities, entity)
		if created {
			result.Created.Entities++
		} else {
			result.Reused.Entities++
		}

		if err := e.store.LinkEntityToDocument(ctx, entity.ID, doc.ID, scopeID); err != nil {
			return nil, fmt.Errorf("failed to link entity to document: %w", err)
		}
	}

	for _, extracted := range payload.Relationships {
		from := entityByName[extracted.From]
		to := entityByName[extracted.To]
		if from == nil || to == nil {
			continue
		}

		existing, err := e.store.FindRelationship(ctx, from.ID, to.ID, extracted.Type, scopeID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			result.Relationships = append(result.Relationships, existing)
			result.Reused.Relationships++
			continue
		}

		rel := &types.Relationship{
			Type:       extracted.Type,
			FromID:     from.ID,
			ToID:       to.ID,
			ScopeID:    scopeID,
			Properties: extracted.Properties,
			RecordedAt: e.now(),
		}
		if err := e.store.CreateRelationship(ctx, rel); err != nil {
			return nil, err
		}
		result.Relationships = append(result.Relationships, rel)
		result.Created.Relationships++
	}

	e.logger.Info("learned text",
		"scope_id", scopeID,
		"entities_created", result.Created.Entities,
		"entities_reused", result.Reused.Entities,
		"relationships_created", result.Created.Relationships,
		"document_reused", docReused)

	return result, nil
}

// LearnBatch ingests texts sequentially. A failed item is recorded and
// skipped; the rest of the batch proceeds.
func (e *Engine) LearnBatch(ctx context.Context, texts []string, opts LearnOptions) (*types.LearnBatchResult, error) {
	if len(texts) == 0 {
		return nil, types.NewValidationError("texts", "must not be empty")
	}

	batch := &types.LearnBatchResult{}
	for i, text := range texts {
		if cerr := ctx.Err(); cerr != nil {
			return nil, cerr
		}
		item := types.LearnBatchItem{Index: i}

		result, err := e.Learn(ctx, text, opts)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			itemErr := &BatchItemError{Index: i, Err: err}
			e.logger.Warn("batch item failed", "index", i, "error", err)
			item.Error = itemErr.Error()
			batch.Failed++
		} else {
			item.Result = result
			batch.Succeeded++
			batch.Created.Add(result.Created)
			batch.Reused.Add(result.Reused)
		}
		batch.Items = append(batch.Items, item)
	}
	return batch, nil
}

// LearnBatchResumable ingests texts like LearnBatch but journals
// progress under batchID, so a crashed or cancelled batch resumes from
// its next unprocessed item. The journal entry is removed once the
// batch completes.
func (e *Engine) LearnBatchResumable(ctx context.Context, batchID string, texts []string, opts LearnOptions, journal *checkpoint.Manager) (*types.LearnBatchResult, error) {
	if journal == nil {
		return e.LearnBatch(ctx, texts, opts)
	}
	if len(texts) == 0 {
		return nil, types.NewValidationError("texts", "must not be empty")
	}
	scopeID := e.scopeOrDefault(opts.ScopeID)

	cp, err := journal.Load(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if cp == nil {
		cp = &checkpoint.BatchCheckpoint{
			BatchID:   batchID,
			ScopeID:   scopeID,
			CreatedAt: e.now(),
			Texts:     texts,
		}
	} else if len(cp.Texts) != len(texts) {
		return nil, types.NewValidationError("texts", "batch does not match its checkpoint")
	} else if cp.NextIndex > 0 {
		e.logger.Info("resuming batch from checkpoint", "batch_id", batchID, "next_index", cp.NextIndex)
	}

	for i := cp.NextIndex; i < len(texts); i++ {
		if cerr := ctx.Err(); cerr != nil {
			_ = journal.RecordError(ctx, batchID, cerr)
			return nil, cerr
		}
		item := types.LearnBatchItem{Index: i}

		result, err := e.Learn(ctx, texts[i], opts)
		if err != nil {
			if ctx.Err() != nil {
				_ = journal.RecordError(ctx, batchID, err)
				return nil, ctx.Err()
			}
			item.Error = (&BatchItemError{Index: i, Err: err}).Error()
		} else {
			item.Result = result
			cp.Created.Add(result.Created)
			cp.Reused.Add(result.Reused)
		}
		cp.Items = append(cp.Items, item)
		cp.NextIndex = i + 1
		if err := journal.Save(ctx, cp); err != nil {
			return nil, err
		}
	}

	batch := &types.LearnBatchResult{
		Items:   cp.Items,
		Created: cp.Created,
		Reused:  cp.Reused,
	}
	for _, item := range cp.Items {
		if item.Error != "" {
			batch.Failed++
		} else {
			batch.Succeeded++
		}
	}

	if err := journal.Delete(ctx, batchID); err != nil {
		e.logger.Warn("failed to remove completed batch checkpoint", "batch_id", batchID, "error", err)
	}
	return batch, nil
}

// resolveContext upserts the named ingestion context, or returns nil
// when the call is uncontexted.
func (e *Engine) resolveContext(ctx context.Context, scopeID string, opts LearnOptions) (*types.Context, error) {
	if opts.ContextName == "" {
		return nil, nil
	}

	for _, existing := range e.listContextsByName(ctx, scopeID, opts.ContextName) {
		return existing, nil
	}

	c := &types.Context{
		ID:        uuid.New().String(),
		ScopeID:   scopeID,
		Name:      opts.ContextName,
		Source:    opts.Source,
		ValidFrom: opts.ValidFrom,
		ValidTo:   opts.ValidTo,
	}
	if err := e.store.UpsertContext(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (e *Engine) listContextsByName(ctx context.Context, scopeID, name string) []*types.Context {
	contexts, err := e.store.ListContexts(ctx, scopeID)
	if err != nil {
		return nil
	}
	var matches []*types.Context
	for _, c := range contexts {
		if c.Name == name {
			matches = append(matches, c)
		}
	}
	return matches
}

// upsertDocument finds the document with exactly this text in the scope
// or creates it, embedding the text on first sight.
func (e *Engine) upsertDocument(ctx context.Context, text, scopeID, contextID string) (*types.Document, bool, error) {
	existing, err := e.store.FindDocumentByText(ctx, text, scopeID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, true, nil
	}

	embedding, err := e.embedder.EmbedSingle(ctx, text)
	if err != nil {
		return nil, false, fmt.Errorf("failed to embed document: %w", err)
	}

	doc := &types.Document{
		ScopeID:    scopeID,
		Text:       text,
		ContextID:  contextID,
		Embedding:  embedding,
		RecordedAt: e.now(),
	}
	if err := e.store.CreateDocument(ctx, doc); err != nil {
		return nil, false, err
	}
	return doc, false, nil
}

// upsertEntity deduplicates by name within the scope. An existing
// entity absorbs the new context id and any new properties; a fresh one
// is embedded and created.
func (e *Engine) upsertEntity(ctx context.Context, extracted types.ExtractedEntity, scopeID, contextID string, opts LearnOptions) (*types.Entity, bool, error) {
	existing, err := e.store.FindEntityByName(ctx, extracted.Name, scopeID)
	if err != nil {
		return nil, false, err
	}

	if existing != nil {
		changed := false
		if contextID != "" && existing.MergeContextIDs([]string{contextID}) {
			changed = true
		}
		for k, v := range types.ScrubProperties(extracted.Properties) {
			if _, ok := existing.Properties[k]; !ok {
				if existing.Properties == nil {
					existing.Properties = make(map[string]any)
				}
				existing.Properties[k] = v
				changed = true
			}
		}
		if changed {
			if err := e.store.UpsertEntity(ctx, existing); err != nil {
				return nil, false, err
			}
		}
		return existing, false, nil
	}

	embedding, err := e.embedder.EmbedSingle(ctx, extracted.Name)
	if err != nil {
		return nil, false, fmt.Errorf("failed to embed entity: %w", err)
	}

	entity := &types.Entity{
		Name:       extracted.Name,
		Label:      extracted.Label,
		ScopeID:    scopeID,
		Properties: extracted.Properties,
		Embedding:  embedding,
		RecordedAt: e.now(),
		ValidFrom:  opts.ValidFrom,
		ValidTo:    opts.ValidTo,
	}
	if contextID != "" {
		entity.ContextIDs = []string{contextID}
	}

	created, err := e.store.CreateEntities(ctx, []*types.Entity{entity})
	if err != nil {
		return nil, false, err
	}
	return created[0], true, nil
}
