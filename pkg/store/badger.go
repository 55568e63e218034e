package store

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/soundprediction/mnemo/pkg/types"
)

// Badger key layout. Every key is scoped so one database serves many
// tenants without cross-scope scans:
//
//	e/<scope>/<id>                 entity record (JSON)
//	en/<scope>/<sha256(name)>      entity name index -> id
//	d/<scope>/<id>                 document record (JSON)
//	dt/<scope>/<sha256(text)>      document text index -> id
//	r/<scope>/<id>                 relationship record (JSON)
//	rk/<scope>/<from>|<to>|<type>  relationship endpoint index -> id
//	adj/<scope>/<node>/<rel>       adjacency, written for both endpoints
//	c/<scope>/<id>                 ingestion context record (JSON)
const (
	prefixEntity     = "e"
	prefixEntityName = "en"
	prefixDocument   = "d"
	prefixDocText    = "dt"
	prefixRel        = "r"
	prefixRelKey     = "rk"
	prefixAdjacency  = "adj"
	prefixContext    = "c"
)

// BadgerStore implements GraphStore on an embedded Badger database. It
// needs no external server; vector search is a brute-force cosine scan
// and traversal is a breadth-first walk over the adjacency keys.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) an embedded store at path. An empty
// path opens an in-memory database, useful for tests.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Provider returns ProviderBadger.
func (s *BadgerStore) Provider() Provider {
	return ProviderBadger
}

// Ping reports whether the database is open.
func (s *BadgerStore) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return fmt.Errorf("badger store is closed")
	}
	return nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// EnsureIndexes is a no-op; the key layout is the index.
func (s *BadgerStore) EnsureIndexes(ctx context.Context) error {
	return nil
}

func scopedKey(prefix, scopeID string, parts ...string) []byte {
	key := prefix + "/" + scopeID
	for _, p := range parts {
		key += "/" + p
	}
	return []byte(key)
}

func hashKey(value string) string {
	sum := sha256.Sum256([]byte(value))
	return fmt.Sprintf("%x", sum)
}

func relEndpointKey(scopeID, fromID, toID, relType string) []byte {
	return scopedKey(prefixRelKey, scopeID, fromID+"|"+toID+"|"+relType)
}

// CreateEntities persists new entities, assigning ids and timestamps.
func (s *BadgerStore) CreateEntities(ctx context.Context, entities []*types.Entity) ([]*types.Entity, error) {
	for _, e := range entities {
		if err := e.Validate(); err != nil {
			return nil, err
		}
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for _, e := range entities {
			if e.ID == "" {
				e.ID = uuid.New().String()
			}
			if e.RecordedAt.IsZero() {
				e.RecordedAt = time.Now().UTC()
			}
			if err := writeEntity(txn, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create entities: %w", err)
	}
	return entities, nil
}

func writeEntity(txn *badger.Txn, e *types.Entity) error {
	e.Properties = types.ScrubProperties(e.Properties)
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := txn.Set(scopedKey(prefixEntity, e.ScopeID, e.ID), data); err != nil {
		return err
	}
	return txn.Set(scopedKey(prefixEntityName, e.ScopeID, hashKey(e.Name)), []byte(e.ID))
}

// UpsertEntity writes an entity in full, keyed by id.
func (s *BadgerStore) UpsertEntity(ctx context.Context, entity *types.Entity) error {
	if err := entity.Validate(); err != nil {
		return err
	}
	if entity.ID == "" {
		return types.ErrEmptyID
	}
	if entity.RecordedAt.IsZero() {
		entity.RecordedAt = time.Now().UTC()
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return writeEntity(txn, entity)
	})
}

// GetEntity retrieves an entity by id, restricted to scopeID when set.
// Without a scope the whole entity space is scanned.
func (s *BadgerStore) GetEntity(ctx context.Context, id, scopeID string) (*types.Entity, error) {
	if scopeID != "" {
		var entity *types.Entity
		err := s.db.View(func(txn *badger.Txn) error {
			e, err := readEntity(txn, scopeID, id)
			entity = e
			return err
		})
		return entity, err
	}

	var match *types.Entity
	err := s.iterate(prefixEntity+"/", func(val []byte) error {
		var e types.Entity
		if err := json.Unmarshal(val, &e); err != nil {
			return err
		}
		if e.ID == id {
			match = &e
		}
		return nil
	})
	return match, err
}

func readEntity(txn *badger.Txn, scopeID, id string) (*types.Entity, error) {
	item, err := txn.Get(scopedKey(prefixEntity, scopeID, id))
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var e types.Entity
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &e)
	}); err != nil {
		return nil, err
	}
	return &e, nil
}

// FindEntityByName retrieves the entity with the given name in a scope.
func (s *BadgerStore) FindEntityByName(ctx context.Context, name, scopeID string) (*types.Entity, error) {
	var entity *types.Entity
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(scopedKey(prefixEntityName, scopeID, hashKey(name)))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		var id string
		if err := item.Value(func(val []byte) error {
			id = string(val)
			return nil
		}); err != nil {
			return err
		}
		entity, err = readEntity(txn, scopeID, id)
		return err
	})
	return entity, err
}

// UpdateEntity merges patch into the entity's open property map.
func (s *BadgerStore) UpdateEntity(ctx context.Context, id string, patch map[string]any, scopeID string) (*types.Entity, error) {
	for k := range patch {
		if types.IsReservedPropertyKey(k) {
			return nil, types.NewValidationError("patch", fmt.Sprintf("%q is a reserved property key", k))
		}
	}

	entity, err := s.GetEntity(ctx, id, scopeID)
	if err != nil || entity == nil {
		return nil, err
	}

	if entity.Properties == nil {
		entity.Properties = make(map[string]any, len(patch))
	}
	for k, v := range patch {
		entity.Properties[k] = v
	}

	if err := s.db.Update(func(txn *badger.Txn) error {
		return writeEntity(txn, entity)
	}); err != nil {
		return nil, err
	}
	return entity, nil
}

// DeleteEntity removes an entity, its indexes, and every relationship
// touching it, returning the count of removed relationships.
func (s *BadgerStore) DeleteEntity(ctx context.Context, id, scopeID string) (int, error) {
	entity, err := s.GetEntity(ctx, id, scopeID)
	if err != nil || entity == nil {
		return 0, err
	}

	removed := 0
	err = s.db.Update(func(txn *badger.Txn) error {
		relIDs, err := adjacentRelIDs(txn, entity.ScopeID, entity.ID)
		if err != nil {
			return err
		}
		for _, relID := range relIDs {
			rel, err := readRelationship(txn, entity.ScopeID, relID)
			if err != nil {
				return err
			}
			if rel == nil {
				continue
			}
			if err := deleteRelationship(txn, rel); err != nil {
				return err
			}
			removed++
		}

		if err := txn.Delete(scopedKey(prefixEntityName, entity.ScopeID, hashKey(entity.Name))); err != nil {
			return err
		}
		return txn.Delete(scopedKey(prefixEntity, entity.ScopeID, entity.ID))
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// ListEntities lists entities matching the options.
func (s *BadgerStore) ListEntities(ctx context.Context, opts ListOptions) ([]*types.Entity, error) {
	wantLabel := make(map[string]struct{}, len(opts.Labels))
	for _, l := range opts.Labels {
		wantLabel[l] = struct{}{}
	}

	var entities []*types.Entity
	err := s.iterate(entityPrefix(opts.ScopeID), func(val []byte) error {
		var e types.Entity
		if err := json.Unmarshal(val, &e); err != nil {
			return err
		}
		if len(wantLabel) > 0 {
			if _, ok := wantLabel[e.Label]; !ok {
				return nil
			}
		}
		entities = append(entities, &e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paginate(entities, opts.Offset, listLimit(opts.Limit)), nil
}

func entityPrefix(scopeID string) string {
	if scopeID == "" {
		return prefixEntity + "/"
	}
	return prefixEntity + "/" + scopeID + "/"
}

// CreateDocument persists a new document.
func (s *BadgerStore) CreateDocument(ctx context.Context, doc *types.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.RecordedAt.IsZero() {
		doc.RecordedAt = time.Now().UTC()
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(scopedKey(prefixDocument, doc.ScopeID, doc.ID), data); err != nil {
			return err
		}
		return txn.Set(scopedKey(prefixDocText, doc.ScopeID, hashKey(doc.Text)), []byte(doc.ID))
	})
}

// GetDocument retrieves a document by id.
func (s *BadgerStore) GetDocument(ctx context.Context, id, scopeID string) (*types.Document, error) {
	if scopeID != "" {
		var doc *types.Document
		err := s.db.View(func(txn *badger.Txn) error {
			d, err := readDocument(txn, scopeID, id)
			doc = d
			return err
		})
		return doc, err
	}

	var match *types.Document
	err := s.iterate(prefixDocument+"/", func(val []byte) error {
		var d types.Document
		if err := json.Unmarshal(val, &d); err != nil {
			return err
		}
		if d.ID == id {
			match = &d
		}
		return nil
	})
	return match, err
}

func readDocument(txn *badger.Txn, scopeID, id string) (*types.Document, error) {
	item, err := txn.Get(scopedKey(prefixDocument, scopeID, id))
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var d types.Document
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &d)
	}); err != nil {
		return nil, err
	}
	return &d, nil
}

// FindDocumentByText retrieves the document with exactly this text.
func (s *BadgerStore) FindDocumentByText(ctx context.Context, text, scopeID string) (*types.Document, error) {
	var doc *types.Document
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(scopedKey(prefixDocText, scopeID, hashKey(text)))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		var id string
		if err := item.Value(func(val []byte) error {
			id = string(val)
			return nil
		}); err != nil {
			return err
		}
		d, err := readDocument(txn, scopeID, id)
		if err != nil {
			return err
		}
		// Hash collisions are vanishingly unlikely but cheap to rule out.
		if d != nil && d.Text == text {
			doc = d
		}
		return nil
	})
	return doc, err
}

// DeleteDocument removes a document, its text index, and its dependent
// relationships, returning the count of removed relationships.
func (s *BadgerStore) DeleteDocument(ctx context.Context, id, scopeID string) (int, error) {
	doc, err := s.GetDocument(ctx, id, scopeID)
	if err != nil || doc == nil {
		return 0, err
	}

	removed := 0
	err = s.db.Update(func(txn *badger.Txn) error {
		relIDs, err := adjacentRelIDs(txn, doc.ScopeID, doc.ID)
		if err != nil {
			return err
		}
		for _, relID := range relIDs {
			rel, err := readRelationship(txn, doc.ScopeID, relID)
			if err != nil {
				return err
			}
			if rel == nil {
				continue
			}
			if err := deleteRelationship(txn, rel); err != nil {
				return err
			}
			removed++
		}

		if err := txn.Delete(scopedKey(prefixDocText, doc.ScopeID, hashKey(doc.Text))); err != nil {
			return err
		}
		return txn.Delete(scopedKey(prefixDocument, doc.ScopeID, doc.ID))
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// ListDocuments lists documents matching the options.
func (s *BadgerStore) ListDocuments(ctx context.Context, opts ListOptions) ([]*types.Document, error) {
	prefix := prefixDocument + "/"
	if opts.ScopeID != "" {
		prefix += opts.ScopeID + "/"
	}

	var docs []*types.Document
	err := s.iterate(prefix, func(val []byte) error {
		var d types.Document
		if err := json.Unmarshal(val, &d); err != nil {
			return err
		}
		docs = append(docs, &d)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paginate(docs, opts.Offset, listLimit(opts.Limit)), nil
}

// LinkEntityToDocument records a MENTIONS relationship from document to
// entity, idempotent per pair.
func (s *BadgerStore) LinkEntityToDocument(ctx context.Context, entityID, documentID, scopeID string) error {
	existing, err := s.FindRelationship(ctx, documentID, entityID, types.MentionsRelationshipType, scopeID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	return s.CreateRelationship(ctx, &types.Relationship{
		Type:    types.MentionsRelationshipType,
		FromID:  documentID,
		ToID:    entityID,
		ScopeID: scopeID,
	})
}

// EntitiesForDocuments returns the distinct entities mentioned by any of
// the given documents.
func (s *BadgerStore) EntitiesForDocuments(ctx context.Context, documentIDs []string, scopeID string) ([]*types.Entity, error) {
	if len(documentIDs) == 0 {
		return []*types.Entity{}, nil
	}

	seen := make(map[string]struct{})
	var entities []*types.Entity
	err := s.db.View(func(txn *badger.Txn) error {
		for _, docID := range documentIDs {
			relIDs, err := adjacentRelIDs(txn, scopeID, docID)
			if err != nil {
				return err
			}
			for _, relID := range relIDs {
				rel, err := readRelationship(txn, scopeID, relID)
				if err != nil {
					return err
				}
				if rel == nil || rel.Type != types.MentionsRelationshipType || rel.FromID != docID {
					continue
				}
				if _, ok := seen[rel.ToID]; ok {
					continue
				}
				seen[rel.ToID] = struct{}{}
				e, err := readEntity(txn, scopeID, rel.ToID)
				if err != nil {
					return err
				}
				if e != nil {
					entities = append(entities, e)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if entities == nil {
		entities = []*types.Entity{}
	}
	return entities, nil
}

// CreateRelationship persists a relationship plus its endpoint index and
// adjacency keys.
func (s *BadgerStore) CreateRelationship(ctx context.Context, rel *types.Relationship) error {
	if err := rel.Validate(); err != nil {
		return err
	}
	if rel.ID == "" {
		rel.ID = uuid.New().String()
	}
	if rel.RecordedAt.IsZero() {
		rel.RecordedAt = time.Now().UTC()
	}
	rel.Properties = types.ScrubProperties(rel.Properties)

	data, err := json.Marshal(rel)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(scopedKey(prefixRel, rel.ScopeID, rel.ID), data); err != nil {
			return err
		}
		if err := txn.Set(relEndpointKey(rel.ScopeID, rel.FromID, rel.ToID, rel.Type), []byte(rel.ID)); err != nil {
			return err
		}
		if err := txn.Set(scopedKey(prefixAdjacency, rel.ScopeID, rel.FromID, rel.ID), nil); err != nil {
			return err
		}
		return txn.Set(scopedKey(prefixAdjacency, rel.ScopeID, rel.ToID, rel.ID), nil)
	})
}

func readRelationship(txn *badger.Txn, scopeID, id string) (*types.Relationship, error) {
	item, err := txn.Get(scopedKey(prefixRel, scopeID, id))
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var r types.Relationship
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &r)
	}); err != nil {
		return nil, err
	}
	return &r, nil
}

func deleteRelationship(txn *badger.Txn, rel *types.Relationship) error {
	if err := txn.Delete(scopedKey(prefixRel, rel.ScopeID, rel.ID)); err != nil {
		return err
	}
	if err := txn.Delete(relEndpointKey(rel.ScopeID, rel.FromID, rel.ToID, rel.Type)); err != nil {
		return err
	}
	if err := txn.Delete(scopedKey(prefixAdjacency, rel.ScopeID, rel.FromID, rel.ID)); err != nil {
		return err
	}
	return txn.Delete(scopedKey(prefixAdjacency, rel.ScopeID, rel.ToID, rel.ID))
}

// adjacentRelIDs returns the ids of every relationship touching nodeID.
func adjacentRelIDs(txn *badger.Txn, scopeID, nodeID string) ([]string, error) {
	prefix := scopedKey(prefixAdjacency, scopeID, nodeID)
	prefix = append(prefix, '/')

	var ids []string
	it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
	defer it.Close()
	for it.Rewind(); it.Valid(); it.Next() {
		key := it.Item().Key()
		ids = append(ids, string(key[len(prefix):]))
	}
	return ids, nil
}

// GetRelationship retrieves a relationship by id.
func (s *BadgerStore) GetRelationship(ctx context.Context, id, scopeID string) (*types.Relationship, error) {
	if scopeID != "" {
		var rel *types.Relationship
		err := s.db.View(func(txn *badger.Txn) error {
			r, err := readRelationship(txn, scopeID, id)
			rel = r
			return err
		})
		return rel, err
	}

	var match *types.Relationship
	err := s.iterate(prefixRel+"/", func(val []byte) error {
		var r types.Relationship
		if err := json.Unmarshal(val, &r); err != nil {
			return err
		}
		if r.ID == id {
			match = &r
		}
		return nil
	})
	return match, err
}

// FindRelationship retrieves the relationship with the given endpoints
// and type.
func (s *BadgerStore) FindRelationship(ctx context.Context, fromID, toID, relType, scopeID string) (*types.Relationship, error) {
	if err := types.ValidateRelationshipType(relType); err != nil {
		return nil, err
	}

	var rel *types.Relationship
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(relEndpointKey(scopeID, fromID, toID, relType))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		var id string
		if err := item.Value(func(val []byte) error {
			id = string(val)
			return nil
		}); err != nil {
			return err
		}
		rel, err = readRelationship(txn, scopeID, id)
		return err
	})
	return rel, err
}

// DeleteRelationship removes a relationship by id.
func (s *BadgerStore) DeleteRelationship(ctx context.Context, id, scopeID string) error {
	rel, err := s.GetRelationship(ctx, id, scopeID)
	if err != nil || rel == nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return deleteRelationship(txn, rel)
	})
}

// ListRelationships lists relationships matching the options.
func (s *BadgerStore) ListRelationships(ctx context.Context, opts ListOptions) ([]*types.Relationship, error) {
	prefix := prefixRel + "/"
	if opts.ScopeID != "" {
		prefix += opts.ScopeID + "/"
	}
	wantType := make(map[string]struct{}, len(opts.Types))
	for _, t := range opts.Types {
		wantType[t] = struct{}{}
	}

	var rels []*types.Relationship
	err := s.iterate(prefix, func(val []byte) error {
		var r types.Relationship
		if err := json.Unmarshal(val, &r); err != nil {
			return err
		}
		if len(wantType) > 0 {
			if _, ok := wantType[r.Type]; !ok {
				return nil
			}
		}
		rels = append(rels, &r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paginate(rels, opts.Offset, listLimit(opts.Limit)), nil
}

// SearchEntitiesByVector ranks embedded entities by cosine similarity.
// The scan is always brute-force; oversampling is irrelevant because the
// filters run inline.
func (s *BadgerStore) SearchEntitiesByVector(ctx context.Context, vec []float32, opts VectorSearchOptions) ([]*types.Entity, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	var candidates []*types.Entity
	err := s.iterate(entityPrefix(opts.ScopeID), func(val []byte) error {
		var e types.Entity
		if err := json.Unmarshal(val, &e); err != nil {
			return err
		}
		if len(e.Embedding) == 0 {
			return nil
		}
		candidates = append(candidates, &e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rankEntities(candidates, vec, opts, limit), nil
}

// SearchDocumentsByVector ranks embedded documents by cosine similarity.
func (s *BadgerStore) SearchDocumentsByVector(ctx context.Context, vec []float32, opts VectorSearchOptions) ([]*types.Document, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	prefix := prefixDocument + "/"
	if opts.ScopeID != "" {
		prefix += opts.ScopeID + "/"
	}

	var candidates []*types.Document
	err := s.iterate(prefix, func(val []byte) error {
		var d types.Document
		if err := json.Unmarshal(val, &d); err != nil {
			return err
		}
		if len(d.Embedding) == 0 {
			return nil
		}
		candidates = append(candidates, &d)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rankDocuments(candidates, vec, opts, limit), nil
}

// Subgraph expands breadth-first from the qualifying seeds. The limit
// caps relationship traversals, so large neighborhoods return a bounded
// result.
func (s *BadgerStore) Subgraph(ctx context.Context, opts SubgraphOptions) (*types.Subgraph, error) {
	if err := ValidateMaxDepth(opts.MaxDepth); err != nil {
		return nil, err
	}
	if err := ValidateRelationshipTypes(opts.RelationshipTypes); err != nil {
		return nil, err
	}
	if err := ValidateEntityLabels(opts.EntityLabels); err != nil {
		return nil, err
	}
	if SubgraphShortCircuits(opts) {
		return types.EmptySubgraph(), nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	wantType := make(map[string]struct{}, len(opts.RelationshipTypes))
	for _, t := range opts.RelationshipTypes {
		wantType[t] = struct{}{}
	}

	result := types.EmptySubgraph()
	err := s.db.View(func(txn *badger.Txn) error {
		seeds, err := s.collectSeeds(txn, opts)
		if err != nil {
			return err
		}

		seenNodes := make(map[string]struct{})
		seenRels := make(map[string]struct{})
		frontier := make([]string, 0, len(seeds))
		for _, seed := range seeds {
			if _, ok := seenNodes[seed.ID]; ok {
				continue
			}
			seenNodes[seed.ID] = struct{}{}
			result.Entities = append(result.Entities, seed)
			frontier = append(frontier, seed.ID)
		}

		traversed := 0
		for depth := 0; depth < opts.MaxDepth && len(frontier) > 0; depth++ {
			var next []string
			for _, nodeID := range frontier {
				relIDs, err := adjacentRelIDs(txn, opts.ScopeID, nodeID)
				if err != nil {
					return err
				}
				for _, relID := range relIDs {
					if traversed >= limit {
						return nil
					}
					if _, ok := seenRels[relID]; ok {
						continue
					}
					rel, err := readRelationship(txn, opts.ScopeID, relID)
					if err != nil {
						return err
					}
					if rel == nil {
						continue
					}
					if len(wantType) > 0 {
						if _, ok := wantType[rel.Type]; !ok {
							continue
						}
					}
					traversed++
					seenRels[relID] = struct{}{}
					result.Relationships = append(result.Relationships, rel)

					for _, peerID := range []string{rel.FromID, rel.ToID} {
						if _, ok := seenNodes[peerID]; ok {
							continue
						}
						peer, err := readEntity(txn, opts.ScopeID, peerID)
						if err != nil {
							return err
						}
						if peer == nil {
							// Document endpoints stay out of the
							// entity set but the edge survives.
							continue
						}
						seenNodes[peerID] = struct{}{}
						result.Entities = append(result.Entities, peer)
						next = append(next, peerID)
					}
				}
			}
			frontier = next
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// collectSeeds resolves the traversal starting set from explicit seed ids
// and label filters.
func (s *BadgerStore) collectSeeds(txn *badger.Txn, opts SubgraphOptions) ([]*types.Entity, error) {
	var seeds []*types.Entity
	seen := make(map[string]struct{})

	for _, id := range opts.SeedEntityIDs {
		e, err := readEntity(txn, opts.ScopeID, id)
		if err != nil {
			return nil, err
		}
		if e == nil {
			continue
		}
		if _, ok := seen[e.ID]; !ok {
			seen[e.ID] = struct{}{}
			seeds = append(seeds, e)
		}
	}

	if len(opts.EntityLabels) > 0 {
		wantLabel := make(map[string]struct{}, len(opts.EntityLabels))
		for _, l := range opts.EntityLabels {
			wantLabel[l] = struct{}{}
		}
		prefix := []byte(entityPrefix(opts.ScopeID))
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: true})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var e types.Entity
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return nil, err
			}
			if _, ok := wantLabel[e.Label]; !ok {
				continue
			}
			if _, ok := seen[e.ID]; !ok {
				seen[e.ID] = struct{}{}
				entity := e
				seeds = append(seeds, &entity)
			}
		}
	}
	return seeds, nil
}

// UpsertContext persists an ingestion context.
func (s *BadgerStore) UpsertContext(ctx context.Context, c *types.Context) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(scopedKey(prefixContext, c.ScopeID, c.ID), data)
	})
}

// ListContexts lists ingestion contexts for a scope.
func (s *BadgerStore) ListContexts(ctx context.Context, scopeID string) ([]*types.Context, error) {
	prefix := prefixContext + "/"
	if scopeID != "" {
		prefix += scopeID + "/"
	}

	var contexts []*types.Context
	err := s.iterate(prefix, func(val []byte) error {
		var c types.Context
		if err := json.Unmarshal(val, &c); err != nil {
			return err
		}
		contexts = append(contexts, &c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return contexts, nil
}

// Stats summarizes a scope's graph.
func (s *BadgerStore) Stats(ctx context.Context, scopeID string) (*types.GraphStats, error) {
	stats := &types.GraphStats{ScopeID: scopeID}
	counts := []struct {
		prefix string
		target *int64
	}{
		{entityPrefix(scopeID), &stats.Entities},
		{prefixDocument + "/" + scopePart(scopeID), &stats.Documents},
		{prefixRel + "/" + scopePart(scopeID), &stats.Relationships},
	}
	for _, c := range counts {
		n, err := s.countPrefix(c.prefix)
		if err != nil {
			return nil, err
		}
		*c.target = n
	}
	return stats, nil
}

func scopePart(scopeID string) string {
	if scopeID == "" {
		return ""
	}
	return scopeID + "/"
}

func (s *BadgerStore) countPrefix(prefix string) (int64, error) {
	var n int64
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(prefix)})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// iterate walks every value under prefix.
func (s *BadgerStore) iterate(prefix string, fn func(val []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		p := []byte(prefix)
		it := txn.NewIterator(badger.IteratorOptions{Prefix: p, PrefetchValues: true})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if !bytes.HasPrefix(it.Item().Key(), p) {
				break
			}
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
}

func paginate[T any](items []*T, offset, limit int) []*T {
	if offset >= len(items) {
		return []*T{}
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
