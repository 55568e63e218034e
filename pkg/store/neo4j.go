package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/soundprediction/mnemo/pkg/types"
	"github.com/soundprediction/mnemo/pkg/vector"
)

// Neo4jStore implements GraphStore against a networked Neo4j server.
// Open property maps are stored JSON-encoded in a single props field;
// engine-managed fields are first-class node properties. Timestamps are
// stored as RFC3339 UTC strings so lexicographic comparison is
// chronological.
type Neo4jStore struct {
	client     neo4j.DriverWithContext
	database   string
	dimensions int
}

// Neo4jConfig holds connection settings for a Neo4jStore.
type Neo4jConfig struct {
	URI        string
	Username   string
	Password   string
	Database   string
	Dimensions int
}

// NewNeo4jStore connects to a Neo4j server.
func NewNeo4jStore(cfg Neo4jConfig) (*Neo4jStore, error) {
	client, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	database := cfg.Database
	if database == "" {
		database = "neo4j"
	}

	return &Neo4jStore{
		client:     client,
		database:   database,
		dimensions: cfg.Dimensions,
	}, nil
}

// Provider returns ProviderNeo4j.
func (s *Neo4jStore) Provider() Provider {
	return ProviderNeo4j
}

// Ping verifies server connectivity.
func (s *Neo4jStore) Ping(ctx context.Context) error {
	return s.client.VerifyConnectivity(ctx)
}

// Close releases the underlying driver.
func (s *Neo4jStore) Close() error {
	return s.client.Close(context.Background())
}

// EnsureIndexes creates the id, name, scope, and vector indexes the store
// relies on. Vector indexes require a known embedding dimensionality.
func (s *Neo4jStore) EnsureIndexes(ctx context.Context) error {
	statements := []string{
		"CREATE INDEX entity_id IF NOT EXISTS FOR (n:Entity) ON (n.id)",
		"CREATE INDEX entity_scope_id IF NOT EXISTS FOR (n:Entity) ON (n.scope_id)",
		"CREATE INDEX entity_name IF NOT EXISTS FOR (n:Entity) ON (n.name)",
		"CREATE INDEX document_id IF NOT EXISTS FOR (n:Document) ON (n.id)",
		"CREATE INDEX document_scope_id IF NOT EXISTS FOR (n:Document) ON (n.scope_id)",
	}
	if s.dimensions > 0 {
		statements = append(statements,
			fmt.Sprintf("CREATE VECTOR INDEX entity_embedding IF NOT EXISTS FOR (n:Entity) ON (n.embedding) OPTIONS {indexConfig: {`vector.dimensions`: %d, `vector.similarity_function`: 'cosine'}}", s.dimensions),
			fmt.Sprintf("CREATE VECTOR INDEX document_embedding IF NOT EXISTS FOR (n:Document) ON (n.embedding) OPTIONS {indexConfig: {`vector.dimensions`: %d, `vector.similarity_function`: 'cosine'}}", s.dimensions),
		)
	}

	session := s.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
	defer session.Close(ctx)

	for _, stmt := range statements {
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// CreateEntities persists new entities, assigning ids and timestamps.
func (s *Neo4jStore) CreateEntities(ctx context.Context, entities []*types.Entity) ([]*types.Entity, error) {
	for _, e := range entities {
		if err := e.Validate(); err != nil {
			return nil, err
		}
	}

	session := s.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, e := range entities {
			if e.ID == "" {
				e.ID = uuid.New().String()
			}
			if e.RecordedAt.IsZero() {
				e.RecordedAt = time.Now().UTC()
			}

			// Label is validated above; the extra node label mirrors
			// the label property for native browsing.
			query := fmt.Sprintf(`
				CREATE (n:Entity:%s {id: $id, name: $name, label: $label, scope_id: $scope_id})
				SET n.context_ids = $context_ids,
				    n.props = $props,
				    n.embedding = $embedding,
				    n.recorded_at = $recorded_at,
				    n.valid_from = $valid_from,
				    n.valid_to = $valid_to
			`, e.Label)

			if _, err := tx.Run(ctx, query, entityParams(e)); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create entities: %w", err)
	}
	return entities, nil
}

// UpsertEntity writes an entity in full, keyed by id.
func (s *Neo4jStore) UpsertEntity(ctx context.Context, entity *types.Entity) error {
	if err := entity.Validate(); err != nil {
		return err
	}
	if entity.ID == "" {
		return types.ErrEmptyID
	}
	if entity.RecordedAt.IsZero() {
		entity.RecordedAt = time.Now().UTC()
	}

	session := s.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := fmt.Sprintf(`
			MERGE (n:Entity {id: $id, scope_id: $scope_id})
			SET n:%s,
			    n.name = $name,
			    n.label = $label,
			    n.context_ids = $context_ids,
			    n.props = $props,
			    n.embedding = $embedding,
			    n.recorded_at = $recorded_at,
			    n.valid_from = $valid_from,
			    n.valid_to = $valid_to
		`, entity.Label)
		_, err := tx.Run(ctx, query, entityParams(entity))
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to upsert entity: %w", err)
	}
	return nil
}

// GetEntity retrieves an entity by id, restricted to scopeID when set.
func (s *Neo4jStore) GetEntity(ctx context.Context, id, scopeID string) (*types.Entity, error) {
	qb := NewPredicateBuilder()
	qb.AddParam("n.id = $id", "id", id)
	qb.AddScopeFilter("n", scopeID)

	query := fmt.Sprintf("MATCH (n:Entity) %s RETURN n LIMIT 1", qb.Where())
	records, err := s.readRecords(ctx, query, qb.Params())
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return entityFromRecord(records[0], "n")
}

// FindEntityByName retrieves the entity with the given name in a scope.
func (s *Neo4jStore) FindEntityByName(ctx context.Context, name, scopeID string) (*types.Entity, error) {
	qb := NewPredicateBuilder()
	qb.AddParam("n.name = $name", "name", name)
	qb.AddScopeFilter("n", scopeID)

	query := fmt.Sprintf("MATCH (n:Entity) %s RETURN n LIMIT 1", qb.Where())
	records, err := s.readRecords(ctx, query, qb.Params())
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return entityFromRecord(records[0], "n")
}

// UpdateEntity merges patch into the entity's open property map.
func (s *Neo4jStore) UpdateEntity(ctx context.Context, id string, patch map[string]any, scopeID string) (*types.Entity, error) {
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

	if err := s.UpsertEntity(ctx, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

// DeleteEntity removes an entity and its dependent relationships.
func (s *Neo4jStore) DeleteEntity(ctx context.Context, id, scopeID string) (int, error) {
	qb := NewPredicateBuilder()
	qb.AddParam("n.id = $id", "id", id)
	qb.AddScopeFilter("n", scopeID)

	query := fmt.Sprintf(`
		MATCH (n:Entity) %s
		OPTIONAL MATCH (n)-[r]-()
		WITH n, count(r) AS removed
		DETACH DELETE n
		RETURN removed
	`, qb.Where())

	records, err := s.writeRecords(ctx, query, qb.Params())
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	removed, _ := records[0].Get("removed")
	if n, ok := removed.(int64); ok {
		return int(n), nil
	}
	return 0, nil
}

// ListEntities lists entities matching the options.
func (s *Neo4jStore) ListEntities(ctx context.Context, opts ListOptions) ([]*types.Entity, error) {
	qb := NewPredicateBuilder()
	qb.AddScopeFilter("n", opts.ScopeID)
	qb.AddLabelFilter("n", opts.Labels)

	query := fmt.Sprintf(`
		MATCH (n:Entity) %s
		RETURN n
		ORDER BY n.recorded_at
		SKIP $offset LIMIT $limit
	`, qb.Where())
	params := qb.Params()
	params["offset"] = int64(opts.Offset)
	params["limit"] = int64(listLimit(opts.Limit))

	records, err := s.readRecords(ctx, query, params)
	if err != nil {
		return nil, err
	}

	entities := make([]*types.Entity, 0, len(records))
	for _, record := range records {
		e, err := entityFromRecord(record, "n")
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}

// CreateDocument persists a new document.
func (s *Neo4jStore) CreateDocument(ctx context.Context, doc *types.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.RecordedAt.IsZero() {
		doc.RecordedAt = time.Now().UTC()
	}

	session := s.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			CREATE (d:Document {id: $id, scope_id: $scope_id, text: $text})
			SET d.context_id = $context_id,
			    d.metadata = $metadata,
			    d.embedding = $embedding,
			    d.recorded_at = $recorded_at
		`
		_, err := tx.Run(ctx, query, documentParams(doc))
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by id, restricted to scopeID when set.
func (s *Neo4jStore) GetDocument(ctx context.Context, id, scopeID string) (*types.Document, error) {
	qb := NewPredicateBuilder()
	qb.AddParam("d.id = $id", "id", id)
	if scopeID != "" {
		qb.AddParam("d.scope_id = $scope_id", "scope_id", scopeID)
	}

	query := fmt.Sprintf("MATCH (d:Document) %s RETURN d LIMIT 1", qb.Where())
	records, err := s.readRecords(ctx, query, qb.Params())
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return documentFromRecord(records[0], "d")
}

// FindDocumentByText retrieves the document with exactly this text.
func (s *Neo4jStore) FindDocumentByText(ctx context.Context, text, scopeID string) (*types.Document, error) {
	qb := NewPredicateBuilder()
	qb.AddParam("d.text = $text", "text", text)
	if scopeID != "" {
		qb.AddParam("d.scope_id = $scope_id", "scope_id", scopeID)
	}

	query := fmt.Sprintf("MATCH (d:Document) %s RETURN d LIMIT 1", qb.Where())
	records, err := s.readRecords(ctx, query, qb.Params())
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return documentFromRecord(records[0], "d")
}

// DeleteDocument removes a document and its dependent relationships.
func (s *Neo4jStore) DeleteDocument(ctx context.Context, id, scopeID string) (int, error) {
	qb := NewPredicateBuilder()
	qb.AddParam("d.id = $id", "id", id)
	if scopeID != "" {
		qb.AddParam("d.scope_id = $scope_id", "scope_id", scopeID)
	}

	query := fmt.Sprintf(`
		MATCH (d:Document) %s
		OPTIONAL MATCH (d)-[r]-()
		WITH d, count(r) AS removed
		DETACH DELETE d
		RETURN removed
	`, qb.Where())

	records, err := s.writeRecords(ctx, query, qb.Params())
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	removed, _ := records[0].Get("removed")
	if n, ok := removed.(int64); ok {
		return int(n), nil
	}
	return 0, nil
}

// ListDocuments lists documents matching the options.
func (s *Neo4jStore) ListDocuments(ctx context.Context, opts ListOptions) ([]*types.Document, error) {
	qb := NewPredicateBuilder()
	if opts.ScopeID != "" {
		qb.AddParam("d.scope_id = $scope_id", "scope_id", opts.ScopeID)
	}

	query := fmt.Sprintf(`
		MATCH (d:Document) %s
		RETURN d
		ORDER BY d.recorded_at
		SKIP $offset LIMIT $limit
	`, qb.Where())
	params := qb.Params()
	params["offset"] = int64(opts.Offset)
	params["limit"] = int64(listLimit(opts.Limit))

	records, err := s.readRecords(ctx, query, params)
	if err != nil {
		return nil, err
	}

	docs := make([]*types.Document, 0, len(records))
	for _, record := range records {
		d, err := documentFromRecord(record, "d")
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// LinkEntityToDocument records a MENTIONS relationship from document to
// entity, idempotent per pair.
func (s *Neo4jStore) LinkEntityToDocument(ctx context.Context, entityID, documentID, scopeID string) error {
	session := s.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := fmt.Sprintf(`
			MATCH (d:Document {id: $document_id}), (n:Entity {id: $entity_id})
			MERGE (d)-[r:%s {scope_id: $scope_id}]->(n)
			ON CREATE SET r.id = $rel_id, r.recorded_at = $recorded_at
		`, types.MentionsRelationshipType)
		_, err := tx.Run(ctx, query, map[string]any{
			"document_id": documentID,
			"entity_id":   entityID,
			"scope_id":    scopeID,
			"rel_id":      uuid.New().String(),
			"recorded_at": timeString(time.Now().UTC()),
		})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to link entity to document: %w", err)
	}
	return nil
}

// EntitiesForDocuments returns the distinct entities mentioned by any of
// the given documents.
func (s *Neo4jStore) EntitiesForDocuments(ctx context.Context, documentIDs []string, scopeID string) ([]*types.Entity, error) {
	if len(documentIDs) == 0 {
		return []*types.Entity{}, nil
	}

	qb := NewPredicateBuilder()
	qb.AddParam("d.id IN $document_ids", "document_ids", documentIDs)
	qb.AddScopeFilter("n", scopeID)

	query := fmt.Sprintf(`
		MATCH (d:Document)-[:%s]->(n:Entity) %s
		RETURN DISTINCT n
	`, types.MentionsRelationshipType, qb.Where())

	records, err := s.readRecords(ctx, query, qb.Params())
	if err != nil {
		return nil, err
	}

	entities := make([]*types.Entity, 0, len(records))
	for _, record := range records {
		e, err := entityFromRecord(record, "n")
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}

// CreateRelationship persists a new relationship between existing nodes.
func (s *Neo4jStore) CreateRelationship(ctx context.Context, rel *types.Relationship) error {
	if err := rel.Validate(); err != nil {
		return err
	}
	if rel.ID == "" {
		rel.ID = uuid.New().String()
	}
	if rel.RecordedAt.IsZero() {
		rel.RecordedAt = time.Now().UTC()
	}

	props, err := json.Marshal(types.ScrubProperties(rel.Properties))
	if err != nil {
		return fmt.Errorf("failed to encode relationship properties: %w", err)
	}

	session := s.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
	defer session.Close(ctx)

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		// Type is validated above; relationship types cannot be bound
		// as parameters in Cypher.
		query := fmt.Sprintf(`
			MATCH (a {id: $from_id}), (b {id: $to_id})
			CREATE (a)-[r:%s {id: $id, scope_id: $scope_id, props: $props, recorded_at: $recorded_at}]->(b)
		`, rel.Type)
		_, err := tx.Run(ctx, query, map[string]any{
			"from_id":     rel.FromID,
			"to_id":       rel.ToID,
			"id":          rel.ID,
			"scope_id":    rel.ScopeID,
			"props":       string(props),
			"recorded_at": timeString(rel.RecordedAt),
		})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to create relationship: %w", err)
	}
	return nil
}

// GetRelationship retrieves a relationship by id.
func (s *Neo4jStore) GetRelationship(ctx context.Context, id, scopeID string) (*types.Relationship, error) {
	qb := NewPredicateBuilder()
	qb.AddParam("r.id = $id", "id", id)
	if scopeID != "" {
		qb.AddParam("r.scope_id = $scope_id", "scope_id", scopeID)
	}

	query := fmt.Sprintf(`
		MATCH (a)-[r]->(b) %s
		RETURN r, a.id AS from_id, b.id AS to_id
		LIMIT 1
	`, qb.Where())
	records, err := s.readRecords(ctx, query, qb.Params())
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return relationshipFromRecord(records[0])
}

// FindRelationship retrieves the relationship with the given endpoints and
// type.
func (s *Neo4jStore) FindRelationship(ctx context.Context, fromID, toID, relType, scopeID string) (*types.Relationship, error) {
	if err := types.ValidateRelationshipType(relType); err != nil {
		return nil, err
	}

	qb := NewPredicateBuilder()
	if scopeID != "" {
		qb.AddParam("r.scope_id = $scope_id", "scope_id", scopeID)
	}

	query := fmt.Sprintf(`
		MATCH (a {id: $from_id})-[r:%s]->(b {id: $to_id}) %s
		RETURN r, a.id AS from_id, b.id AS to_id
		LIMIT 1
	`, relType, qb.Where())
	params := qb.Params()
	params["from_id"] = fromID
	params["to_id"] = toID

	records, err := s.readRecords(ctx, query, params)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return relationshipFromRecord(records[0])
}

// DeleteRelationship removes a relationship by id.
func (s *Neo4jStore) DeleteRelationship(ctx context.Context, id, scopeID string) error {
	qb := NewPredicateBuilder()
	qb.AddParam("r.id = $id", "id", id)
	if scopeID != "" {
		qb.AddParam("r.scope_id = $scope_id", "scope_id", scopeID)
	}

	query := fmt.Sprintf("MATCH ()-[r]->() %s DELETE r", qb.Where())
	_, err := s.writeRecords(ctx, query, qb.Params())
	return err
}

// ListRelationships lists relationships matching the options.
func (s *Neo4jStore) ListRelationships(ctx context.Context, opts ListOptions) ([]*types.Relationship, error) {
	qb := NewPredicateBuilder()
	if opts.ScopeID != "" {
		qb.AddParam("r.scope_id = $scope_id", "scope_id", opts.ScopeID)
	}
	if len(opts.Types) > 0 {
		qb.AddParam("type(r) IN $rel_types", "rel_types", opts.Types)
	}

	query := fmt.Sprintf(`
		MATCH (a)-[r]->(b) %s
		RETURN r, a.id AS from_id, b.id AS to_id
		ORDER BY r.recorded_at
		SKIP $offset LIMIT $limit
	`, qb.Where())
	params := qb.Params()
	params["offset"] = int64(opts.Offset)
	params["limit"] = int64(listLimit(opts.Limit))

	records, err := s.readRecords(ctx, query, params)
	if err != nil {
		return nil, err
	}

	rels := make([]*types.Relationship, 0, len(records))
	for _, record := range records {
		r, err := relationshipFromRecord(record)
		if err != nil {
			return nil, err
		}
		rels = append(rels, r)
	}
	return rels, nil
}

// SearchEntitiesByVector ranks entities by cosine similarity against vec.
// The native vector index is tried first; because it cannot push down
// scope, context, or temporal predicates, filtered searches oversample
// per CandidateLimit and post-filter. An empty or failed indexed fetch
// falls back to a brute-force scan.
func (s *Neo4jStore) SearchEntitiesByVector(ctx context.Context, vec []float32, opts VectorSearchOptions) ([]*types.Entity, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	candidates := CandidateLimit(limit, opts.Filtered())

	entities, err := s.entityIndexSearch(ctx, vec, candidates)
	if err != nil || len(entities) == 0 {
		entities, err = s.entityScanSearch(ctx, opts)
		if err != nil {
			return nil, err
		}
	}

	return rankEntities(entities, vec, opts, limit), nil
}

// entityIndexSearch fetches candidates from the native vector index.
func (s *Neo4jStore) entityIndexSearch(ctx context.Context, vec []float32, candidates int) ([]*types.Entity, error) {
	query := `
		CALL db.index.vector.queryNodes('entity_embedding', $k, $vec)
		YIELD node
		RETURN node AS n
	`
	records, err := s.readRecords(ctx, query, map[string]any{
		"k":   int64(candidates),
		"vec": float32sToAnys(vec),
	})
	if err != nil {
		return nil, err
	}

	entities := make([]*types.Entity, 0, len(records))
	for _, record := range records {
		e, err := entityFromRecord(record, "n")
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}

// entityScanSearch fetches all embedded entities matching the non-vector
// predicates; similarity is computed client-side.
func (s *Neo4jStore) entityScanSearch(ctx context.Context, opts VectorSearchOptions) ([]*types.Entity, error) {
	qb := NewPredicateBuilder()
	qb.Add("n.embedding IS NOT NULL")
	qb.AddScopeFilter("n", opts.ScopeID)
	if len(opts.ContextIDs) > 0 {
		qb.AddParam("ANY(c IN n.context_ids WHERE c IN $context_ids)", "context_ids", opts.ContextIDs)
	}
	qb.AddTemporalFilter("n", opts.ValidAt)

	query := fmt.Sprintf("MATCH (n:Entity) %s RETURN n", qb.Where())
	records, err := s.readRecords(ctx, query, qb.Params())
	if err != nil {
		return nil, err
	}

	entities := make([]*types.Entity, 0, len(records))
	for _, record := range records {
		e, err := entityFromRecord(record, "n")
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}

// SearchDocumentsByVector follows the same contract as entity search.
func (s *Neo4jStore) SearchDocumentsByVector(ctx context.Context, vec []float32, opts VectorSearchOptions) ([]*types.Document, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	candidates := CandidateLimit(limit, opts.Filtered())

	docs, err := s.documentIndexSearch(ctx, vec, candidates)
	if err != nil || len(docs) == 0 {
		docs, err = s.documentScanSearch(ctx, opts)
		if err != nil {
			return nil, err
		}
	}

	return rankDocuments(docs, vec, opts, limit), nil
}

func (s *Neo4jStore) documentIndexSearch(ctx context.Context, vec []float32, candidates int) ([]*types.Document, error) {
	query := `
		CALL db.index.vector.queryNodes('document_embedding', $k, $vec)
		YIELD node
		RETURN node AS d
	`
	records, err := s.readRecords(ctx, query, map[string]any{
		"k":   int64(candidates),
		"vec": float32sToAnys(vec),
	})
	if err != nil {
		return nil, err
	}

	docs := make([]*types.Document, 0, len(records))
	for _, record := range records {
		d, err := documentFromRecord(record, "d")
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, nil
}

func (s *Neo4jStore) documentScanSearch(ctx context.Context, opts VectorSearchOptions) ([]*types.Document, error) {
	qb := NewPredicateBuilder()
	qb.Add("d.embedding IS NOT NULL")
	if opts.ScopeID != "" {
		qb.AddParam("d.scope_id = $scope_id", "scope_id", opts.ScopeID)
	}
	if len(opts.ContextIDs) > 0 {
		qb.AddParam("d.context_id IN $context_ids", "context_ids", opts.ContextIDs)
	}

	query := fmt.Sprintf("MATCH (d:Document) %s RETURN d", qb.Where())
	records, err := s.readRecords(ctx, query, qb.Params())
	if err != nil {
		return nil, err
	}

	docs := make([]*types.Document, 0, len(records))
	for _, record := range records {
		d, err := documentFromRecord(record, "d")
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// Subgraph expands from seeds or labeled entities up to opts.MaxDepth
// hops, returning distinct entities and relationships.
func (s *Neo4jStore) Subgraph(ctx context.Context, opts SubgraphOptions) (*types.Subgraph, error) {
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

	qb := NewPredicateBuilder()
	qb.AddSeedFilter("seed", opts.SeedEntityIDs)
	qb.AddLabelFilter("seed", opts.EntityLabels)
	qb.AddScopeFilter("seed", opts.ScopeID)
	if len(opts.RelationshipTypes) > 0 {
		qb.AddParam("ALL(rel IN relationships(path) WHERE type(rel) IN $rel_types)", "rel_types", opts.RelationshipTypes)
	}

	result := types.EmptySubgraph()
	seen := make(map[string]struct{})

	// Seeds with no qualifying edges still belong to the subgraph, so
	// fetch them separately from the variable-length expansion.
	seedQB := NewPredicateBuilder()
	seedQB.AddSeedFilter("seed", opts.SeedEntityIDs)
	seedQB.AddLabelFilter("seed", opts.EntityLabels)
	seedQB.AddScopeFilter("seed", opts.ScopeID)
	seedQuery := fmt.Sprintf("MATCH (seed:Entity) %s RETURN seed", seedQB.Where())
	seedRecords, err := s.readRecords(ctx, seedQuery, seedQB.Params())
	if err != nil {
		return nil, err
	}
	for _, record := range seedRecords {
		e, err := entityFromRecord(record, "seed")
		if err != nil {
			return nil, err
		}
		if _, ok := seen[e.ID]; !ok {
			seen[e.ID] = struct{}{}
			result.Entities = append(result.Entities, e)
		}
	}

	nodeQuery := fmt.Sprintf(`
		MATCH path = (seed:Entity)-[*%d..%d]-(peer:Entity) %s
		WITH path LIMIT $path_limit
		UNWIND nodes(path) AS n
		RETURN DISTINCT n
	`, MinTraversalDepth, opts.MaxDepth, qb.Where())
	params := qb.Params()
	params["path_limit"] = int64(limit)

	records, err := s.readRecords(ctx, nodeQuery, params)
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		e, err := entityFromRecord(record, "n")
		if err != nil {
			return nil, err
		}
		if _, ok := seen[e.ID]; !ok {
			seen[e.ID] = struct{}{}
			result.Entities = append(result.Entities, e)
		}
	}

	relQuery := fmt.Sprintf(`
		MATCH path = (seed:Entity)-[*%d..%d]-(peer:Entity) %s
		WITH path LIMIT $path_limit
		UNWIND relationships(path) AS r
		WITH DISTINCT r
		MATCH (a)-[r]->(b)
		RETURN r, a.id AS from_id, b.id AS to_id
	`, MinTraversalDepth, opts.MaxDepth, qb.Where())

	relRecords, err := s.readRecords(ctx, relQuery, params)
	if err != nil {
		return nil, err
	}
	seenRels := make(map[string]struct{})
	for _, record := range relRecords {
		rel, err := relationshipFromRecord(record)
		if err != nil {
			return nil, err
		}
		if _, ok := seenRels[rel.ID]; !ok {
			seenRels[rel.ID] = struct{}{}
			result.Relationships = append(result.Relationships, rel)
		}
	}

	return result, nil
}

// UpsertContext persists an ingestion context.
func (s *Neo4jStore) UpsertContext(ctx context.Context, c *types.Context) error {
	if err := c.Validate(); err != nil {
		return err
	}

	session := s.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MERGE (c:Context {id: $id, scope_id: $scope_id})
			SET c.name = $name,
			    c.source = $source,
			    c.valid_from = $valid_from,
			    c.valid_to = $valid_to
		`
		_, err := tx.Run(ctx, query, map[string]any{
			"id":         c.ID,
			"scope_id":   c.ScopeID,
			"name":       c.Name,
			"source":     c.Source,
			"valid_from": timePtrString(c.ValidFrom),
			"valid_to":   timePtrString(c.ValidTo),
		})
		return nil, err
	})
	return err
}

// ListContexts lists ingestion contexts for a scope.
func (s *Neo4jStore) ListContexts(ctx context.Context, scopeID string) ([]*types.Context, error) {
	qb := NewPredicateBuilder()
	if scopeID != "" {
		qb.AddParam("c.scope_id = $scope_id", "scope_id", scopeID)
	}

	query := fmt.Sprintf("MATCH (c:Context) %s RETURN c", qb.Where())
	records, err := s.readRecords(ctx, query, qb.Params())
	if err != nil {
		return nil, err
	}

	contexts := make([]*types.Context, 0, len(records))
	for _, record := range records {
		value, found := record.Get("c")
		if !found {
			continue
		}
		node, ok := value.(dbtype.Node)
		if !ok {
			continue
		}
		contexts = append(contexts, &types.Context{
			ID:        stringProp(node.Props, "id"),
			ScopeID:   stringProp(node.Props, "scope_id"),
			Name:      stringProp(node.Props, "name"),
			Source:    stringProp(node.Props, "source"),
			ValidFrom: timePropPtr(node.Props, "valid_from"),
			ValidTo:   timePropPtr(node.Props, "valid_to"),
		})
	}
	return contexts, nil
}

// Stats summarizes a scope's graph.
func (s *Neo4jStore) Stats(ctx context.Context, scopeID string) (*types.GraphStats, error) {
	qb := NewPredicateBuilder()
	qb.AddScopeFilter("n", scopeID)
	entityQuery := fmt.Sprintf("MATCH (n:Entity) %s RETURN count(n) AS c", qb.Where())

	stats := &types.GraphStats{ScopeID: scopeID}
	count, err := s.countQuery(ctx, entityQuery, qb.Params())
	if err != nil {
		return nil, err
	}
	stats.Entities = count

	dqb := NewPredicateBuilder()
	if scopeID != "" {
		dqb.AddParam("d.scope_id = $scope_id", "scope_id", scopeID)
	}
	count, err = s.countQuery(ctx, fmt.Sprintf("MATCH (d:Document) %s RETURN count(d) AS c", dqb.Where()), dqb.Params())
	if err != nil {
		return nil, err
	}
	stats.Documents = count

	rqb := NewPredicateBuilder()
	if scopeID != "" {
		rqb.AddParam("r.scope_id = $scope_id", "scope_id", scopeID)
	}
	count, err = s.countQuery(ctx, fmt.Sprintf("MATCH ()-[r]->() %s RETURN count(r) AS c", rqb.Where()), rqb.Params())
	if err != nil {
		return nil, err
	}
	stats.Relationships = count

	return stats, nil
}

func (s *Neo4jStore) countQuery(ctx context.Context, query string, params map[string]any) (int64, error) {
	records, err := s.readRecords(ctx, query, params)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	value, _ := records[0].Get("c")
	if n, ok := value.(int64); ok {
		return n, nil
	}
	return 0, nil
}

// readRecords runs a read query in its own session and collects all rows.
func (s *Neo4jStore) readRecords(ctx context.Context, query string, params map[string]any) ([]*db.Record, error) {
	session := s.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*db.Record), nil
}

// writeRecords runs a write query in its own session and collects all rows.
func (s *Neo4jStore) writeRecords(ctx context.Context, query string, params map[string]any) ([]*db.Record, error) {
	session := s.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*db.Record), nil
}

// rankEntities applies post-filters, computes cosine similarity, and
// truncates to limit. Similarity is annotated on the returned entities.
func rankEntities(candidates []*types.Entity, vec []float32, opts VectorSearchOptions, limit int) []*types.Entity {
	scored := make([]vector.ScoredItem[*types.Entity], 0, len(candidates))
	for _, e := range candidates {
		if !entityMatchesFilters(e, opts) {
			continue
		}
		score := vector.CosineSimilarity(vec, e.Embedding)
		if score < opts.Threshold {
			continue
		}
		scored = append(scored, vector.ScoredItem[*types.Entity]{Item: e, Score: score})
	}

	top := vector.TopKByScore(scored, limit)
	out := make([]*types.Entity, 0, len(top))
	for _, item := range top {
		item.Item.Similarity = item.Score
		out = append(out, item.Item)
	}
	return out
}

func rankDocuments(candidates []*types.Document, vec []float32, opts VectorSearchOptions, limit int) []*types.Document {
	scored := make([]vector.ScoredItem[*types.Document], 0, len(candidates))
	for _, d := range candidates {
		if !documentMatchesFilters(d, opts) {
			continue
		}
		score := vector.CosineSimilarity(vec, d.Embedding)
		if score < opts.Threshold {
			continue
		}
		scored = append(scored, vector.ScoredItem[*types.Document]{Item: d, Score: score})
	}

	top := vector.TopKByScore(scored, limit)
	out := make([]*types.Document, 0, len(top))
	for _, item := range top {
		item.Item.Similarity = item.Score
		out = append(out, item.Item)
	}
	return out
}

func entityMatchesFilters(e *types.Entity, opts VectorSearchOptions) bool {
	if opts.ScopeID != "" && e.ScopeID != opts.ScopeID {
		return false
	}
	if len(opts.ContextIDs) > 0 {
		found := false
		for _, want := range opts.ContextIDs {
			for _, have := range e.ContextIDs {
				if want == have {
					found = true
					break
				}
			}
		}
		if !found {
			return false
		}
	}
	if opts.ValidAt != nil && !e.ValidAt(*opts.ValidAt) {
		return false
	}
	return true
}

func documentMatchesFilters(d *types.Document, opts VectorSearchOptions) bool {
	if opts.ScopeID != "" && d.ScopeID != opts.ScopeID {
		return false
	}
	if len(opts.ContextIDs) > 0 {
		found := false
		for _, want := range opts.ContextIDs {
			if d.ContextID == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func listLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}

func timeString(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func timePtrString(t *time.Time) any {
	if t == nil {
		return nil
	}
	return timeString(*t)
}

func entityParams(e *types.Entity) map[string]any {
	props, _ := json.Marshal(types.ScrubProperties(e.Properties))
	return map[string]any{
		"id":          e.ID,
		"name":        e.Name,
		"label":       e.Label,
		"scope_id":    e.ScopeID,
		"context_ids": e.ContextIDs,
		"props":       string(props),
		"embedding":   float32sToAnys(e.Embedding),
		"recorded_at": timeString(e.RecordedAt),
		"valid_from":  timePtrString(e.ValidFrom),
		"valid_to":    timePtrString(e.ValidTo),
	}
}

func documentParams(d *types.Document) map[string]any {
	metadata, _ := json.Marshal(d.Metadata)
	return map[string]any{
		"id":          d.ID,
		"scope_id":    d.ScopeID,
		"text":        d.Text,
		"context_id":  d.ContextID,
		"metadata":    string(metadata),
		"embedding":   float32sToAnys(d.Embedding),
		"recorded_at": timeString(d.RecordedAt),
	}
}

func float32sToAnys(vec []float32) any {
	if vec == nil {
		return nil
	}
	out := make([]any, len(vec))
	for i, v := range vec {
		out[i] = float64(v)
	}
	return out
}

func entityFromRecord(record *db.Record, key string) (*types.Entity, error) {
	value, found := record.Get(key)
	if !found {
		return nil, fmt.Errorf("record has no %q column", key)
	}
	node, ok := value.(dbtype.Node)
	if !ok {
		return nil, fmt.Errorf("unexpected type for node: got %T", value)
	}

	e := &types.Entity{
		ID:         stringProp(node.Props, "id"),
		Name:       stringProp(node.Props, "name"),
		Label:      stringProp(node.Props, "label"),
		ScopeID:    stringProp(node.Props, "scope_id"),
		ContextIDs: stringSliceProp(node.Props, "context_ids"),
		Embedding:  float32SliceProp(node.Props, "embedding"),
		RecordedAt: timeProp(node.Props, "recorded_at"),
		ValidFrom:  timePropPtr(node.Props, "valid_from"),
		ValidTo:    timePropPtr(node.Props, "valid_to"),
	}
	if raw := stringProp(node.Props, "props"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &e.Properties); err != nil {
			return nil, fmt.Errorf("failed to decode entity properties: %w", err)
		}
	}
	return e, nil
}

func documentFromRecord(record *db.Record, key string) (*types.Document, error) {
	value, found := record.Get(key)
	if !found {
		return nil, fmt.Errorf("record has no %q column", key)
	}
	node, ok := value.(dbtype.Node)
	if !ok {
		return nil, fmt.Errorf("unexpected type for node: got %T", value)
	}

	d := &types.Document{
		ID:         stringProp(node.Props, "id"),
		ScopeID:    stringProp(node.Props, "scope_id"),
		Text:       stringProp(node.Props, "text"),
		ContextID:  stringProp(node.Props, "context_id"),
		Embedding:  float32SliceProp(node.Props, "embedding"),
		RecordedAt: timeProp(node.Props, "recorded_at"),
	}
	if raw := stringProp(node.Props, "metadata"); raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &d.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode document metadata: %w", err)
		}
	}
	return d, nil
}

func relationshipFromRecord(record *db.Record) (*types.Relationship, error) {
	value, found := record.Get("r")
	if !found {
		return nil, fmt.Errorf("record has no relationship column")
	}
	rel, ok := value.(dbtype.Relationship)
	if !ok {
		return nil, fmt.Errorf("unexpected type for relationship: got %T", value)
	}

	fromValue, _ := record.Get("from_id")
	toValue, _ := record.Get("to_id")
	fromID, _ := fromValue.(string)
	toID, _ := toValue.(string)

	r := &types.Relationship{
		ID:         stringProp(rel.Props, "id"),
		Type:       rel.Type,
		FromID:     fromID,
		ToID:       toID,
		ScopeID:    stringProp(rel.Props, "scope_id"),
		RecordedAt: timeProp(rel.Props, "recorded_at"),
	}
	if raw := stringProp(rel.Props, "props"); raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &r.Properties); err != nil {
			return nil, fmt.Errorf("failed to decode relationship properties: %w", err)
		}
	}
	return r, nil
}

func stringProp(props map[string]any, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}

func stringSliceProp(props map[string]any, key string) []string {
	raw, ok := props[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func float32SliceProp(props map[string]any, key string) []float32 {
	raw, ok := props[key].([]any)
	if !ok || len(raw) == 0 {
		return nil
	}
	out := make([]float32, 0, len(raw))
	for _, v := range raw {
		switch f := v.(type) {
		case float64:
			out = append(out, float32(f))
		case float32:
			out = append(out, f)
		}
	}
	return out
}

func timeProp(props map[string]any, key string) time.Time {
	if s, ok := props[key].(string); ok && s != "" {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func timePropPtr(props map[string]any, key string) *time.Time {
	if s, ok := props[key].(string); ok && s != "" {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return &t
		}
	}
	return nil
}
