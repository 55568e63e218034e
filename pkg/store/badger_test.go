package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/mnemo/pkg/types"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := NewBadgerStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustCreateEntity(t *testing.T, s *BadgerStore, name, label, scope string) *types.Entity {
	t.Helper()
	created, err := s.CreateEntities(context.Background(), []*types.Entity{
		{Name: name, Label: label, ScopeID: scope},
	})
	require.NoError(t, err)
	require.Len(t, created, 1)
	require.NotEmpty(t, created[0].ID)
	return created[0]
}

func TestBadgerEntityCRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ada := mustCreateEntity(t, s, "Ada Lovelace", "Person", "team-1")

	t.Run("get by id", func(t *testing.T) {
		got, err := s.GetEntity(ctx, ada.ID, "team-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Ada Lovelace", got.Name)
		assert.False(t, got.RecordedAt.IsZero())
	})

	t.Run("wrong scope is invisible", func(t *testing.T) {
		got, err := s.GetEntity(ctx, ada.ID, "team-2")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("find by name", func(t *testing.T) {
		got, err := s.FindEntityByName(ctx, "Ada Lovelace", "team-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, ada.ID, got.ID)

		missing, err := s.FindEntityByName(ctx, "Ada Lovelace", "team-2")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("update merges properties", func(t *testing.T) {
		updated, err := s.UpdateEntity(ctx, ada.ID, map[string]any{"born": "1815"}, "team-1")
		require.NoError(t, err)
		assert.Equal(t, "1815", updated.Properties["born"])
	})

	t.Run("update rejects reserved keys", func(t *testing.T) {
		_, err := s.UpdateEntity(ctx, ada.ID, map[string]any{types.PropScopeID: "hijack"}, "team-1")
		assert.Error(t, err)
	})

	t.Run("missing id returns nil without error", func(t *testing.T) {
		got, err := s.GetEntity(ctx, "no-such-id", "team-1")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestBadgerDocumentTextDedup(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	doc := &types.Document{ScopeID: "team-1", Text: "Ada wrote the first program."}
	require.NoError(t, s.CreateDocument(ctx, doc))
	require.NotEmpty(t, doc.ID)

	t.Run("exact text resolves to the stored document", func(t *testing.T) {
		got, err := s.FindDocumentByText(ctx, "Ada wrote the first program.", "team-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, doc.ID, got.ID)
	})

	t.Run("different text does not", func(t *testing.T) {
		got, err := s.FindDocumentByText(ctx, "Ada wrote the first program", "team-1")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("same text in another scope does not", func(t *testing.T) {
		got, err := s.FindDocumentByText(ctx, "Ada wrote the first program.", "team-2")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestBadgerLinkEntityToDocument(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ada := mustCreateEntity(t, s, "Ada", "Person", "team-1")
	doc := &types.Document{ScopeID: "team-1", Text: "about ada"}
	require.NoError(t, s.CreateDocument(ctx, doc))

	require.NoError(t, s.LinkEntityToDocument(ctx, ada.ID, doc.ID, "team-1"))
	// Linking twice must not create a second edge.
	require.NoError(t, s.LinkEntityToDocument(ctx, ada.ID, doc.ID, "team-1"))

	rels, err := s.ListRelationships(ctx, ListOptions{ScopeID: "team-1"})
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, types.MentionsRelationshipType, rels[0].Type)

	entities, err := s.EntitiesForDocuments(ctx, []string{doc.ID}, "team-1")
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, ada.ID, entities[0].ID)
}

func TestBadgerRelationshipDedup(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := mustCreateEntity(t, s, "A", "Thing", "team-1")
	b := mustCreateEntity(t, s, "B", "Thing", "team-1")

	rel := &types.Relationship{Type: "KNOWS", FromID: a.ID, ToID: b.ID, ScopeID: "team-1"}
	require.NoError(t, s.CreateRelationship(ctx, rel))

	found, err := s.FindRelationship(ctx, a.ID, b.ID, "KNOWS", "team-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, rel.ID, found.ID)

	// Reverse direction is a different edge.
	reverse, err := s.FindRelationship(ctx, b.ID, a.ID, "KNOWS", "team-1")
	require.NoError(t, err)
	assert.Nil(t, reverse)
}

func TestBadgerDeleteEntityCascades(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := mustCreateEntity(t, s, "A", "Thing", "team-1")
	b := mustCreateEntity(t, s, "B", "Thing", "team-1")
	c := mustCreateEntity(t, s, "C", "Thing", "team-1")

	require.NoError(t, s.CreateRelationship(ctx, &types.Relationship{Type: "KNOWS", FromID: a.ID, ToID: b.ID, ScopeID: "team-1"}))
	require.NoError(t, s.CreateRelationship(ctx, &types.Relationship{Type: "KNOWS", FromID: c.ID, ToID: a.ID, ScopeID: "team-1"}))

	removed, err := s.DeleteEntity(ctx, a.ID, "team-1")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	got, err := s.GetEntity(ctx, a.ID, "team-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	rels, err := s.ListRelationships(ctx, ListOptions{ScopeID: "team-1"})
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestBadgerVectorSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	entities := []*types.Entity{
		{Name: "north", Label: "Direction", ScopeID: "team-1", Embedding: []float32{0, 1}},
		{Name: "east", Label: "Direction", ScopeID: "team-1", Embedding: []float32{1, 0}},
		{Name: "northeast", Label: "Direction", ScopeID: "team-1", Embedding: []float32{1, 1}},
		{Name: "other-scope", Label: "Direction", ScopeID: "team-2", Embedding: []float32{0, 1}},
		{Name: "no-embedding", Label: "Direction", ScopeID: "team-1"},
	}
	_, err := s.CreateEntities(ctx, entities)
	require.NoError(t, err)

	t.Run("ranked by similarity within scope", func(t *testing.T) {
		got, err := s.SearchEntitiesByVector(ctx, []float32{0, 1}, VectorSearchOptions{
			Limit:   10,
			ScopeID: "team-1",
		})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "north", got[0].Name)
		assert.InDelta(t, 1.0, got[0].Similarity, 1e-9)
		assert.Equal(t, "northeast", got[1].Name)
		assert.Equal(t, "east", got[2].Name)
	})

	t.Run("threshold cuts weak matches", func(t *testing.T) {
		got, err := s.SearchEntitiesByVector(ctx, []float32{0, 1}, VectorSearchOptions{
			Limit:     10,
			ScopeID:   "team-1",
			Threshold: 0.5,
		})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "north", got[0].Name)
	})

	t.Run("limit truncates after ranking", func(t *testing.T) {
		got, err := s.SearchEntitiesByVector(ctx, []float32{0, 1}, VectorSearchOptions{
			Limit:   1,
			ScopeID: "team-1",
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "north", got[0].Name)
	})
}

func TestBadgerDocumentVectorSearchContextFilter(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	docs := []*types.Document{
		{ScopeID: "team-1", Text: "doc one", ContextID: "ctx-a", Embedding: []float32{0, 1}},
		{ScopeID: "team-1", Text: "doc two", ContextID: "ctx-b", Embedding: []float32{0, 1}},
	}
	for _, d := range docs {
		require.NoError(t, s.CreateDocument(ctx, d))
	}

	got, err := s.SearchDocumentsByVector(ctx, []float32{0, 1}, VectorSearchOptions{
		Limit:      10,
		ScopeID:    "team-1",
		ContextIDs: []string{"ctx-a"},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "doc one", got[0].Text)
}

func TestBadgerSubgraph(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	// Chain A -> B -> C -> D.
	ids := make([]string, 4)
	for i, name := range []string{"A", "B", "C", "D"} {
		ids[i] = mustCreateEntity(t, s, name, "Node", "team-1").ID
	}
	for i := 0; i < 3; i++ {
		require.NoError(t, s.CreateRelationship(ctx, &types.Relationship{
			Type: "NEXT", FromID: ids[i], ToID: ids[i+1], ScopeID: "team-1",
		}))
	}

	t.Run("depth 1 reaches direct neighbors only", func(t *testing.T) {
		sub, err := s.Subgraph(ctx, SubgraphOptions{
			SeedEntityIDs: []string{ids[0]},
			MaxDepth:      1,
			Limit:         100,
			ScopeID:       "team-1",
		})
		require.NoError(t, err)
		names := entityNames(sub.Entities)
		assert.ElementsMatch(t, []string{"A", "B"}, names)
		assert.Len(t, sub.Relationships, 1)
	})

	t.Run("depth 3 reaches the whole chain", func(t *testing.T) {
		sub, err := s.Subgraph(ctx, SubgraphOptions{
			SeedEntityIDs: []string{ids[0]},
			MaxDepth:      3,
			Limit:         100,
			ScopeID:       "team-1",
		})
		require.NoError(t, err)
		assert.Len(t, sub.Entities, 4)
		assert.Len(t, sub.Relationships, 3)
	})

	t.Run("traversal is undirected", func(t *testing.T) {
		sub, err := s.Subgraph(ctx, SubgraphOptions{
			SeedEntityIDs: []string{ids[3]},
			MaxDepth:      1,
			Limit:         100,
			ScopeID:       "team-1",
		})
		require.NoError(t, err)
		names := entityNames(sub.Entities)
		assert.ElementsMatch(t, []string{"C", "D"}, names)
	})

	t.Run("isolated seed survives alone", func(t *testing.T) {
		lone := mustCreateEntity(t, s, "Lone", "Node", "team-1")
		sub, err := s.Subgraph(ctx, SubgraphOptions{
			SeedEntityIDs: []string{lone.ID},
			MaxDepth:      2,
			Limit:         100,
			ScopeID:       "team-1",
		})
		require.NoError(t, err)
		require.Len(t, sub.Entities, 1)
		assert.Equal(t, "Lone", sub.Entities[0].Name)
		assert.Empty(t, sub.Relationships)
	})

	t.Run("no seeds and no labels short-circuits", func(t *testing.T) {
		sub, err := s.Subgraph(ctx, SubgraphOptions{
			MaxDepth: 2,
			Limit:    100,
			ScopeID:  "team-1",
		})
		require.NoError(t, err)
		assert.Empty(t, sub.Entities)
		assert.Empty(t, sub.Relationships)
	})

	t.Run("invalid depth fails", func(t *testing.T) {
		_, err := s.Subgraph(ctx, SubgraphOptions{
			SeedEntityIDs: []string{ids[0]},
			MaxDepth:      0,
			Limit:         100,
		})
		assert.Error(t, err)
	})
}

func TestBadgerListPagination(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		mustCreateEntity(t, s, fmt.Sprintf("e%d", i), "Thing", "team-1")
	}

	page, err := s.ListEntities(ctx, ListOptions{ScopeID: "team-1", Limit: 2, Offset: 0})
	require.NoError(t, err)
	assert.Len(t, page, 2)

	rest, err := s.ListEntities(ctx, ListOptions{ScopeID: "team-1", Limit: 10, Offset: 4})
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

func TestBadgerContextsAndStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.UpsertContext(ctx, &types.Context{ID: "ctx-1", Name: "meeting", ScopeID: "team-1"}))
	require.NoError(t, s.UpsertContext(ctx, &types.Context{ID: "ctx-1", Name: "meeting notes", ScopeID: "team-1"}))

	contexts, err := s.ListContexts(ctx, "team-1")
	require.NoError(t, err)
	require.Len(t, contexts, 1)
	assert.Equal(t, "meeting notes", contexts[0].Name)

	mustCreateEntity(t, s, "A", "Thing", "team-1")
	doc := &types.Document{ScopeID: "team-1", Text: "t"}
	require.NoError(t, s.CreateDocument(ctx, doc))

	stats, err := s.Stats(ctx, "team-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Entities)
	assert.EqualValues(t, 1, stats.Documents)
	assert.EqualValues(t, 0, stats.Relationships)
}

func entityNames(entities []*types.Entity) []string {
	names := make([]string, len(entities))
	for i, e := range entities {
		names[i] = e.Name
	}
	return names
}
