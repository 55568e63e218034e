package mnemo

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/soundprediction/mnemo/pkg/types"
)

func TestBuildContext(t *testing.T) {
	docs := []*types.Document{{Text: "Ada worked with Babbage."}}
	entities := []*types.Entity{
		{ID: "e1", Name: "Ada", Label: "Person", Properties: map[string]any{"born": "1815"}},
		{ID: "e2", Name: "Babbage", Label: "Person"},
	}
	rels := []*types.Relationship{
		{ID: "r1", FromID: "e1", ToID: "e2", Type: "COLLABORATED_WITH"},
	}

	out := buildContext(docs, entities, rels)

	t.Run("renders all three sections", func(t *testing.T) {
		assert.Contains(t, out, "## SOURCE DOCUMENTS")
		assert.Contains(t, out, "- Ada worked with Babbage.")
		assert.Contains(t, out, "## ENTITIES")
		assert.Contains(t, out, "- Ada (Person) [born: 1815]")
		assert.Contains(t, out, "## RELATIONSHIPS")
	})

	t.Run("relationship endpoints resolve to names", func(t *testing.T) {
		assert.Contains(t, out, "- Ada COLLABORATED_WITH Babbage")
		assert.NotContains(t, out, "e1 COLLABORATED_WITH")
	})

	t.Run("empty input yields an empty context", func(t *testing.T) {
		assert.Equal(t, "", buildContext(nil, nil, nil))
	})
}

func TestBuildContextBudget(t *testing.T) {
	t.Run("oversized document keeps its prefix", func(t *testing.T) {
		huge := strings.Repeat("x", contextCharBudget)
		out := buildContext([]*types.Document{{Text: huge}}, nil, nil)
		assert.Less(t, len(out), contextCharBudget)
		assert.Contains(t, out, "xxx...")
	})

	t.Run("documents leave room for graph records", func(t *testing.T) {
		huge := strings.Repeat("x", contextCharBudget)
		entities := []*types.Entity{{ID: "e1", Name: "Ada", Label: "Person"}}
		out := buildContext([]*types.Document{{Text: huge}}, entities, nil)
		assert.Contains(t, out, "- Ada (Person)")
	})
}

func TestBuildContextDisplayCap(t *testing.T) {
	entities := make([]*types.Entity, 150)
	for i := range entities {
		entities[i] = &types.Entity{ID: fmt.Sprintf("e%d", i), Name: fmt.Sprintf("entity-%d", i), Label: "Thing"}
	}

	out := buildContext(nil, entities, nil)
	assert.Contains(t, out, "(100 of 150 total)")
	assert.NotContains(t, out, "entity-100")
	assert.Contains(t, out, "entity-99")
}

func TestFormatEntity(t *testing.T) {
	t.Run("reserved keys never reach the model", func(t *testing.T) {
		entity := &types.Entity{
			Name:  "Ada",
			Label: "Person",
			Properties: map[string]any{
				"born":              "1815",
				types.PropEmbedding: []float32{1, 2},
				types.PropScopeID:   "secret",
			},
		}
		line := formatEntity(entity)
		assert.Equal(t, "- Ada (Person) [born: 1815]\n", line)
	})

	t.Run("properties render in sorted key order", func(t *testing.T) {
		entity := &types.Entity{
			Name:       "Ada",
			Label:      "Person",
			Properties: map[string]any{"b": "2", "a": "1", "c": "3"},
		}
		assert.Equal(t, "- Ada (Person) [a: 1, b: 2, c: 3]\n", formatEntity(entity))
	})

	t.Run("long values truncate with an ellipsis", func(t *testing.T) {
		entity := &types.Entity{
			Name:       "Ada",
			Label:      "Person",
			Properties: map[string]any{"bio": strings.Repeat("y", 500)},
		}
		line := formatEntity(entity)
		assert.Contains(t, line, "...")
		assert.LessOrEqual(t, len(line), maxPropertyValueLen+40)
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "lon...", truncate("long enough text", 6))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}
