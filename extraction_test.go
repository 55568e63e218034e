package mnemo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/mnemo/pkg/types"
)

func TestParseExtraction(t *testing.T) {
	t.Run("plain JSON", func(t *testing.T) {
		payload, err := parseExtraction(`{"entities": [{"name": "Ada", "label": "Person"}], "relationships": []}`)
		require.NoError(t, err)
		require.Len(t, payload.Entities, 1)
		assert.Equal(t, "Ada", payload.Entities[0].Name)
	})

	t.Run("fenced code block with language tag", func(t *testing.T) {
		raw := "Here is the extraction:\n```json\n{\"entities\": [{\"name\": \"Ada\", \"label\": \"Person\"}], \"relationships\": []}\n```\nDone."
		payload, err := parseExtraction(raw)
		require.NoError(t, err)
		require.Len(t, payload.Entities, 1)
	})

	t.Run("JSON embedded in prose", func(t *testing.T) {
		raw := `Sure! The result is {"entities": [{"name": "Ada", "label": "Person"}], "relationships": []} as requested.`
		payload, err := parseExtraction(raw)
		require.NoError(t, err)
		require.Len(t, payload.Entities, 1)
	})

	t.Run("empty object is rejected", func(t *testing.T) {
		_, err := parseExtraction(`{"note": "nothing to extract"}`)
		var ferr *ExtractionFormatError
		require.ErrorAs(t, err, &ferr)
		assert.NotEmpty(t, ferr.Raw)
	})

	t.Run("missing relationships array is rejected", func(t *testing.T) {
		_, err := parseExtraction(`{"entities": []}`)
		var ferr *ExtractionFormatError
		require.ErrorAs(t, err, &ferr)
	})

	t.Run("empty arrays are a valid payload", func(t *testing.T) {
		payload, err := parseExtraction(`{"entities": [], "relationships": []}`)
		require.NoError(t, err)
		assert.Empty(t, payload.Entities)
		assert.Empty(t, payload.Relationships)
	})

	t.Run("malformed JSON is repaired", func(t *testing.T) {
		raw := `{"entities": [{"name": "Ada", "label": "Person"},], "relationships": [],}`
		payload, err := parseExtraction(raw)
		require.NoError(t, err)
		require.Len(t, payload.Entities, 1)
	})

	t.Run("no JSON at all", func(t *testing.T) {
		_, err := parseExtraction("I could not find any entities in that text.")
		var ferr *ExtractionFormatError
		require.ErrorAs(t, err, &ferr)
		assert.NotEmpty(t, ferr.Raw)
	})
}

func TestValidateExtraction(t *testing.T) {
	engine, _ := newTestEngine(t, Config{})

	t.Run("nameless entity fails the extraction", func(t *testing.T) {
		_, err := engine.validateExtraction(&types.ExtractionPayload{
			Entities: []types.ExtractedEntity{
				{Name: "Ada", Label: "Person"},
				{Label: "Person"},
			},
		}, "raw model output")
		var ferr *ExtractionFormatError
		require.ErrorAs(t, err, &ferr)
		assert.Equal(t, "raw model output", ferr.Raw)
	})

	t.Run("drops badly labeled entities", func(t *testing.T) {
		out, err := engine.validateExtraction(&types.ExtractionPayload{
			Entities: []types.ExtractedEntity{
				{Name: "Ada", Label: "Person"},
				{Name: "X", Label: "lowercase"},
			},
		}, "")
		require.NoError(t, err)
		require.Len(t, out.Entities, 1)
		assert.Equal(t, "Ada", out.Entities[0].Name)
	})

	t.Run("title substitutes for a missing name", func(t *testing.T) {
		out, err := engine.validateExtraction(&types.ExtractionPayload{
			Entities: []types.ExtractedEntity{{Title: "Analytical Engine", Label: "Machine"}},
		}, "")
		require.NoError(t, err)
		require.Len(t, out.Entities, 1)
		assert.Equal(t, "Analytical Engine", out.Entities[0].Name)
	})

	t.Run("duplicate names collapse", func(t *testing.T) {
		out, err := engine.validateExtraction(&types.ExtractionPayload{
			Entities: []types.ExtractedEntity{
				{Name: "Ada", Label: "Person"},
				{Name: "Ada", Label: "Mathematician"},
			},
		}, "")
		require.NoError(t, err)
		assert.Len(t, out.Entities, 1)
	})

	t.Run("drops bad relationships", func(t *testing.T) {
		out, err := engine.validateExtraction(&types.ExtractionPayload{
			Entities: []types.ExtractedEntity{
				{Name: "Ada", Label: "Person"},
				{Name: "Babbage", Label: "Person"},
			},
			Relationships: []types.ExtractedRelationship{
				{From: "Ada", To: "Babbage", Type: "KNOWS"},
				{From: "Ada", To: "Ada", Type: "KNOWS"},
				{From: "Ada", To: "Nobody", Type: "KNOWS"},
				{From: "Ada", To: "Babbage", Type: "knows"},
				{From: "Ada", To: "Babbage", Type: "KNOWS"},
			},
		}, "")
		require.NoError(t, err)
		require.Len(t, out.Relationships, 1)
		assert.Equal(t, "KNOWS", out.Relationships[0].Type)
	})
}

func TestRelationshipConstraints(t *testing.T) {
	engine, _ := newTestEngine(t, Config{
		AllowedRelationships: []RelationshipConstraint{
			{FromLabel: "Person", Type: "WORKS_AT", ToLabel: "Company"},
		},
	})

	out, err := engine.validateExtraction(&types.ExtractionPayload{
		Entities: []types.ExtractedEntity{
			{Name: "Ada", Label: "Person"},
			{Name: "Acme", Label: "Company"},
		},
		Relationships: []types.ExtractedRelationship{
			{From: "Ada", To: "Acme", Type: "WORKS_AT"},
			{From: "Acme", To: "Ada", Type: "WORKS_AT"},
			{From: "Ada", To: "Acme", Type: "FOUNDED"},
		},
	}, "")
	require.NoError(t, err)
	require.Len(t, out.Relationships, 1)
	assert.Equal(t, "Ada", out.Relationships[0].From)
}

func TestExtractJSONBlock(t *testing.T) {
	for name, tt := range map[string]struct {
		raw  string
		want string
	}{
		"bare object":     {`{"a": 1}`, `{"a": 1}`},
		"surrounded":      {`noise {"a": 1} noise`, `{"a": 1}`},
		"fenced":          {"```\n{\"a\": 1}\n```", `{"a": 1}`},
		"no braces":       {"nothing here", ""},
		"unclosed object": {`{"a": 1`, ""},
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSONBlock(tt.raw))
		})
	}
}
