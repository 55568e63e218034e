package types

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityValidate(t *testing.T) {
	valid := Entity{Name: "Ada Lovelace", Label: "Person", ScopeID: "team-1"}

	t.Run("valid entity", func(t *testing.T) {
		assert.NoError(t, valid.Validate())
	})

	t.Run("empty name", func(t *testing.T) {
		e := valid
		e.Name = ""
		err := e.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrEmptyName))
	})

	t.Run("empty scope", func(t *testing.T) {
		e := valid
		e.ScopeID = ""
		assert.Error(t, e.Validate())
	})

	t.Run("invalid label", func(t *testing.T) {
		for _, label := range []string{"", "person", "Bad Label", "1Person", "Person;DROP"} {
			e := valid
			e.Label = label
			assert.Error(t, e.Validate(), "label %q should be rejected", label)
		}
	})
}

func TestValidateRelationshipType(t *testing.T) {
	for _, tt := range []struct {
		relType string
		ok      bool
	}{
		{"WORKS_AT", true},
		{"MENTIONS", true},
		{"A1_B2", true},
		{"works_at", false},
		{"WORKS AT", false},
		{"_WORKS", false},
		{"", false},
	} {
		err := ValidateRelationshipType(tt.relType)
		if tt.ok {
			assert.NoError(t, err, tt.relType)
		} else {
			assert.Error(t, err, tt.relType)
		}
	}
}

func TestMergeContextIDs(t *testing.T) {
	e := Entity{Name: "n", Label: "Thing", ScopeID: "s", ContextIDs: []string{"a"}}

	t.Run("new id is appended", func(t *testing.T) {
		changed := e.MergeContextIDs([]string{"b"})
		assert.True(t, changed)
		assert.Equal(t, []string{"a", "b"}, e.ContextIDs)
	})

	t.Run("existing id is not duplicated", func(t *testing.T) {
		changed := e.MergeContextIDs([]string{"a", "b"})
		assert.False(t, changed)
		assert.Equal(t, []string{"a", "b"}, e.ContextIDs)
	})
}

func TestValidAt(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	t.Run("open window always valid", func(t *testing.T) {
		e := Entity{}
		assert.True(t, e.ValidAt(time.Now()))
	})

	t.Run("inside window", func(t *testing.T) {
		e := Entity{ValidFrom: &from, ValidTo: &to}
		assert.True(t, e.ValidAt(from.AddDate(0, 6, 0)))
	})

	t.Run("before window", func(t *testing.T) {
		e := Entity{ValidFrom: &from}
		assert.False(t, e.ValidAt(from.AddDate(-1, 0, 0)))
	})

	t.Run("after window", func(t *testing.T) {
		e := Entity{ValidTo: &to}
		assert.False(t, e.ValidAt(to.AddDate(1, 0, 0)))
	})
}

func TestScrubProperties(t *testing.T) {
	props := map[string]any{
		"occupation":   "mathematician",
		PropScopeID:    "evil",
		PropEmbedding:  []float32{1},
		PropSimilarity: 0.5,
		PropContextIDs: []string{"x"},
		PropRecordedAt: "now",
		PropValidFrom:  "then",
		PropValidTo:    "later",
	}

	scrubbed := ScrubProperties(props)
	assert.Equal(t, map[string]any{"occupation": "mathematician"}, scrubbed)

	// Original map is untouched.
	assert.Contains(t, props, PropScopeID)
}
