package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	t.Run("identical vectors", func(t *testing.T) {
		v := []float32{1, 2, 3}
		assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-9)
	})

	t.Run("orthogonal vectors", func(t *testing.T) {
		assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	})

	t.Run("opposite vectors", func(t *testing.T) {
		assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	})

	t.Run("mismatched lengths return zero", func(t *testing.T) {
		assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3}))
	})

	t.Run("empty vectors return zero", func(t *testing.T) {
		assert.Equal(t, 0.0, CosineSimilarity(nil, nil))
	})

	t.Run("zero norm returns zero", func(t *testing.T) {
		assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 2}))
	})
}

func TestTopKByScore(t *testing.T) {
	items := []ScoredItem[string]{
		{Item: "c", Score: 0.3},
		{Item: "a", Score: 0.9},
		{Item: "d", Score: 0.1},
		{Item: "b", Score: 0.7},
	}

	t.Run("returns k best descending", func(t *testing.T) {
		top := TopKByScore(items, 2)
		assert.Len(t, top, 2)
		assert.Equal(t, "a", top[0].Item)
		assert.Equal(t, "b", top[1].Item)
	})

	t.Run("k larger than input returns all sorted", func(t *testing.T) {
		top := TopKByScore(items, 10)
		assert.Len(t, top, 4)
		assert.Equal(t, []string{"a", "b", "c", "d"}, []string{top[0].Item, top[1].Item, top[2].Item, top[3].Item})
	})

	t.Run("k zero returns empty", func(t *testing.T) {
		assert.Empty(t, TopKByScore(items, 0))
	})
}
