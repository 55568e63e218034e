package checkpoint

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/mnemo/pkg/types"
)

func TestManager(t *testing.T) {
	ctx := context.Background()
	tmpDir := t.TempDir()

	t.Run("custom directory", func(t *testing.T) {
		m, err := NewManager(tmpDir)
		require.NoError(t, err)
		assert.Equal(t, tmpDir, m.Dir())
	})

	t.Run("default directory", func(t *testing.T) {
		m, err := NewManager("")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(os.TempDir(), "mnemo-checkpoints"), m.Dir())
	})

	t.Run("save and load round-trip", func(t *testing.T) {
		m, err := NewManager(tmpDir)
		require.NoError(t, err)

		cp := &BatchCheckpoint{
			BatchID:   "batch-123",
			ScopeID:   "team-1",
			CreatedAt: time.Now(),
			Texts:     []string{"one", "two", "three"},
			NextIndex: 2,
			Items: []types.LearnBatchItem{
				{Index: 0, Result: &types.LearnResult{}},
				{Index: 1, Error: "boom"},
			},
			Created: types.CreatedCounts{Entities: 4},
		}
		require.NoError(t, m.Save(ctx, cp))

		loaded, err := m.Load(ctx, "batch-123")
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, cp.BatchID, loaded.BatchID)
		assert.Equal(t, cp.ScopeID, loaded.ScopeID)
		assert.Equal(t, 2, loaded.NextIndex)
		assert.Len(t, loaded.Items, 2)
		assert.Equal(t, 4, loaded.Created.Entities)
		assert.False(t, loaded.Done())
		assert.False(t, loaded.LastUpdatedAt.IsZero())
	})

	t.Run("missing checkpoint returns nil", func(t *testing.T) {
		m, err := NewManager(tmpDir)
		require.NoError(t, err)

		loaded, err := m.Load(ctx, "no-such-batch")
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		m, err := NewManager(tmpDir)
		require.NoError(t, err)

		require.NoError(t, m.Save(ctx, &BatchCheckpoint{BatchID: "gone", Texts: []string{"x"}}))
		require.NoError(t, m.Delete(ctx, "gone"))
		require.NoError(t, m.Delete(ctx, "gone"))

		loaded, err := m.Load(ctx, "gone")
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("record error bumps the attempt count", func(t *testing.T) {
		m, err := NewManager(tmpDir)
		require.NoError(t, err)

		require.NoError(t, m.Save(ctx, &BatchCheckpoint{BatchID: "flaky", Texts: []string{"x"}}))
		require.NoError(t, m.RecordError(ctx, "flaky", errors.New("provider down")))
		require.NoError(t, m.RecordError(ctx, "flaky", errors.New("provider still down")))

		loaded, err := m.Load(ctx, "flaky")
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, 2, loaded.AttemptCount)
		assert.Equal(t, "provider still down", loaded.LastError)
	})

	t.Run("record error on an unknown batch fails", func(t *testing.T) {
		m, err := NewManager(tmpDir)
		require.NoError(t, err)
		assert.Error(t, m.RecordError(ctx, "unknown", errors.New("x")))
	})
}

func TestManagerList(t *testing.T) {
	ctx := context.Background()
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, m.Save(ctx, &BatchCheckpoint{BatchID: "a", Texts: []string{"1"}}))
	require.NoError(t, m.Save(ctx, &BatchCheckpoint{BatchID: "b", Texts: []string{"2"}}))

	checkpoints, err := m.List(ctx)
	require.NoError(t, err)
	assert.Len(t, checkpoints, 2)
}

func TestManagerCleanOld(t *testing.T) {
	ctx := context.Background()
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, m.Save(ctx, &BatchCheckpoint{BatchID: "fresh", Texts: []string{"1"}}))

	removed, err := m.CleanOld(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)

	removed, err = m.CleanOld(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestBatchIDValidation(t *testing.T) {
	ctx := context.Background()
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	for _, id := range []string{"", "../escape", "a/b", `a\b`, "nul\x00byte"} {
		t.Run("rejects "+id, func(t *testing.T) {
			_, err := m.Load(ctx, id)
			assert.ErrorIs(t, err, ErrInvalidBatchID)

			err = m.Save(ctx, &BatchCheckpoint{BatchID: id})
			assert.ErrorIs(t, err, ErrInvalidBatchID)
		})
	}
}
