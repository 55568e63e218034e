package mnemo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/mnemo/pkg/checkpoint"
	"github.com/soundprediction/mnemo/pkg/types"
)

const adaText = "Ada Lovelace worked with Charles Babbage on the Analytical Engine."

func TestLearn(t *testing.T) {
	ctx := context.Background()
	engine, model := newTestEngine(t, Config{})

	result, err := engine.Learn(ctx, adaText, LearnOptions{})
	require.NoError(t, err)

	t.Run("first ingestion creates everything", func(t *testing.T) {
		assert.Equal(t, 1, result.Created.Document)
		assert.Equal(t, 2, result.Created.Entities)
		assert.Equal(t, 1, result.Created.Relationships)
		assert.Equal(t, types.CreatedCounts{}, result.Reused)
		require.NotNil(t, result.Document)
		assert.Equal(t, DefaultScopeID, result.Document.ScopeID)
		assert.Equal(t, 1, model.extractionCalls)
	})

	t.Run("entities carry extracted properties", func(t *testing.T) {
		require.Len(t, result.Entities, 2)
		ada := result.Entities[0]
		assert.Equal(t, "Ada Lovelace", ada.Name)
		assert.Equal(t, "Person", ada.Label)
		assert.Equal(t, "mathematician", ada.Properties["occupation"])
		assert.NotEmpty(t, ada.Embedding)
	})

	t.Run("re-learning the same text creates nothing", func(t *testing.T) {
		again, err := engine.Learn(ctx, adaText, LearnOptions{})
		require.NoError(t, err)
		assert.Equal(t, types.CreatedCounts{}, again.Created)
		assert.Equal(t, 1, again.Reused.Document)
		assert.Equal(t, 2, again.Reused.Entities)
		assert.Equal(t, 1, again.Reused.Relationships)
		assert.Equal(t, result.Document.ID, again.Document.ID)
	})

	t.Run("empty text is rejected", func(t *testing.T) {
		_, err := engine.Learn(ctx, "  \n ", LearnOptions{})
		var verr *types.ValidationError
		assert.ErrorAs(t, err, &verr)
	})
}

func TestLearnMalformedExtraction(t *testing.T) {
	ctx := context.Background()
	engine, model := newTestEngine(t, Config{})
	model.extraction = `{"note": "nothing to extract here"}`

	_, err := engine.Learn(ctx, "Some text the model ignored.", LearnOptions{})
	var ferr *ExtractionFormatError
	require.ErrorAs(t, err, &ferr)
	assert.Contains(t, ferr.Raw, "nothing to extract")

	// A failed extraction must not leave a document behind.
	stats, err := engine.Stats(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, stats.Documents)
}

func TestLearnScopeIsolation(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t, Config{})

	first, err := engine.Learn(ctx, adaText, LearnOptions{ScopeID: "team-1"})
	require.NoError(t, err)
	second, err := engine.Learn(ctx, adaText, LearnOptions{ScopeID: "team-2"})
	require.NoError(t, err)

	// Same text in another scope is a fresh graph.
	assert.Equal(t, 1, second.Created.Document)
	assert.Equal(t, 2, second.Created.Entities)
	assert.NotEqual(t, first.Document.ID, second.Document.ID)
}

func TestLearnContextAccumulation(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t, Config{})

	first, err := engine.Learn(ctx, adaText, LearnOptions{ContextName: "history-class"})
	require.NoError(t, err)
	require.NotNil(t, first.Context)

	second, err := engine.Learn(ctx, adaText, LearnOptions{ContextName: "book-club"})
	require.NoError(t, err)
	require.NotNil(t, second.Context)
	assert.NotEqual(t, first.Context.ID, second.Context.ID)

	ada, err := engine.GetEntity(ctx, first.Entities[0].ID, DefaultScopeID)
	require.NoError(t, err)
	require.NotNil(t, ada)
	assert.ElementsMatch(t, []string{first.Context.ID, second.Context.ID}, ada.ContextIDs)

	t.Run("context name is reused within a scope", func(t *testing.T) {
		third, err := engine.Learn(ctx, adaText, LearnOptions{ContextName: "history-class"})
		require.NoError(t, err)
		assert.Equal(t, first.Context.ID, third.Context.ID)
	})
}

func TestLearnBatch(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t, Config{})

	t.Run("failed items do not abort the batch", func(t *testing.T) {
		batch, err := engine.LearnBatch(ctx, []string{"", adaText}, LearnOptions{})
		require.NoError(t, err)
		assert.Equal(t, 1, batch.Failed)
		assert.Equal(t, 1, batch.Succeeded)
		require.Len(t, batch.Items, 2)
		assert.NotEmpty(t, batch.Items[0].Error)
		assert.Nil(t, batch.Items[0].Result)
		assert.NotNil(t, batch.Items[1].Result)
		assert.Equal(t, 2, batch.Created.Entities)
	})

	t.Run("empty batch is rejected", func(t *testing.T) {
		_, err := engine.LearnBatch(ctx, nil, LearnOptions{})
		assert.Error(t, err)
	})

	t.Run("cancelled context aborts", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := engine.LearnBatch(cancelled, []string{adaText}, LearnOptions{})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLearnBatchResumable(t *testing.T) {
	ctx := context.Background()

	t.Run("completes and removes the journal", func(t *testing.T) {
		engine, _ := newTestEngine(t, Config{})
		journal, err := checkpoint.NewManager(t.TempDir())
		require.NoError(t, err)

		batch, err := engine.LearnBatchResumable(ctx, "batch-1", []string{adaText}, LearnOptions{}, journal)
		require.NoError(t, err)
		assert.Equal(t, 1, batch.Succeeded)

		cp, err := journal.Load(ctx, "batch-1")
		require.NoError(t, err)
		assert.Nil(t, cp)
	})

	t.Run("resumes after the checkpointed index", func(t *testing.T) {
		engine, model := newTestEngine(t, Config{})
		journal, err := checkpoint.NewManager(t.TempDir())
		require.NoError(t, err)

		texts := []string{"already done", adaText}
		require.NoError(t, journal.Save(ctx, &checkpoint.BatchCheckpoint{
			BatchID:   "batch-2",
			ScopeID:   DefaultScopeID,
			Texts:     texts,
			NextIndex: 1,
			Items:     []types.LearnBatchItem{{Index: 0, Result: &types.LearnResult{}}},
		}))

		batch, err := engine.LearnBatchResumable(ctx, "batch-2", texts, LearnOptions{}, journal)
		require.NoError(t, err)
		require.Len(t, batch.Items, 2)
		assert.Equal(t, 2, batch.Succeeded)
		// Only the unprocessed item hit the model.
		assert.Equal(t, 1, model.extractionCalls)
	})

	t.Run("rejects a mismatched batch", func(t *testing.T) {
		engine, _ := newTestEngine(t, Config{})
		journal, err := checkpoint.NewManager(t.TempDir())
		require.NoError(t, err)

		require.NoError(t, journal.Save(ctx, &checkpoint.BatchCheckpoint{
			BatchID: "batch-3",
			Texts:   []string{"one", "two"},
		}))
		_, err = engine.LearnBatchResumable(ctx, "batch-3", []string{"one"}, LearnOptions{}, journal)
		assert.Error(t, err)
	})

	t.Run("cancelled context aborts", func(t *testing.T) {
		engine, _ := newTestEngine(t, Config{})
		journal, err := checkpoint.NewManager(t.TempDir())
		require.NoError(t, err)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err = engine.LearnBatchResumable(cancelled, "batch-5", []string{adaText}, LearnOptions{}, journal)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("nil journal degrades to LearnBatch", func(t *testing.T) {
		engine, _ := newTestEngine(t, Config{})
		batch, err := engine.LearnBatchResumable(ctx, "batch-4", []string{adaText}, LearnOptions{}, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, batch.Succeeded)
	})
}
