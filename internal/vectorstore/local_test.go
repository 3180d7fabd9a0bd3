package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triagekit/triagekit/internal/errors"
	"github.com/triagekit/triagekit/internal/models"
)

func chunk(id, path string, embedding []float32) models.RunbookChunk {
	return models.RunbookChunk{
		ID:          id,
		RunbookPath: path,
		Content:     "content of " + id,
		Embedding:   embedding,
	}
}

func TestLocalSearchEmptyStore(t *testing.T) {
	s := NewLocal()
	got, err := s.Search(context.Background(), []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestLocalSearchOrdering(t *testing.T) {
	s := NewLocal()
	ctx := context.Background()
	require.NoError(t, s.StoreBatch(ctx, []models.RunbookChunk{
		chunk("far", "r/far.md", []float32{0, 1}),
		chunk("near", "r/near.md", []float32{1, 0}),
		chunk("mid", "r/mid.md", []float32{1, 1}),
	}))

	got, err := s.Search(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "near", got[0].Chunk.ID)
	assert.Equal(t, "mid", got[1].Chunk.ID)
	assert.Equal(t, "far", got[2].Chunk.ID)
	assert.InDelta(t, 1.0, float64(got[0].Similarity), 1e-6)
}

func TestLocalSearchTieBreakByID(t *testing.T) {
	s := NewLocal()
	ctx := context.Background()
	require.NoError(t, s.StoreBatch(ctx, []models.RunbookChunk{
		chunk("b", "r/b.md", []float32{1, 0}),
		chunk("a", "r/a.md", []float32{1, 0}),
	}))

	got, err := s.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Chunk.ID)
	assert.Equal(t, "b", got[1].Chunk.ID)
}

func TestLocalSearchTruncatesToK(t *testing.T) {
	s := NewLocal()
	ctx := context.Background()
	require.NoError(t, s.StoreBatch(ctx, []models.RunbookChunk{
		chunk("a", "r/a.md", []float32{1, 0}),
		chunk("b", "r/b.md", []float32{0.9, 0.1}),
		chunk("c", "r/c.md", []float32{0.8, 0.2}),
	}))

	got, err := s.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = s.Search(ctx, []float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLocalDimensionMismatch(t *testing.T) {
	s := NewLocal()
	ctx := context.Background()
	require.NoError(t, s.Store(ctx, chunk("a", "r/a.md", []float32{1, 0, 0})))

	err := s.Store(ctx, chunk("b", "r/b.md", []float32{1, 0}))
	require.Error(t, err)
	assert.Equal(t, errors.KindValidation, errors.KindOf(err))

	_, err = s.Search(ctx, []float32{1, 0}, 1)
	require.Error(t, err)
	assert.Equal(t, errors.KindValidation, errors.KindOf(err))
}

func TestLocalStoreValidation(t *testing.T) {
	s := NewLocal()
	ctx := context.Background()

	err := s.Store(ctx, chunk("", "r/a.md", []float32{1}))
	assert.Error(t, err)

	err = s.Store(ctx, chunk("a", "r/a.md", nil))
	assert.Error(t, err)
}

func TestLocalUpsertReplacesChunk(t *testing.T) {
	s := NewLocal()
	ctx := context.Background()
	require.NoError(t, s.Store(ctx, chunk("a", "r/a.md", []float32{1, 0})))

	updated := chunk("a", "r/a.md", []float32{0, 1})
	updated.Content = "rewritten"
	require.NoError(t, s.Store(ctx, updated))

	assert.Equal(t, 1, s.Len())
	got, err := s.Search(ctx, []float32{0, 1}, 1)
	require.NoError(t, err)
	assert.Equal(t, "rewritten", got[0].Chunk.Content)
}

func TestLocalDeleteByPath(t *testing.T) {
	s := NewLocal()
	ctx := context.Background()
	require.NoError(t, s.StoreBatch(ctx, []models.RunbookChunk{
		chunk("a1", "r/a.md", []float32{1, 0}),
		chunk("a2", "r/a.md", []float32{0, 1}),
		chunk("b1", "r/b.md", []float32{1, 1}),
	}))

	require.NoError(t, s.DeleteByPath(ctx, "r/a.md"))
	assert.Equal(t, 1, s.Len())

	// Deleting a path with no chunks is a no-op.
	require.NoError(t, s.DeleteByPath(ctx, "r/missing.md"))
	assert.Equal(t, 1, s.Len())
}

func TestLocalStoreCopiesEmbedding(t *testing.T) {
	s := NewLocal()
	ctx := context.Background()
	emb := []float32{1, 0}
	require.NoError(t, s.Store(ctx, chunk("a", "r/a.md", emb)))

	emb[0] = -1
	got, err := s.Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, float64(got[0].Similarity), 1e-6)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, float64(Cosine([]float32{1, 0}, []float32{2, 0})), 1e-6)
	assert.InDelta(t, 0.0, float64(Cosine([]float32{1, 0}, []float32{0, 3})), 1e-6)
	assert.InDelta(t, -1.0, float64(Cosine([]float32{1, 0}, []float32{-1, 0})), 1e-6)
	assert.Equal(t, float32(0), Cosine([]float32{0, 0}, []float32{1, 0}))
}
