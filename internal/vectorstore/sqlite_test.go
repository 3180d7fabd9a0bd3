package vectorstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triagekit/triagekit/internal/models"
)

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.db")
	ctx := context.Background()

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.StoreBatch(ctx, []models.RunbookChunk{
		{
			ID:               "a",
			RunbookPath:      "r/a.md",
			SectionTitle:     "Section A",
			Content:          "content a",
			Tags:             []string{"memory"},
			ApplicableShapes: []string{"VM.*"},
			Embedding:        []float32{1, 0},
		},
		{ID: "b", RunbookPath: "r/b.md", Content: "content b", Embedding: []float32{0, 1}},
	}))
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Chunk.ID)
	assert.Equal(t, "Section A", got[0].Chunk.SectionTitle)
	assert.Equal(t, []string{"memory"}, got[0].Chunk.Tags)
	assert.Equal(t, []string{"VM.*"}, got[0].Chunk.ApplicableShapes)
}

func TestSQLiteUpsert(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.db")
	ctx := context.Background()

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Store(ctx, models.RunbookChunk{ID: "a", RunbookPath: "r/a.md", Content: "v1", Embedding: []float32{1, 0}}))
	require.NoError(t, s.Store(ctx, models.RunbookChunk{ID: "a", RunbookPath: "r/a.md", Content: "v2", Embedding: []float32{1, 0}}))

	got, err := s.Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "v2", got[0].Chunk.Content)
}

func TestSQLiteDeleteByPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.db")
	ctx := context.Background()

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.StoreBatch(ctx, []models.RunbookChunk{
		{ID: "a", RunbookPath: "r/a.md", Content: "a", Embedding: []float32{1, 0}},
		{ID: "b", RunbookPath: "r/b.md", Content: "b", Embedding: []float32{0, 1}},
	}))
	require.NoError(t, s.DeleteByPath(ctx, "r/a.md"))
	require.NoError(t, s.Close())

	// The delete is durable.
	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Search(ctx, []float32{0, 1}, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Chunk.ID)
}

func TestSQLiteProviderType(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "vectors.db"))
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "sqlite", s.ProviderType())
}
