// Package vectorstore persists runbook chunks with their embeddings and
// serves top-K cosine similarity search.
package vectorstore

import (
	"context"

	"github.com/triagekit/triagekit/internal/models"
)

// Store is the vector store contract. Implementations must be safe for
// concurrent readers and writers.
type Store interface {
	// Store inserts or upserts one chunk, keyed by chunk.ID.
	Store(ctx context.Context, chunk models.RunbookChunk) error

	// StoreBatch upserts chunks; idempotent on chunk.ID.
	StoreBatch(ctx context.Context, chunks []models.RunbookChunk) error

	// Search returns up to k chunks ordered by cosine similarity descending,
	// ties broken by chunk.ID ascending. Searching an empty store returns an
	// empty slice, never an error. Scores are on the [-1,1] cosine scale.
	Search(ctx context.Context, queryEmbedding []float32, k int) ([]models.ScoredChunk, error)

	// DeleteByPath removes all chunks whose RunbookPath equals path.
	DeleteByPath(ctx context.Context, path string) error

	// ProviderType returns the backend identifier.
	ProviderType() string
}
