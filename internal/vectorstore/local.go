package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/triagekit/triagekit/internal/errors"
	"github.com/triagekit/triagekit/internal/models"
)

// Local is an in-memory store that computes cosine against every stored
// chunk. Adequate for corpora up to ~10^4 chunks. Chunks are copied on write
// so readers always observe a consistent snapshot.
type Local struct {
	mu     sync.RWMutex
	chunks map[string]models.RunbookChunk
	dim    int // fixed by the first stored chunk
}

// NewLocal creates an empty in-memory store.
func NewLocal() *Local {
	return &Local{chunks: make(map[string]models.RunbookChunk)}
}

// ProviderType returns the backend identifier.
func (s *Local) ProviderType() string {
	return "local"
}

// Store upserts one chunk.
func (s *Local) Store(_ context.Context, chunk models.RunbookChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeLocked(chunk)
}

// StoreBatch upserts chunks under a single lock acquisition.
func (s *Local) StoreBatch(_ context.Context, chunks []models.RunbookChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		if err := s.storeLocked(c); err != nil {
			return err
		}
	}
	return nil
}

func (s *Local) storeLocked(chunk models.RunbookChunk) error {
	if chunk.ID == "" {
		return errors.Validationf("store_chunk", "chunk id is empty")
	}
	if len(chunk.Embedding) == 0 {
		return errors.Validationf("store_chunk", "chunk %s has no embedding", chunk.ID)
	}
	if s.dim == 0 {
		s.dim = len(chunk.Embedding)
	} else if len(chunk.Embedding) != s.dim {
		return errors.Validationf("store_chunk",
			"chunk %s embedding dimension %d does not match store dimension %d",
			chunk.ID, len(chunk.Embedding), s.dim)
	}

	// Copy the embedding so a caller mutating its slice cannot tear a stored
	// vector out from under a concurrent search.
	emb := make([]float32, len(chunk.Embedding))
	copy(emb, chunk.Embedding)
	chunk.Embedding = emb
	s.chunks[chunk.ID] = chunk
	return nil
}

// Search computes cosine against every chunk and returns the top k.
func (s *Local) Search(_ context.Context, queryEmbedding []float32, k int) ([]models.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.chunks) == 0 {
		return []models.ScoredChunk{}, nil
	}
	if len(queryEmbedding) != s.dim {
		return nil, errors.Validationf("search_chunks",
			"query dimension %d does not match store dimension %d", len(queryEmbedding), s.dim)
	}
	if k <= 0 {
		return []models.ScoredChunk{}, nil
	}

	scored := make([]models.ScoredChunk, 0, len(s.chunks))
	for _, c := range s.chunks {
		scored = append(scored, models.ScoredChunk{
			Chunk:      c,
			Similarity: Cosine(queryEmbedding, c.Embedding),
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return scored[i].Chunk.ID < scored[j].Chunk.ID
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// DeleteByPath removes every chunk stored under path.
func (s *Local) DeleteByPath(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.chunks {
		if c.RunbookPath == path {
			delete(s.chunks, id)
		}
	}
	return nil
}

// Len returns the number of stored chunks.
func (s *Local) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Cosine computes cosine similarity between two vectors of equal length.
// Unit-normalized inputs make this a plain dot product, but unnormalized
// vectors are handled too.
func Cosine(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
