package embed

import (
	"context"
	"hash/fnv"
	"strings"
)

// Deterministic is a hash-based embedder for local mode and tests. Identical
// text always yields identical vectors, and texts sharing tokens land close in
// the vector space, so similarity search stays meaningful without a model.
type Deterministic struct {
	dim int
}

// NewDeterministic creates a deterministic embedder with the given dimension.
func NewDeterministic(dim int) *Deterministic {
	if dim <= 0 {
		dim = 64
	}
	return &Deterministic{dim: dim}
}

// ProviderID returns the provider identifier.
func (d *Deterministic) ProviderID() string {
	return "deterministic"
}

// Embed hashes each lowercase token into a bucket and normalizes the result.
func (d *Deterministic) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, d.dim)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[h.Sum32()%uint32(d.dim)]++
	}
	return Normalize(vec), nil
}

// EmbedBatch embeds texts preserving input order.
func (d *Deterministic) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, err := d.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		vecs = append(vecs, v)
	}
	return vecs, nil
}
