// Package embed produces dense embedding vectors for text. All vectors are
// L2-unit-normalized so dot product equals cosine similarity, and every
// embedding produced in one process lifetime shares the same dimension.
package embed

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/triagekit/triagekit/internal/errors"
	"github.com/triagekit/triagekit/internal/models"
)

// Embedder computes embedding vectors for text.
type Embedder interface {
	// Embed returns the normalized embedding of one text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds texts preserving input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// ProviderID returns the provider identifier.
	ProviderID() string
}

// Service wraps a provider with the process-wide dimension guard: the first
// successful embedding fixes the dimension, and any later mismatch is a
// provider error.
type Service struct {
	provider Embedder

	mu        sync.Mutex
	dimension int
}

// NewService wraps the provider.
func NewService(provider Embedder) *Service {
	return &Service{provider: provider}
}

// ProviderID returns the underlying provider identifier.
func (s *Service) ProviderID() string {
	return s.provider.ProviderID()
}

// Dimension returns the fixed embedding dimension, or 0 before the first
// embedding has been produced.
func (s *Service) Dimension() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dimension
}

// Embed embeds one text.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := s.provider.Embed(ctx, text)
	if err != nil {
		return nil, errors.Providerf("embed_text", s.provider.ProviderID(), err)
	}
	if err := s.checkDimension(len(vec)); err != nil {
		return nil, err
	}
	return vec, nil
}

// EmbedBatch embeds texts preserving input order: result[i] corresponds to
// texts[i].
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := s.provider.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, errors.Providerf("embed_batch", s.provider.ProviderID(), err)
	}
	if len(vecs) != len(texts) {
		return nil, errors.Providerf("embed_batch", s.provider.ProviderID(),
			fmt.Errorf("provider returned %d vectors for %d texts", len(vecs), len(texts)))
	}
	for _, v := range vecs {
		if err := s.checkDimension(len(v)); err != nil {
			return nil, err
		}
	}
	return vecs, nil
}

// EmbedContext builds the retrieval query string from the enriched context and
// embeds it.
func (s *Service) EmbedContext(ctx context.Context, ec *models.EnrichedContext) ([]float32, error) {
	return s.Embed(ctx, BuildQuery(ec))
}

func (s *Service) checkDimension(d int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		s.dimension = d
		return nil
	}
	if d != s.dimension {
		return errors.Providerf("embed_dimension", s.provider.ProviderID(),
			fmt.Errorf("embedding dimension %d does not match established dimension %d", d, s.dimension))
	}
	return nil
}

// BuildQuery derives the retrieval query deterministically from the context:
// title and message, plus the resource shape and distinct metric names when
// present.
func BuildQuery(ec *models.EnrichedContext) string {
	var b strings.Builder
	b.WriteString(ec.Alert.Title)
	b.WriteString(" ")
	b.WriteString(ec.Alert.Message)

	if ec.Resource != nil && ec.Resource.Shape != "" {
		b.WriteString(" ")
		b.WriteString(ec.Resource.Shape)
	}

	if len(ec.Metrics) > 0 {
		seen := map[string]struct{}{}
		names := make([]string, 0, len(ec.Metrics))
		for _, m := range ec.Metrics {
			if _, ok := seen[m.Name]; ok {
				continue
			}
			seen[m.Name] = struct{}{}
			names = append(names, m.Name)
		}
		sort.Strings(names)
		b.WriteString(" ")
		b.WriteString(strings.Join(names, " "))
	}

	return strings.TrimSpace(b.String())
}

// Normalize scales v to unit length in place and returns it. Zero vectors are
// returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}
