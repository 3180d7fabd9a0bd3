// Package retrieval converts an enriched context into a ranked list of
// runbook chunks suitable for prompt assembly.
package retrieval

import (
	"context"
	"regexp"
	"sort"
	"strings"

	wildcard "github.com/IGLOU-EU/go-wildcard/v2"
	"github.com/rs/zerolog/log"

	"github.com/triagekit/triagekit/internal/embed"
	"github.com/triagekit/triagekit/internal/models"
	"github.com/triagekit/triagekit/internal/vectorstore"
)

const (
	tagBoost    = 0.1
	tagBoostCap = 0.3
	shapeBoost  = 0.2
)

// Retriever embeds the context query, searches the vector store with an
// over-fetch, applies metadata boosts, and returns the top K chunks.
type Retriever struct {
	embedder *embed.Service
	store    vectorstore.Store
}

// New creates a retriever.
func New(embedder *embed.Service, store vectorstore.Store) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Retrieve returns up to k chunks ordered by finalScore descending, ties
// broken by chunk id ascending. k <= 0 is treated as 1. Retrieval is atomic:
// embedding or store errors propagate.
func (r *Retriever) Retrieve(ctx context.Context, ec *models.EnrichedContext, k int) ([]models.RetrievedChunk, error) {
	if k <= 0 {
		k = 1
	}

	queryVec, err := r.embedder.EmbedContext(ctx, ec)
	if err != nil {
		return nil, err
	}

	// Over-fetch so re-ranking can promote boosted chunks from below the cut.
	scored, err := r.store.Search(ctx, queryVec, k*2)
	if err != nil {
		return nil, err
	}
	if len(scored) == 0 {
		return []models.RetrievedChunk{}, nil
	}

	candidateValues := boostValues(&ec.Alert)
	shape := ""
	if ec.Resource != nil {
		shape = ec.Resource.Shape
	}

	reranked := make([]models.RetrievedChunk, 0, len(scored))
	for _, sc := range scored {
		boost := metadataBoost(sc.Chunk, candidateValues, shape)
		reranked = append(reranked, models.RetrievedChunk{
			Chunk:         sc.Chunk,
			Similarity:    sc.Similarity,
			MetadataBoost: boost,
			FinalScore:    sc.Similarity + boost,
		})
	}

	sort.Slice(reranked, func(i, j int) bool {
		if reranked[i].FinalScore != reranked[j].FinalScore {
			return reranked[i].FinalScore > reranked[j].FinalScore
		}
		return reranked[i].Chunk.ID < reranked[j].Chunk.ID
	})

	if len(reranked) > k {
		reranked = reranked[:k]
	}

	log.Debug().
		Str("alertId", ec.Alert.ID).
		Int("candidates", len(scored)).
		Int("returned", len(reranked)).
		Msg("Retrieval complete")
	return reranked, nil
}

// boostValues collects the dimension and label values a chunk tag can match.
func boostValues(alert *models.Alert) map[string]struct{} {
	values := make(map[string]struct{}, len(alert.Dimensions)+len(alert.Labels))
	for _, v := range alert.Dimensions {
		values[strings.ToLower(v)] = struct{}{}
	}
	for _, v := range alert.Labels {
		values[strings.ToLower(v)] = struct{}{}
	}
	return values
}

// metadataBoost rewards tag and shape matches: +0.1 per matching tag capped
// at +0.3, +0.2 when any applicable-shape pattern matches. The shape filter is
// soft: a non-matching chunk just gets no boost, it is never dropped.
func metadataBoost(chunk models.RunbookChunk, values map[string]struct{}, shape string) float32 {
	var boost float32
	for _, tag := range chunk.Tags {
		if _, ok := values[strings.ToLower(tag)]; ok {
			boost += tagBoost
		}
	}
	if boost > tagBoostCap {
		boost = tagBoostCap
	}
	if shapeMatches(chunk.ApplicableShapes, shape) {
		boost += shapeBoost
	}
	return boost
}

// shapeMatches reports whether any pattern matches the shape, trying glob
// semantics first and falling back to regex. Matching is case-insensitive;
// an absent shape never matches.
func shapeMatches(patterns []string, shape string) bool {
	if shape == "" {
		return false
	}
	lowered := strings.ToLower(shape)
	for _, pattern := range patterns {
		p := strings.ToLower(pattern)
		if wildcard.Match(p, lowered) {
			return true
		}
		if re, err := regexp.Compile("^(?i:" + pattern + ")$"); err == nil && re.MatchString(shape) {
			return true
		}
	}
	return false
}
