// Package pipeline glues the alert-to-checklist flow together:
// enrich, retrieve, generate.
package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/triagekit/triagekit/internal/enrich"
	"github.com/triagekit/triagekit/internal/generator"
	"github.com/triagekit/triagekit/internal/metrics"
	"github.com/triagekit/triagekit/internal/models"
	"github.com/triagekit/triagekit/internal/retrieval"
)

// Pipeline orchestrates one alert through the full flow. It does not
// dispatch; the HTTP layer fires the dispatcher after the response is
// written.
type Pipeline struct {
	enricher  *enrich.Enricher
	retriever *retrieval.Retriever
	generator *generator.Generator
	topK      int
}

// New creates a pipeline. topK is the default retrieval depth when the
// caller passes 0.
func New(enricher *enrich.Enricher, retriever *retrieval.Retriever, gen *generator.Generator, topK int) *Pipeline {
	if topK <= 0 {
		topK = 5
	}
	return &Pipeline{
		enricher:  enricher,
		retriever: retriever,
		generator: gen,
		topK:      topK,
	}
}

// ProcessAlert runs enrich, retrieve, generate. Cancellation on ctx
// propagates to every child call.
func (p *Pipeline) ProcessAlert(ctx context.Context, alert models.Alert, topK int) (*models.Checklist, error) {
	if topK <= 0 {
		topK = p.topK
	}

	start := time.Now()
	ec, err := p.enricher.Enrich(ctx, alert)
	if err != nil {
		return nil, err
	}
	metrics.ObserveStage("enrich", start)

	start = time.Now()
	chunks, err := p.retriever.Retrieve(ctx, ec, topK)
	if err != nil {
		return nil, err
	}
	metrics.ObserveStage("retrieve", start)
	metrics.RetrievedChunks.Observe(float64(len(chunks)))

	start = time.Now()
	checklist, err := p.generator.Generate(ctx, ec, chunks)
	if err != nil {
		return nil, err
	}
	metrics.ObserveStage("generate", start)

	log.Info().
		Str("alertId", alert.ID).
		Int("chunks", len(chunks)).
		Int("steps", len(checklist.Steps)).
		Str("provider", checklist.LLMProviderUsed).
		Msg("Checklist generated")
	return checklist, nil
}
