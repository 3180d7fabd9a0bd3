// Package ingest turns runbook documents into embedded chunks in the vector
// store: fetch, parse front matter, chunk, embed, delete-then-insert.
package ingest

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/triagekit/triagekit/internal/embed"
	"github.com/triagekit/triagekit/internal/vectorstore"
)

const defaultWorkers = 4

// Report summarizes one IngestAll run.
type Report struct {
	Paths  int               `json:"paths"`
	Chunks int               `json:"chunks"`
	Failed map[string]string `json:"failed,omitempty"`
}

// Pipeline drives the ingestion flow for one source into one store.
type Pipeline struct {
	source   Source
	chunker  *Chunker
	embedder *embed.Service
	store    vectorstore.Store
	workers  int
}

// New creates an ingestion pipeline.
func New(source Source, embedder *embed.Service, store vectorstore.Store) *Pipeline {
	return &Pipeline{
		source:   source,
		chunker:  NewChunker(),
		embedder: embedder,
		store:    store,
		workers:  defaultWorkers,
	}
}

// Ingest processes one document: fetch, chunk, embed, then replace the
// path's prior chunks in the store (delete-then-insert). Idempotent, and safe
// to run concurrently for different paths.
func (p *Pipeline) Ingest(ctx context.Context, path string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	raw, err := p.source.Fetch(ctx, path)
	if err != nil {
		return 0, err
	}

	chunks, err := p.chunker.Chunk(path, string(raw))
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		log.Warn().Str("path", path).Msg("Runbook produced no chunks, removing stale entries")
		return 0, p.store.DeleteByPath(ctx, path)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.SectionTitle + "\n" + c.Content
	}
	vecs, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, err
	}
	for i := range chunks {
		chunks[i].Embedding = vecs[i]
	}

	if err := p.store.DeleteByPath(ctx, path); err != nil {
		return 0, err
	}
	if err := p.store.StoreBatch(ctx, chunks); err != nil {
		return 0, err
	}

	log.Info().Str("path", path).Int("chunks", len(chunks)).Msg("Runbook ingested")
	return len(chunks), nil
}

// IngestAll lists the container and ingests every document with bounded
// concurrency. Per-path failures are logged and recorded in the report; they
// never abort the batch. Only context cancellation aborts early.
func (p *Pipeline) IngestAll(ctx context.Context) (*Report, error) {
	paths, err := p.source.List(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{Paths: len(paths), Failed: map[string]string{}}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for _, path := range paths {
		g.Go(func() error {
			n, err := p.Ingest(ctx, path)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Error().Err(err).Str("path", path).Msg("Runbook ingestion failed")
				report.Failed[path] = err.Error()
				return nil
			}
			report.Chunks += n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	log.Info().
		Int("paths", report.Paths).
		Int("chunks", report.Chunks).
		Int("failed", len(report.Failed)).
		Msg("Runbook corpus ingestion complete")
	return report, nil
}
