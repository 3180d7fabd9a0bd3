package vectorstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/qdrant/go-client/qdrant"

	"github.com/triagekit/triagekit/internal/errors"
	"github.com/triagekit/triagekit/internal/models"
)

// Qdrant delegates similarity search to a qdrant collection configured with
// cosine distance. Qdrant's cosine scores are already on the [-1,1] scale the
// Store contract requires, so no transformation is applied.
type Qdrant struct {
	client     *qdrant.Client
	collection string
	dim        int
}

// QdrantConfig configures the qdrant backend.
type QdrantConfig struct {
	Host       string
	Port       int
	Collection string
	Dimension  int
	APIKey     string
	UseTLS     bool
}

// NewQdrant connects to qdrant and ensures the collection exists.
func NewQdrant(ctx context.Context, cfg QdrantConfig) (*Qdrant, error) {
	if cfg.Collection == "" {
		cfg.Collection = "runbook_chunks"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Dimension <= 0 {
		return nil, errors.Configf("qdrant_config", "embedding dimension must be set for the qdrant backend")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, errors.Storef("connect_qdrant", "qdrant", err)
	}

	s := &Qdrant{client: client, collection: cfg.Collection, dim: cfg.Dimension}
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Qdrant) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return errors.Storef("check_collection", "qdrant", err)
	}
	if exists {
		return nil
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return errors.Storef("create_collection", "qdrant", err)
	}
	return nil
}

// ProviderType returns the backend identifier.
func (s *Qdrant) ProviderType() string {
	return "qdrant"
}

// Store upserts one chunk.
func (s *Qdrant) Store(ctx context.Context, chunk models.RunbookChunk) error {
	return s.StoreBatch(ctx, []models.RunbookChunk{chunk})
}

// StoreBatch upserts chunks as qdrant points keyed by chunk id.
func (s *Qdrant) StoreBatch(ctx context.Context, chunks []models.RunbookChunk) error {
	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) != s.dim {
			return errors.Validationf("store_chunks",
				"chunk %s embedding dimension %d does not match collection dimension %d",
				c.ID, len(c.Embedding), s.dim)
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(uuidFromChunkID(c.ID)),
			Vectors: qdrant.NewVectors(c.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				"chunk_id":      c.ID,
				"runbook_path":  c.RunbookPath,
				"section_title": c.SectionTitle,
				"content":       c.Content,
				"tags":          toAnySlice(c.Tags),
				"shapes":        toAnySlice(c.ApplicableShapes),
			}),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
	})
	if err != nil {
		return errors.Storef("store_chunks", "qdrant", err)
	}
	return nil
}

// Search queries the collection. Embeddings are not round-tripped; the chunk
// is rebuilt from the payload for re-ranking, which only needs metadata.
func (s *Qdrant) Search(ctx context.Context, queryEmbedding []float32, k int) ([]models.ScoredChunk, error) {
	if len(queryEmbedding) != s.dim {
		return nil, errors.Validationf("search_chunks",
			"query dimension %d does not match collection dimension %d", len(queryEmbedding), s.dim)
	}
	if k <= 0 {
		return []models.ScoredChunk{}, nil
	}

	limit := uint64(k)
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, errors.Storef("search_chunks", "qdrant", err)
	}

	scored := make([]models.ScoredChunk, 0, len(points))
	for _, p := range points {
		scored = append(scored, models.ScoredChunk{
			Chunk:      chunkFromPayload(p.Payload),
			Similarity: p.Score,
		})
	}
	// Qdrant already orders by score; enforce the id tie-break locally.
	sortScored(scored)
	return scored, nil
}

// DeleteByPath removes all points whose runbook_path payload matches.
func (s *Qdrant) DeleteByPath(ctx context.Context, path string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("runbook_path", path),
			},
		}),
	})
	if err != nil {
		return errors.Storef("delete_chunks", "qdrant", err)
	}
	return nil
}

func chunkFromPayload(payload map[string]*qdrant.Value) models.RunbookChunk {
	return models.RunbookChunk{
		ID:               payload["chunk_id"].GetStringValue(),
		RunbookPath:      payload["runbook_path"].GetStringValue(),
		SectionTitle:     payload["section_title"].GetStringValue(),
		Content:          payload["content"].GetStringValue(),
		Tags:             stringList(payload["tags"]),
		ApplicableShapes: stringList(payload["shapes"]),
	}
}

func stringList(v *qdrant.Value) []string {
	if v == nil {
		return nil
	}
	list := v.GetListValue()
	if list == nil {
		return nil
	}
	out := make([]string, 0, len(list.Values))
	for _, item := range list.Values {
		out = append(out, item.GetStringValue())
	}
	return out
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func sortScored(scored []models.ScoredChunk) {
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return scored[i].Chunk.ID < scored[j].Chunk.ID
	})
}

// uuidFromChunkID maps the 16-hex-char deterministic chunk id onto a stable
// UUID string, since qdrant point ids must be UUIDs or unsigned integers.
func uuidFromChunkID(id string) string {
	padded := fmt.Sprintf("%032s", id)
	return fmt.Sprintf("%s-%s-%s-%s-%s", padded[0:8], padded[8:12], padded[12:16], padded[16:20], padded[20:32])
}
