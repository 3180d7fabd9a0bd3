package main

import (
	"context"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/triagekit/triagekit/internal/api"
	"github.com/triagekit/triagekit/internal/config"
	"github.com/triagekit/triagekit/internal/dispatch"
	"github.com/triagekit/triagekit/internal/embed"
	"github.com/triagekit/triagekit/internal/enrich"
	"github.com/triagekit/triagekit/internal/errors"
	"github.com/triagekit/triagekit/internal/generator"
	"github.com/triagekit/triagekit/internal/ingest"
	"github.com/triagekit/triagekit/internal/llm"
	"github.com/triagekit/triagekit/internal/parser"
	"github.com/triagekit/triagekit/internal/pipeline"
	"github.com/triagekit/triagekit/internal/retrieval"
	"github.com/triagekit/triagekit/internal/vectorstore"
)

// App bundles the wired components and their teardown.
type App struct {
	Router   *api.Router
	Ingester *ingest.Pipeline

	closers []func() error
}

// Close releases held resources in reverse acquisition order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Error().Err(err).Msg("Component close failed")
		}
	}
}

// buildApp constructs every component from configuration.
func buildApp(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{}

	store, err := buildStore(ctx, cfg, app)
	if err != nil {
		return nil, err
	}

	embedder, llmProvider, err := buildProviders(ctx, cfg)
	if err != nil {
		return nil, err
	}
	embedService := embed.NewService(embedder)

	enricher, err := buildEnricher(ctx, cfg)
	if err != nil {
		return nil, err
	}

	registry := parser.NewRegistry(parser.NewCloudWatchAdapter(), parser.NewOCIAdapter())
	retriever := retrieval.New(embedService, store)
	gen := generator.New(llmProvider)
	pl := pipeline.New(enricher, retriever, gen, cfg.Retrieval.TopK)

	dispatcher, err := buildDispatcher(cfg)
	if err != nil {
		return nil, err
	}

	ingester, err := buildIngester(ctx, cfg, embedService, store)
	if err != nil {
		return nil, err
	}
	app.Ingester = ingester

	background := pipeline.NewBackground(context.Background())
	app.Router = api.New(registry, pl, dispatcher, ingester, background, cfg.Retrieval.TopK)

	log.Info().
		Str("cloud", cfg.Cloud.Provider).
		Str("vectorStore", store.ProviderType()).
		Str("llm", llmProvider.ProviderID()).
		Msg("Pipeline components wired")
	return app, nil
}

func buildStore(ctx context.Context, cfg *config.Config, app *App) (vectorstore.Store, error) {
	switch cfg.VectorStore.Provider {
	case "qdrant":
		return vectorstore.NewQdrant(ctx, vectorstore.QdrantConfig{
			Host:       cfg.VectorStore.Qdrant.Host,
			Port:       cfg.VectorStore.Qdrant.Port,
			Collection: cfg.VectorStore.Qdrant.Collection,
			Dimension:  cfg.VectorStore.Qdrant.Dimension,
			APIKey:     cfg.VectorStore.Qdrant.APIKey,
			UseTLS:     cfg.VectorStore.Qdrant.UseTLS,
		})
	default:
		// local, aws, oci all run the sqlite-backed local store; the
		// cloud-managed variants differ only in the runbook source.
		if path := cfg.VectorStore.SQLite.Path; path != "" {
			s, err := vectorstore.OpenSQLite(path)
			if err != nil {
				return nil, err
			}
			app.closers = append(app.closers, s.Close)
			return s, nil
		}
		return vectorstore.NewLocal(), nil
	}
}

func buildProviders(ctx context.Context, cfg *config.Config) (embed.Embedder, llm.Provider, error) {
	active := cfg.ActiveLLM()
	switch cfg.LLM.Provider {
	case "openai":
		return embed.NewOpenAIEmbedder(active.APIKey, active.EmbeddingModel, active.BaseURL),
			llm.NewOpenAIClient(active.APIKey, active.TextModel, active.BaseURL), nil
	case "aws-bedrock":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(active.Region))
		if err != nil {
			return nil, nil, errors.Configf("aws_config", "failed to load AWS config: %v", err)
		}
		return embed.NewBedrockEmbedder(awsCfg, active.EmbeddingModel),
			llm.NewBedrockClient(awsCfg, active.TextModel), nil
	default:
		return embed.NewOllamaEmbedder(active.EmbeddingModel, active.BaseURL),
			llm.NewOllamaClient(active.TextModel, active.BaseURL), nil
	}
}

func buildEnricher(ctx context.Context, cfg *config.Config) (*enrich.Enricher, error) {
	opts := []enrich.Option{enrich.WithLookback(cfg.Enrichment.Lookback)}
	switch cfg.Cloud.Provider {
	case "aws":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Cloud.AWS.Region))
		if err != nil {
			return nil, errors.Configf("aws_config", "failed to load AWS config: %v", err)
		}
		p := enrich.NewAWSProvider(awsCfg, "")
		return enrich.New(p, p, p, opts...), nil
	case "oci":
		// No OCI SDK wiring; the pipeline runs with alert-only context.
		log.Warn().Msg("OCI enrichment providers are not available, alerts proceed without live context")
		return enrich.New(nil, nil, nil, opts...), nil
	default:
		p := enrich.NewStaticProvider()
		return enrich.New(p, p, p, opts...), nil
	}
}

func buildDispatcher(cfg *config.Config) (*dispatch.Dispatcher, error) {
	dispatcher := dispatch.NewDispatcher()

	if cfg.Output.File.Enabled {
		dispatcher.AddDestination(dispatch.NewFileDestination(dispatch.Config{
			Name:      "file",
			Type:      "file",
			Enabled:   true,
			OutputDir: cfg.Output.File.OutputDirectory,
		}))
	}

	for _, wh := range cfg.Output.Webhooks {
		if !wh.Enabled {
			log.Debug().Str("webhook", wh.Name).Msg("Skipping disabled webhook destination")
			continue
		}
		dispatcher.AddDestination(dispatch.NewWebhookDestination(dispatch.Config{
			Name:    wh.Name,
			Type:    "webhook",
			URL:     wh.URL,
			Enabled: true,
			Headers: wh.Headers,
			Filter: dispatch.FilterRules{
				Severities:     wh.Filter.Severities,
				RequiredLabels: wh.Filter.RequiredLabels,
			},
			RetryCount:   wh.RetryCount,
			RetryDelayMs: wh.RetryDelayMs,
		}, nil))
	}
	return dispatcher, nil
}

func buildIngester(ctx context.Context, cfg *config.Config, embedService *embed.Service, store vectorstore.Store) (*ingest.Pipeline, error) {
	switch cfg.Cloud.Provider {
	case "aws":
		if cfg.Cloud.AWS.Bucket == "" {
			log.Warn().Msg("No runbook bucket configured, runbook sync disabled")
			return nil, nil
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Cloud.AWS.Region))
		if err != nil {
			return nil, errors.Configf("aws_config", "failed to load AWS config: %v", err)
		}
		source := ingest.NewS3Source(s3.NewFromConfig(awsCfg), cfg.Cloud.AWS.Bucket, "")
		return ingest.New(source, embedService, store), nil
	default:
		if cfg.Runbooks.Directory == "" {
			return nil, nil
		}
		return ingest.New(ingest.NewDirSource(cfg.Runbooks.Directory), embedService, store), nil
	}
}
