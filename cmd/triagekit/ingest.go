package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/triagekit/triagekit/internal/config"
	"github.com/triagekit/triagekit/internal/logging"
)

var (
	ingestDir    string
	ingestBucket string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest the runbook corpus into the vector store and exit",
	Long:  `Chunks, embeds, and stores every runbook from the configured source. Use --dir or --bucket to override the configured location for a one-off run.`,
	Run: func(cmd *cobra.Command, args []string) {
		runIngest()
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestDir, "dir", "", "ingest from a local directory")
	ingestCmd.Flags().StringVar(&ingestBucket, "bucket", "", "ingest from an S3 bucket")
}

func runIngest() {
	logging.Init(logging.Config{
		Format:    "auto",
		Level:     "info",
		Component: "triagekit-ingest",
	})

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Flag overrides pick the source for this run only.
	if ingestDir != "" {
		cfg.Cloud.Provider = "local"
		cfg.Runbooks.Directory = ingestDir
	}
	if ingestBucket != "" {
		cfg.Cloud.Provider = "aws"
		cfg.Cloud.AWS.Bucket = ingestBucket
	}

	ctx := context.Background()
	app, err := buildApp(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build pipeline components")
	}
	defer app.Close()

	if app.Ingester == nil {
		log.Fatal().Msg("No runbook source configured; set runbooks.directory or pass --dir/--bucket")
	}

	report, err := app.Ingester.IngestAll(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Ingestion failed")
	}

	fmt.Printf("Ingested %d chunks from %d runbooks\n", report.Chunks, report.Paths)
	if len(report.Failed) > 0 {
		fmt.Printf("%d runbooks failed:\n", len(report.Failed))
		for path, msg := range report.Failed {
			fmt.Printf("  %s: %s\n", path, msg)
		}
		os.Exit(1)
	}
}
