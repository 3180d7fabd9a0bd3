package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/triagekit/triagekit/internal/config"
	"github.com/triagekit/triagekit/internal/logging"
)

// Version information (set at build time with -ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:     "triagekit",
	Short:   "TriageKit - alert-to-checklist troubleshooting service",
	Long:    `TriageKit turns cloud monitoring alerts into prioritized troubleshooting checklists by retrieving matching runbook sections and asking an LLM to render concrete steps.`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		runServer()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("TriageKit %s\n", Version)
		if BuildTime != "unknown" {
			fmt.Printf("Built: %s\n", BuildTime)
		}
		if GitCommit != "unknown" {
			fmt.Printf("Commit: %s\n", GitCommit)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "triagekit.yml", "path to configuration file")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(ingestCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServer() {
	// Baseline logger for early startup; reconfigured once config is loaded.
	logging.Init(logging.Config{
		Format:    "auto",
		Level:     "info",
		Component: "triagekit",
	})

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(logging.Config{
		Format:    cfg.Logging.Format,
		Level:     cfg.Logging.Level,
		Component: "triagekit",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build pipeline components")
	}
	defer app.Close()

	if cfg.Runbooks.IngestOnStartup && app.Ingester != nil {
		report, err := app.Ingester.IngestAll(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Startup runbook ingestion failed, continuing")
		} else {
			log.Info().Int("paths", report.Paths).Int("chunks", report.Chunks).
				Msg("Startup runbook ingestion complete")
		}
	}

	srv := app.Router.Server(cfg.ListenAddr())
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", Version).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	app.Router.Shutdown(25 * time.Second)
	log.Info().Msg("Shutdown complete")
}
