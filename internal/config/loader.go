package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/triagekit/triagekit/internal/errors"
)

// envPrefix namespaces every environment override.
const envPrefix = "TRIAGEKIT_"

// Load builds the effective configuration: defaults, then the YAML file at
// path (skipped when empty or absent), then environment overrides.
func Load(path string) (*Config, error) {
	// Missing .env is the normal case outside development.
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded environment from .env file")
	}

	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			log.Warn().Str("path", path).Msg("Config file not found, using defaults")
		case err != nil:
			return nil, errors.Configf("config.Load", "failed to read %s: %v", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Configf("config.Load", "failed to parse %s: %v", path, err)
			}
			log.Info().Str("path", path).Msg("Loaded configuration file")
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides maps TRIAGEKIT_* variables onto config fields. Only the
// operationally useful knobs are exposed; secrets in particular should come
// from the environment rather than the YAML file.
func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Server.Host, "SERVER_HOST")
	setInt(&cfg.Server.Port, "SERVER_PORT")
	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")

	setString(&cfg.Cloud.Provider, "CLOUD_PROVIDER")
	setString(&cfg.Cloud.AWS.Region, "AWS_REGION")
	setString(&cfg.Cloud.AWS.Bucket, "AWS_BUCKET")
	setString(&cfg.Cloud.OCI.Region, "OCI_REGION")
	setString(&cfg.Cloud.OCI.Bucket, "OCI_BUCKET")

	setString(&cfg.VectorStore.Provider, "VECTORSTORE_PROVIDER")
	setString(&cfg.VectorStore.SQLite.Path, "SQLITE_PATH")
	setString(&cfg.VectorStore.Qdrant.Host, "QDRANT_HOST")
	setInt(&cfg.VectorStore.Qdrant.Port, "QDRANT_PORT")
	setString(&cfg.VectorStore.Qdrant.APIKey, "QDRANT_API_KEY")
	setString(&cfg.VectorStore.Qdrant.Collection, "QDRANT_COLLECTION")
	setInt(&cfg.VectorStore.Qdrant.Dimension, "QDRANT_DIMENSION")
	setBool(&cfg.VectorStore.Qdrant.UseTLS, "QDRANT_TLS")

	setString(&cfg.LLM.Provider, "LLM_PROVIDER")
	setString(&cfg.LLM.Ollama.BaseURL, "OLLAMA_BASE_URL")
	setString(&cfg.LLM.Ollama.TextModel, "OLLAMA_TEXT_MODEL")
	setString(&cfg.LLM.Ollama.EmbeddingModel, "OLLAMA_EMBEDDING_MODEL")
	setString(&cfg.LLM.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&cfg.LLM.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setString(&cfg.LLM.OpenAI.TextModel, "OPENAI_TEXT_MODEL")
	setString(&cfg.LLM.OpenAI.EmbeddingModel, "OPENAI_EMBEDDING_MODEL")
	setString(&cfg.LLM.Bedrock.Region, "BEDROCK_REGION")
	setString(&cfg.LLM.Bedrock.TextModel, "BEDROCK_TEXT_MODEL")
	setString(&cfg.LLM.Bedrock.EmbeddingModel, "BEDROCK_EMBEDDING_MODEL")

	setBool(&cfg.Output.File.Enabled, "FILE_OUTPUT_ENABLED")
	setString(&cfg.Output.File.OutputDirectory, "FILE_OUTPUT_DIR")

	setString(&cfg.Runbooks.Directory, "RUNBOOKS_DIR")
	setBool(&cfg.Runbooks.IngestOnStartup, "INGEST_ON_STARTUP")

	setInt(&cfg.Retrieval.TopK, "TOP_K")
	setDuration(&cfg.Enrichment.Lookback, "LOOKBACK")
}

func setString(dst *string, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("var", envPrefix+key).Str("value", v).Msg("Ignoring non-integer environment override")
		return
	}
	*dst = n
}

func setBool(dst *bool, key string) {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		log.Warn().Str("var", envPrefix+key).Str("value", v).Msg("Ignoring non-boolean environment override")
		return
	}
	*dst = b
}

func setDuration(dst *time.Duration, key string) {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Str("var", envPrefix+key).Str("value", v).Msg("Ignoring unparseable duration override")
		return
	}
	*dst = d
}
