// Package config loads TriageKit configuration from a YAML file with
// environment overrides. A .env file next to the working directory is
// honored for local development.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/triagekit/triagekit/internal/errors"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
	Cloud       CloudConfig       `yaml:"cloud"`
	VectorStore VectorStoreConfig `yaml:"vectorStore"`
	LLM         LLMConfig         `yaml:"llm"`
	Output      OutputConfig      `yaml:"output"`
	Runbooks    RunbooksConfig    `yaml:"runbooks"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Enrichment  EnrichmentConfig  `yaml:"enrichment"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// CloudConfig selects the cloud provider used for enrichment and runbook
// object storage.
type CloudConfig struct {
	Provider string              `yaml:"provider"`
	AWS      CloudProviderConfig `yaml:"aws"`
	OCI      CloudProviderConfig `yaml:"oci"`
}

// CloudProviderConfig carries per-provider settings.
type CloudProviderConfig struct {
	Region string `yaml:"region"`
	Bucket string `yaml:"bucket"`
}

// VectorStoreConfig selects and configures the vector store backend.
type VectorStoreConfig struct {
	Provider string       `yaml:"provider"`
	SQLite   SQLiteConfig `yaml:"sqlite"`
	Qdrant   QdrantConfig `yaml:"qdrant"`
}

// SQLiteConfig configures local persistence for the in-memory store.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// QdrantConfig configures a remote qdrant collection.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIKey     string `yaml:"apiKey"`
	Collection string `yaml:"collection"`
	Dimension  int    `yaml:"dimension"`
	UseTLS     bool   `yaml:"useTls"`
}

// LLMConfig selects the text and embedding provider.
type LLMConfig struct {
	Provider string            `yaml:"provider"`
	Ollama   LLMProviderConfig `yaml:"ollama"`
	OpenAI   LLMProviderConfig `yaml:"openai"`
	Bedrock  LLMProviderConfig `yaml:"aws-bedrock"`
}

// LLMProviderConfig carries per-provider model settings.
type LLMProviderConfig struct {
	TextModel      string `yaml:"textModel"`
	EmbeddingModel string `yaml:"embeddingModel"`
	BaseURL        string `yaml:"baseUrl"`
	APIKey         string `yaml:"apiKey"`
	Region         string `yaml:"region"`
}

// OutputConfig configures checklist delivery.
type OutputConfig struct {
	File     FileOutputConfig `yaml:"file"`
	Webhooks []WebhookConfig  `yaml:"webhooks"`
}

// FileOutputConfig configures the built-in file destination.
type FileOutputConfig struct {
	Enabled         bool   `yaml:"enabled"`
	OutputDirectory string `yaml:"outputDirectory"`
}

// WebhookConfig mirrors a dispatch destination entry.
type WebhookConfig struct {
	Name         string            `yaml:"name"`
	Type         string            `yaml:"type"`
	URL          string            `yaml:"url"`
	Enabled      bool              `yaml:"enabled"`
	Headers      map[string]string `yaml:"headers"`
	Filter       WebhookFilter     `yaml:"filter"`
	RetryCount   int               `yaml:"retryCount"`
	RetryDelayMs int               `yaml:"retryDelayMs"`
}

// WebhookFilter gates deliveries by alert attributes.
type WebhookFilter struct {
	Severities     []string          `yaml:"severities"`
	RequiredLabels map[string]string `yaml:"requiredLabels"`
}

// RunbooksConfig configures the runbook corpus.
type RunbooksConfig struct {
	Directory       string `yaml:"directory"`
	IngestOnStartup bool   `yaml:"ingestOnStartup"`
}

// RetrievalConfig tunes retrieval depth.
type RetrievalConfig struct {
	TopK int `yaml:"topK"`
}

// EnrichmentConfig tunes context enrichment.
type EnrichmentConfig struct {
	Lookback time.Duration `yaml:"lookback"`
}

// Defaults returns the configuration used when no file and no environment
// overrides are present: a fully local setup that works without credentials.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
		Cloud: CloudConfig{
			Provider: "local",
		},
		VectorStore: VectorStoreConfig{
			Provider: "local",
			SQLite:   SQLiteConfig{Path: "./data/vectors.db"},
			Qdrant: QdrantConfig{
				Host:       "localhost",
				Port:       6334,
				Collection: "runbooks",
				Dimension:  768,
			},
		},
		LLM: LLMConfig{
			Provider: "ollama",
			Ollama: LLMProviderConfig{
				TextModel:      "llama3.1",
				EmbeddingModel: "nomic-embed-text",
				BaseURL:        "http://localhost:11434",
			},
			Bedrock: LLMProviderConfig{
				TextModel:      "anthropic.claude-3-5-sonnet-20240620-v1:0",
				EmbeddingModel: "amazon.titan-embed-text-v2:0",
				Region:         "us-east-1",
			},
		},
		Output: OutputConfig{
			File: FileOutputConfig{
				Enabled:         true,
				OutputDirectory: "./out",
			},
		},
		Runbooks: RunbooksConfig{
			Directory:       "./runbooks",
			IngestOnStartup: false,
		},
		Retrieval: RetrievalConfig{
			TopK: 5,
		},
		Enrichment: EnrichmentConfig{
			Lookback: 15 * time.Minute,
		},
	}
}

// Validate checks provider selections and structural requirements.
func (c *Config) Validate() error {
	switch c.Cloud.Provider {
	case "aws", "oci", "local":
	default:
		return errors.Configf("config.Validate", "cloud.provider must be aws, oci, or local, got %q", c.Cloud.Provider)
	}

	switch c.VectorStore.Provider {
	case "local", "aws", "oci", "qdrant":
	default:
		return errors.Configf("config.Validate", "vectorStore.provider must be local, aws, oci, or qdrant, got %q", c.VectorStore.Provider)
	}

	switch c.LLM.Provider {
	case "ollama", "openai", "aws-bedrock":
	default:
		return errors.Configf("config.Validate", "llm.provider must be ollama, openai, or aws-bedrock, got %q", c.LLM.Provider)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.Configf("config.Validate", "server.port %d out of range", c.Server.Port)
	}

	for i, wh := range c.Output.Webhooks {
		if wh.Name == "" {
			return errors.Configf("config.Validate", "output.webhooks[%d] is missing a name", i)
		}
		if wh.Type == "" || wh.Type == "webhook" {
			if wh.URL == "" {
				return errors.Configf("config.Validate", "webhook %q has no url", wh.Name)
			}
			if !strings.HasPrefix(wh.URL, "http://") && !strings.HasPrefix(wh.URL, "https://") {
				return errors.Configf("config.Validate", "webhook %q url must be http(s), got %q", wh.Name, wh.URL)
			}
		}
	}
	return nil
}

// ListenAddr returns host:port for the HTTP server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ActiveLLM returns the provider config selected by llm.provider.
func (c *Config) ActiveLLM() LLMProviderConfig {
	switch c.LLM.Provider {
	case "openai":
		return c.LLM.OpenAI
	case "aws-bedrock":
		return c.LLM.Bedrock
	default:
		return c.LLM.Ollama
	}
}

// ActiveCloud returns the provider config selected by cloud.provider.
func (c *Config) ActiveCloud() CloudProviderConfig {
	switch c.Cloud.Provider {
	case "aws":
		return c.Cloud.AWS
	case "oci":
		return c.Cloud.OCI
	default:
		return CloudProviderConfig{}
	}
}
