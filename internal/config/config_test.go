package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Cloud.Provider)
	assert.Equal(t, "local", cfg.VectorStore.Provider)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.True(t, cfg.Output.File.Enabled)
	assert.Equal(t, "./out", cfg.Output.File.OutputDirectory)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 15*time.Minute, cfg.Enrichment.Lookback)
	assert.False(t, cfg.Runbooks.IngestOnStartup)
	assert.Equal(t, "0.0.0.0:8080", cfg.ListenAddr())
}

func TestLoadYAMLFile(t *testing.T) {
	doc := `
server:
  port: 9090
cloud:
  provider: aws
  aws:
    region: eu-west-1
    bucket: runbooks-bucket
llm:
  provider: aws-bedrock
output:
  file:
    enabled: false
  webhooks:
    - name: oncall
      type: webhook
      url: https://hooks.example.com/x
      enabled: true
      filter:
        severities: [CRITICAL, WARNING]
        requiredLabels:
          team: infra
      retryCount: 5
      retryDelayMs: 250
runbooks:
  ingestOnStartup: true
retrieval:
  topK: 8
`
	path := filepath.Join(t.TempDir(), "triagekit.yml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "aws", cfg.Cloud.Provider)
	assert.Equal(t, "eu-west-1", cfg.ActiveCloud().Region)
	assert.Equal(t, "runbooks-bucket", cfg.ActiveCloud().Bucket)
	assert.Equal(t, "aws-bedrock", cfg.LLM.Provider)
	assert.False(t, cfg.Output.File.Enabled)
	assert.True(t, cfg.Runbooks.IngestOnStartup)
	assert.Equal(t, 8, cfg.Retrieval.TopK)

	require.Len(t, cfg.Output.Webhooks, 1)
	wh := cfg.Output.Webhooks[0]
	assert.Equal(t, "oncall", wh.Name)
	assert.Equal(t, []string{"CRITICAL", "WARNING"}, wh.Filter.Severities)
	assert.Equal(t, "infra", wh.Filter.RequiredLabels["team"])
	assert.Equal(t, 5, wh.RetryCount)
	assert.Equal(t, 250, wh.RetryDelayMs)

	// Defaults survive for keys the file does not set.
	assert.Equal(t, "llama3.1", cfg.LLM.Ollama.TextModel)
	assert.Equal(t, "localhost", cfg.VectorStore.Qdrant.Host)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TRIAGEKIT_SERVER_PORT", "7777")
	t.Setenv("TRIAGEKIT_LLM_PROVIDER", "openai")
	t.Setenv("TRIAGEKIT_OPENAI_API_KEY", "sk-test")
	t.Setenv("TRIAGEKIT_TOP_K", "3")
	t.Setenv("TRIAGEKIT_LOOKBACK", "30m")
	t.Setenv("TRIAGEKIT_INGEST_ON_STARTUP", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.ActiveLLM().APIKey)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, 30*time.Minute, cfg.Enrichment.Lookback)
	assert.True(t, cfg.Runbooks.IngestOnStartup)
}

func TestLoadIgnoresMalformedEnvValues(t *testing.T) {
	t.Setenv("TRIAGEKIT_SERVER_PORT", "not-a-number")
	t.Setenv("TRIAGEKIT_LOOKBACK", "soon")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Minute, cfg.Enrichment.Lookback)
}

func TestValidateRejectsUnknownProviders(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"cloud provider", func(c *Config) { c.Cloud.Provider = "azure" }},
		{"vector store provider", func(c *Config) { c.VectorStore.Provider = "pinecone" }},
		{"llm provider", func(c *Config) { c.LLM.Provider = "gemini" }},
		{"port out of range", func(c *Config) { c.Server.Port = 0 }},
		{"webhook without name", func(c *Config) {
			c.Output.Webhooks = []WebhookConfig{{URL: "https://x"}}
		}},
		{"webhook without url", func(c *Config) {
			c.Output.Webhooks = []WebhookConfig{{Name: "x"}}
		}},
		{"webhook with bad scheme", func(c *Config) {
			c.Output.Webhooks = []WebhookConfig{{Name: "x", URL: "ftp://host"}}
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(path, []byte("server: [oops"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
