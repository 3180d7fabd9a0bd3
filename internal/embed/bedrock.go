package embed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// BedrockEmbedder produces embeddings through AWS Bedrock (Titan embedding
// models).
type BedrockEmbedder struct {
	model  string
	client *bedrockruntime.Client
}

// NewBedrockEmbedder creates a Bedrock embedding client from a configured
// aws.Config.
func NewBedrockEmbedder(cfg aws.Config, model string) *BedrockEmbedder {
	return &BedrockEmbedder{
		model:  model,
		client: bedrockruntime.NewFromConfig(cfg),
	}
}

// ProviderID returns the provider identifier.
func (c *BedrockEmbedder) ProviderID() string {
	return "aws-bedrock"
}

type titanEmbedRequest struct {
	InputText string `json:"inputText"`
}

type titanEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed embeds a single text through InvokeModel.
func (c *BedrockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(titanEmbedRequest{InputText: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	out, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.model),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("invoke model failed: %w", err)
	}

	var resp titanEmbedResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("model returned empty embedding")
	}
	return Normalize(resp.Embedding), nil
}

// EmbedBatch embeds texts sequentially; Titan embedding models accept one
// input per invocation.
func (c *BedrockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := c.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vecs = append(vecs, vec)
	}
	return vecs, nil
}
