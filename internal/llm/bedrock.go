package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// BedrockClient implements the Provider interface for AWS Bedrock using the
// Anthropic messages body format.
type BedrockClient struct {
	model  string
	client *bedrockruntime.Client
}

// NewBedrockClient creates a Bedrock client from a configured aws.Config.
func NewBedrockClient(cfg aws.Config, model string) *BedrockClient {
	return &BedrockClient{
		model:  model,
		client: bedrockruntime.NewFromConfig(cfg),
	}
}

// ProviderID returns the provider identifier.
func (c *BedrockClient) ProviderID() string {
	return "aws-bedrock"
}

type bedrockMessagesRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	Temperature      float64          `json:"temperature,omitempty"`
	System           string           `json:"system,omitempty"`
	Messages         []bedrockMessage `json:"messages"`
}

type bedrockMessage struct {
	Role    string                `json:"role"`
	Content []bedrockContentBlock `json:"content"`
}

type bedrockContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type bedrockMessagesResponse struct {
	Content []bedrockContentBlock `json:"content"`
	Model   string                `json:"model"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// GenerateText invokes the model with a messages-format body.
func (c *BedrockClient) GenerateText(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	body, err := json.Marshal(bedrockMessagesRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        maxTokens,
		Temperature:      req.Temperature,
		System:           req.System,
		Messages: []bedrockMessage{
			{Role: "user", Content: []bedrockContentBlock{{Type: "text", Text: req.Prompt}}},
		},
	})
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

	var resp bedrockMessagesResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &GenerateResponse{
		Content:      text.String(),
		Model:        resp.Model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}

// TestConnection sends a one-token generation to verify model access.
func (c *BedrockClient) TestConnection(ctx context.Context) error {
	_, err := c.GenerateText(ctx, GenerateRequest{Prompt: "ping", MaxTokens: 1})
	if err != nil {
		return fmt.Errorf("bedrock connectivity check failed: %w", err)
	}
	return nil
}
