package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAIClient implements the Provider interface for OpenAI-compatible APIs.
type OpenAIClient struct {
	model  string
	client openai.Client
}

// NewOpenAIClient creates a client for OpenAI-compatible endpoints. baseURL
// is optional and allows pointing at compatible servers.
func NewOpenAIClient(apiKey, model, baseURL string) *OpenAIClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIClient{
		model:  model,
		client: openai.NewClient(opts...),
	}
}

// ProviderID returns the provider identifier.
func (c *OpenAIClient) ProviderID() string {
	return "openai"
}

// GenerateText sends a chat completion request.
func (c *OpenAIClient) GenerateText(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    openai.ChatModel(c.model),
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("API returned no choices")
	}

	return &GenerateResponse{
		Content:      resp.Choices[0].Message.Content,
		Model:        resp.Model,
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}, nil
}

// TestConnection validates the API key with a minimal models call.
func (c *OpenAIClient) TestConnection(ctx context.Context) error {
	if _, err := c.client.Models.Get(ctx, c.model); err != nil {
		return fmt.Errorf("failed to reach API: %w", err)
	}
	return nil
}
