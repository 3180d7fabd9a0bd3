// Package llm contains text-generation provider clients.
package llm

import (
	"context"
)

// GenerateRequest is a request to a text-generation provider.
type GenerateRequest struct {
	System      string  `json:"system,omitempty"`
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// GenerateResponse is a provider response.
type GenerateResponse struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	InputTokens  int    `json:"input_tokens,omitempty"`
	OutputTokens int    `json:"output_tokens,omitempty"`
}

// Provider defines the interface for text-generation providers.
type Provider interface {
	// GenerateText sends a generation request and returns the response.
	GenerateText(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// TestConnection validates connectivity and credentials.
	TestConnection(ctx context.Context) error

	// ProviderID returns the provider identifier.
	ProviderID() string
}
