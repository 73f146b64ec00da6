// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package genai is the client boundary for the external text-generation
// service. The pipeline only ever sees the Client interface, so tests supply
// mocks; Gateway is the production HTTP implementation.
package genai

import "context"

// ResponseFormat selects the shape of the generated content.
type ResponseFormat string

const (
	// FormatText requests free-form prose.
	FormatText ResponseFormat = ""

	// FormatJSON requests a structured JSON object, used for the
	// dimension-plan call.
	FormatJSON ResponseFormat = "json_object"
)

// Request is one generation call.
type Request struct {
	SystemPrompt   string         `json:"system_prompt"`
	UserPrompt     string         `json:"user_prompt"`
	Model          string         `json:"model"`
	MaxTokens      int            `json:"max_tokens"`
	ResponseFormat ResponseFormat `json:"response_format,omitempty"`
}

// Response is the generation service's reply, with token and cost accounting.
type Response struct {
	Content      string  `json:"content"`
	Model        string  `json:"model"`
	Cost         float64 `json:"cost"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
}

// Client abstracts the generation service so tests can supply a mock.
type Client interface {
	Generate(ctx context.Context, req Request) (Response, error)
}
