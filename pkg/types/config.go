// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "answer-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// GenerationConfig holds settings for the generation-service gateway.
type GenerationConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the generation gateway endpoint.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Model is the primary model identifier.
	Model string `json:"model" yaml:"model"`

	// FallbackModel is tried once when a call with Model fails.
	FallbackModel string `json:"fallback_model,omitempty" yaml:"fallback_model,omitempty"`

	// MaxTokens caps the response length per call.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// APIKey authenticates against the gateway.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// MetadataConfig holds settings for the paper-metadata fetch stage.
type MetadataConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIKey is an optional Semantic Scholar API key for higher rate limits.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// RateLimitConfig bounds calls into external collaborators, windowed over
// 60 seconds. Zero values disable the corresponding budget.
type RateLimitConfig struct {
	// RequestsPerMinute caps collaborator calls per minute.
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute"`

	// TokensPerMinute caps generation tokens per minute.
	TokensPerMinute int `json:"tokens_per_minute" yaml:"tokens_per_minute"`
}

// AnswerConfig holds settings for one answer run.
type AnswerConfig struct {
	// ContextThreshold drops papers whose aggregated relevance is below it.
	ContextThreshold float64 `json:"context_threshold" yaml:"context_threshold"`

	// Workers bounds the quote-extraction worker pool (default 4).
	Workers int `json:"workers" yaml:"workers"`

	// RunTimeout is the wall-clock bound for the whole run. On expiry the
	// run is marked failed and no partial section set is returned.
	RunTimeout time.Duration `json:"run_timeout" yaml:"run_timeout"`

	// InlineTags wraps resolved citation ids in machine-readable inline
	// tags for UI hover-cards.
	InlineTags bool `json:"inline_tags" yaml:"inline_tags"`

	// OutputDir is the directory for answer artifacts (e.g. "output/answers/").
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}

// ArchiveConfig holds settings for the answer archive.
type ArchiveConfig struct {
	// ArchiveDir is the base directory for the archive database.
	ArchiveDir string `json:"archive_dir" yaml:"archive_dir"`

	// MaxResults is the default maximum number of search results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Generation GenerationConfig `json:"generation" yaml:"generation"`
	Metadata   MetadataConfig   `json:"metadata" yaml:"metadata"`
	RateLimit  RateLimitConfig  `json:"rate_limit" yaml:"rate_limit"`
	Answer     AnswerConfig     `json:"answer" yaml:"answer"`
	Archive    ArchiveConfig    `json:"archive" yaml:"archive"`
}
