// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ratelimit bounds calls into the generation-service and
// metadata-fetch collaborators. Budgets are windowed over 60 seconds; when a
// budget is exhausted callers block until capacity frees rather than failing.
package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/pdiddy/answer-engine/pkg/types"
)

const window = 60.0 // seconds

// Limiter gates collaborator calls on a request-count budget and, for
// generation calls, a token-count budget. A nil Limiter never blocks.
type Limiter struct {
	requests *rate.Limiter
	tokens   *rate.Limiter

	maxTokens int
}

// New builds a Limiter from config. Zero or negative budgets disable the
// corresponding gate.
func New(cfg types.RateLimitConfig) *Limiter {
	l := &Limiter{}
	if cfg.RequestsPerMinute > 0 {
		l.requests = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/window), cfg.RequestsPerMinute)
	}
	if cfg.TokensPerMinute > 0 {
		l.tokens = rate.NewLimiter(rate.Limit(float64(cfg.TokensPerMinute)/window), cfg.TokensPerMinute)
		l.maxTokens = cfg.TokensPerMinute
	}
	return l
}

// Wait blocks until one request plus estTokens generation tokens fit in the
// current window. It returns the context error if the caller is cancelled
// while waiting, so a run's wall-clock timeout cuts the wait short.
func (l *Limiter) Wait(ctx context.Context, estTokens int) error {
	if l == nil {
		return nil
	}
	if l.requests != nil {
		if err := l.requests.Wait(ctx); err != nil {
			return fmt.Errorf("request budget: %w", err)
		}
	}
	if l.tokens != nil && estTokens > 0 {
		if estTokens > l.maxTokens {
			// A single oversized call can never fit; clamp to the full
			// window instead of blocking forever.
			estTokens = l.maxTokens
		}
		if err := l.tokens.WaitN(ctx, estTokens); err != nil {
			return fmt.Errorf("token budget: %w", err)
		}
	}
	return nil
}
