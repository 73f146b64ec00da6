// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pdiddy/answer-engine/internal/httputil"
	"github.com/pdiddy/answer-engine/internal/ratelimit"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// estTokensPerChar approximates prompt tokens for the rate limiter; the
// gateway reports exact usage after the fact.
const estTokensPerChar = 4

// Gateway calls the generation gateway over HTTP. When a call with the
// primary model fails it retries once with the configured fallback model
// before propagating the original error.
type Gateway struct {
	Client  *http.Client
	Config  types.GenerationConfig
	Limiter *ratelimit.Limiter
}

// NewGateway builds a Gateway with a default HTTP client honoring the
// configured timeout.
func NewGateway(cfg types.GenerationConfig, limiter *ratelimit.Limiter) *Gateway {
	return &Gateway{
		Client:  &http.Client{Timeout: cfg.Timeout},
		Config:  cfg,
		Limiter: limiter,
	}
}

// Generate sends one generation request. An empty req.Model uses the
// configured primary model.
func (g *Gateway) Generate(ctx context.Context, req Request) (Response, error) {
	if req.Model == "" {
		req.Model = g.Config.Model
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = g.Config.MaxTokens
	}

	resp, err := g.call(ctx, req)
	if err == nil {
		return resp, nil
	}

	if g.Config.FallbackModel != "" && g.Config.FallbackModel != req.Model {
		fallbackReq := req
		fallbackReq.Model = g.Config.FallbackModel
		if fresp, ferr := g.call(ctx, fallbackReq); ferr == nil {
			return fresp, nil
		}
	}

	return Response{}, fmt.Errorf("generation call (model %s): %w", req.Model, err)
}

func (g *Gateway) call(ctx context.Context, req Request) (Response, error) {
	est := (len(req.SystemPrompt)+len(req.UserPrompt))/estTokensPerChar + req.MaxTokens
	if err := g.Limiter.Wait(ctx, est); err != nil {
		return Response{}, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.Config.BaseURL+"/v1/generate", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", g.Config.UserAgent)
	if g.Config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.Config.APIKey)
	}

	httpResp, err := httputil.DoWithRetry(ctx, g.Client, httpReq, 0)
	if err != nil {
		return Response{}, fmt.Errorf("generation gateway request: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return Response{}, fmt.Errorf("generation gateway returned HTTP %d: %s",
			httpResp.StatusCode, bytes.TrimSpace(msg))
	}

	var resp Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("parsing gateway response: %w", err)
	}
	return resp, nil
}
