// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package plan asks the generation service to cluster extracted quotes into
// named, ordered thematic sections ("dimensions") and parses its JSON reply.
// Implements: prd008-answers (R4).
package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/answer-engine/internal/genai"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// Build enumerates the surviving quotes by their 0-based position in the
// sorted label list and requests a structured plan. The service contract
// requires every quote index to appear under some dimension; that is not
// verified here — empty-plan detection downstream is the safety net.
func Build(ctx context.Context, client genai.Client, query string, labels []string, quotes map[string]string) (types.Plan, float64, error) {
	resp, err := client.Generate(ctx, genai.Request{
		SystemPrompt:   planSystemPrompt,
		UserPrompt:     planUserPrompt(query, labels, quotes),
		ResponseFormat: genai.FormatJSON,
	})
	if err != nil {
		return types.Plan{}, 0, fmt.Errorf("plan generation: %w", err)
	}

	p, err := Parse(resp.Content)
	if err != nil {
		return types.Plan{}, resp.Cost, err
	}
	return p, resp.Cost, nil
}

// Parse decodes and validates a JSON plan.
func Parse(content string) (types.Plan, error) {
	var p types.Plan
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &p); err != nil {
		return types.Plan{}, fmt.Errorf("parsing plan JSON: %w", err)
	}

	var errs []string
	for i, d := range p.Dimensions {
		if strings.TrimSpace(d.Name) == "" {
			errs = append(errs, fmt.Sprintf("dimension %d: empty name", i))
		}
		if d.Format != types.FormatList && d.Format != types.FormatSynthesis {
			errs = append(errs, fmt.Sprintf("dimension %d: invalid format %q", i, d.Format))
		}
	}
	if len(errs) > 0 {
		return types.Plan{}, fmt.Errorf("invalid plan: %s", strings.Join(errs, "; "))
	}
	return p, nil
}

// Empty reports whether every dimension carries zero quotes, which violates
// the planning contract and is fatal for the run.
func Empty(p types.Plan) bool {
	for _, d := range p.Dimensions {
		if len(d.QuoteIndices) > 0 {
			return false
		}
	}
	return true
}
