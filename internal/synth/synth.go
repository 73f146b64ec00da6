// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package synth generates narrative section text, one planned dimension at a
// time. Generation is strictly sequential: each section's prompt includes
// everything already written, so later sections can avoid repeating earlier
// points. The caller pulls sections through an explicit iterator; stopping
// the pull is the cancellation mechanism, and no partial section is ever
// half-committed.
// Implements: prd008-answers (R5).
package synth

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/answer-engine/internal/genai"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// bracketTokenRe strips citation tokens out of already-written context so
// earlier citations do not leak into later prompts.
var bracketTokenRe = regexp.MustCompile(`\[[^\[\]]*\]`)

// Draft is one generated section before citation formatting.
type Draft struct {
	// Dimension is the plan entry the draft realizes.
	Dimension types.Dimension

	// Text is the raw generated section text.
	Text string

	// Cost is the generation cost of this section's call.
	Cost float64
}

// Generator yields section drafts in plan order.
type Generator struct {
	client   genai.Client
	query    string
	plan     types.Plan
	evidence []([]evidenceLine) // per dimension, resolved at construction

	written strings.Builder
	next    int
}

// NewGenerator prepares a sequential section generator. Quote indices are
// resolved against the label snapshot up front; out-of-range indices must
// already have been filtered by the caller.
func NewGenerator(client genai.Client, query string, p types.Plan, labels []string, quotes map[string]*types.LinkedQuote) *Generator {
	g := &Generator{client: client, query: query, plan: p}
	for _, dim := range p.Dimensions {
		var lines []evidenceLine
		for _, idx := range dim.QuoteIndices {
			if idx < 0 || idx >= len(labels) {
				continue
			}
			label := labels[idx]
			if q, ok := quotes[label]; ok {
				lines = append(lines, evidenceLine{label: label, text: q.Text})
			}
		}
		g.evidence = append(g.evidence, lines)
	}
	return g
}

// Next generates the next section draft, or returns (nil, nil) when the plan
// is exhausted. The draft's raw text is appended to the running
// already-written buffer before Next returns, so the following call sees it.
func (g *Generator) Next(ctx context.Context) (*Draft, error) {
	if g.next >= len(g.plan.Dimensions) {
		return nil, nil
	}
	dim := g.plan.Dimensions[g.next]
	lines := g.evidence[g.next]

	system := sectionSystemPrompt
	if len(lines) == 0 {
		// No assigned evidence: permit general knowledge under the
		// reserved LLM MEMORY marker.
		system = memorySystemPrompt
	}

	resp, err := g.client.Generate(ctx, genai.Request{
		SystemPrompt: system,
		UserPrompt:   sectionUserPrompt(g.query, dim, lines, g.written.String()),
	})
	if err != nil {
		return nil, fmt.Errorf("generating section %q: %w", dim.Name, err)
	}

	g.written.WriteString(stripBrackets(resp.Content))
	g.written.WriteString("\n\n")
	g.next++

	return &Draft{Dimension: dim, Text: resp.Content, Cost: resp.Cost}, nil
}

// stripBrackets removes bracketed citation tokens from context text.
func stripBrackets(text string) string {
	return strings.TrimSpace(bracketTokenRe.ReplaceAllString(text, ""))
}
