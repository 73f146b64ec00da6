package synth

import (
	"context"
	"strings"
	"testing"

	"github.com/pdiddy/answer-engine/internal/genai"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// recordingClient returns canned section texts and records every request.
type recordingClient struct {
	requests  []genai.Request
	responses []string
}

func (c *recordingClient) Generate(_ context.Context, req genai.Request) (genai.Response, error) {
	c.requests = append(c.requests, req)
	i := len(c.requests) - 1
	if i >= len(c.responses) {
		return genai.Response{}, nil
	}
	return genai.Response{Content: c.responses[i], Cost: 0.1}, nil
}

func twoDimensionPlan() types.Plan {
	return types.Plan{Dimensions: []types.Dimension{
		{Name: "Background", Format: types.FormatSynthesis, QuoteIndices: []int{0}},
		{Name: "Findings", Format: types.FormatList, QuoteIndices: []int{1}},
	}}
}

func linkedQuotes(labels []string) map[string]*types.LinkedQuote {
	quotes := make(map[string]*types.LinkedQuote)
	for _, l := range labels {
		quotes[l] = &types.LinkedQuote{ReferenceLabel: l, Text: "evidence for " + l}
	}
	return quotes
}

func TestGeneratorSequentialContext(t *testing.T) {
	labels := []string{"[1 | Doe | 2024 | 3]", "[2 | Roe | 2023 | 1]"}
	client := &recordingClient{responses: []string{
		"Background\nTLDR; Context matters.\nNets learn [1 | Doe | 2024 | 3] fast.",
		"Findings\nTLDR; Results hold.\nThey generalize [2 | Roe | 2023 | 1].",
	}}

	g := NewGenerator(client, "how do nets learn?", twoDimensionPlan(), labels, linkedQuotes(labels))

	first, err := g.Next(context.Background())
	if err != nil {
		t.Fatalf("first Next: %v", err)
	}
	if first.Dimension.Name != "Background" {
		t.Errorf("first dimension = %q", first.Dimension.Name)
	}
	if !strings.Contains(client.requests[0].UserPrompt, "evidence for "+labels[0]) {
		t.Errorf("first prompt missing assigned evidence:\n%s", client.requests[0].UserPrompt)
	}
	if strings.Contains(client.requests[0].UserPrompt, "Already written") {
		t.Error("first prompt should carry no prior context")
	}

	second, err := g.Next(context.Background())
	if err != nil {
		t.Fatalf("second Next: %v", err)
	}
	if second.Dimension.Name != "Findings" {
		t.Errorf("second dimension = %q", second.Dimension.Name)
	}
	// The second prompt includes the first section's text with citation
	// tokens stripped.
	prompt := client.requests[1].UserPrompt
	if !strings.Contains(prompt, "Nets learn  fast.") {
		t.Errorf("second prompt missing bracket-stripped context:\n%s", prompt)
	}
	if strings.Contains(prompt, "[1 | Doe | 2024 | 3]") {
		t.Error("citation token leaked into later prompt context")
	}

	// Draft text itself keeps the tokens for the formatter.
	if !strings.Contains(first.Text, "[1 | Doe | 2024 | 3]") {
		t.Errorf("draft text lost its citation token: %q", first.Text)
	}
}

func TestGeneratorExhaustion(t *testing.T) {
	labels := []string{"[1 | Doe | 2024 | 3]", "[2 | Roe | 2023 | 1]"}
	client := &recordingClient{responses: []string{"A\nTLDR; a.\nbody", "B\nTLDR; b.\nbody"}}
	g := NewGenerator(client, "q", twoDimensionPlan(), labels, linkedQuotes(labels))

	for i := 0; i < 2; i++ {
		if _, err := g.Next(context.Background()); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}
	draft, err := g.Next(context.Background())
	if draft != nil || err != nil {
		t.Fatalf("exhausted Next = (%v, %v), want (nil, nil)", draft, err)
	}
	// And it stays exhausted.
	draft, err = g.Next(context.Background())
	if draft != nil || err != nil {
		t.Fatalf("repeated exhausted Next = (%v, %v), want (nil, nil)", draft, err)
	}
}

func TestGeneratorMemorySectionPrompt(t *testing.T) {
	plan := types.Plan{Dimensions: []types.Dimension{
		{Name: "Introduction", Format: types.FormatSynthesis}, // no quotes assigned
	}}
	client := &recordingClient{responses: []string{"Introduction\nTLDR; intro.\nGeneral context [LLM MEMORY]."}}

	g := NewGenerator(client, "q", plan, nil, nil)
	if _, err := g.Next(context.Background()); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !strings.Contains(client.requests[0].SystemPrompt, "LLM MEMORY") {
		t.Error("evidence-free section should use the memory system prompt")
	}
	if strings.Contains(client.requests[0].UserPrompt, "Evidence:") {
		t.Error("memory prompt should carry no evidence block")
	}
}

func TestNewGeneratorDropsOutOfRangeIndices(t *testing.T) {
	labels := []string{"[1 | Doe | 2024 | 3]"}
	plan := types.Plan{Dimensions: []types.Dimension{
		{Name: "A", Format: types.FormatList, QuoteIndices: []int{0, 7, -1}},
	}}

	g := NewGenerator(&recordingClient{responses: []string{"A\nTLDR; a.\nbody"}}, "q", plan, labels, linkedQuotes(labels))
	if len(g.evidence[0]) != 1 {
		t.Fatalf("evidence lines = %d, want only the in-range index", len(g.evidence[0]))
	}
}

func TestStripBrackets(t *testing.T) {
	got := stripBrackets("Nets learn [1 | Doe | 2024 | 3] fast [LLM MEMORY].")
	if strings.Contains(got, "[") || strings.Contains(got, "]") {
		t.Errorf("brackets survived stripping: %q", got)
	}
}
