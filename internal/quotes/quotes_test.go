package quotes

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/pdiddy/answer-engine/internal/genai"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// scriptClient returns a canned response per paper, matched on the full text
// embedded in the user prompt.
type scriptClient struct {
	mu        sync.Mutex
	calls     int
	responses map[string]string
	errOn     string
}

func (c *scriptClient) Generate(_ context.Context, req genai.Request) (genai.Response, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	for key, content := range c.responses {
		if strings.Contains(req.UserPrompt, key) {
			if key == c.errOn {
				return genai.Response{}, errors.New("upstream failure")
			}
			return genai.Response{Content: content, Cost: 0.01}, nil
		}
	}
	return genai.Response{Content: "None"}, nil
}

func records(labels ...string) []types.PaperRecord {
	out := make([]types.PaperRecord, len(labels))
	for i, l := range labels {
		out[i] = types.PaperRecord{ReferenceLabel: l, FullText: "fulltext-" + l}
	}
	return out
}

func TestExtractFiltersAndSorts(t *testing.T) {
	client := &scriptClient{responses: map[string]string{
		"fulltext-b": "A sufficiently long verbatim quote from paper b.",
		"fulltext-a": "Another long verbatim quote from paper a.",
		"fulltext-c": "None",
		"fulltext-d": "short",
	}}
	recs := records("b", "a", "c", "d")

	result, err := Extract(context.Background(), client, recs, "what works?", 2)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(result.Labels) != 2 {
		t.Fatalf("got labels %v, want quotes for a and b only", result.Labels)
	}
	if !sort.StringsAreSorted(result.Labels) {
		t.Errorf("labels not sorted: %v", result.Labels)
	}
	if result.Quotes["a"] == "" || result.Quotes["b"] == "" {
		t.Errorf("missing surviving quotes: %v", result.Quotes)
	}
	if client.calls != 4 {
		t.Errorf("made %d calls, want one per paper", client.calls)
	}
}

func TestExtractSumsCostAcrossFilteredCalls(t *testing.T) {
	client := &scriptClient{responses: map[string]string{
		"fulltext-a": "A sufficiently long verbatim quote from paper a.",
		"fulltext-b": "too short",
	}}

	result, err := Extract(context.Background(), client, records("a", "b"), "q", 1)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	// Both calls returned cost 0.01 even though one response was filtered.
	if result.Cost < 0.019 || result.Cost > 0.021 {
		t.Errorf("cost = %v, want ~0.02", result.Cost)
	}
}

func TestExtractCallErrorExcludesPaper(t *testing.T) {
	client := &scriptClient{
		responses: map[string]string{
			"fulltext-a": "A sufficiently long verbatim quote from paper a.",
			"fulltext-b": "A sufficiently long verbatim quote from paper b.",
		},
		errOn: "fulltext-b",
	}

	result, err := Extract(context.Background(), client, records("a", "b"), "q", 2)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if _, ok := result.Quotes["b"]; ok {
		t.Error("paper with failed call should be excluded")
	}
	if _, ok := result.Quotes["a"]; !ok {
		t.Error("healthy paper lost alongside the failed one")
	}
}

func TestExtractCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &scriptClient{responses: map[string]string{}}
	_, err := Extract(ctx, client, records("a", "b", "c"), "q", 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestFilterQuote(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantOK  bool
	}{
		{"none token", "None", false},
		{"none with trailing newline content", "None\nNo relevant excerpts found.", false},
		{"none with trailing space", "None ", false},
		{"none with explanation", "None of note here, though the paper is long enough.", false},
		{"too short", "tiny", false},
		{"padded quote survives trim", "  A quote long enough to keep.  ", true},
		{"normal quote", "The model outperformed all baselines by a wide margin.", true},
		{"nonessential mention of None inside", "The word None appears mid-quote and is fine.", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quote, ok := filterQuote(tt.content)
			if ok != tt.wantOK {
				t.Fatalf("filterQuote(%q) ok = %v, want %v", tt.content, ok, tt.wantOK)
			}
			if ok && quote != strings.TrimSpace(tt.content) {
				t.Errorf("quote = %q, want trimmed content", quote)
			}
		})
	}
}
