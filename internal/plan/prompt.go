// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package plan

import (
	"fmt"
	"strings"
)

const planSystemPrompt = `You are organizing evidence for a scientific literature review. Given a
research question and a numbered list of quotes (one per paper), cluster the
quotes into an ordered outline of thematic sections ("dimensions").

Reply with a JSON object of the form:

{
  "cot": "<one short paragraph justifying the structure>",
  "dimensions": [
    {"name": "<section heading>", "format": "list" or "synthesis", "quotes": [<quote indices>]}
  ]
}

Rules:
- Every quote index MUST appear under exactly one dimension.
- Order dimensions from general to specific.
- The first dimension may be an introduction or background section with an
  empty quote list.
- Use "synthesis" for themes that need connected prose and "list" for
  themes that enumerate comparable findings.`

// planUserPrompt enumerates quotes by their 0-based position in the sorted
// label list. The index is the position, not the corpus id.
func planUserPrompt(query string, labels []string, quotes map[string]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nQuotes:\n", query)
	for i, label := range labels {
		fmt.Fprintf(&b, "[%d] %s: %s\n", i, label, quotes[label])
	}
	return b.String()
}
