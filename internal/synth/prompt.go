// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synth

import (
	"fmt"
	"strings"

	"github.com/pdiddy/answer-engine/pkg/types"
)

const sectionSystemPrompt = `You are writing one section of a cited scientific answer. Write clear,
factual prose grounded ONLY in the evidence quotes provided.

Rules:
- Begin with the section title on its own line, followed by a line starting
  with "TLDR; " summarizing the section in one sentence.
- Cite evidence with the bracketed reference key exactly as given, e.g.
  [123456 | Doe et al. | 2024 | 12].
- Do not repeat points already covered in the previously written sections.
- For "list" sections, present findings as a bulleted list; for "synthesis"
  sections, write connected prose.`

const memorySystemPrompt = `You are writing one section of a cited scientific answer. No retrieved
evidence is assigned to this section; you may draw on general knowledge.

Rules:
- Begin with the section title on its own line, followed by a line starting
  with "TLDR; " summarizing the section in one sentence.
- Mark every claim drawn from general knowledge with the literal token
  [LLM MEMORY] instead of a reference key.
- Do not repeat points already covered in the previously written sections.`

// sectionUserPrompt embeds the linked evidence, one "label: quote" line per
// paper, plus the text already written for earlier sections.
func sectionUserPrompt(query string, dim types.Dimension, evidence []evidenceLine, written string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nSection to write: %s (%s)\n", query, dim.Name, dim.Format)

	if len(evidence) > 0 {
		b.WriteString("\nEvidence:\n")
		for _, e := range evidence {
			fmt.Fprintf(&b, "%s: %s\n", e.label, e.text)
		}
	}

	if written != "" {
		b.WriteString("\nAlready written sections:\n")
		b.WriteString(written)
		b.WriteString("\n")
	}
	return b.String()
}

// evidenceLine pairs one reference label with its linked quote text.
type evidenceLine struct {
	label string
	text  string
}
