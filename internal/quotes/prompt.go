// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package quotes

import "fmt"

// extractionSystemPrompt asks the generation service for exact verbatim
// excerpts. The "None" contract lets irrelevant papers opt out cleanly.
const extractionSystemPrompt = `You are assisting a scientific literature review. Given a research
question and the full text of one paper, extract the passages from the paper
that directly support an answer to the question.

Rules:
- Quote the paper EXACTLY, character for character, including any citations
  embedded in the quoted text.
- Join multiple excerpts with " ... " (space, three dots, space).
- Do not paraphrase, summarize, or add commentary.
- If the paper contains nothing relevant to the question, reply with the
  single word None.`

// userPrompt embeds the query and one paper's Markdown text.
func userPrompt(query, fullText string) string {
	return fmt.Sprintf("Question: %s\n\nPaper:\n%s", query, fullText)
}
