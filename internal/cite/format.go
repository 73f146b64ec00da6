// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cite parses generated section text and resolves bracketed
// reference tokens into citation records, emitting the final structured
// section.
// Implements: prd010-formatting (R1-R5).
package cite

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/answer-engine/internal/evidence"
	"github.com/pdiddy/answer-engine/pkg/types"
)

const (
	// tldrPrefix marks the summary line in generated section text.
	tldrPrefix = "TLDR;"

	// memoryMarker is the reserved token for claims drawn from model
	// knowledge rather than retrieved evidence.
	memoryMarker = "LLM MEMORY"

	// memoryAttribution replaces memory markers in the visible text.
	memoryAttribution = "(LLM Memory)"

	// abstractFallbackSnippet is recorded when no usable excerpt survives
	// for a citation with an open-access abstract.
	abstractFallbackSnippet = "click through to read the abstract"
)

// Bracket-malformation fixups applied before tokenizing. Citation
// concatenation in generated text occasionally glues a trailing numeric
// citation onto a closing parenthesis (")12]") or a comma-joined bracket
// list onto a following parenthetical ("],[x]("). Both rewrites are
// idempotent.
var (
	gluedNumberRe = regexp.MustCompile(`\)(\d+)\]`)
	gluedListRe   = regexp.MustCompile(`\]\s*,\s*\[([^\[\]]+)\]\(`)

	// formatHintRe strips a trailing "(list)"/"(synthesis)" hint from titles.
	formatHintRe = regexp.MustCompile(`(?i)\s*\((?:list|synthesis)\)\s*$`)
)

// Formatter resolves one run's sections. Quotes and Inline are the linking
// outputs; Identities is the run-scoped disambiguator shared with the
// evidence linker so quote and inline labels resolve consistently.
type Formatter struct {
	Quotes     map[string]*types.LinkedQuote
	Inline     map[string]types.PaperMetadata
	Identities *evidence.Disambiguator

	// InlineTags wraps resolved ids in a machine-readable tag for UI
	// hover-cards.
	InlineTags bool
}

// Format parses one section's raw generated text and resolves its citation
// tokens. Unresolvable tokens are stripped from the visible text and
// reported as warnings; a missing body is an error carrying the raw text.
func (f *Formatter) Format(raw string, format types.DimensionFormat) (types.GeneratedSection, []string, error) {
	title, tldr, body, err := splitSection(raw)
	if err != nil {
		return types.GeneratedSection{}, nil, err
	}

	body = FixMalformedBrackets(body)

	var (
		visible   strings.Builder
		citations []types.CitationSrc
		warnings  []string
		seen      = make(map[int]string) // corpus id → resolved id
	)

	for _, tok := range tokenize(body) {
		if tok.Kind == tokenText {
			visible.WriteString(tok.Text)
			continue
		}

		if strings.HasPrefix(tok.Text, memoryMarker) {
			visible.WriteString(memoryAttribution)
			continue
		}

		full := "[" + tok.Text + "]"
		src, ok := f.resolve(full)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("unresolved citation token %s", full))
			continue
		}

		// First bracket occurrence for a corpus id wins; later occurrences
		// reuse the same resolved id.
		id, dup := seen[src.Paper.CorpusID]
		if !dup {
			id = src.ID
			seen[src.Paper.CorpusID] = id
			citations = append(citations, src)
		}

		if f.InlineTags {
			fmt.Fprintf(&visible, "<cite id=%q>%s</cite>", id, id)
		} else {
			visible.WriteString(id)
		}
	}

	return types.GeneratedSection{
		Title:     title,
		TLDR:      tldrSuffix(tldr, len(citations)),
		Text:      strings.TrimSpace(visible.String()),
		Citations: citations,
		Format:    format,
	}, warnings, nil
}

// resolve maps a bracketed token to a citation source: first against known
// quote reference labels, then against inline-citation labels.
func (f *Formatter) resolve(label string) (types.CitationSrc, bool) {
	if q, ok := f.Quotes[label]; ok {
		resolved := f.Identities.Resolve(evidence.Display(q.Paper), q.Paper.CorpusID)
		return types.CitationSrc{
			ID:             "(" + resolved + ")",
			Paper:          q.Paper,
			Snippets:       snippets(q),
			RelevanceScore: q.RelevanceScore,
		}, true
	}
	if meta, ok := f.Inline[label]; ok {
		resolved := f.Identities.Resolve(evidence.Display(meta), meta.CorpusID)
		src := types.CitationSrc{ID: "(" + resolved + ")", Paper: meta}
		if meta.IsOpenAccess && meta.Abstract != "" {
			src.Snippets = []string{abstractFallbackSnippet}
		}
		return src, true
	}
	return types.CitationSrc{}, false
}

// snippets returns the quote's usable excerpts, falling back to the
// abstract click-through hint when none survive and an open-access abstract
// exists.
func snippets(q *types.LinkedQuote) []string {
	var out []string
	for _, s := range q.Segments {
		if strings.TrimSpace(s.QuoteText) != "" {
			out = append(out, s.QuoteText)
		}
	}
	if len(out) == 0 && q.Paper.IsOpenAccess && q.Paper.Abstract != "" {
		out = []string{abstractFallbackSnippet}
	}
	return out
}

// FixMalformedBrackets applies the fixed bracket-malformation rewrites.
// Applying it twice yields the same text as applying it once.
func FixMalformedBrackets(text string) string {
	text = gluedNumberRe.ReplaceAllString(text, ") [$1]")
	text = gluedListRe.ReplaceAllString(text, "], [$1] (")
	return text
}

// splitSection separates a leading title and an optional TLDR line from the
// section body. A section with no body left after title extraction is a
// generation-service contract violation; the raw text is surfaced in the
// error for diagnosis.
func splitSection(raw string) (title, tldr, body string, err error) {
	lines := strings.Split(raw, "\n")
	i := 0

	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i < len(lines) {
		title = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(lines[i]), "#*"))
		title = formatHintRe.ReplaceAllString(title, "")
		title = strings.TrimSpace(title)
		i++
	}

	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i < len(lines) {
		trimmed := strings.TrimSpace(lines[i])
		if strings.HasPrefix(trimmed, tldrPrefix) {
			tldr = strings.TrimSpace(strings.TrimPrefix(trimmed, tldrPrefix))
			i++
		}
	}

	body = strings.TrimSpace(strings.Join(lines[i:], "\n"))
	if body == "" {
		return "", "", "", fmt.Errorf("section has no body after title extraction: %q", raw)
	}
	return title, tldr, body, nil
}

// tldrSuffix appends the parenthetical citation count, or the LLM Memory
// marker when the section cites no sources.
func tldrSuffix(tldr string, citationCount int) string {
	if citationCount > 0 {
		return strings.TrimSpace(fmt.Sprintf("%s (%d sources)", tldr, citationCount))
	}
	return strings.TrimSpace(tldr + " " + memoryAttribution)
}
