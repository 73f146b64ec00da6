// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the answer-engine pipeline.
// Implements: prd008-answers (PaperRecord, Dimension, R2-R4);
//
//	prd009-linking (SentenceSpan, Segment, R1-R3);
//	prd010-formatting (GeneratedSection, CitationSrc, R2-R5).
package types

import "time"

// Segment is one ellipsis-delimited piece of a multi-part quote. Once linked
// it carries provenance back to the source passage. Mutated in place only
// during the single linking pass. Per prd009-linking R2.
type Segment struct {
	// QuoteText is the segment text, possibly rewritten with inline
	// citation markers during linking.
	QuoteText string `json:"quote_text" yaml:"quote_text"`

	// SectionTitle names the source section the segment matched, or is
	// empty when the segment stayed unlinked.
	SectionTitle string `json:"section_title,omitempty" yaml:"section_title,omitempty"`

	// PDFHash identifies the matched source PDF.
	PDFHash string `json:"pdf_hash,omitempty" yaml:"pdf_hash,omitempty"`

	// Start and End are the matched byte range inside the source passage.
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`

	// SentenceOffsets are the sub-sentence ranges overlapping the match.
	SentenceOffsets []Offset `json:"sentence_offsets,omitempty" yaml:"sentence_offsets,omitempty"`

	// RefMentions lists corpus ids of citations found inside the matched span.
	RefMentions []int `json:"ref_mentions,omitempty" yaml:"ref_mentions,omitempty"`

	// RawMatch reports whether the segment matched by exact substring search
	// (true) or by the normalized-alpha fallback (false). Only raw matches
	// get inline citation markers substituted into QuoteText.
	RawMatch bool `json:"raw_match" yaml:"raw_match"`

	// Matched reports whether any strategy located the segment.
	Matched bool `json:"matched" yaml:"matched"`
}

// LinkedQuote is one paper's quote after evidence linking: the rewritten
// quote text plus per-segment provenance.
type LinkedQuote struct {
	// ReferenceLabel is the source paper's composite citation key.
	ReferenceLabel string `json:"reference_label" yaml:"reference_label"`

	// Paper is the source paper's metadata.
	Paper PaperMetadata `json:"paper" yaml:"paper"`

	// RelevanceScore is the source paper's aggregated relevance.
	RelevanceScore float64 `json:"relevance_score" yaml:"relevance_score"`

	// Text is the full quote with segments rejoined on "...".
	Text string `json:"text" yaml:"text"`

	// Segments are the linked quote pieces in order.
	Segments []Segment `json:"segments" yaml:"segments"`
}

// DimensionFormat selects the rendering style of a planned section.
type DimensionFormat string

const (
	FormatList      DimensionFormat = "list"
	FormatSynthesis DimensionFormat = "synthesis"
)

// Dimension is a named, ordered thematic section in the answer plan.
// QuoteIndices reference the sorted reference-label snapshot taken at
// planning time; out-of-range indices are a recoverable warning, not fatal.
// Per prd008-answers R4.
type Dimension struct {
	// Name is the section heading.
	Name string `json:"name" yaml:"name"`

	// Format is "list" or "synthesis".
	Format DimensionFormat `json:"format" yaml:"format"`

	// QuoteIndices are 0-based positions into the label snapshot.
	QuoteIndices []int `json:"quotes" yaml:"quotes"`
}

// Plan is the generation service's clustering of quotes into dimensions.
type Plan struct {
	// Justification is the service's short rationale for the structure.
	Justification string `json:"cot" yaml:"cot"`

	// Dimensions are the planned sections in answer order.
	Dimensions []Dimension `json:"dimensions" yaml:"dimensions"`
}

// CitationSrc is one resolved citation attached to a generated section.
type CitationSrc struct {
	// ID is the resolved display label, unique per corpus id within a run.
	ID string `json:"id" yaml:"id"`

	// Paper is the cited paper's metadata.
	Paper PaperMetadata `json:"paper" yaml:"paper"`

	// Snippets are the supporting excerpts shown for the citation.
	Snippets []string `json:"snippets" yaml:"snippets"`

	// RelevanceScore is the cited paper's aggregated relevance.
	RelevanceScore float64 `json:"relevance_score" yaml:"relevance_score"`
}

// GeneratedSection is the terminal artifact for one answer section.
// Immutable once returned. Per prd010-formatting R5.
type GeneratedSection struct {
	// Title is the section heading.
	Title string `json:"title" yaml:"title"`

	// TLDR is the one-line summary with a citation-count suffix.
	TLDR string `json:"tldr" yaml:"tldr"`

	// Text is the section body with resolved citation ids.
	Text string `json:"text" yaml:"text"`

	// Citations lists the section's resolved sources.
	Citations []CitationSrc `json:"citations" yaml:"citations"`

	// Format is the section's rendering style.
	Format DimensionFormat `json:"format" yaml:"format"`
}

// Answer is the final pipeline output: ordered sections plus the total
// generation cost for the run.
type Answer struct {
	// Query is the research question the answer addresses.
	Query string `json:"query" yaml:"query"`

	// Sections are the generated sections in plan order.
	Sections []GeneratedSection `json:"sections" yaml:"sections"`

	// Cost is the total generation-service cost for the run.
	Cost float64 `json:"cost" yaml:"cost"`

	// CreatedAt is the completion time.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}
