// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Offset marks a half-open byte range [Start, End) inside a passage text.
type Offset struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// RefMention records a citation mentioned inside a passage, with byte offsets
// local to the passage text. Invariant: Start < End <= len(text).
// Per prd009-linking R1.3.
type RefMention struct {
	// MatchedCorpusID is the corpus id of the cited paper.
	MatchedCorpusID int `json:"matched_corpus_id" yaml:"matched_corpus_id"`

	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// SentenceSpan is one sentence-level passage of a source paper, carrying the
// provenance data the evidence linker matches quotes against.
// Per prd009-linking R1.1-R1.3.
type SentenceSpan struct {
	// Text is the passage text.
	Text string `json:"text" yaml:"text"`

	// SectionTitle names the paper section the passage came from.
	SectionTitle string `json:"section_title" yaml:"section_title"`

	// PDFHash identifies the source PDF the passage was parsed from.
	PDFHash string `json:"pdf_hash" yaml:"pdf_hash"`

	// CharStartOffset is the passage's character position in the full paper,
	// used to order passages into document order.
	CharStartOffset int `json:"char_start_offset" yaml:"char_start_offset"`

	// SentenceOffsets are sub-sentence ranges within Text.
	SentenceOffsets []Offset `json:"sentence_offsets" yaml:"sentence_offsets"`

	// RefMentions are citations mentioned within Text.
	RefMentions []RefMention `json:"ref_mentions" yaml:"ref_mentions"`
}

// ScoredPassage is one retrieval result: a sentence-level passage of a paper
// with its reranker relevance score. This is the output shape of the external
// retrieval collaborator.
type ScoredPassage struct {
	// CorpusID identifies the source paper.
	CorpusID int `json:"corpus_id" yaml:"corpus_id"`

	// Score is the reranker relevance score for this passage.
	Score float64 `json:"score" yaml:"score"`

	// Sentence carries the passage text and provenance data.
	Sentence SentenceSpan `json:"sentence" yaml:"sentence"`
}

// PaperMetadata holds bibliographic metadata for one paper, as returned by
// the external metadata-fetch collaborator.
type PaperMetadata struct {
	// CorpusID is the paper's corpus identifier.
	CorpusID int `json:"corpus_id" yaml:"corpus_id"`

	// Title is the paper title.
	Title string `json:"title" yaml:"title"`

	// Abstract is the paper abstract.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Authors lists author display names in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Year is the publication year.
	Year int `json:"year" yaml:"year"`

	// Venue is the journal or conference.
	Venue string `json:"venue,omitempty" yaml:"venue,omitempty"`

	// CitationCount is the paper's citation count at fetch time.
	CitationCount int `json:"citation_count" yaml:"citation_count"`

	// IsOpenAccess reports whether an open-access copy exists.
	IsOpenAccess bool `json:"is_open_access" yaml:"is_open_access"`

	// OpenAccessPDF is the open-access PDF URL, when available.
	OpenAccessPDF string `json:"open_access_pdf,omitempty" yaml:"open_access_pdf,omitempty"`
}

// PaperRecord merges all retrieved passages of one paper into a single
// record. Immutable once aggregation completes. Per prd008-answers R2.
type PaperRecord struct {
	// CorpusID identifies the paper.
	CorpusID int `json:"corpus_id" yaml:"corpus_id"`

	// Title is the paper title.
	Title string `json:"title" yaml:"title"`

	// Venue is the journal or conference.
	Venue string `json:"venue,omitempty" yaml:"venue,omitempty"`

	// Year is the publication year.
	Year int `json:"year" yaml:"year"`

	// Authors lists author display names.
	Authors []string `json:"authors" yaml:"authors"`

	// Abstract is the paper abstract.
	Abstract string `json:"abstract" yaml:"abstract"`

	// CitationCount is the paper's citation count.
	CitationCount int `json:"citation_count" yaml:"citation_count"`

	// IsOpenAccess reports whether an open-access copy exists.
	IsOpenAccess bool `json:"is_open_access" yaml:"is_open_access"`

	// RelevanceScore is the maximum passage score seen for this paper.
	RelevanceScore float64 `json:"relevance_score" yaml:"relevance_score"`

	// Sentences lists the paper's retrieved passages in insertion order.
	Sentences []SentenceSpan `json:"sentences" yaml:"sentences"`

	// ReferenceLabel is the composite citation key
	// "[corpus_id | lead_author | year | citations]", unique per paper
	// within one run and used as a map key everywhere downstream.
	ReferenceLabel string `json:"reference_label" yaml:"reference_label"`

	// FullText is the Markdown rendering of the paper's passages grouped by
	// section, excluding abstract and title sections.
	FullText string `json:"full_text" yaml:"full_text"`
}

// Metadata returns the record's bibliographic fields as a PaperMetadata.
func (p *PaperRecord) Metadata() PaperMetadata {
	return PaperMetadata{
		CorpusID:      p.CorpusID,
		Title:         p.Title,
		Abstract:      p.Abstract,
		Authors:       p.Authors,
		Year:          p.Year,
		Venue:         p.Venue,
		CitationCount: p.CitationCount,
		IsOpenAccess:  p.IsOpenAccess,
	}
}

// RetrievalOutput is the input artifact the pipeline consumes: the scored
// passages and the metadata map produced by the external retrieval and
// metadata collaborators.
type RetrievalOutput struct {
	// Passages are the scored retrieval results.
	Passages []ScoredPassage `json:"passages" yaml:"passages"`

	// Metadata maps corpus id to paper metadata.
	Metadata map[int]PaperMetadata `json:"metadata" yaml:"metadata"`
}
