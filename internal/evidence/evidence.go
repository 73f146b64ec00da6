// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evidence locates generated quotes inside their source passages,
// harvests in-span citation mentions, and rewrites citation placeholders
// into resolved author/year form. This is the only stage that mutates quote
// text, and it touches each segment exactly once.
// Implements: prd009-linking (R1-R4).
package evidence

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/answer-engine/internal/aggregate"
	"github.com/pdiddy/answer-engine/internal/metadata"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// segmentDelimiter splits a multi-part quote into segments.
const segmentDelimiter = "..."

// Linker links quotes for one run. Cache and Identities are the run-scoped
// mutable collaborators; everything else is read-only input. Linking is safe
// to parallelize at paper granularity only — segments of one quote are
// rewritten sequentially — but the Linker itself assumes a single
// coordinating goroutine per run.
type Linker struct {
	Fetcher    metadata.Fetcher
	Cache      *metadata.Cache
	Identities *Disambiguator
}

// Result is the linking output for all selected quotes.
type Result struct {
	// Quotes maps reference label to the linked quote.
	Quotes map[string]*types.LinkedQuote

	// InlineLabels maps the bracketed label of each resolved inline
	// citation to its metadata, for the citation formatter.
	InlineLabels map[string]types.PaperMetadata

	// Warnings lists recoverable linking problems.
	Warnings []string
}

// LinkAll links the quotes for every selected reference label, in order.
func (l *Linker) LinkAll(ctx context.Context, records []types.PaperRecord, selected []string, quotes map[string]string) (Result, error) {
	byLabel := make(map[string]*types.PaperRecord, len(records))
	for i := range records {
		byLabel[records[i].ReferenceLabel] = &records[i]
	}

	result := Result{
		Quotes:       make(map[string]*types.LinkedQuote, len(selected)),
		InlineLabels: make(map[string]types.PaperMetadata),
	}

	for _, label := range selected {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		rec, ok := byLabel[label]
		if !ok {
			result.Warnings = append(result.Warnings, fmt.Sprintf("no paper record for label %s", label))
			continue
		}
		quote, ok := quotes[label]
		if !ok {
			result.Warnings = append(result.Warnings, fmt.Sprintf("no quote for label %s", label))
			continue
		}
		linked, warnings := l.linkQuote(ctx, rec, quote, result.InlineLabels)
		result.Quotes[label] = linked
		result.Warnings = append(result.Warnings, warnings...)
	}
	return result, nil
}

// linkQuote splits one quote into segments, links each against the paper's
// passages, then resolves inline citation placeholders to author/year form.
func (l *Linker) linkQuote(ctx context.Context, rec *types.PaperRecord, quote string, inlineLabels map[string]types.PaperMetadata) (*types.LinkedQuote, []string) {
	pieces := strings.Split(quote, segmentDelimiter)
	segments := make([]types.Segment, 0, len(pieces))
	for _, piece := range pieces {
		segments = append(segments, linkSegment(rec, piece))
	}

	var warnings []string

	// Batch-fetch metadata for any inline citation not yet known. A failed
	// fetch degrades to raw corpus-id placeholders, not a failed run.
	mentioned := collectMentions(segments)
	if err := l.Cache.FillMissing(ctx, l.Fetcher, mentioned); err != nil {
		warnings = append(warnings, fmt.Sprintf("inline citation metadata fetch: %v", err))
	}

	for i := range segments {
		for _, id := range segments[i].RefMentions {
			meta, ok := l.Cache.Get(id)
			if !ok {
				warnings = append(warnings, fmt.Sprintf("no metadata for corpus id %d; placeholder retained", id))
				continue
			}
			inlineLabels[InlineLabel(id, meta)] = meta

			// Placeholders exist only in raw-matched segments; fuzzy
			// matches carry the citation as metadata only.
			if segments[i].RawMatch {
				resolved := l.Identities.Resolve(Display(meta), id)
				segments[i].QuoteText = strings.ReplaceAll(segments[i].QuoteText,
					placeholder(id), "("+resolved+")")
			}
		}
	}

	texts := make([]string, len(segments))
	for i, s := range segments {
		texts[i] = s.QuoteText
	}

	return &types.LinkedQuote{
		ReferenceLabel: rec.ReferenceLabel,
		Paper:          rec.Metadata(),
		RelevanceScore: rec.RelevanceScore,
		Text:           strings.Join(texts, segmentDelimiter),
		Segments:       segments,
	}, warnings
}

// linkSegment locates one segment inside the paper, trying passages in
// document order and stopping at the first match. On a raw match each in-span
// citation mention is replaced in place with a "(corpusID)" placeholder,
// tracking the running length delta so later replacements in the same
// segment use corrected offsets.
func linkSegment(rec *types.PaperRecord, piece string) types.Segment {
	seg := types.Segment{QuoteText: strings.TrimSpace(piece)}
	if seg.QuoteText == "" {
		return seg
	}

	for _, sentence := range rec.Sentences {
		m, ok := matchSentence(seg.QuoteText, sentence)
		if !ok {
			continue
		}

		seg.Matched = true
		seg.RawMatch = m.Raw
		seg.SectionTitle = sentence.SectionTitle
		seg.PDFHash = sentence.PDFHash
		seg.Start = m.Start
		seg.End = m.End

		for _, off := range sentence.SentenceOffsets {
			if overlaps(off.Start, off.End, m.Start, m.End) {
				seg.SentenceOffsets = append(seg.SentenceOffsets, off)
			}
		}

		mentions := make([]types.RefMention, 0, len(sentence.RefMentions))
		for _, ref := range sentence.RefMentions {
			if overlaps(ref.Start, ref.End, m.Start, m.End) {
				mentions = append(mentions, ref)
			}
		}
		sort.SliceStable(mentions, func(i, j int) bool { return mentions[i].Start < mentions[j].Start })

		shift := 0
		for _, ref := range mentions {
			seg.RefMentions = append(seg.RefMentions, ref.MatchedCorpusID)
			if !m.Raw {
				// Normalized offsets are not valid indices into the
				// original segment text; collect, do not substitute.
				continue
			}
			start := ref.Start - m.Start + shift
			end := ref.End - m.Start + shift
			if start < 0 {
				start = 0
			}
			if end > len(seg.QuoteText) {
				end = len(seg.QuoteText)
			}
			if end < start {
				end = start
			}
			p := placeholder(ref.MatchedCorpusID)
			seg.QuoteText = seg.QuoteText[:start] + p + seg.QuoteText[end:]
			shift += len(p) - (end - start)
		}
		return seg
	}

	// Abstract/title containment classifies the section without offsets.
	lower := strings.ToLower(seg.QuoteText)
	switch {
	case strings.Contains(strings.ToLower(rec.Abstract), lower):
		seg.Matched = true
		seg.SectionTitle = "abstract"
	case strings.Contains(strings.ToLower(rec.Title), lower):
		seg.Matched = true
		seg.SectionTitle = "title"
	}
	return seg
}

// collectMentions returns the unique corpus ids cited across all segments,
// in first-seen order.
func collectMentions(segments []types.Segment) []int {
	seen := make(map[int]bool)
	var ids []int
	for _, s := range segments {
		for _, id := range s.RefMentions {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// placeholder renders the intermediate corpus-id citation marker.
func placeholder(corpusID int) string {
	return "(" + strconv.Itoa(corpusID) + ")"
}

// InlineLabel renders the bracketed label under which a resolved inline
// citation is known to the formatter. It reuses the reference-label grammar
// without the citation-count field.
func InlineLabel(corpusID int, meta types.PaperMetadata) string {
	return fmt.Sprintf("[%d | %s | %d]", corpusID, aggregate.AuthorToken(meta.Authors), meta.Year)
}
