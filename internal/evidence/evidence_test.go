package evidence

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pdiddy/answer-engine/internal/metadata"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// mapFetcher serves metadata from a fixed map and counts calls.
type mapFetcher struct {
	papers map[int]types.PaperMetadata
	calls  int
	err    error
}

func (f *mapFetcher) FetchPapers(_ context.Context, corpusIDs []int) (map[int]types.PaperMetadata, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[int]types.PaperMetadata)
	for _, id := range corpusIDs {
		if p, ok := f.papers[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func newLinker(f metadata.Fetcher) *Linker {
	return &Linker{
		Fetcher:    f,
		Cache:      metadata.NewCache(nil),
		Identities: NewDisambiguator(),
	}
}

// sourceRecord builds a one-paper fixture. The passage text
// "Deep nets generalize well (Doe 2024) across tasks." carries one citation
// mention at bytes [26, 36).
func sourceRecord() types.PaperRecord {
	return types.PaperRecord{
		CorpusID:       1000,
		Title:          "Generalization in Deep Networks",
		Abstract:       "We study why deep nets generalize at all.",
		Authors:        []string{"Ann Smith"},
		Year:           2024,
		CitationCount:  10,
		ReferenceLabel: "[1000 | Smith | 2024 | 10]",
		Sentences: []types.SentenceSpan{
			{
				Text:            "Deep nets generalize well (Doe 2024) across tasks.",
				SectionTitle:    "Results",
				PDFHash:         "abc123",
				CharStartOffset: 500,
				SentenceOffsets: []types.Offset{{Start: 0, End: 51}},
				RefMentions:     []types.RefMention{{MatchedCorpusID: 555, Start: 26, End: 36}},
			},
		},
	}
}

func doeMeta() map[int]types.PaperMetadata {
	return map[int]types.PaperMetadata{
		555: {CorpusID: 555, Title: "Cited Work", Authors: []string{"Jane Doe"}, Year: 2024, CitationCount: 40},
	}
}

func TestLinkQuoteRewritesInlineCitation(t *testing.T) {
	fetcher := &mapFetcher{papers: doeMeta()}
	l := newLinker(fetcher)
	rec := sourceRecord()

	quotes := map[string]string{rec.ReferenceLabel: "generalize well (Doe 2024) across tasks"}
	result, err := l.LinkAll(context.Background(), []types.PaperRecord{rec}, []string{rec.ReferenceLabel}, quotes)
	if err != nil {
		t.Fatalf("LinkAll: %v", err)
	}

	linked := result.Quotes[rec.ReferenceLabel]
	if linked == nil {
		t.Fatal("quote missing from result")
	}
	if linked.Text != "generalize well (Doe, 2024) across tasks" {
		t.Errorf("text = %q, want inline citation resolved to author/year", linked.Text)
	}

	seg := linked.Segments[0]
	if !seg.Matched || !seg.RawMatch {
		t.Errorf("segment not raw-matched: %+v", seg)
	}
	if seg.SectionTitle != "Results" || seg.PDFHash != "abc123" {
		t.Errorf("provenance lost: %+v", seg)
	}
	if len(seg.RefMentions) != 1 || seg.RefMentions[0] != 555 {
		t.Errorf("ref mentions = %v, want [555]", seg.RefMentions)
	}

	if _, ok := result.InlineLabels["[555 | Doe | 2024]"]; !ok {
		t.Errorf("inline label not registered: %v", result.InlineLabels)
	}
}

func TestLinkQuoteKeepsPlaceholderWithoutMetadata(t *testing.T) {
	fetcher := &mapFetcher{} // knows nothing
	l := newLinker(fetcher)
	rec := sourceRecord()

	quotes := map[string]string{rec.ReferenceLabel: "generalize well (Doe 2024) across tasks"}
	result, err := l.LinkAll(context.Background(), []types.PaperRecord{rec}, []string{rec.ReferenceLabel}, quotes)
	if err != nil {
		t.Fatalf("LinkAll: %v", err)
	}

	linked := result.Quotes[rec.ReferenceLabel]
	if !strings.Contains(linked.Text, "(555)") {
		t.Errorf("text = %q, want raw corpus-id placeholder retained", linked.Text)
	}
	if len(result.Warnings) == 0 {
		t.Error("missing warning for unresolvable corpus id")
	}
}

func TestLinkQuoteFetchFailureDegrades(t *testing.T) {
	fetcher := &mapFetcher{err: errors.New("service down")}
	l := newLinker(fetcher)
	rec := sourceRecord()

	quotes := map[string]string{rec.ReferenceLabel: "generalize well (Doe 2024) across tasks"}
	result, err := l.LinkAll(context.Background(), []types.PaperRecord{rec}, []string{rec.ReferenceLabel}, quotes)
	if err != nil {
		t.Fatalf("LinkAll should not fail on a metadata fetch error: %v", err)
	}
	if !strings.Contains(result.Quotes[rec.ReferenceLabel].Text, "(555)") {
		t.Error("placeholder lost on degraded fetch")
	}
	if len(result.Warnings) < 1 {
		t.Error("fetch failure produced no warning")
	}
}

func TestLinkQuoteSegmentRoundTrip(t *testing.T) {
	fetcher := &mapFetcher{papers: doeMeta()}
	l := newLinker(fetcher)
	rec := sourceRecord()
	rec.Sentences = append(rec.Sentences, types.SentenceSpan{
		Text:            "Our second experiment confirms the effect on held-out data.",
		SectionTitle:    "Results",
		CharStartOffset: 900,
	})

	quote := "generalize well (Doe 2024) across tasks...confirms the effect on held-out data"
	quotes := map[string]string{rec.ReferenceLabel: quote}
	result, err := l.LinkAll(context.Background(), []types.PaperRecord{rec}, []string{rec.ReferenceLabel}, quotes)
	if err != nil {
		t.Fatalf("LinkAll: %v", err)
	}

	linked := result.Quotes[rec.ReferenceLabel]
	if len(linked.Segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(linked.Segments))
	}
	// Splitting the rewritten text yields the same number of segments.
	if parts := strings.Split(linked.Text, "..."); len(parts) != 2 {
		t.Errorf("rejoined text splits into %d parts, want 2: %q", len(parts), linked.Text)
	}
	if !linked.Segments[1].Matched {
		t.Error("second segment should match the second passage")
	}
}

func TestLinkSegmentNormalizedCollectsWithoutRewriting(t *testing.T) {
	rec := types.PaperRecord{
		ReferenceLabel: "[2000 | Roe | 2023 | 5]",
		Sentences: []types.SentenceSpan{{
			Text:         "See (Doe 2024) deep nets generalize well.",
			SectionTitle: "Discussion",
			RefMentions:  []types.RefMention{{MatchedCorpusID: 555, Start: 4, End: 14}},
		}},
	}

	// Punctuation drift defeats the exact matcher but not the normalized one.
	seg := linkSegment(&rec, "deep-nets generalize; well!")
	if !seg.Matched {
		t.Fatal("normalized fallback did not match")
	}
	if seg.RawMatch {
		t.Fatal("punctuation-drifted segment reported as raw match")
	}
	if seg.QuoteText != "deep-nets generalize; well!" {
		t.Errorf("fuzzy-matched text was rewritten: %q", seg.QuoteText)
	}
	if len(seg.RefMentions) != 1 || seg.RefMentions[0] != 555 {
		t.Errorf("mention not collected on fuzzy match: %v", seg.RefMentions)
	}
}

func TestLinkSegmentAbstractContainment(t *testing.T) {
	rec := types.PaperRecord{
		Abstract:       "We study why deep nets generalize at all.",
		Title:          "Generalization in Deep Networks",
		ReferenceLabel: "[3000 | NULL | 2022 | 0]",
	}

	seg := linkSegment(&rec, "why deep nets generalize")
	if !seg.Matched {
		t.Fatal("abstract containment did not match")
	}
	if seg.SectionTitle != "abstract" {
		t.Errorf("section = %q, want abstract", seg.SectionTitle)
	}
	if seg.RawMatch {
		t.Error("abstract containment must not enable offset rewriting")
	}

	seg = linkSegment(&rec, "generalization in deep networks")
	if !seg.Matched || seg.SectionTitle != "title" {
		t.Errorf("title containment: %+v", seg)
	}
}

func TestLinkSegmentUnmatchedPreserved(t *testing.T) {
	rec := sourceRecord()
	seg := linkSegment(&rec, "a phrase the paper never says")
	if seg.Matched {
		t.Fatal("unexpected match")
	}
	if seg.QuoteText != "a phrase the paper never says" {
		t.Errorf("unmatched text altered: %q", seg.QuoteText)
	}
}

func TestLinkSegmentClampsPartialMentionOverlap(t *testing.T) {
	rec := types.PaperRecord{
		ReferenceLabel: "[4000 | Poe | 2021 | 2]",
		Sentences: []types.SentenceSpan{{
			Text:         "(Doe 2024) extra quoted words here.",
			SectionTitle: "Methods",
			// The mention range spills into the matched span.
			RefMentions: []types.RefMention{{MatchedCorpusID: 777, Start: 0, End: 16}},
		}},
	}

	seg := linkSegment(&rec, "extra quoted words")
	if !seg.Matched || !seg.RawMatch {
		t.Fatalf("segment not raw-matched: %+v", seg)
	}
	if !strings.HasPrefix(seg.QuoteText, "(777)") {
		t.Errorf("clamped substitution wrong: %q", seg.QuoteText)
	}
}

func TestLinkAllWarnsOnMissingRecordOrQuote(t *testing.T) {
	l := newLinker(&mapFetcher{})
	rec := sourceRecord()

	quotes := map[string]string{} // no quote for the label
	result, err := l.LinkAll(context.Background(), []types.PaperRecord{rec},
		[]string{rec.ReferenceLabel, "[9 | Ghost | 1999 | 0]"}, quotes)
	if err != nil {
		t.Fatalf("LinkAll: %v", err)
	}
	if len(result.Quotes) != 0 {
		t.Errorf("quotes = %v, want none linked", result.Quotes)
	}
	if len(result.Warnings) != 2 {
		t.Errorf("warnings = %v, want one per unlinkable label", result.Warnings)
	}
}

func TestMatchExactCaseInsensitive(t *testing.T) {
	m, ok := matchExact("Deep Nets", "the deep nets won")
	if !ok {
		t.Fatal("case-insensitive match failed")
	}
	if m.Start != 4 || m.End != 13 {
		t.Errorf("range = [%d, %d), want [4, 13)", m.Start, m.End)
	}
	if !m.Raw {
		t.Error("exact match must be raw")
	}
}

func TestMatchNormalizedEmptySegment(t *testing.T) {
	if _, ok := matchNormalized("... 42 --", "anything"); ok {
		t.Error("segment with no letters should never match")
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name                 string
		start, end           int
		matchStart, matchEnd int
		want                 bool
	}{
		{"contained", 5, 8, 0, 10, true},
		{"containing", 0, 10, 5, 8, true},
		{"left edge", 0, 6, 5, 10, true},
		{"right edge", 9, 15, 5, 10, true},
		{"adjacent left", 0, 5, 5, 10, false},
		{"adjacent right", 10, 15, 5, 10, false},
		{"disjoint", 20, 30, 5, 10, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := overlaps(tt.start, tt.end, tt.matchStart, tt.matchEnd); got != tt.want {
				t.Errorf("overlaps(%d,%d,%d,%d) = %v, want %v",
					tt.start, tt.end, tt.matchStart, tt.matchEnd, got, tt.want)
			}
		})
	}
}
