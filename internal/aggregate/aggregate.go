// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package aggregate merges scored retrieval passages into one record per
// paper, with Markdown full text and a citation-safe reference label.
// Implements: prd008-answers (R2).
package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// Summary holds counts from one aggregation pass.
type Summary struct {
	Kept           int
	BelowThreshold int
	NoMetadata     int
}

// Total returns the number of distinct papers seen.
func (s Summary) Total() int {
	return s.Kept + s.BelowThreshold + s.NoMetadata
}

// Aggregate groups passages by corpus id into PaperRecords. Each record keeps
// the maximum passage score seen for the paper and its passages in insertion
// order. Papers without metadata are silently dropped; papers whose
// aggregated relevance falls below threshold are filtered out. Records are
// returned sorted by reference label for determinism.
func Aggregate(passages []types.ScoredPassage, meta map[int]types.PaperMetadata, threshold float64) ([]types.PaperRecord, Summary) {
	byPaper := make(map[int]*types.PaperRecord)
	var order []int

	for _, p := range passages {
		rec, ok := byPaper[p.CorpusID]
		if !ok {
			m, found := meta[p.CorpusID]
			if !found {
				// No usable metadata; drop the paper, not the run.
				byPaper[p.CorpusID] = nil
				order = append(order, p.CorpusID)
				continue
			}
			rec = &types.PaperRecord{
				CorpusID:      p.CorpusID,
				Title:         m.Title,
				Venue:         m.Venue,
				Year:          m.Year,
				Authors:       m.Authors,
				Abstract:      m.Abstract,
				CitationCount: m.CitationCount,
				IsOpenAccess:  m.IsOpenAccess,
			}
			byPaper[p.CorpusID] = rec
			order = append(order, p.CorpusID)
		}
		if rec == nil {
			continue
		}
		if p.Score > rec.RelevanceScore {
			rec.RelevanceScore = p.Score
		}
		rec.Sentences = append(rec.Sentences, p.Sentence)
	}

	var summary Summary
	var records []types.PaperRecord
	for _, id := range order {
		rec := byPaper[id]
		if rec == nil {
			summary.NoMetadata++
			continue
		}
		if rec.RelevanceScore < threshold {
			summary.BelowThreshold++
			continue
		}
		rec.ReferenceLabel = ReferenceLabel(rec.CorpusID, rec.Authors, rec.Year, rec.CitationCount)
		rec.FullText = buildFullText(rec.Title, rec.Sentences)
		records = append(records, *rec)
		summary.Kept++
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].ReferenceLabel < records[j].ReferenceLabel
	})
	return records, summary
}

// ReferenceLabel renders the composite citation key
// "[corpus_id | lead_author | year | citations]". The author token is the
// lead author's surname, with "et al." appended for multi-author papers,
// or "NULL" when the author list is empty.
func ReferenceLabel(corpusID int, authors []string, year, citations int) string {
	return fmt.Sprintf("[%d | %s | %d | %d]", corpusID, AuthorToken(authors), year, citations)
}

// AuthorToken returns the lead-author surname token used in reference labels.
func AuthorToken(authors []string) string {
	if len(authors) == 0 {
		return "NULL"
	}
	surname := leadSurname(authors[0])
	if len(authors) > 1 {
		return surname + " et al."
	}
	return surname
}

// leadSurname takes the last whitespace-separated word of a display name.
func leadSurname(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "NULL"
	}
	return fields[len(fields)-1]
}

// excludedSections are omitted from the Markdown body; the abstract is
// carried separately on the record and the title heads the document.
var excludedSections = map[string]bool{
	"abstract": true,
	"title":    true,
}

// buildFullText renders the paper's passages as Markdown, grouped by section
// in document order (by character start offset within each group).
func buildFullText(title string, sentences []types.SentenceSpan) string {
	ordered := make([]types.SentenceSpan, len(sentences))
	copy(ordered, sentences)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CharStartOffset < ordered[j].CharStartOffset
	})

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", title)

	current := ""
	for _, s := range ordered {
		section := s.SectionTitle
		if excludedSections[strings.ToLower(strings.TrimSpace(section))] {
			continue
		}
		if section != current {
			fmt.Fprintf(&b, "\n## %s\n\n", section)
			current = section
		}
		b.WriteString(s.Text)
		b.WriteString("\n")
	}
	return b.String()
}
