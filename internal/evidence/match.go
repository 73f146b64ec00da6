// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"strings"
	"unicode"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// matchResult locates a segment inside one source passage. Start and End are
// byte offsets into the passage text for raw matches, or into its
// alphabetic-only projection for normalized matches.
type matchResult struct {
	Start int
	End   int

	// Raw reports an exact substring match. Offset-shift rewriting is only
	// valid for raw matches.
	Raw bool
}

// matchSentence tries the ranked matcher strategies against one passage:
// exact case-insensitive substring search first, then the normalized-alpha
// fallback that tolerates punctuation and whitespace drift.
func matchSentence(segment string, sentence types.SentenceSpan) (matchResult, bool) {
	if m, ok := matchExact(segment, sentence.Text); ok {
		return m, true
	}
	return matchNormalized(segment, sentence.Text)
}

// matchExact performs a case-insensitive substring search.
func matchExact(segment, text string) (matchResult, bool) {
	idx := strings.Index(strings.ToLower(text), strings.ToLower(segment))
	if idx < 0 {
		return matchResult{}, false
	}
	return matchResult{Start: idx, End: idx + len(segment), Raw: true}, true
}

// matchNormalized strips all non-alphabetic characters from both sides and
// searches the projections. The concatenated alphabetic string carries no
// word separators, so a match can in principle span adjacent words that
// share a letter run; the resulting offsets are therefore only used to
// intersect provenance ranges, never to rewrite the segment text.
func matchNormalized(segment, text string) (matchResult, bool) {
	normSeg := alphaOnly(segment)
	if normSeg == "" {
		return matchResult{}, false
	}
	idx := strings.Index(alphaOnly(text), normSeg)
	if idx < 0 {
		return matchResult{}, false
	}
	return matchResult{Start: idx, End: idx + len(normSeg), Raw: false}, true
}

// alphaOnly lowercases and drops every non-letter rune.
func alphaOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// overlaps reports whether [start, end) intersects the matched range
// [matchStart, matchEnd) at all: fully contained, partially overlapping at
// either edge, or fully containing it.
func overlaps(start, end, matchStart, matchEnd int) bool {
	return start < matchEnd && end > matchStart
}
