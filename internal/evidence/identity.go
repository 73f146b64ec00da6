// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"fmt"
	"strings"

	"github.com/pdiddy/answer-engine/internal/aggregate"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// Disambiguator resolves citation display strings to unique labels within
// one run. Two different corpus ids can render to the same author/year
// display; the first keeps the plain label and every subsequent distinct
// corpus id gets a numeric suffix appended to the author token. Entries are
// created lazily and persist for the remainder of the run; single writer
// per run.
type Disambiguator struct {
	byDisplay map[string]map[int]string
}

// NewDisambiguator returns an empty identity map.
func NewDisambiguator() *Disambiguator {
	return &Disambiguator{byDisplay: make(map[string]map[int]string)}
}

// Resolve returns the unique label for (display, corpusID). The suffix is
// appended to the author token only; trailing comma-delimited fields are
// preserved unchanged ("Doe, 2024" → "Doe_1, 2024").
func (d *Disambiguator) Resolve(display string, corpusID int) string {
	ids, ok := d.byDisplay[display]
	if !ok {
		d.byDisplay[display] = map[int]string{corpusID: display}
		return display
	}
	if label, ok := ids[corpusID]; ok {
		return label
	}

	label := suffixAuthor(display, len(ids))
	ids[corpusID] = label
	return label
}

// suffixAuthor appends _n to the author token of a display string.
func suffixAuthor(display string, n int) string {
	author, rest, found := strings.Cut(display, ",")
	label := fmt.Sprintf("%s_%d", author, n)
	if found {
		label += "," + rest
	}
	return label
}

// Display renders a paper's author/year citation string ("Doe et al., 2024").
func Display(meta types.PaperMetadata) string {
	return fmt.Sprintf("%s, %d", aggregate.AuthorToken(meta.Authors), meta.Year)
}
