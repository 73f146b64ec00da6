// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metadata is the client boundary for the external paper-metadata
// service. The evidence linker uses it to resolve inline citation corpus ids
// discovered inside matched quote spans.
package metadata

import (
	"context"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// Fetcher abstracts the metadata service so tests can supply a mock.
// An empty id set must short-circuit to an empty map without a network call.
type Fetcher interface {
	FetchPapers(ctx context.Context, corpusIDs []int) (map[int]types.PaperMetadata, error)
}

// Cache is the per-run append-only corpus-id → metadata map. It is owned by
// one run-scoped context and assumes a single writer per run.
type Cache struct {
	papers map[int]types.PaperMetadata
}

// NewCache builds a Cache seeded with already-known metadata.
func NewCache(seed map[int]types.PaperMetadata) *Cache {
	papers := make(map[int]types.PaperMetadata, len(seed))
	for id, p := range seed {
		papers[id] = p
	}
	return &Cache{papers: papers}
}

// Get returns the cached metadata for a corpus id.
func (c *Cache) Get(corpusID int) (types.PaperMetadata, bool) {
	p, ok := c.papers[corpusID]
	return p, ok
}

// Put records metadata for a corpus id. Entries are never overwritten; the
// first fetch within a run wins.
func (c *Cache) Put(p types.PaperMetadata) {
	if _, ok := c.papers[p.CorpusID]; ok {
		return
	}
	c.papers[p.CorpusID] = p
}

// Missing returns the subset of corpusIDs not yet cached, in input order.
func (c *Cache) Missing(corpusIDs []int) []int {
	var missing []int
	seen := make(map[int]bool)
	for _, id := range corpusIDs {
		if _, ok := c.papers[id]; ok || seen[id] {
			continue
		}
		seen[id] = true
		missing = append(missing, id)
	}
	return missing
}

// FillMissing batch-fetches any uncached ids through the fetcher and records
// the results. A fetch failure leaves the cache untouched so callers degrade
// to raw corpus-id placeholders.
func (c *Cache) FillMissing(ctx context.Context, f Fetcher, corpusIDs []int) error {
	missing := c.Missing(corpusIDs)
	if len(missing) == 0 {
		return nil
	}
	fetched, err := f.FetchPapers(ctx, missing)
	if err != nil {
		return err
	}
	for _, p := range fetched {
		c.Put(p)
	}
	return nil
}
