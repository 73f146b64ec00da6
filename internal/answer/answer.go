// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package answer composes the pipeline stages into one run: aggregate
// retrieval output, extract quotes, plan dimensions, link evidence,
// synthesize sections, and format citations. Each stage returns a new value;
// the metadata cache and the citation identity map are the only mutable
// state crossing stage boundaries, owned by a run-scoped context and written
// by the single coordinating goroutine.
// Implements: prd008-answers (R1, R6); prd009-linking; prd010-formatting.
package answer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pdiddy/answer-engine/internal/aggregate"
	"github.com/pdiddy/answer-engine/internal/cite"
	"github.com/pdiddy/answer-engine/internal/evidence"
	"github.com/pdiddy/answer-engine/internal/genai"
	"github.com/pdiddy/answer-engine/internal/metadata"
	"github.com/pdiddy/answer-engine/internal/plan"
	"github.com/pdiddy/answer-engine/internal/quotes"
	"github.com/pdiddy/answer-engine/internal/synth"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// Fatal run outcomes.
var (
	// ErrNoQuotes means no paper produced a usable quote, leaving no basis
	// for an answer.
	ErrNoQuotes = errors.New("no papers produced usable quotes")

	// ErrEmptyPlan means the plan assigns no quotes to any dimension,
	// violating the planning contract.
	ErrEmptyPlan = errors.New("answer plan assigns no quotes to any dimension")

	// ErrTimeout means the run exceeded its wall-clock budget; partial
	// section output is discarded.
	ErrTimeout = errors.New("answer run exceeded its wall-clock budget")
)

// Deps are the external collaborators for one run.
type Deps struct {
	// Generator is the text-generation service client.
	Generator genai.Client

	// Metadata is the paper-metadata fetch client.
	Metadata metadata.Fetcher
}

// RunContext owns the per-run mutable collaborators. Both maps are
// append-only and assume a single writer per run.
type RunContext struct {
	Cache      *metadata.Cache
	Identities *evidence.Disambiguator
}

// NewRunContext seeds the metadata cache with the retrieval output's
// metadata map.
func NewRunContext(seed map[int]types.PaperMetadata) *RunContext {
	return &RunContext{
		Cache:      metadata.NewCache(seed),
		Identities: evidence.NewDisambiguator(),
	}
}

// Run executes the full pipeline for one query. Progress and recoverable
// warnings go to w; fatal conditions return one of the sentinel errors above
// or a wrapped stage error. On timeout no partial section set is returned.
func Run(ctx context.Context, deps Deps, cfg types.AnswerConfig, query string, retrieval types.RetrievalOutput, w io.Writer) (*types.Answer, error) {
	if cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RunTimeout)
		defer cancel()
	}

	run := NewRunContext(retrieval.Metadata)

	records, aggSummary := aggregate.Aggregate(retrieval.Passages, retrieval.Metadata, cfg.ContextThreshold)
	fmt.Fprintf(w, "aggregated %d papers (%d below threshold, %d without metadata)\n",
		aggSummary.Kept, aggSummary.BelowThreshold, aggSummary.NoMetadata)

	extracted, err := quotes.Extract(ctx, deps.Generator, records, query, cfg.Workers)
	if err != nil {
		return nil, timeoutErr(ctx, fmt.Errorf("quote extraction: %w", err))
	}
	totalCost := extracted.Cost
	fmt.Fprintf(w, "extracted quotes from %d of %d papers\n", len(extracted.Labels), len(records))
	if len(extracted.Labels) == 0 {
		return nil, ErrNoQuotes
	}

	p, planCost, err := plan.Build(ctx, deps.Generator, query, extracted.Labels, extracted.Quotes)
	totalCost += planCost
	if err != nil {
		return nil, timeoutErr(ctx, err)
	}
	if plan.Empty(p) {
		return nil, ErrEmptyPlan
	}

	validated := validatePlan(p, len(extracted.Labels), w)
	selected := selectedLabels(validated, extracted.Labels)

	linker := &evidence.Linker{Fetcher: deps.Metadata, Cache: run.Cache, Identities: run.Identities}
	linked, err := linker.LinkAll(ctx, records, selected, extracted.Quotes)
	if err != nil {
		return nil, timeoutErr(ctx, fmt.Errorf("evidence linking: %w", err))
	}
	warn(w, linked.Warnings)

	formatter := &cite.Formatter{
		Quotes:     linked.Quotes,
		Inline:     linked.InlineLabels,
		Identities: run.Identities,
		InlineTags: cfg.InlineTags,
	}

	gen := synth.NewGenerator(deps.Generator, query, validated, extracted.Labels, linked.Quotes)

	var sections []types.GeneratedSection
	for {
		draft, err := gen.Next(ctx)
		if err != nil {
			return nil, timeoutErr(ctx, err)
		}
		if draft == nil {
			break
		}
		totalCost += draft.Cost

		section, warnings, err := formatter.Format(draft.Text, draft.Dimension.Format)
		if err != nil {
			// The raw text in the error indicates a generation-service
			// contract violation; preserve it for diagnosis.
			return nil, timeoutErr(ctx, fmt.Errorf("formatting section %q: %w", draft.Dimension.Name, err))
		}
		warn(w, warnings)
		sections = append(sections, section)
		fmt.Fprintf(w, "wrote section %q (%d citations)\n", section.Title, len(section.Citations))
	}

	return &types.Answer{
		Query:     query,
		Sections:  sections,
		Cost:      totalCost,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// validatePlan drops quote indices outside the label snapshot, warning for
// each. Out-of-range indices are recoverable, never fatal.
func validatePlan(p types.Plan, snapshotLen int, w io.Writer) types.Plan {
	out := types.Plan{Justification: p.Justification}
	for _, d := range p.Dimensions {
		kept := types.Dimension{Name: d.Name, Format: d.Format}
		for _, idx := range d.QuoteIndices {
			if idx < 0 || idx >= snapshotLen {
				fmt.Fprintf(w, "warning: dimension %q references quote index %d outside snapshot of %d quotes; skipped\n",
					d.Name, idx, snapshotLen)
				continue
			}
			kept.QuoteIndices = append(kept.QuoteIndices, idx)
		}
		out.Dimensions = append(out.Dimensions, kept)
	}
	return out
}

// selectedLabels returns the labels referenced by any dimension, in snapshot
// order.
func selectedLabels(p types.Plan, labels []string) []string {
	referenced := make(map[int]bool)
	for _, d := range p.Dimensions {
		for _, idx := range d.QuoteIndices {
			referenced[idx] = true
		}
	}
	var out []string
	for i, label := range labels {
		if referenced[i] {
			out = append(out, label)
		}
	}
	return out
}

// timeoutErr maps deadline expiry onto the run's timeout error kind.
func timeoutErr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

// warn prints recoverable warnings.
func warn(w io.Writer, warnings []string) {
	for _, msg := range warnings {
		fmt.Fprintf(w, "warning: %s\n", msg)
	}
}
