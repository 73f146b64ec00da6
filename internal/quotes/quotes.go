// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package quotes coordinates per-paper verbatim quote extraction through the
// generation service: it shapes one request per aggregated paper, dispatches
// them on a bounded worker pool, and filters empty or negative responses.
// Implements: prd008-answers (R3).
package quotes

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/pdiddy/answer-engine/internal/genai"
	"github.com/pdiddy/answer-engine/pkg/types"
)

const (
	// noneToken is the literal opt-out reply for irrelevant papers.
	noneToken = "None"

	// minQuoteLen discards responses shorter than this as noise.
	minQuoteLen = 10

	defaultWorkers = 4
)

// Result holds the surviving quotes of one extraction batch, keyed and
// sorted by reference label for determinism.
type Result struct {
	// Labels are the reference labels with quotes, in sorted order.
	Labels []string

	// Quotes maps reference label to the raw quote text.
	Quotes map[string]string

	// Cost is the summed generation cost across all calls, including calls
	// whose responses were filtered out.
	Cost float64
}

// Extract asks the generation service for verbatim supporting quotes from
// each paper, workers papers at a time. Papers whose response is "None",
// empty, or shorter than 10 characters are silently excluded. Per-call
// errors exclude the paper rather than failing the batch.
func Extract(ctx context.Context, client genai.Client, records []types.PaperRecord, query string, workers int) (Result, error) {
	if workers <= 0 {
		workers = defaultWorkers
	}

	type outcome struct {
		label string
		quote string
		cost  float64
		ok    bool
	}

	jobs := make(chan types.PaperRecord)
	outcomes := make(chan outcome, len(records))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range jobs {
				resp, err := client.Generate(ctx, genai.Request{
					SystemPrompt: extractionSystemPrompt,
					UserPrompt:   userPrompt(query, rec.FullText),
				})
				if err != nil {
					outcomes <- outcome{label: rec.ReferenceLabel}
					continue
				}
				quote, ok := filterQuote(resp.Content)
				outcomes <- outcome{label: rec.ReferenceLabel, quote: quote, cost: resp.Cost, ok: ok}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, rec := range records {
			select {
			case jobs <- rec:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	result := Result{Quotes: make(map[string]string)}
	for o := range outcomes {
		result.Cost += o.cost
		if o.ok {
			result.Quotes[o.label] = o.quote
		}
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	for label := range result.Quotes {
		result.Labels = append(result.Labels, label)
	}
	sort.Strings(result.Labels)
	return result, nil
}

// filterQuote applies the response contract: "None" (with or without
// trailing whitespace or a continuation line) and sub-10-character replies
// are discarded.
func filterQuote(content string) (string, bool) {
	quote := strings.TrimSpace(content)
	if quote == noneToken || strings.HasPrefix(quote, noneToken+"\n") || strings.HasPrefix(quote, noneToken+" ") {
		return "", false
	}
	if len(quote) < minQuoteLen {
		return "", false
	}
	return quote, true
}
