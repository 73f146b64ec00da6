// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/pdiddy/answer-engine/internal/httputil"
	"github.com/pdiddy/answer-engine/internal/ratelimit"
	"github.com/pdiddy/answer-engine/pkg/types"
)

const semanticFields = "title,abstract,authors,year,venue,citationCount,isOpenAccess,openAccessPdf,externalIds"

// SemanticScholar fetches paper metadata from the Semantic Scholar batch
// endpoint, keyed by corpus id.
type SemanticScholar struct {
	Client  *http.Client
	Config  types.MetadataConfig
	Limiter *ratelimit.Limiter

	// BaseURL is the paper batch endpoint. A struct field so tests can
	// substitute an httptest server.
	BaseURL string
}

// NewSemanticScholar builds a fetcher with a default HTTP client honoring
// the configured timeout.
func NewSemanticScholar(cfg types.MetadataConfig, limiter *ratelimit.Limiter) *SemanticScholar {
	return &SemanticScholar{
		Client:  &http.Client{Timeout: cfg.Timeout},
		Config:  cfg,
		Limiter: limiter,
		BaseURL: "https://api.semanticscholar.org/graph/v1/paper/batch",
	}
}

// FetchPapers looks up metadata for the given corpus ids. An empty input
// short-circuits to an empty map without a network call.
func (s *SemanticScholar) FetchPapers(ctx context.Context, corpusIDs []int) (map[int]types.PaperMetadata, error) {
	result := make(map[int]types.PaperMetadata)
	if len(corpusIDs) == 0 {
		return result, nil
	}

	if err := s.Limiter.Wait(ctx, 0); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(corpusIDs))
	for _, id := range corpusIDs {
		ids = append(ids, "CorpusId:"+strconv.Itoa(id))
	}

	body, err := json.Marshal(map[string]any{"ids": ids})
	if err != nil {
		return nil, fmt.Errorf("encoding batch request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.BaseURL+"?fields="+semanticFields, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", s.Config.UserAgent)
	if s.Config.APIKey != "" {
		req.Header.Set("x-api-key", s.Config.APIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, s.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Semantic Scholar batch request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Semantic Scholar API returned HTTP %d", resp.StatusCode)
	}

	var papers []*semanticPaper
	if err := json.NewDecoder(resp.Body).Decode(&papers); err != nil {
		return nil, fmt.Errorf("parsing batch response: %w", err)
	}

	// The batch endpoint returns null entries for unknown ids, positionally
	// aligned with the request.
	for i, paper := range papers {
		if paper == nil || i >= len(corpusIDs) {
			continue
		}
		m := types.PaperMetadata{
			CorpusID:      corpusIDs[i],
			Title:         paper.Title,
			Abstract:      paper.Abstract,
			Year:          paper.Year,
			Venue:         paper.Venue,
			CitationCount: paper.CitationCount,
			IsOpenAccess:  paper.IsOpenAccess,
		}
		if paper.ExternalIDs.CorpusID != 0 {
			m.CorpusID = paper.ExternalIDs.CorpusID
		}
		for _, a := range paper.Authors {
			m.Authors = append(m.Authors, a.Name)
		}
		if paper.OpenAccessPDF != nil {
			m.OpenAccessPDF = paper.OpenAccessPDF.URL
		}
		result[m.CorpusID] = m
	}
	return result, nil
}

// Semantic Scholar API JSON structures.
type semanticPaper struct {
	Title         string              `json:"title"`
	Abstract      string              `json:"abstract"`
	Year          int                 `json:"year"`
	Venue         string              `json:"venue"`
	CitationCount int                 `json:"citationCount"`
	IsOpenAccess  bool                `json:"isOpenAccess"`
	Authors       []semanticAuthor    `json:"authors"`
	OpenAccessPDF *semanticOAPDF      `json:"openAccessPdf"`
	ExternalIDs   semanticExternalIDs `json:"externalIds"`
}

type semanticAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type semanticOAPDF struct {
	URL string `json:"url"`
}

type semanticExternalIDs struct {
	DOI      string `json:"DOI"`
	ArXiv    string `json:"ArXiv"`
	CorpusID int    `json:"CorpusId"`
}
