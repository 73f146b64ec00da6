package metadata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/answer-engine/pkg/types"
)

func testFetcher(serverURL string) *SemanticScholar {
	return &SemanticScholar{
		Client:  &http.Client{Timeout: 5 * time.Second},
		Config:  types.MetadataConfig{APIKey: "ss-key"},
		BaseURL: serverURL,
	}
}

func TestFetchPapersEmptyInputShortCircuits(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	result, err := testFetcher(server.URL).FetchPapers(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result)
	assert.Equal(t, 0, calls, "empty input must not hit the network")
}

func TestFetchPapersBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "ss-key", r.Header.Get("x-api-key"))
		assert.Contains(t, r.URL.RawQuery, "citationCount")

		var body struct {
			IDs []string `json:"ids"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"CorpusId:101", "CorpusId:202", "CorpusId:303"}, body.IDs)

		// Unknown ids come back as null entries, positionally aligned.
		w.Write([]byte(`[
			{"title": "First", "abstract": "A.", "year": 2024, "citationCount": 12,
			 "isOpenAccess": true,
			 "authors": [{"authorId": "1", "name": "Jane Doe"}, {"authorId": "2", "name": "Bob Roe"}],
			 "openAccessPdf": {"url": "https://example.org/p.pdf"},
			 "externalIds": {"CorpusId": 101}},
			null,
			{"title": "Third", "year": 2020, "citationCount": 1,
			 "authors": [{"authorId": "3", "name": "Ann Smith"}],
			 "externalIds": {"CorpusId": 303}}
		]`))
	}))
	defer server.Close()

	result, err := testFetcher(server.URL).FetchPapers(context.Background(), []int{101, 202, 303})
	require.NoError(t, err)
	require.Len(t, result, 2)

	first := result[101]
	assert.Equal(t, "First", first.Title)
	assert.Equal(t, []string{"Jane Doe", "Bob Roe"}, first.Authors)
	assert.Equal(t, 2024, first.Year)
	assert.True(t, first.IsOpenAccess)
	assert.Equal(t, "https://example.org/p.pdf", first.OpenAccessPDF)

	_, ok := result[202]
	assert.False(t, ok, "null entry must be skipped, not zero-filled")
	assert.Equal(t, "Third", result[303].Title)
}

func TestFetchPapersHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := testFetcher(server.URL).FetchPapers(context.Background(), []int{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestCachePutFirstWins(t *testing.T) {
	c := NewCache(nil)
	c.Put(types.PaperMetadata{CorpusID: 7, Title: "Original"})
	c.Put(types.PaperMetadata{CorpusID: 7, Title: "Replacement"})

	got, ok := c.Get(7)
	require.True(t, ok)
	assert.Equal(t, "Original", got.Title)
}

func TestCacheMissing(t *testing.T) {
	c := NewCache(map[int]types.PaperMetadata{1: {CorpusID: 1}})
	missing := c.Missing([]int{1, 2, 3, 2})
	assert.Equal(t, []int{2, 3}, missing, "deduplicated, input order, cached ids skipped")
}

type fixedFetcher struct {
	papers map[int]types.PaperMetadata
	calls  int
}

func (f *fixedFetcher) FetchPapers(_ context.Context, ids []int) (map[int]types.PaperMetadata, error) {
	f.calls++
	out := make(map[int]types.PaperMetadata)
	for _, id := range ids {
		if p, ok := f.papers[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func TestCacheFillMissing(t *testing.T) {
	f := &fixedFetcher{papers: map[int]types.PaperMetadata{2: {CorpusID: 2, Title: "Fetched"}}}
	c := NewCache(map[int]types.PaperMetadata{1: {CorpusID: 1, Title: "Seeded"}})

	require.NoError(t, c.FillMissing(context.Background(), f, []int{1, 2}))
	assert.Equal(t, 1, f.calls)

	got, ok := c.Get(2)
	require.True(t, ok)
	assert.Equal(t, "Fetched", got.Title)

	// Fully cached input makes no fetch at all.
	require.NoError(t, c.FillMissing(context.Background(), f, []int{1, 2}))
	assert.Equal(t, 1, f.calls)
}
