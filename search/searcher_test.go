package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProvider struct {
	results []Result
	err     error

	query string
	count int
}

func (p *recordingProvider) Search(_ context.Context, query string, count int) ([]Result, error) {
	p.query = query
	p.count = count
	if p.err != nil {
		return nil, p.err
	}
	return p.results, nil
}

func TestSearchAndEnrichBiasesQueryWithDate(t *testing.T) {
	provider := &recordingProvider{}
	s := NewSearcher(provider, nil, nil)

	now := time.Date(2026, 8, 23, 18, 0, 0, 0, time.UTC)
	_, err := s.SearchAndEnrich(context.Background(), "bitcoin price", 5, now)
	require.NoError(t, err)

	assert.Equal(t, "bitcoin price 2026-08-23", provider.query)
	assert.Equal(t, 5, provider.count)
}

func TestSearchAndEnrichProviderError(t *testing.T) {
	s := NewSearcher(&recordingProvider{err: errors.New("quota exceeded")}, nil, nil)

	_, err := s.SearchAndEnrich(context.Background(), "anything", 5, time.Now())
	assert.ErrorContains(t, err, "web search")
}

func TestSearchAndEnrichNilProvider(t *testing.T) {
	s := NewSearcher(nil, nil, nil)

	_, err := s.SearchAndEnrich(context.Background(), "anything", 5, time.Now())
	assert.ErrorContains(t, err, "not configured")
}

func TestSearchAndEnrichFillsExtractedText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body><article><p>Markets rallied sharply on Friday.</p></article></body></html>`))
	}))
	defer server.Close()

	provider := &recordingProvider{results: []Result{
		{Title: "Market news", Link: server.URL},
		{Title: "No link"},
	}}
	s := NewSearcher(provider, NewPageExtractor(0), nil)

	results, err := s.SearchAndEnrich(context.Background(), "markets", 5, time.Now())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Contains(t, results[0].ExtractedText, "Markets rallied sharply on Friday.")
	assert.Empty(t, results[1].ExtractedText)
}

func TestGoogleProviderRequiresCredentials(t *testing.T) {
	p := NewGoogleProvider("", "")

	_, err := p.Search(context.Background(), "anything", 5)
	assert.ErrorContains(t, err, "credentials not configured")
}
