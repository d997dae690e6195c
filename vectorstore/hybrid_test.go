package vectorstore

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	results  []RetrievalResult
	err      error
	lastTopK int
}

func (s *stubStore) Add(_ context.Context, _ uuid.UUID, _ DocumentMeta, _ []string, _ [][]float32) error {
	return nil
}

func (s *stubStore) Query(_ context.Context, _ []float32, topK int, _ *uuid.UUID) ([]RetrievalResult, error) {
	s.lastTopK = topK
	if s.err != nil {
		return nil, s.err
	}
	out := make([]RetrievalResult, len(s.results))
	copy(out, s.results)
	return out, nil
}

func (s *stubStore) Delete(_ context.Context, _ uuid.UUID) (bool, error) {
	return false, nil
}

func (s *stubStore) ListDocuments(_ context.Context) ([]DocumentSummary, error) {
	return nil, nil
}

func (s *stubStore) Reset(_ context.Context) error {
	return nil
}

func TestHybridQueryRerankOrdering(t *testing.T) {
	// The coarse leader has the better distance but shares no keywords with
	// the query; the runner-up matches every keyword at a neutral distance.
	store := &stubStore{results: []RetrievalResult{
		{Content: "completely unrelated paragraph", Distance: 0.2, HasDistance: true},
		{Content: "quarterly revenue report", Distance: 1.0, HasDistance: true},
	}}
	r := NewHybridRetriever(store, DefaultHybridConfig())

	results, err := r.HybridQuery(context.Background(), []float32{0.1}, "quarterly revenue report", 5, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// keyword match wins: 0.7*0.5 + 0.3*1.0 = 0.65 over 0.7*0.9 + 0.3*0 = 0.63
	assert.Equal(t, "quarterly revenue report", results[0].Content)
	assert.InDelta(t, 0.65, results[0].Score, 1e-9)
	assert.Equal(t, "completely unrelated paragraph", results[1].Content)
	assert.InDelta(t, 0.63, results[1].Score, 1e-9)
}

func TestHybridQueryNeutralScoreWithoutDistance(t *testing.T) {
	store := &stubStore{results: []RetrievalResult{
		{Content: "quarterly revenue report"},
	}}
	r := NewHybridRetriever(store, DefaultHybridConfig())

	results, err := r.HybridQuery(context.Background(), []float32{0.1}, "quarterly revenue report", 5, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)

	// semantic leg falls back to 0.5: 0.7*0.5 + 0.3*1.0
	assert.InDelta(t, 0.65, results[0].Score, 1e-9)
}

func TestHybridQueryFetchesExtraCandidates(t *testing.T) {
	store := &stubStore{}
	r := NewHybridRetriever(store, DefaultHybridConfig())

	_, err := r.HybridQuery(context.Background(), []float32{0.1}, "anything", 5, nil)
	require.NoError(t, err)
	assert.Equal(t, 10, store.lastTopK)
}

func TestHybridQueryTruncatesToTopK(t *testing.T) {
	store := &stubStore{results: []RetrievalResult{
		{Content: "one", Distance: 0.1, HasDistance: true},
		{Content: "two", Distance: 0.2, HasDistance: true},
		{Content: "three", Distance: 0.3, HasDistance: true},
		{Content: "four", Distance: 0.4, HasDistance: true},
	}}
	r := NewHybridRetriever(store, DefaultHybridConfig())

	results, err := r.HybridQuery(context.Background(), []float32{0.1}, "five six", 2, nil)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestHybridQueryNoCandidates(t *testing.T) {
	r := NewHybridRetriever(&stubStore{}, DefaultHybridConfig())

	results, err := r.HybridQuery(context.Background(), []float32{0.1}, "anything", 5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHybridQueryStoreError(t *testing.T) {
	r := NewHybridRetriever(&stubStore{err: errors.New("connection refused")}, DefaultHybridConfig())

	results, err := r.HybridQuery(context.Background(), []float32{0.1}, "anything", 5, nil)
	assert.ErrorContains(t, err, "vector query")
	assert.Nil(t, results)
}

func TestHybridQueryFallsBackToCoarseRanking(t *testing.T) {
	store := &stubStore{results: []RetrievalResult{
		{Content: "unrelated", Distance: 0.5, HasDistance: true},
		{Content: "quarterly revenue report", Distance: 0.5, HasDistance: true},
	}}
	r := NewHybridRetriever(store, HybridConfig{CandidateMultiplier: 1})

	results, err := r.HybridQuery(context.Background(), []float32{0.1}, "quarterly revenue report", 5, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// zero weights make reranking impossible; coarse order survives
	assert.Equal(t, "unrelated", results[0].Content)
	assert.Equal(t, "quarterly revenue report", results[1].Content)
}

func TestKeywords(t *testing.T) {
	got := Keywords("What is the Current PRICE of gold?", DefaultStopWords)

	assert.Equal(t, map[string]struct{}{
		"current": {}, "price": {}, "gold": {},
	}, got)
}

func TestKeywordsWithoutStopWords(t *testing.T) {
	got := Keywords("the price", nil)

	assert.Equal(t, map[string]struct{}{"the": {}, "price": {}}, got)
}
