package vectorstore

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Default hybrid ranking knobs. Tunable, but there is no empirical basis for
// other values yet.
const (
	DefaultSemanticWeight      = 0.7
	DefaultKeywordWeight       = 0.3
	DefaultCandidateMultiplier = 2

	// Score assigned to the semantic leg when a candidate carries no distance.
	neutralSemanticScore = 0.5
)

// DefaultStopWords are excluded from keyword overlap scoring.
var DefaultStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {},
	"is": {}, "are": {}, "was": {}, "were": {},
	"what": {}, "how": {}, "when": {}, "where": {}, "why": {},
}

var wordPattern = regexp.MustCompile(`\w+`)

type HybridConfig struct {
	SemanticWeight      float64
	KeywordWeight       float64
	CandidateMultiplier int
	StopWords           map[string]struct{}
}

func DefaultHybridConfig() HybridConfig {
	return HybridConfig{
		SemanticWeight:      DefaultSemanticWeight,
		KeywordWeight:       DefaultKeywordWeight,
		CandidateMultiplier: DefaultCandidateMultiplier,
		StopWords:           DefaultStopWords,
	}
}

// HybridRetriever reranks coarse vector-similarity candidates with a keyword
// overlap term. Pure vector search under-ranks chunks that match a rare exact
// term; pure keyword matching misses paraphrase.
type HybridRetriever struct {
	store Store
	cfg   HybridConfig
}

func NewHybridRetriever(store Store, cfg HybridConfig) *HybridRetriever {
	if cfg.CandidateMultiplier <= 0 {
		cfg.CandidateMultiplier = DefaultCandidateMultiplier
	}
	if cfg.StopWords == nil {
		cfg.StopWords = DefaultStopWords
	}
	return &HybridRetriever{store: store, cfg: cfg}
}

// HybridQuery fetches candidates by vector similarity and reorders them by
// the combined semantic+keyword score. If reranking fails the coarse ranking
// is returned unmodified; a reranking defect must never fail retrieval.
func (r *HybridRetriever) HybridQuery(ctx context.Context, vector []float32, queryText string, topK int, docID *uuid.UUID) ([]RetrievalResult, error) {
	if topK <= 0 {
		topK = 5
	}

	candidates, err := r.store.Query(ctx, vector, topK*r.cfg.CandidateMultiplier, docID)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	reranked, rerankErr := r.rerank(candidates, queryText)
	if rerankErr != nil {
		reranked = candidates
	}

	if len(reranked) > topK {
		reranked = reranked[:topK]
	}
	return reranked, nil
}

func (r *HybridRetriever) rerank(candidates []RetrievalResult, queryText string) ([]RetrievalResult, error) {
	if r.cfg.SemanticWeight+r.cfg.KeywordWeight <= 0 {
		return nil, fmt.Errorf("hybrid weights are not positive")
	}

	queryKeywords := Keywords(queryText, r.cfg.StopWords)

	scored := make([]RetrievalResult, len(candidates))
	copy(scored, candidates)

	for i := range scored {
		chunkKeywords := Keywords(scored[i].Content, nil)

		overlap := 0
		for kw := range queryKeywords {
			if _, ok := chunkKeywords[kw]; ok {
				overlap++
			}
		}
		keywordScore := float64(overlap) / float64(max(len(queryKeywords), 1))

		semanticScore := neutralSemanticScore
		if scored[i].HasDistance {
			semanticScore = 1 - scored[i].Distance/2
		}

		scored[i].Score = r.cfg.SemanticWeight*semanticScore + r.cfg.KeywordWeight*keywordScore
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	return scored, nil
}

// Keywords tokenizes text into a lower-cased word set, minus stop words.
func Keywords(text string, stopWords map[string]struct{}) map[string]struct{} {
	tokens := wordPattern.FindAllString(strings.ToLower(text), -1)
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if _, stop := stopWords[tok]; stop {
			continue
		}
		set[tok] = struct{}{}
	}
	return set
}
