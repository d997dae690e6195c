package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Searcher composes the provider with page extraction. The request date is
// appended to the query to bias results toward fresh pages.
type Searcher struct {
	provider  Provider
	extractor *PageExtractor
	logger    *zap.Logger
}

func NewSearcher(provider Provider, extractor *PageExtractor, logger *zap.Logger) *Searcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if extractor == nil {
		extractor = NewPageExtractor(defaultCharLimit)
	}
	return &Searcher{provider: provider, extractor: extractor, logger: logger}
}

// SearchAndEnrich runs the search and fills ExtractedText per result. A
// failed extraction leaves that one result with an empty excerpt; only a
// failed search aborts the batch.
func (s *Searcher) SearchAndEnrich(ctx context.Context, query string, count int, now time.Time) ([]Result, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("search provider not configured")
	}

	biased := fmt.Sprintf("%s %s", query, now.UTC().Format("2006-01-02"))

	results, err := s.provider.Search(ctx, biased, count)
	if err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}

	for i := range results {
		if results[i].Link == "" {
			continue
		}
		results[i].ExtractedText = s.extractor.Extract(ctx, results[i].Link)
		if results[i].ExtractedText == "" {
			s.logger.Debug("no content extracted", zap.String("link", results[i].Link))
		}
	}

	return results, nil
}
