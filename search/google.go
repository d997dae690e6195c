package search

import (
	"context"
	"fmt"

	customsearch "google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// GoogleProvider runs queries against the Google Custom Search API. Missing
// credentials fail the call, not startup: web search is an optional
// capability.
type GoogleProvider struct {
	apiKey string
	cseID  string
}

func NewGoogleProvider(apiKey, cseID string) *GoogleProvider {
	return &GoogleProvider{apiKey: apiKey, cseID: cseID}
}

var _ Provider = (*GoogleProvider)(nil)

func (g *GoogleProvider) Search(ctx context.Context, query string, count int) ([]Result, error) {
	if g.apiKey == "" || g.cseID == "" {
		return nil, fmt.Errorf("google search credentials not configured")
	}
	if count <= 0 {
		count = 5
	}

	svc, err := customsearch.NewService(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return nil, fmt.Errorf("create custom search service: %w", err)
	}

	resp, err := svc.Cse.List().Q(query).Cx(g.cseID).Num(int64(count)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("run custom search: %w", err)
	}

	results := make([]Result, 0, count)
	for _, item := range resp.Items {
		if len(results) == count {
			break
		}
		results = append(results, Result{
			Title:   item.Title,
			Link:    item.Link,
			Snippet: item.Snippet,
		})
	}

	return results, nil
}
