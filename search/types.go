// Package search decides whether a turn needs fresh web data, rewrites the
// user message into a search query, and runs the search with per-result page
// extraction.
package search

import "context"

// Result is one web search hit. ExtractedText is filled by page enrichment
// and may be empty.
type Result struct {
	Title         string
	Link          string
	Snippet       string
	ExtractedText string
}

type Provider interface {
	Search(ctx context.Context, query string, count int) ([]Result, error)
}
