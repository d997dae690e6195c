package search

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	defaultCharLimit    = 4000
	defaultFetchTimeout = 10 * time.Second

	userAgent = "ragchat/1.0 (+https://example.com)"
)

var whitespacePattern = regexp.MustCompile(`\s+`)

// PageExtractor fetches a result URL and pulls readable article text out of
// the HTML, bounded to a character limit.
type PageExtractor struct {
	client    *http.Client
	charLimit int
}

func NewPageExtractor(charLimit int) *PageExtractor {
	if charLimit <= 0 {
		charLimit = defaultCharLimit
	}
	return &PageExtractor{
		client:    &http.Client{Timeout: defaultFetchTimeout},
		charLimit: charLimit,
	}
}

// Extract returns the page's text content, or "" on any failure. Extraction
// is best-effort enrichment; it never propagates errors.
func (e *PageExtractor) Extract(ctx context.Context, url string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return ""
	}
	if !strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return ""
	}

	doc.Find("script, style, noscript, header, footer, iframe").Remove()

	var texts []string
	if article := doc.Find("article"); article.Length() > 0 {
		article.Find("p").Each(func(_ int, p *goquery.Selection) {
			if text := strings.TrimSpace(p.Text()); text != "" {
				texts = append(texts, text)
			}
		})
	} else {
		doc.Find("body p").Each(func(_ int, p *goquery.Selection) {
			if text := strings.TrimSpace(p.Text()); len(text) > 20 {
				texts = append(texts, text)
			}
		})
	}

	joined := strings.Join(texts, "\n\n")
	if joined == "" {
		joined = metaDescription(doc)
	}

	joined = strings.TrimSpace(whitespacePattern.ReplaceAllString(joined, " "))
	if len(joined) > e.charLimit {
		joined = joined[:e.charLimit] + "..."
	}

	return joined
}

func metaDescription(doc *goquery.Document) string {
	if content, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok && content != "" {
		return content
	}
	if content, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok {
		return content
	}
	return ""
}
