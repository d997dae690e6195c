package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func htmlServer(t *testing.T, contentType, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestExtractArticleParagraphs(t *testing.T) {
	server := htmlServer(t, "text/html",
		`<html><body>
			<header><p>site navigation junk</p></header>
			<article>
				<p>First paragraph of the story.</p>
				<p>Second paragraph with details.</p>
			</article>
			<footer><p>copyright footer</p></footer>
		</body></html>`)

	e := NewPageExtractor(0)
	text := e.Extract(context.Background(), server.URL)

	assert.Contains(t, text, "First paragraph of the story.")
	assert.Contains(t, text, "Second paragraph with details.")
	assert.NotContains(t, text, "navigation junk")
	assert.NotContains(t, text, "copyright footer")
}

func TestExtractBodyParagraphsSkipShortFragments(t *testing.T) {
	server := htmlServer(t, "text/html",
		`<html><body>
			<p>ok</p>
			<p>This paragraph is long enough to count as real content.</p>
		</body></html>`)

	e := NewPageExtractor(0)
	text := e.Extract(context.Background(), server.URL)

	assert.Contains(t, text, "long enough to count")
	assert.NotContains(t, text, "ok ")
}

func TestExtractFallsBackToMetaDescription(t *testing.T) {
	server := htmlServer(t, "text/html",
		`<html><head><meta name="description" content="A concise page summary."></head><body><div>no paragraphs here</div></body></html>`)

	e := NewPageExtractor(0)
	text := e.Extract(context.Background(), server.URL)

	assert.Equal(t, "A concise page summary.", text)
}

func TestExtractSkipsNonHTML(t *testing.T) {
	server := htmlServer(t, "application/json", `{"not": "html"}`)

	e := NewPageExtractor(0)
	assert.Empty(t, e.Extract(context.Background(), server.URL))
}

func TestExtractSkipsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<html><body><p>error page content goes here</p></body></html>`))
	}))
	defer server.Close()

	e := NewPageExtractor(0)
	assert.Empty(t, e.Extract(context.Background(), server.URL))
}

func TestExtractTruncatesToCharLimit(t *testing.T) {
	long := strings.Repeat("word ", 100)
	server := htmlServer(t, "text/html",
		`<html><body><article><p>`+long+`</p></article></body></html>`)

	e := NewPageExtractor(50)
	text := e.Extract(context.Background(), server.URL)

	assert.Len(t, text, 53)
	assert.True(t, strings.HasSuffix(text, "..."))
}

func TestExtractUnreachableURL(t *testing.T) {
	e := NewPageExtractor(0)

	assert.Empty(t, e.Extract(context.Background(), "http://127.0.0.1:1/nothing"))
}

func TestExtractCollapsesWhitespace(t *testing.T) {
	server := htmlServer(t, "text/html",
		`<html><body><article><p>spaced     out

		text</p></article></body></html>`)

	e := NewPageExtractor(0)
	assert.Equal(t, "spaced out text", e.Extract(context.Background(), server.URL))
}
