package extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractArticle(t *testing.T) {
	para := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 10)
	html := `<html><head><title>Fox News Story</title></head><body>
<nav>Home | About | Contact</nav>
<article><p>` + para + `</p></article>
<footer>Copyright</footer>
</body></html>`

	a, err := ExtractArticle([]byte(html), "https://example.com/story")
	require.NoError(t, err)
	assert.Equal(t, "Fox News Story", a.Title)
	assert.Contains(t, a.Summary, "quick brown fox")
	assert.NotContains(t, a.Summary, "Copyright")
}

func TestExtractArticleCapsSummary(t *testing.T) {
	long := strings.Repeat("word ", 2000)
	html := `<html><head><title>Long Story</title></head><body><p>` + long + `</p></body></html>`

	a, err := ExtractArticle([]byte(html), "https://example.com/long")
	require.NoError(t, err)
	assert.LessOrEqual(t, len([]rune(a.Summary)), maxSummaryChars+3)
}

func TestExtractArticleReturnsShortContent(t *testing.T) {
	html := `<html><head><title>Brief</title></head><body><p>One terse statement.</p></body></html>`

	a, err := ExtractArticle([]byte(html), "https://example.com/brief")
	require.NoError(t, err)
	assert.Equal(t, "One terse statement.", a.Summary)
}

func TestExtractArticleRejectsEmptyPages(t *testing.T) {
	html := `<html><head><title>Stub</title></head><body></body></html>`

	_, err := ExtractArticle([]byte(html), "https://example.com/stub")
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestExtractArticleStripsBoilerplate(t *testing.T) {
	para := strings.Repeat("Council members debated the budget for several hours. ", 5)
	html := `<html><head><title>Budget Talks</title></head><body>
<p>` + para + `</p>
<p>Share this article on social media!</p>
<p>Subscribe to our daily newsletter for updates.</p>
<p>Copyright 2025 Example Media. All rights reserved.</p>
</body></html>`

	a, err := ExtractArticle([]byte(html), "https://example.com/budget")
	require.NoError(t, err)
	assert.Contains(t, a.Summary, "debated the budget")
	assert.NotContains(t, a.Summary, "Share this")
	assert.NotContains(t, a.Summary, "Subscribe")
	assert.NotContains(t, a.Summary, "Copyright")
	assert.NotContains(t, a.Summary, "rights reserved")
}

func TestExtractArticleBadURL(t *testing.T) {
	_, err := ExtractArticle([]byte("<html></html>"), "://not-a-url")
	assert.Error(t, err)
}
