// Package extractor turns fetched HTML into article titles, summaries,
// and candidate article links.
package extractor

import (
	"bytes"
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/cgast/embird/internal/utils/text"
)

const (
	// minSummaryChars is the floor below which the secondary extractor
	// is tried. Shorter content is still returned when both paths agree
	// the page has little text.
	minSummaryChars = 100

	// maxSummaryChars caps the stored summary length.
	maxSummaryChars = 2000
)

// boilerplatePatterns match the share/subscribe/copyright chrome that
// paragraph scraping drags in alongside the article text.
var boilerplatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)share (this|on)\b[^.!?]*[.!?]?`),
	regexp.MustCompile(`(?i)(sign up|subscribe)\b[^.!?]*(newsletter|updates|inbox)[^.!?]*[.!?]?`),
	regexp.MustCompile(`(?i)follow us on\b[^.!?]*[.!?]?`),
	regexp.MustCompile(`(?i)(copyright|©|\(c\))\s+\d{4}[^.!?]*[.!?]?`),
	regexp.MustCompile(`(?i)all rights reserved[^.!?]*[.!?]?`),
}

// ErrNoContent indicates no usable article content was found in the page.
var ErrNoContent = errors.New("extractor: no usable content")

// Article is the content extracted from one HTML page.
type Article struct {
	Title   string
	Summary string
}

// ExtractArticle pulls the title and a readable summary out of an HTML
// page. Readability runs first; when the result is short a plain
// paragraph scrape is tried. Short content is still returned when both
// paths find little text; only a page with no text at all is an error.
func ExtractArticle(html []byte, pageURL string) (*Article, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	title, summary := extractWithReadability(html, parsedURL)
	if len(summary) < minSummaryChars {
		fallbackTitle, fallbackSummary := extractWithGoquery(html)
		if title == "" {
			title = fallbackTitle
		}
		if len(fallbackSummary) > len(summary) {
			summary = fallbackSummary
		}
	}

	title = text.CollapseWhitespace(title)
	summary = text.CollapseWhitespace(stripBoilerplate(summary))
	if summary == "" {
		return nil, ErrNoContent
	}

	return &Article{
		Title:   title,
		Summary: text.TruncateRunes(summary, maxSummaryChars),
	}, nil
}

func stripBoilerplate(s string) string {
	for _, re := range boilerplatePatterns {
		s = re.ReplaceAllString(s, " ")
	}
	return strings.TrimSpace(s)
}

func extractWithReadability(html []byte, pageURL *url.URL) (title, summary string) {
	article, err := readability.FromReader(bytes.NewReader(html), pageURL)
	if err != nil {
		return "", ""
	}
	return article.Title, article.TextContent
}

// extractWithGoquery is the fallback path: strip boilerplate elements and
// concatenate paragraph text.
func extractWithGoquery(html []byte) (title, summary string) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", ""
	}

	title = doc.Find("title").First().Text()
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && og != "" {
		title = og
	}

	doc.Find("script, style, nav, header, footer, aside, form, iframe").Remove()

	var b strings.Builder
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		t := strings.TrimSpace(s.Text())
		if t == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(t)
	})
	return title, b.String()
}
