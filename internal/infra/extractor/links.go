package extractor

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/publicsuffix"

	"github.com/cgast/embird/internal/utils/text"
)

const (
	// minLinkTitleChars rejects anchors like "More" or "Here".
	minLinkTitleChars = 5

	// shortTitleChars is the length under which the anchor's parent text
	// is consulted for a better title.
	shortTitleChars = 10

	maxLinkTitleChars = 200
)

// Link is a candidate article link found on a homepage.
type Link struct {
	Title string
	URL   string
}

// ExtractLinks finds candidate article links on a homepage. Only http(s)
// links on the page's registrable domain survive; fragment-only anchors
// and links with too little text are dropped. Results are deduplicated
// by (title, url) in document order.
func ExtractLinks(html []byte, baseURL string) ([]Link, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	baseDomain, err := publicsuffix.EffectiveTLDPlusOne(base.Hostname())
	if err != nil {
		// Bare hosts (localhost, IPs) have no registrable domain; match
		// on the hostname itself.
		baseDomain = base.Hostname()
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	links := make([]Link, 0, 64)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}

		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		if !sameRegistrableDomain(resolved.Hostname(), baseDomain) {
			return
		}

		title := linkTitle(s)
		if len(title) < minLinkTitleChars {
			return
		}

		resolved.Fragment = ""
		link := Link{Title: title, URL: resolved.String()}
		key := link.Title + "\x00" + link.URL
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		links = append(links, link)
	})

	return links, nil
}

// linkTitle derives a title for the anchor. Short anchor texts are
// usually images or "Read more" stubs, so the parent element's text is
// tried as a richer alternative.
func linkTitle(s *goquery.Selection) string {
	title := text.CollapseWhitespace(s.Text())
	if len(title) < shortTitleChars {
		parent := text.CollapseWhitespace(s.Parent().Text())
		if len(parent) > len(title) {
			title = parent
		}
	}
	return text.TruncateRunes(title, maxLinkTitleChars)
}

func sameRegistrableDomain(host, baseDomain string) bool {
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		domain = host
	}
	return strings.EqualFold(domain, baseDomain)
}
