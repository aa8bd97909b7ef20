package discovery

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"yjkwon/offerharvester/internal/urlid"
)

var (
	excludedSchemes = []string{"mailto:", "tel:", "javascript:"}

	// Fallback over inline script bodies for product paths assembled in JS.
	scriptProductURLRe = regexp.MustCompile(`["'](/(?:[a-z0-9\-/]*/)?products?/[a-zA-Z0-9\-_%]+)["']`)
)

// ExtractProductURLsFromHTML harvests candidate product URLs from a seed
// page. Anchor hrefs are preferred; a regex pass over inline scripts only
// fills in when anchors produced nothing. Cross-origin links, static assets
// and non-product paths are dropped.
func ExtractProductURLsFromHTML(html, baseURL string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	anchors := NewOrderedSet()
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || hasExcludedScheme(href) {
			return
		}
		canonical := urlid.CanonicalizeURL(href, baseURL)
		if urlid.IsLikelyProductURL(canonical, baseURL) {
			anchors.Add(canonical)
		}
	})
	if anchors.Len() > 0 {
		return anchors.Items()
	}

	fromScripts := NewOrderedSet()
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		for _, match := range scriptProductURLRe.FindAllStringSubmatch(s.Text(), -1) {
			canonical := urlid.CanonicalizeURL(match[1], baseURL)
			if urlid.IsLikelyProductURL(canonical, baseURL) {
				fromScripts.Add(canonical)
			}
		}
	})
	return fromScripts.Items()
}

func hasExcludedScheme(href string) bool {
	lower := strings.ToLower(href)
	for _, scheme := range excludedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return false
}
