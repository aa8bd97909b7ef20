package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"yjkwon/offerharvester/internal/urlid"
)

// DOMVariantMeta is variant metadata embedded in page markup via data
// attributes, used as the lowest-priority price source keyed by SKU.
type DOMVariantMeta struct {
	SKU      string
	Price    string
	Currency string
}

// Snapshot is everything the extractor needs from one loaded page. It is the
// output of the rendering seam: how the HTML was obtained (headless browser or
// plain fetch) is invisible past this point.
type Snapshot struct {
	PageURL        string
	Title          string
	Canonical      string
	JSONLDScripts  []string
	MetaCurrencies []string
	PriceTexts     []string
	DOMVariants    map[string]DOMVariantMeta
	ExpandedPanels map[string]string
	OGTitle        string
	OGURL          string
	H1             string
}

// ParseSnapshot extracts the snapshot fields from an HTML document. Pure
// function over markup; rendered and non-rendered HTML go through the same
// path.
func ParseSnapshot(html, pageURL string) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		PageURL:        pageURL,
		DOMVariants:    make(map[string]DOMVariantMeta),
		ExpandedPanels: make(map[string]string),
	}

	snap.Title = strings.TrimSpace(doc.Find("title").First().Text())
	snap.H1 = strings.TrimSpace(doc.Find("h1").First().Text())

	doc.Find("script[type='application/ld+json']").Each(func(_ int, s *goquery.Selection) {
		if body := strings.TrimSpace(s.Text()); body != "" {
			snap.JSONLDScripts = append(snap.JSONLDScripts, body)
		}
	})

	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		content, _ := s.Attr("content")
		content = strings.TrimSpace(content)
		if content == "" {
			return
		}
		prop, _ := s.Attr("property")
		name, _ := s.Attr("name")
		itemprop, _ := s.Attr("itemprop")

		switch {
		case prop == "og:title":
			snap.OGTitle = content
		case prop == "og:url":
			snap.OGURL = content
		case prop == "og:price:currency", prop == "product:price:currency",
			name == "currency", itemprop == "priceCurrency":
			snap.MetaCurrencies = append(snap.MetaCurrencies, content)
		case prop == "og:price:amount", prop == "product:price:amount":
			snap.PriceTexts = append(snap.PriceTexts, content)
		}
	})

	if href, ok := doc.Find("link[rel='canonical']").First().Attr("href"); ok {
		snap.Canonical = strings.TrimSpace(href)
	}

	// Visible price text candidates, page-level fallback when structured
	// offers are missing.
	doc.Find("[class*='price'], [data-price-display]").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" && len(text) < 80 {
			snap.PriceTexts = append(snap.PriceTexts, text)
		}
	})

	doc.Find("[data-sku]").Each(func(_ int, s *goquery.Selection) {
		sku, _ := s.Attr("data-sku")
		sku = strings.TrimSpace(sku)
		if sku == "" {
			return
		}
		meta := DOMVariantMeta{SKU: sku}
		if p, ok := s.Attr("data-price"); ok {
			meta.Price = strings.TrimSpace(p)
		} else {
			meta.Price = strings.TrimSpace(s.Text())
		}
		if c, ok := s.Attr("data-currency"); ok {
			meta.Currency = strings.TrimSpace(c)
		}
		snap.DOMVariants[sku] = meta
	})

	return snap, nil
}

// ResolveTitle applies the title fallback chain against JSON-LD product data.
func (s *Snapshot) ResolveTitle(product map[string]interface{}) string {
	if product != nil {
		if name := stringField(product, "name"); name != "" {
			return name
		}
	}
	if s.OGTitle != "" {
		return s.OGTitle
	}
	if s.H1 != "" {
		return s.H1
	}
	if s.Title != "" {
		return s.Title
	}
	return s.PageURL
}

// ResolveCanonical applies the canonical URL fallback chain and normalizes
// the winner against the page URL.
func (s *Snapshot) ResolveCanonical(product map[string]interface{}) string {
	candidate := ""
	if product != nil {
		candidate = stringField(product, "url")
	}
	if candidate == "" {
		candidate = s.Canonical
	}
	if candidate == "" {
		candidate = s.OGURL
	}
	if candidate == "" {
		candidate = s.PageURL
	}
	return urlid.CanonicalizeURL(candidate, s.PageURL)
}

// FallbackPriceText returns the first parseable page-level price candidate.
func (s *Snapshot) FallbackPriceText() string {
	for _, text := range s.PriceTexts {
		if strings.ContainsAny(text, "0123456789") {
			return text
		}
	}
	return ""
}
