package urlid

import (
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"
)

// Tracking parameters stripped during canonicalization. Prefix entries match
// any parameter starting with that prefix. Market overlay parameters are
// injection artifacts of our own fetches, not product identity, so they are
// stripped too: the same logical product must hash identically across markets.
var (
	trackingExact    = map[string]bool{"fbclid": true, "gclid": true, "_ga": true, "_gl": true, "ref": true, "source": true}
	trackingPrefixes = []string{"utm_", "mc_"}
	marketParams     = map[string]bool{"country": true, "currency": true}
)

var staticAssetExtensions = map[string]bool{
	".css": true, ".js": true, ".mjs": true, ".json": true, ".xml": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
	".svg": true, ".ico": true, ".avif": true, ".bmp": true,
	".woff": true, ".woff2": true, ".ttf": true, ".otf": true, ".eot": true,
	".mp4": true, ".webm": true, ".mp3": true, ".wav": true,
	".pdf": true, ".zip": true, ".gz": true, ".tar": true, ".rar": true,
	".txt": true, ".map": true,
}

var (
	productPathRe  = regexp.MustCompile(`/products?/[^/]+`)
	numericHTMLRe  = regexp.MustCompile(`-\d{4,}\.html?$`)
	shortSlugPRe   = regexp.MustCompile(`/p/[^/]+`)
)

// CanonicalizeURL resolves raw against base, drops the fragment and strips
// tracking parameters. It never fails: unparseable input is returned as-is.
func CanonicalizeURL(raw, base string) string {
	parsed, err := parseWithBase(raw, base)
	if err != nil {
		return raw
	}

	parsed.Fragment = ""

	q := parsed.Query()
	for key := range q {
		if isTrackingParam(key) {
			q.Del(key)
		}
	}
	parsed.RawQuery = q.Encode()

	return parsed.String()
}

func parseWithBase(raw, base string) (*url.URL, error) {
	if base != "" {
		b, err := url.Parse(base)
		if err == nil {
			ref, err := url.Parse(raw)
			if err != nil {
				return nil, err
			}
			return b.ResolveReference(ref), nil
		}
	}
	return url.Parse(raw)
}

func isTrackingParam(key string) bool {
	lower := strings.ToLower(key)
	if trackingExact[lower] || marketParams[lower] {
		return true
	}
	for _, prefix := range trackingPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// ShortHash returns the first 12 hex chars of the SHA-1 of s. Used wherever a
// compact stable identifier is derived from page content.
func ShortHash(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// BuildSourceProductID derives the stable cross-crawl identifier for a logical
// product. A site-native product id wins; otherwise the canonical URL hash is
// used, extended with a SKU hash when one is known. Volatile values (price,
// timestamps) must never feed into this id.
func BuildSourceProductID(sourceSite, siteProductID, canonicalURL, sku string) string {
	if id := strings.TrimSpace(siteProductID); id != "" {
		return sourceSite + ":" + id
	}

	urlHash := ShortHash(canonicalURL)
	if s := strings.TrimSpace(sku); s != "" {
		return sourceSite + ":" + urlHash + ":" + ShortHash(s)
	}
	return sourceSite + ":" + urlHash
}

// IsStaticAssetURL reports whether the URL path points at a non-HTML asset.
// Checked before product-likeness so assets are always excluded.
func IsStaticAssetURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	path := strings.ToLower(parsed.Path)
	dot := strings.LastIndex(path, ".")
	if dot < 0 {
		return false
	}
	return staticAssetExtensions[path[dot:]]
}

// IsLikelyProductURL reports whether a URL looks like a product detail page on
// the same host as base. Cross-origin and static-asset URLs never qualify.
func IsLikelyProductURL(raw, base string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}

	if base != "" {
		baseURL, err := url.Parse(base)
		if err != nil || !sameHost(parsed.Hostname(), baseURL.Hostname()) {
			return false
		}
	}

	if IsStaticAssetURL(raw) {
		return false
	}

	path := parsed.Path
	if path == "" || path == "/" {
		return false
	}

	return productPathRe.MatchString(path) ||
		numericHTMLRe.MatchString(path) ||
		shortSlugPRe.MatchString(path)
}

func sameHost(a, b string) bool {
	return strings.EqualFold(strings.TrimPrefix(a, "www."), strings.TrimPrefix(b, "www."))
}
