package helpers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	mathrand "math/rand"
	"net/http"
	"slices"
	"time"

	"golang.org/x/net/html/charset"

	"yjkwon/offerharvester/internal/market"
	"yjkwon/offerharvester/services/cache"
)

// HTTP client and header configurations
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/112.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.0.3 Safari/605.1.15",
}

// Fetcher issues plain (non-rendered) HTTP GETs with the market overlay
// applied. Feed probes, robots.txt and sitemap reads all go through here so a
// market pass biases every network call the same way.
type Fetcher struct {
	client    *http.Client
	cacheSvc  cache.CacheService
	blockTime time.Duration
}

// NewFetcher creates a fetcher with a per-request timeout. cacheSvc may be nil;
// when set, hosts answering 429/430 are blocked for blockTime.
func NewFetcher(timeout time.Duration, cacheSvc cache.CacheService, blockTime time.Duration) *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		cacheSvc:  cacheSvc,
		blockTime: blockTime,
	}
}

// Fetch GETs rawURL with the market context injected and returns the body as
// UTF-8 bytes. Non-2xx responses are errors.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, mctx *market.Context) ([]byte, error) {
	target := mctx.ApplyURLParams(rawURL)

	if f.cacheSvc != nil {
		if _, err := f.cacheSvc.Get(blockKey(target)); err == nil {
			return nil, fmt.Errorf("fetch blocked after rate limiting: %s", target)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	rnd := mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
	req.Header.Set("User-Agent", userAgents[rnd.Intn(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,application/json;q=0.8,*/*;q=0.7")

	for key, value := range mctx.Headers() {
		req.Header.Set(key, value)
	}
	for name, value := range mctx.Cookies() {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if slices.Contains([]int{http.StatusTooManyRequests, 430}, resp.StatusCode) {
		if f.cacheSvc != nil && f.blockTime > 0 {
			f.cacheSvc.Set(blockKey(target), []byte("blocked"), f.blockTime)
		}
		return nil, fmt.Errorf("rate limited; retry after %s", resp.Header.Get("Retry-After"))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s unexpected status code: %d", target, resp.StatusCode)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return toUTF8(bodyBytes, resp.Header.Get("Content-Type"))
}

// toUTF8 converts a response body to UTF-8 based on the declared and sniffed
// encoding. Bodies already in UTF-8 pass through untouched.
func toUTF8(body []byte, contentType string) ([]byte, error) {
	encoding, name, _ := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" || name == "UTF-8" {
		return body, nil
	}

	utf8Reader := encoding.NewDecoder().Reader(bytes.NewReader(body))
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, utf8Reader); err != nil {
		return nil, fmt.Errorf("failed to read converted UTF-8 body: %w", err)
	}
	return buf.Bytes(), nil
}

func blockKey(url string) string {
	return "fetchblock:" + url
}
