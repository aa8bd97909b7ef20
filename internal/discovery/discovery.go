package discovery

import (
	"context"
	"net/url"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"yjkwon/offerharvester/helpers"
	"yjkwon/offerharvester/internal/market"
	"yjkwon/offerharvester/internal/trace"
)

// Strategy names which discovery path produced a result.
type Strategy string

const (
	StrategyFeed    Strategy = "feed"
	StrategySeed    Strategy = "seed"
	StrategySitemap Strategy = "sitemap"
	StrategyNone    Strategy = "none"
)

// Options bounds a discovery pass.
type Options struct {
	FeedPageSize   int
	MaxFeedPages   int
	MaxSitemapDocs int
}

// Result is the outcome of one discovery pass. Exactly one of FeedProducts
// or URLs is populated for a successful pass.
type Result struct {
	Strategy     Strategy
	Platform     string
	Origin       string
	URLs         []string
	FeedProducts []FeedProduct
}

// Discoverer finds candidate product URLs (or feed entries) for a site. A
// small LRU remembers which strategy worked per host so repeat requests skip
// probes known to fail.
type Discoverer struct {
	fetcher       *helpers.Fetcher
	opts          Options
	strategyCache *lru.Cache[string, Strategy]
}

// New creates a Discoverer. Options fields left zero get safe defaults.
func New(fetcher *helpers.Fetcher, opts Options) *Discoverer {
	if opts.FeedPageSize <= 0 {
		opts.FeedPageSize = 250
	}
	if opts.MaxFeedPages <= 0 {
		opts.MaxFeedPages = 10
	}
	if opts.MaxSitemapDocs <= 0 {
		opts.MaxSitemapDocs = 20
	}
	cache, _ := lru.New[string, Strategy](512)
	return &Discoverer{fetcher: fetcher, opts: opts, strategyCache: cache}
}

// NormalizeInput turns a brand domain entry ("shop.example.com",
// "https://shop.example.com/collections/sale") into origin and path.
func NormalizeInput(input string) (origin, path string, err error) {
	trimmed := strings.TrimSpace(input)
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", "", err
	}
	origin = parsed.Scheme + "://" + parsed.Host
	return origin, parsed.Path, nil
}

// Discover runs the strategy cascade: structured feed fast path, then
// seed-page harvesting when the input carried a path, then sitemap
// traversal. Each strategy short-circuits on success.
func (d *Discoverer) Discover(ctx context.Context, input string, target int, mctx *market.Context, tl *trace.Log) (*Result, error) {
	origin, path, err := NormalizeInput(input)
	if err != nil {
		return nil, err
	}
	host := hostOf(origin)

	if cached, ok := d.strategyCache.Get(host); !ok || cached == StrategyFeed {
		products, err := d.probeFeed(ctx, origin, path, target, mctx, tl)
		if err != nil {
			return nil, err
		}
		if len(products) > 0 {
			d.strategyCache.Add(host, StrategyFeed)
			tl.Info("discovery strategy: structured feed (%d products)", len(products))
			return &Result{Strategy: StrategyFeed, Platform: "shopify", Origin: origin, FeedProducts: products}, nil
		}
		if !ok {
			d.strategyCache.Add(host, StrategySitemap)
		}
	}

	if path != "" && path != "/" {
		seedURL := origin + path
		body, err := d.fetcher.Fetch(ctx, seedURL, mctx)
		if err != nil {
			tl.Info("seed page fetch failed %s: %v", seedURL, err)
		} else if urls := ExtractProductURLsFromHTML(string(body), origin); len(urls) > 0 {
			tl.Info("discovery strategy: seed page harvesting (%d URLs)", len(urls))
			return &Result{Strategy: StrategySeed, Origin: origin, URLs: capURLs(urls, target)}, nil
		}
	}

	urls := filterProductURLs(d.traverseSitemaps(ctx, origin, target, mctx, tl), origin)
	if len(urls) > 0 {
		tl.Info("discovery strategy: sitemap traversal (%d URLs)", len(urls))
		return &Result{Strategy: StrategySitemap, Origin: origin, URLs: capURLs(urls, target)}, nil
	}

	tl.Warn("no candidate product URLs found for %s", origin)
	return &Result{Strategy: StrategyNone, Origin: origin}, nil
}

func capURLs(urls []string, target int) []string {
	if target > 0 && len(urls) > target {
		return urls[:target]
	}
	return urls
}

func hostOf(origin string) string {
	if parsed, err := url.Parse(origin); err == nil {
		return parsed.Host
	}
	return origin
}
