package pipeline

import (
	"context"
	"sync"
	"sync/atomic"

	"yjkwon/offerharvester/config"
	"yjkwon/offerharvester/internal/discovery"
	"yjkwon/offerharvester/internal/extract"
	"yjkwon/offerharvester/internal/market"
	"yjkwon/offerharvester/internal/metrics"
	"yjkwon/offerharvester/internal/trace"
	"yjkwon/offerharvester/logger"
	errs "yjkwon/offerharvester/pkg/errors"
)

// LiveExtractor runs discovery and scraping against the real site.
type LiveExtractor struct {
	discoverer *discovery.Discoverer
	renderer   extract.Renderer
	cfg        *config.Config
	metrics    *metrics.Metrics
}

// NewLiveExtractor wires the live strategy.
func NewLiveExtractor(d *discovery.Discoverer, r extract.Renderer, cfg *config.Config, m *metrics.Metrics) *LiveExtractor {
	return &LiveExtractor{discoverer: d, renderer: r, cfg: cfg, metrics: m}
}

// ExtractMarket runs one market's discovery+scrape pass.
func (e *LiveExtractor) ExtractMarket(ctx context.Context, site, domain string, w Window, mctx *market.Context, tl *trace.Log) (*MarketOutcome, error) {
	target := w.Cap()

	result, err := e.discoverer.Discover(ctx, domain, target, mctx, tl)
	if err != nil {
		return nil, errs.NewDiscovery(site, mctx.MarketID(), "discovery failed for "+domain, err)
	}

	switch result.Strategy {
	case discovery.StrategyFeed:
		return e.feedOutcome(result, site, w, target, mctx), nil
	case discovery.StrategyNone:
		return nil, errs.NewDiscovery(site, mctx.MarketID(), "no candidate product URLs for "+domain, nil)
	default:
		return e.scrapeOutcome(ctx, result, site, w, target, mctx, tl), nil
	}
}

// feedOutcome converts the windowed slice of feed entries directly, no
// rendering needed.
func (e *LiveExtractor) feedOutcome(result *discovery.Result, site string, w Window, target int, mctx *market.Context) *MarketOutcome {
	products := result.FeedProducts
	discovered := len(products)

	window := sliceWindow(len(products), w)
	offers := extract.FeedOffers(products[window.start:window.end], site, result.Origin, mctx, extract.FeedOptions{
		LowStockThreshold: e.cfg.LowStockThreshold,
		VariantTitleMode:  e.cfg.VariantTitleMode,
		VariantTitleRatio: e.cfg.VariantTitleRatio,
	})

	return &MarketOutcome{
		Offers:     takeFirstProducts(offers, w.Limit),
		Platform:   result.Platform,
		Discovered: discovered,
		CapHit:     discovered >= target && target < w.MaxTotal,
	}
}

// scrapeOutcome renders the windowed URL slice with a fixed worker pool.
// Workers pull from a shared index counter and write into position-indexed
// slots so output order matches discovery order regardless of completion
// order. Per-URL failures are logged and skipped.
func (e *LiveExtractor) scrapeOutcome(ctx context.Context, result *discovery.Result, site string, w Window, target int, mctx *market.Context, tl *trace.Log) *MarketOutcome {
	urls := result.URLs
	discovered := len(urls)
	window := sliceWindow(len(urls), w)
	slice := urls[window.start:window.end]
	slog := logger.ForSite(site)

	slots := make([][]extract.Offer, len(slice))
	var next atomic.Int64
	workers := e.cfg.Concurrency
	if workers > len(slice) {
		workers = len(slice)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				idx := int(next.Add(1)) - 1
				if idx >= len(slice) || ctx.Err() != nil {
					return
				}
				pageURL := slice[idx]

				snap, err := e.renderer.Render(ctx, pageURL, mctx)
				if err != nil {
					tl.Warn("page visit failed %s: %v", pageURL, err)
					slog.Warn().Err(err).Str("url", pageURL).Msg("page visit failed")
					e.metrics.IncPage("failed")
					e.metrics.IncError(errorType(err, errs.ErrorTypeRender))
					continue
				}
				offers := extract.PageOffers(snap, site, mctx)
				if len(offers) == 0 {
					tl.Warn("no structured product data at %s", pageURL)
					slog.Warn().Str("url", pageURL).Msg("no structured product data")
					e.metrics.IncPage("failed")
					e.metrics.IncError(string(errs.ErrorTypeScrape))
					continue
				}
				e.metrics.IncPage("ok")
				slots[idx] = offers
			}
		}()
	}
	wg.Wait()

	var out []extract.Offer
	succeeded := 0
	for _, offers := range slots {
		if offers == nil {
			continue
		}
		if succeeded == w.Limit {
			break
		}
		succeeded++
		out = append(out, offers...)
	}

	return &MarketOutcome{
		Offers:     out,
		Platform:   result.Platform,
		Discovered: discovered,
		CapHit:     discovered >= target && target < w.MaxTotal,
	}
}

type span struct {
	start, end int
}

// sliceWindow clamps [offset, offset+limit+reserve) to the available length.
func sliceWindow(length int, w Window) span {
	start := w.Offset
	if start > length {
		start = length
	}
	end := w.Offset + w.Limit + w.Reserve
	if end > length {
		end = length
	}
	return span{start: start, end: end}
}

// takeFirstProducts truncates an offer list to the offers of the first n
// distinct logical products, keeping all variants of an included product.
func takeFirstProducts(offers []extract.Offer, n int) []extract.Offer {
	seen := make(map[string]bool)
	var out []extract.Offer
	for _, o := range offers {
		if !seen[o.SourceProductID] {
			if len(seen) == n {
				break
			}
			seen[o.SourceProductID] = true
		}
		out = append(out, o)
	}
	return out
}
