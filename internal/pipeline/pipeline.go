package pipeline

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"yjkwon/offerharvester/config"
	"yjkwon/offerharvester/internal/counters"
	"yjkwon/offerharvester/internal/extract"
	"yjkwon/offerharvester/internal/market"
	"yjkwon/offerharvester/internal/metrics"
	"yjkwon/offerharvester/internal/trace"
	"yjkwon/offerharvester/logger"
	errs "yjkwon/offerharvester/pkg/errors"
)

// Request is one extraction run as submitted by the caller.
type Request struct {
	Brand   string
	Domain  string
	Offset  int
	Limit   int
	Markets []string
}

// Window bounds one market pass: the slice of the discovered URL list to
// scrape and the global ceilings that cap discovery.
type Window struct {
	Offset   int
	Limit    int
	Reserve  int
	MaxTotal int
}

// Cap returns how far discovery needs to look for this window.
func (w Window) Cap() int {
	target := w.Offset + w.Limit + w.Reserve
	if w.MaxTotal > 0 && w.MaxTotal < target {
		return w.MaxTotal
	}
	return target
}

// MarketOutcome is what one market pass produced.
type MarketOutcome struct {
	Offers     []extract.Offer
	Platform   string
	Discovered int
	// CapHit means discovery stopped at the window cap below the absolute
	// maximum, so more products may exist beyond what was discovered.
	CapHit bool
}

// Extractor runs one market's discovery+scrape pass. Implementations are
// selected once at startup: live scraping or the deterministic simulator.
type Extractor interface {
	ExtractMarket(ctx context.Context, site, domain string, w Window, mctx *market.Context, tl *trace.Log) (*MarketOutcome, error)
}

// Pagination is the stateless cursor returned with each round. The caller
// advances by resubmitting with NextOffset; nothing is kept server-side.
type Pagination struct {
	Offset         int  `json:"offset"`
	Limit          int  `json:"limit"`
	NextOffset     *int `json:"next_offset"`
	HasMore        bool `json:"has_more"`
	DiscoveredURLs int  `json:"discovered_urls"`
}

// Result is the outcome of one extraction run across all requested markets.
type Result struct {
	Brand       string                        `json:"brand"`
	Domain      string                        `json:"domain"`
	GeneratedAt time.Time                     `json:"generated_at"`
	Mode        string                        `json:"mode"`
	Platform    string                        `json:"platform,omitempty"`
	Offers      []extract.Offer               `json:"offers_v2"`
	Counters    []counters.SiteMarketCounters `json:"counters_by_site_market"`
	Pagination  *Pagination                   `json:"pagination,omitempty"`
	Logs        []trace.Event                 `json:"logs"`
}

// Runner drives the requested markets sequentially through the configured
// extractor. One market's failure is isolated: it is flagged in the counters
// and contributes zero offers without aborting the rest.
type Runner struct {
	cfg       *config.Config
	extractor Extractor
	metrics   *metrics.Metrics
}

// NewRunner wires a runner.
func NewRunner(cfg *config.Config, extractor Extractor, m *metrics.Metrics) *Runner {
	return &Runner{cfg: cfg, extractor: extractor, metrics: m}
}

// Run executes one extraction round and always returns a result; per-market
// failures surface through the counters and the trace log, not as an error.
func (r *Runner) Run(ctx context.Context, req Request) *Result {
	tl := trace.NewLog()
	limit := r.cfg.ClampLimit(req.Limit)
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}
	window := Window{
		Offset:   offset,
		Limit:    limit,
		Reserve:  r.cfg.DiscoveryReserve,
		MaxTotal: r.cfg.MaxTotalProducts,
	}

	site := SiteName(req.Domain)
	marketIDs := normalizeMarkets(req.Markets)
	plog := logger.ForPipeline()
	plog.Info().
		Str("site", site).
		Str("markets", strings.Join(marketIDs, ",")).
		Int("offset", offset).
		Int("limit", limit).
		Msg("extraction run started")
	tl.Info("extraction run for %s (site %s), markets %s, offset %d limit %d",
		req.Domain, site, strings.Join(marketIDs, ","), offset, limit)

	var all []extract.Offer
	var requested []counters.RequestedMarket
	discovered := 0
	capHit := false
	platform := ""

	for _, id := range marketIDs {
		profile := market.Lookup(id)
		mctx := market.NewContext(profile, r.cfg.MarketInjection)
		tl.Info("market %s: starting pass", profile.MarketID)

		marketCtx, cancel := context.WithTimeout(ctx, r.cfg.MarketTimeout)
		outcome, err := r.extractor.ExtractMarket(marketCtx, site, req.Domain, window, mctx, tl)
		cancel()

		if err != nil {
			tl.Error("market %s: pass failed: %v", profile.MarketID, err)
			plog.Error().Err(err).Str("market", profile.MarketID).Msg("market pass failed")
			r.metrics.IncMarketFailure(profile.MarketID)
			r.metrics.IncError(errorType(err, errs.ErrorTypeMarket))
			requested = append(requested, counters.RequestedMarket{SourceSite: site, MarketID: profile.MarketID, Failed: true})
			continue
		}

		requested = append(requested, counters.RequestedMarket{SourceSite: site, MarketID: profile.MarketID})
		all = append(all, outcome.Offers...)
		r.metrics.AddOffers(profile.MarketID, len(outcome.Offers))
		tl.Info("market %s: %d offers from %d discovered candidates", profile.MarketID, len(outcome.Offers), outcome.Discovered)

		if outcome.Discovered > discovered {
			discovered = outcome.Discovered
		}
		capHit = capHit || outcome.CapHit
		if platform == "" {
			platform = outcome.Platform
		}
	}

	pagination := &Pagination{Offset: offset, Limit: limit, DiscoveredURLs: discovered}
	if offset+limit < discovered || capHit {
		next := offset + limit
		pagination.NextOffset = &next
		pagination.HasMore = true
	}

	return &Result{
		Brand:       req.Brand,
		Domain:      req.Domain,
		GeneratedAt: time.Now().UTC(),
		Mode:        r.cfg.Mode,
		Platform:    platform,
		Offers:      all,
		Counters:    counters.Compute(all, requested),
		Pagination:  pagination,
		Logs:        tl.Events(),
	}
}

// SiteName derives the offer source-site label from a domain entry: the host
// without its www prefix.
func SiteName(domain string) string {
	trimmed := strings.TrimSpace(domain)
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Hostname() == "" {
		return strings.ToLower(strings.TrimPrefix(domain, "www."))
	}
	return strings.ToLower(strings.TrimPrefix(parsed.Hostname(), "www."))
}

// errorType labels an error for the errors counter, falling back when the
// error is not from our taxonomy.
func errorType(err error, fallback errs.ErrorType) string {
	var xe *errs.ExtractError
	if errors.As(err, &xe) {
		return string(xe.Type)
	}
	return string(fallback)
}

// normalizeMarkets dedupes and uppercases the requested market ids, falling
// back to the default market for an empty request. Unknown ids resolve to the
// default profile later, at lookup.
func normalizeMarkets(ids []string) []string {
	if len(ids) == 0 {
		return []string{market.DefaultMarketID}
	}
	seen := make(map[string]bool)
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		normalized := strings.ToUpper(strings.TrimSpace(id))
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		out = append(out, normalized)
	}
	if len(out) == 0 {
		return []string{market.DefaultMarketID}
	}
	return out
}
