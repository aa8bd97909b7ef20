package discovery

import (
	"context"
	"encoding/xml"
	"strings"

	"yjkwon/offerharvester/internal/market"
	"yjkwon/offerharvester/internal/trace"
	"yjkwon/offerharvester/internal/urlid"
)

type sitemapDoc struct {
	XMLName  xml.Name     `xml:""`
	Sitemaps []sitemapLoc `xml:"sitemap"`
	URLs     []sitemapLoc `xml:"url"`
}

type sitemapLoc struct {
	Loc string `xml:"loc"`
}

// sitemapCandidates reads robots.txt Sitemap: directives, falling back to
// the conventional locations when robots is missing or names none.
func (d *Discoverer) sitemapCandidates(ctx context.Context, origin string, mctx *market.Context, tl *trace.Log) []string {
	var candidates []string

	body, err := d.fetcher.Fetch(ctx, origin+"/robots.txt", mctx)
	if err == nil {
		for _, line := range strings.Split(string(body), "\n") {
			line = strings.TrimSpace(line)
			if len(line) >= 8 && strings.EqualFold(line[:8], "sitemap:") {
				if loc := strings.TrimSpace(line[8:]); loc != "" {
					candidates = append(candidates, loc)
				}
			}
		}
	} else {
		tl.Info("robots.txt unavailable: %v", err)
	}

	if len(candidates) == 0 {
		candidates = []string{origin + "/sitemap.xml", origin + "/sitemap_index.xml"}
	}
	return candidates
}

// traverseSitemaps breadth-first walks sitemap documents starting from the
// robots-derived candidates, bounded by the document cap, collecting page
// locations. Traversal stops early once enough product-like URLs (target) or
// twice the target of any URLs are known.
func (d *Discoverer) traverseSitemaps(ctx context.Context, origin string, target int, mctx *market.Context, tl *trace.Log) []string {
	queue := d.sitemapCandidates(ctx, origin, mctx, tl)
	visited := NewOrderedSet()
	pages := NewOrderedSet()
	productLike := 0
	docsFetched := 0

	for len(queue) > 0 && docsFetched < d.opts.MaxSitemapDocs {
		docURL := queue[0]
		queue = queue[1:]
		if !visited.Add(docURL) {
			continue
		}

		body, err := d.fetcher.Fetch(ctx, docURL, mctx)
		if err != nil {
			tl.Info("sitemap fetch failed %s: %v", docURL, err)
			continue
		}
		docsFetched++

		var doc sitemapDoc
		if err := xml.Unmarshal(body, &doc); err != nil {
			tl.Warn("sitemap parse failed %s: %v", docURL, err)
			continue
		}

		for _, nested := range doc.Sitemaps {
			if loc := strings.TrimSpace(nested.Loc); loc != "" {
				queue = append(queue, loc)
			}
		}

		for _, entry := range doc.URLs {
			loc := urlid.CanonicalizeURL(strings.TrimSpace(entry.Loc), origin)
			if loc == "" || urlid.IsStaticAssetURL(loc) {
				continue
			}
			if pages.Add(loc) && urlid.IsLikelyProductURL(loc, origin) {
				productLike++
			}
		}

		if target > 0 && (productLike >= target || pages.Len() >= 2*target) {
			break
		}
	}

	tl.Info("sitemap traversal visited %d documents, collected %d URLs (%d product-like)",
		docsFetched, pages.Len(), productLike)
	return pages.Items()
}

// filterProductURLs prefers product-like URLs but falls back to the full
// deduplicated set when nothing matches the heuristics.
func filterProductURLs(urls []string, origin string) []string {
	preferred := NewOrderedSet()
	for _, u := range urls {
		if urlid.IsLikelyProductURL(u, origin) {
			preferred.Add(u)
		}
	}
	if preferred.Len() > 0 {
		return preferred.Items()
	}
	all := NewOrderedSet()
	for _, u := range urls {
		if !urlid.IsStaticAssetURL(u) {
			all.Add(u)
		}
	}
	return all.Items()
}
