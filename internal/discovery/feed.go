package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"yjkwon/offerharvester/internal/market"
	"yjkwon/offerharvester/internal/trace"
)

// FeedVariant is one variant row of a structured commerce feed entry.
type FeedVariant struct {
	ID                int64   `json:"id"`
	Title             string  `json:"title"`
	SKU               string  `json:"sku"`
	Price             string  `json:"price"`
	Available         bool    `json:"available"`
	InventoryQuantity int     `json:"inventory_quantity"`
	Option1           *string `json:"option1"`
	Option2           *string `json:"option2"`
	Option3           *string `json:"option3"`
}

// FeedOption names one option slot of a feed product.
type FeedOption struct {
	Name string `json:"name"`
}

// FeedProduct is one entry of a structured commerce feed.
type FeedProduct struct {
	ID       int64         `json:"id"`
	Title    string        `json:"title"`
	Handle   string        `json:"handle"`
	Variants []FeedVariant `json:"variants"`
	Options  []FeedOption  `json:"options"`
}

type feedPage struct {
	Products []FeedProduct `json:"products"`
}

var collectionPathRe = regexp.MustCompile(`(/collections/[a-zA-Z0-9\-_%]+)`)

// feedEndpoint derives the feed URL for an origin, scoped to a collection
// path when the input URL named one.
func feedEndpoint(origin, inputPath string) string {
	if m := collectionPathRe.FindString(inputPath); m != "" {
		return origin + m + "/products.json"
	}
	return origin + "/products.json"
}

// probeFeed probes a structured product feed and, when the probe succeeds,
// paginates until a short page or the page cap. A nil return with nil error
// means the site exposes no usable feed.
func (d *Discoverer) probeFeed(ctx context.Context, origin, inputPath string, target int, mctx *market.Context, tl *trace.Log) ([]FeedProduct, error) {
	endpoint := feedEndpoint(origin, inputPath)

	var all []FeedProduct
	for page := 1; page <= d.opts.MaxFeedPages; page++ {
		pageURL := fmt.Sprintf("%s?limit=%d&page=%d", endpoint, d.opts.FeedPageSize, page)

		body, err := d.fetcher.Fetch(ctx, pageURL, mctx)
		if err != nil {
			if page == 1 {
				tl.Info("feed probe failed for %s: %v", endpoint, err)
				return nil, nil
			}
			// later pages failing terminates pagination with what we have
			tl.Warn("feed page %d failed, stopping pagination: %v", page, err)
			break
		}

		var parsed feedPage
		if err := json.Unmarshal(body, &parsed); err != nil || parsed.Products == nil {
			if page == 1 {
				tl.Info("feed probe returned no product array for %s", endpoint)
				return nil, nil
			}
			break
		}

		all = append(all, parsed.Products...)
		if len(parsed.Products) < d.opts.FeedPageSize {
			break
		}
		if target > 0 && len(all) >= target {
			break
		}
	}

	if len(all) == 0 {
		return nil, nil
	}
	tl.Info("feed returned %d products from %s", len(all), endpoint)
	return all, nil
}

// OptionValue joins the populated option slots (up to 3) or falls back to
// the variant title.
func (v FeedVariant) OptionValue() string {
	var parts []string
	for _, opt := range []*string{v.Option1, v.Option2, v.Option3} {
		if opt != nil && strings.TrimSpace(*opt) != "" {
			parts = append(parts, strings.TrimSpace(*opt))
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, " / ")
	}
	return strings.TrimSpace(v.Title)
}

// IsDefaultOnly reports whether a product has exactly one variant carrying
// the feed's placeholder title.
func (p FeedProduct) IsDefaultOnly() bool {
	return len(p.Variants) == 1 && strings.EqualFold(strings.TrimSpace(p.Variants[0].Title), "Default Title")
}
