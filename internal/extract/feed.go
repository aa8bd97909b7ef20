package extract

import (
	"sort"
	"strconv"
	"strings"

	"yjkwon/offerharvester/helpers"
	"yjkwon/offerharvester/internal/discovery"
	"yjkwon/offerharvester/internal/market"
	"yjkwon/offerharvester/internal/urlid"
)

// VariantTitleMode controls the single-default-variant title heuristic.
const (
	VariantTitleAuto = "auto"
	VariantTitleOn   = "on"
	VariantTitleOff  = "off"
)

// FeedOptions tunes feed-entry conversion.
type FeedOptions struct {
	LowStockThreshold int
	VariantTitleMode  string
	// VariantTitleRatio is the share of probed products that must look like
	// single-default-variant-with-splittable-title before auto mode enables
	// the heuristic. A judgment call, kept tunable.
	VariantTitleRatio float64
}

var titleDelimiters = []string{" — ", " – ", " - ", " | ", ": "}

// FeedOffers converts structured feed entries into offers. When the variant
// title heuristic applies, products that are really one variant of a shared
// base product are merged into one logical product with the title suffix as
// the option value.
func FeedOffers(products []discovery.FeedProduct, sourceSite, origin string, mctx *market.Context, opts FeedOptions) []Offer {
	if opts.VariantTitleRatio <= 0 {
		opts.VariantTitleRatio = 0.2
	}

	useTitleVariants := false
	switch opts.VariantTitleMode {
	case VariantTitleOn:
		useTitleVariants = true
	case VariantTitleOff:
		useTitleVariants = false
	default:
		useTitleVariants = titleVariantRatio(products) >= opts.VariantTitleRatio
	}

	var out []Offer
	if useTitleVariants {
		merged, rest := splitMergeable(products)
		for _, group := range merged {
			out = append(out, mergedGroupOffers(group, sourceSite, origin, mctx, opts)...)
		}
		products = rest
	}

	for _, p := range products {
		out = append(out, feedProductOffers(p, sourceSite, origin, mctx, opts)...)
	}
	return out
}

// titleVariantRatio measures how many products look like a single default
// variant whose title splits into base + variant label.
func titleVariantRatio(products []discovery.FeedProduct) float64 {
	if len(products) == 0 {
		return 0
	}
	matches := 0
	for _, p := range products {
		if p.IsDefaultOnly() {
			if _, _, ok := helpers.SplitTitleOnce(p.Title, titleDelimiters); ok {
				matches++
			}
		}
	}
	return float64(matches) / float64(len(products))
}

type mergeGroup struct {
	baseTitle string
	members   []discovery.FeedProduct
}

// splitMergeable partitions products into groups sharing a base title (only
// default-only products with splittable titles merge) and the remainder.
func splitMergeable(products []discovery.FeedProduct) ([]mergeGroup, []discovery.FeedProduct) {
	groups := make(map[string]*mergeGroup)
	var order []string
	var rest []discovery.FeedProduct

	for _, p := range products {
		if p.IsDefaultOnly() {
			if base, _, ok := helpers.SplitTitleOnce(p.Title, titleDelimiters); ok {
				g, exists := groups[base]
				if !exists {
					g = &mergeGroup{baseTitle: base}
					groups[base] = g
					order = append(order, base)
				}
				g.members = append(g.members, p)
				continue
			}
		}
		rest = append(rest, p)
	}

	var merged []mergeGroup
	for _, base := range order {
		g := groups[base]
		if len(g.members) > 1 {
			merged = append(merged, *g)
		} else {
			rest = append(rest, g.members...)
		}
	}
	return merged, rest
}

// mergedGroupOffers emits one offer per member product, all under a shared
// logical product id derived from the group's stable anchor (the smallest
// member handle), with the title suffix as a synthetic option value.
func mergedGroupOffers(group mergeGroup, sourceSite, origin string, mctx *market.Context, opts FeedOptions) []Offer {
	handles := make([]string, 0, len(group.members))
	for _, p := range group.members {
		handles = append(handles, p.Handle)
	}
	sort.Strings(handles)
	anchorURL := productURL(origin, handles[0])
	logicalID := urlid.BuildSourceProductID(sourceSite, "", anchorURL, "")

	var out []Offer
	for _, p := range group.members {
		_, suffix, _ := helpers.SplitTitleOnce(p.Title, titleDelimiters)
		v := p.Variants[0]
		offer := buildFeedOffer(p, v, sourceSite, origin, mctx, opts)
		offer.SourceProductID = logicalID
		offer.ProductTitle = group.baseTitle
		offer.OptionName = "Variant"
		offer.OptionValue = suffix
		out = append(out, offer)
	}
	return out
}

func feedProductOffers(p discovery.FeedProduct, sourceSite, origin string, mctx *market.Context, opts FeedOptions) []Offer {
	out := make([]Offer, 0, len(p.Variants))
	for _, v := range p.Variants {
		offer := buildFeedOffer(p, v, sourceSite, origin, mctx, opts)
		if len(p.Options) > 0 {
			offer.OptionName = p.Options[0].Name
		}
		offer.OptionValue = v.OptionValue()
		out = append(out, offer)
	}
	return out
}

func buildFeedOffer(p discovery.FeedProduct, v discovery.FeedVariant, sourceSite, origin string, mctx *market.Context, opts FeedOptions) Offer {
	canonical := urlid.CanonicalizeURL(productURL(origin, p.Handle), "")
	sku := strings.TrimSpace(v.SKU)
	if sku == "" {
		sku = strconv.FormatInt(v.ID, 10)
	}

	offer := Offer{
		SourceSite:      sourceSite,
		SourceProductID: urlid.BuildSourceProductID(sourceSite, strconv.FormatInt(p.ID, 10), canonical, sku),
		URLCanonical:    canonical,
		ProductTitle:    p.Title,
		VariantSKU:      sku,
		PriceDisplayRaw: v.Price,
		Availability:    feedAvailability(v, opts.LowStockThreshold),
	}
	finishOffer(&offer, "", nil, mctx)
	return offer
}

func feedAvailability(v discovery.FeedVariant, lowStockThreshold int) string {
	if !v.Available {
		return AvailabilityOutOfStock
	}
	if lowStockThreshold > 0 && v.InventoryQuantity > 0 && v.InventoryQuantity <= lowStockThreshold {
		return AvailabilityLowStock
	}
	return AvailabilityInStock
}

func productURL(origin, handle string) string {
	return origin + "/products/" + handle
}
