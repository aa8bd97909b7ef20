package extract

import (
	"fmt"

	"yjkwon/offerharvester/internal/market"
	"yjkwon/offerharvester/internal/urlid"
)

// PageOffers turns one page snapshot into normalized offers. Pages without a
// JSON-LD Product object yield no offers; the caller treats that as a
// per-page failure and moves on.
func PageOffers(snap *Snapshot, sourceSite string, mctx *market.Context) []Offer {
	docs := ParseJSONLDScripts(snap.JSONLDScripts)
	products := ProductObjects(docs)
	if len(products) == 0 {
		return nil
	}

	var out []Offer
	for _, product := range products {
		out = append(out, productOffers(snap, product, sourceSite, mctx)...)
	}
	return out
}

func productOffers(snap *Snapshot, product map[string]interface{}, sourceSite string, mctx *market.Context) []Offer {
	title := snap.ResolveTitle(product)
	canonical := snap.ResolveCanonical(product)
	siteProductID := stringField(product, "productID")

	offerObjs := OfferObjects(product)
	if len(offerObjs) == 0 {
		return []Offer{synthesizeDefaultOffer(snap, sourceSite, siteProductID, title, canonical, mctx)}
	}

	out := make([]Offer, 0, len(offerObjs))
	for i, obj := range offerObjs {
		sku := stringField(obj, "sku")
		if sku == "" {
			sku = "AUTO-" + urlid.ShortHash(fmt.Sprintf("%s#%d", canonical, i))
		}

		display := offerPrice(obj)
		structuredCurrency := offerCurrency(obj)
		if display == "" {
			if meta, ok := snap.DOMVariants[sku]; ok {
				display = meta.Price
				if structuredCurrency == "" {
					structuredCurrency = meta.Currency
				}
			}
		}

		offer := Offer{
			SourceSite:      sourceSite,
			SourceProductID: urlid.BuildSourceProductID(sourceSite, siteProductID, canonical, sku),
			URLCanonical:    canonical,
			ProductTitle:    title,
			VariantSKU:      sku,
			PriceDisplayRaw: display,
			TaxIncluded:     offerTaxIncluded(obj),
			Availability:    normalizeAvailability(stringField(obj, "availability")),
		}
		finishOffer(&offer, structuredCurrency, snap.MetaCurrencies, mctx)
		out = append(out, offer)
	}
	return out
}

// synthesizeDefaultOffer covers products that carry no offers at all: one
// default record built from page-level price and currency hints.
func synthesizeDefaultOffer(snap *Snapshot, sourceSite, siteProductID, title, canonical string, mctx *market.Context) Offer {
	sku := title
	if sku == "" {
		sku = urlid.ShortHash(canonical)
	}

	offer := Offer{
		SourceSite:      sourceSite,
		SourceProductID: urlid.BuildSourceProductID(sourceSite, siteProductID, canonical, sku),
		URLCanonical:    canonical,
		ProductTitle:    title,
		VariantSKU:      sku,
		PriceDisplayRaw: snap.FallbackPriceText(),
		OptionValue:     "Default",
	}
	finishOffer(&offer, "", snap.MetaCurrencies, mctx)
	return offer
}
