package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yjkwon/offerharvester/internal/market"
)

const productPageHTML = `<!DOCTYPE html>
<html>
<head>
<title>Hydra Serum | GlowShop</title>
<link rel="canonical" href="https://glowshop.example/products/hydra-serum?utm_source=mail">
<meta property="og:title" content="Hydra Serum">
<meta property="og:url" content="https://glowshop.example/products/hydra-serum">
<meta property="product:price:currency" content="USD">
<script type="application/ld+json">
{
  "@context": "https://schema.org",
  "@type": "Product",
  "name": "Hydra Serum",
  "productID": "HS-100",
  "url": "https://glowshop.example/products/hydra-serum",
  "offers": {
    "@type": "AggregateOffer",
    "offers": [
      {"@type": "Offer", "sku": "HS-100-30", "price": "28.00", "priceCurrency": "USD", "availability": "https://schema.org/InStock"},
      {"@type": "Offer", "sku": "HS-100-50", "price": "42.00", "priceCurrency": "USD", "availability": "https://schema.org/OutOfStock"}
    ]
  }
}
</script>
</head>
<body>
<h1>Hydra Serum</h1>
<span class="product-price">$28.00</span>
<div data-sku="HS-100-30" data-price="28.00" data-currency="USD"></div>
</body>
</html>`

func usContext() *market.Context {
	return market.NewContext(market.Lookup("US"), true)
}

func TestParseSnapshotFields(t *testing.T) {
	snap, err := ParseSnapshot(productPageHTML, "https://glowshop.example/products/hydra-serum")
	require.NoError(t, err)

	assert.Equal(t, "Hydra Serum | GlowShop", snap.Title)
	assert.Equal(t, "Hydra Serum", snap.H1)
	assert.Equal(t, "Hydra Serum", snap.OGTitle)
	assert.Equal(t, "https://glowshop.example/products/hydra-serum?utm_source=mail", snap.Canonical)
	assert.Equal(t, []string{"USD"}, snap.MetaCurrencies)
	require.Len(t, snap.JSONLDScripts, 1)
	assert.Contains(t, snap.PriceTexts, "$28.00")

	variant, ok := snap.DOMVariants["HS-100-30"]
	require.True(t, ok)
	assert.Equal(t, "28.00", variant.Price)
	assert.Equal(t, "USD", variant.Currency)
}

func TestPageOffersFromJSONLD(t *testing.T) {
	snap, err := ParseSnapshot(productPageHTML, "https://glowshop.example/products/hydra-serum")
	require.NoError(t, err)

	offers := PageOffers(snap, "glowshop", usContext())
	require.Len(t, offers, 2)

	first := offers[0]
	assert.Equal(t, "glowshop", first.SourceSite)
	assert.Equal(t, "glowshop:HS-100", first.SourceProductID)
	assert.Equal(t, "Hydra Serum", first.ProductTitle)
	assert.Equal(t, "HS-100-30", first.VariantSKU)
	require.NotNil(t, first.PriceAmount)
	assert.Equal(t, 28.0, *first.PriceAmount)
	assert.Equal(t, "USD", first.PriceCurrency)
	assert.Equal(t, AvailabilityInStock, first.Availability)
	assert.Equal(t, "US", first.MarketID)
	assert.Equal(t, "ok", string(first.MarketSwitchStatus))
	// canonical URL loses the tracking param
	assert.Equal(t, "https://glowshop.example/products/hydra-serum", first.URLCanonical)

	assert.Equal(t, AvailabilityOutOfStock, offers[1].Availability)
}

func TestPageOffersNoProduct(t *testing.T) {
	snap, err := ParseSnapshot(`<html><head><title>About us</title></head><body><p>Hello</p></body></html>`,
		"https://glowshop.example/about")
	require.NoError(t, err)

	assert.Nil(t, PageOffers(snap, "glowshop", usContext()))
}

func TestPageOffersSynthesizesDefaultOffer(t *testing.T) {
	html := `<html><head>
<title>Clay Mask</title>
<meta property="product:price:currency" content="USD">
<script type="application/ld+json">{"@type": "Product", "name": "Clay Mask"}</script>
</head><body><span class="price">$14.50</span></body></html>`

	snap, err := ParseSnapshot(html, "https://glowshop.example/products/clay-mask")
	require.NoError(t, err)

	offers := PageOffers(snap, "glowshop", usContext())
	require.Len(t, offers, 1)

	offer := offers[0]
	assert.Equal(t, "Clay Mask", offer.ProductTitle)
	assert.Equal(t, "Clay Mask", offer.VariantSKU)
	assert.Equal(t, "Default", offer.OptionValue)
	require.NotNil(t, offer.PriceAmount)
	assert.Equal(t, 14.5, *offer.PriceAmount)
	assert.Equal(t, "USD", offer.PriceCurrency)
	assert.Equal(t, "medium", string(offer.CurrencyConfidence))
}

func TestPageOffersAutoSKU(t *testing.T) {
	html := `<html><head>
<script type="application/ld+json">
{"@type": "Product", "name": "Toner", "offers": [{"@type": "Offer", "price": "9.99", "priceCurrency": "USD"}]}
</script>
</head><body></body></html>`

	snap, err := ParseSnapshot(html, "https://glowshop.example/products/toner")
	require.NoError(t, err)

	offers := PageOffers(snap, "glowshop", usContext())
	require.Len(t, offers, 1)
	assert.True(t, strings.HasPrefix(offers[0].VariantSKU, "AUTO-"))

	// same page re-extracted yields the same synthetic SKU and product id
	again := PageOffers(snap, "glowshop", usContext())
	require.Len(t, again, 1)
	assert.Equal(t, offers[0].VariantSKU, again[0].VariantSKU)
	assert.Equal(t, offers[0].SourceProductID, again[0].SourceProductID)
}

func TestPageOffersDOMVariantPriceFallback(t *testing.T) {
	html := `<html><head>
<script type="application/ld+json">
{"@type": "Product", "name": "Mist", "offers": [{"@type": "Offer", "sku": "MIST-1"}]}
</script>
</head><body><div data-sku="MIST-1" data-price="21.00" data-currency="EUR"></div></body></html>`

	snap, err := ParseSnapshot(html, "https://glowshop.example/products/mist")
	require.NoError(t, err)

	offers := PageOffers(snap, "glowshop", usContext())
	require.Len(t, offers, 1)
	require.NotNil(t, offers[0].PriceAmount)
	assert.Equal(t, 21.0, *offers[0].PriceAmount)
	assert.Equal(t, "EUR", offers[0].PriceCurrency)
	assert.Equal(t, "mismatch", string(offers[0].MarketSwitchStatus))
}

func TestNormalizeAvailability(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://schema.org/InStock", AvailabilityInStock},
		{"https://schema.org/OutOfStock", AvailabilityOutOfStock},
		{"SoldOut", AvailabilityOutOfStock},
		{"https://schema.org/PreOrder", AvailabilityPreorder},
		{"LimitedAvailability", AvailabilityLowStock},
		{"BackOrder", "BackOrder"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeAvailability(tt.raw), tt.raw)
	}
}
