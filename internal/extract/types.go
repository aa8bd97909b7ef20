package extract

import (
	"strings"
	"time"

	"yjkwon/offerharvester/internal/market"
	"yjkwon/offerharvester/internal/price"
)

// Availability values offers are normalized to
const (
	AvailabilityInStock    = "in_stock"
	AvailabilityLowStock   = "low_stock"
	AvailabilityOutOfStock = "out_of_stock"
	AvailabilityPreorder   = "preorder"
)

// Offer is one purchasable price point for one variant of one product in one
// market at one point in time. Offers are immutable once created.
type Offer struct {
	SourceSite         string               `json:"source_site"`
	SourceProductID    string               `json:"source_product_id"`
	URLCanonical       string               `json:"url_canonical"`
	ProductTitle       string               `json:"product_title"`
	VariantSKU         string               `json:"variant_sku"`
	MarketID           string               `json:"market_id"`
	PriceAmount        *float64             `json:"price_amount"`
	PriceCurrency      string               `json:"price_currency,omitempty"`
	PriceDisplayRaw    string               `json:"price_display_raw"`
	PriceType          price.PriceType      `json:"price_type"`
	RangeMin           *float64             `json:"range_min,omitempty"`
	RangeMax           *float64             `json:"range_max,omitempty"`
	TaxIncluded        string               `json:"tax_included"`
	Availability       string               `json:"availability"`
	CapturedAt         time.Time            `json:"captured_at"`
	CurrencyConfidence price.Confidence     `json:"currency_confidence"`
	MarketSwitchStatus price.SwitchStatus   `json:"market_switch_status"`
	MarketContextDebug market.DebugSnapshot `json:"market_context_debug"`
	OptionName         string               `json:"option_name,omitempty"`
	OptionValue        string               `json:"option_value,omitempty"`
}

// finishOffer runs the shared finalization every extracted offer goes through:
// price parsing, currency resolution, switch status and the context snapshot.
func finishOffer(o *Offer, structuredCurrency string, metaCurrencies []string, mctx *market.Context) {
	parsed := price.ParsePrice(o.PriceDisplayRaw)
	o.PriceAmount = parsed.Amount
	o.PriceType = parsed.Type
	o.RangeMin = parsed.RangeMin
	o.RangeMax = parsed.RangeMax

	code, confidence := price.ResolveCurrency(structuredCurrency, metaCurrencies, o.PriceDisplayRaw, mctx.MarketID())
	o.PriceCurrency = code
	o.CurrencyConfidence = confidence

	o.MarketID = mctx.MarketID()
	o.MarketSwitchStatus = price.ResolveMarketSwitchStatus(code, mctx.ExpectedCurrency(), false)
	o.MarketContextDebug = mctx.Snapshot(code)

	if o.CapturedAt.IsZero() {
		o.CapturedAt = time.Now().UTC()
	}
	if o.TaxIncluded == "" {
		o.TaxIncluded = "unknown"
	}
	if o.Availability == "" {
		o.Availability = AvailabilityInStock
	}
}

// normalizeAvailability maps schema.org availability enum text onto our
// normalized values; unrecognized values pass through as-is.
func normalizeAvailability(raw string) string {
	switch {
	case raw == "":
		return ""
	case contains(raw, "InStock"):
		return AvailabilityInStock
	case contains(raw, "OutOfStock"), contains(raw, "SoldOut"), contains(raw, "Discontinued"):
		return AvailabilityOutOfStock
	case contains(raw, "PreOrder"), contains(raw, "PreSale"):
		return AvailabilityPreorder
	case contains(raw, "LimitedAvailability"):
		return AvailabilityLowStock
	default:
		return raw
	}
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
