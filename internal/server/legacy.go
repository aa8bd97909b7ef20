package server

import (
	"time"

	"yjkwon/offerharvester/internal/pipeline"
	"yjkwon/offerharvester/internal/trace"
)

// The legacy response keeps the shape the original single-market endpoint
// exposed so existing clients keep working: offers are split into a product
// list and a variant list plus a pricing summary.

type legacyProduct struct {
	SourceProductID string `json:"source_product_id"`
	Title           string `json:"title"`
	URL             string `json:"url"`
	VariantCount    int    `json:"variant_count"`
}

type legacyVariant struct {
	SourceProductID string   `json:"source_product_id"`
	SKU             string   `json:"sku"`
	OptionName      string   `json:"option_name,omitempty"`
	OptionValue     string   `json:"option_value,omitempty"`
	Price           *float64 `json:"price"`
	Currency        string   `json:"currency,omitempty"`
	PriceDisplay    string   `json:"price_display"`
	Availability    string   `json:"availability"`
}

type legacyPricing struct {
	Currency   string   `json:"currency,omitempty"`
	MinPrice   *float64 `json:"min_price"`
	MaxPrice   *float64 `json:"max_price"`
	OfferCount int      `json:"offer_count"`
}

// LegacyResponse is the v1 extraction payload.
type LegacyResponse struct {
	Brand       string               `json:"brand"`
	Domain      string               `json:"domain"`
	GeneratedAt time.Time            `json:"generated_at"`
	Mode        string               `json:"mode"`
	Platform    string               `json:"platform,omitempty"`
	Products    []legacyProduct      `json:"products"`
	Variants    []legacyVariant      `json:"variants"`
	Pricing     legacyPricing        `json:"pricing"`
	AdCopy      string               `json:"ad_copy"`
	Pagination  *pipeline.Pagination `json:"pagination,omitempty"`
	Logs        []trace.Event        `json:"logs"`
}

func legacyResponse(result *pipeline.Result) LegacyResponse {
	resp := LegacyResponse{
		Brand:       result.Brand,
		Domain:      result.Domain,
		GeneratedAt: result.GeneratedAt,
		Mode:        result.Mode,
		Platform:    result.Platform,
		Products:    []legacyProduct{},
		Variants:    []legacyVariant{},
		Pagination:  result.Pagination,
		Logs:        result.Logs,
	}
	if runFailed(result) {
		resp.Platform = "Error"
	}

	productIdx := make(map[string]int)
	currencyVotes := make(map[string]int)

	for _, o := range result.Offers {
		idx, ok := productIdx[o.SourceProductID]
		if !ok {
			idx = len(resp.Products)
			productIdx[o.SourceProductID] = idx
			resp.Products = append(resp.Products, legacyProduct{
				SourceProductID: o.SourceProductID,
				Title:           o.ProductTitle,
				URL:             o.URLCanonical,
			})
		}
		resp.Products[idx].VariantCount++

		resp.Variants = append(resp.Variants, legacyVariant{
			SourceProductID: o.SourceProductID,
			SKU:             o.VariantSKU,
			OptionName:      o.OptionName,
			OptionValue:     o.OptionValue,
			Price:           o.PriceAmount,
			Currency:        o.PriceCurrency,
			PriceDisplay:    o.PriceDisplayRaw,
			Availability:    o.Availability,
		})

		if o.PriceCurrency != "" {
			currencyVotes[o.PriceCurrency]++
		}
		if o.PriceAmount != nil {
			amount := *o.PriceAmount
			if resp.Pricing.MinPrice == nil || amount < *resp.Pricing.MinPrice {
				v := amount
				resp.Pricing.MinPrice = &v
			}
			if resp.Pricing.MaxPrice == nil || amount > *resp.Pricing.MaxPrice {
				v := amount
				resp.Pricing.MaxPrice = &v
			}
		}
		resp.Pricing.OfferCount++
	}

	best := 0
	for code, votes := range currencyVotes {
		if votes > best || (votes == best && code < resp.Pricing.Currency) {
			best = votes
			resp.Pricing.Currency = code
		}
	}
	return resp
}
