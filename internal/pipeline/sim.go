package pipeline

import (
	"context"
	"fmt"
	"time"

	"yjkwon/offerharvester/internal/extract"
	"yjkwon/offerharvester/internal/market"
	"yjkwon/offerharvester/internal/price"
	"yjkwon/offerharvester/internal/trace"
	"yjkwon/offerharvester/internal/urlid"
)

// SimulatedExtractor is a deterministic fixture generator: the same request
// always yields the same offers, with no network access. It exists so the
// HTTP surface and pipeline can be exercised end to end in tests and demos.
type SimulatedExtractor struct {
	// CatalogSize is how many products the pretend site carries.
	CatalogSize int
}

// NewSimulatedExtractor creates a simulator with a fixed catalog size.
func NewSimulatedExtractor(catalogSize int) *SimulatedExtractor {
	if catalogSize <= 0 {
		catalogSize = 30
	}
	return &SimulatedExtractor{CatalogSize: catalogSize}
}

// ExtractMarket generates the windowed slice of the deterministic catalog.
func (s *SimulatedExtractor) ExtractMarket(_ context.Context, site, domain string, w Window, mctx *market.Context, tl *trace.Log) (*MarketOutcome, error) {
	discovered := s.CatalogSize
	if w.MaxTotal > 0 && w.MaxTotal < discovered {
		discovered = w.MaxTotal
	}

	window := sliceWindow(discovered, w)
	var offers []extract.Offer
	count := 0
	for i := window.start; i < window.end && count < w.Limit; i++ {
		offers = append(offers, s.offerAt(site, domain, i, mctx))
		count++
	}

	tl.Info("simulated catalog for %s: %d products, window [%d, %d)", domain, discovered, window.start, window.end)
	return &MarketOutcome{
		Offers:     offers,
		Platform:   "simulated",
		Discovered: discovered,
	}, nil
}

func (s *SimulatedExtractor) offerAt(site, domain string, i int, mctx *market.Context) extract.Offer {
	canonical := fmt.Sprintf("https://%s/products/sample-%03d", SiteName(domain), i)
	sku := fmt.Sprintf("SIM-%03d", i)
	amount := 10.0 + float64(i)
	currency := mctx.ExpectedCurrency()

	return extract.Offer{
		SourceSite:         site,
		SourceProductID:    urlid.BuildSourceProductID(site, "", canonical, sku),
		URLCanonical:       canonical,
		ProductTitle:       fmt.Sprintf("Sample Product %03d", i),
		VariantSKU:         sku,
		MarketID:           mctx.MarketID(),
		PriceAmount:        &amount,
		PriceCurrency:      currency,
		PriceDisplayRaw:    fmt.Sprintf("%.2f %s", amount, currency),
		PriceType:          price.TypeList,
		TaxIncluded:        "unknown",
		Availability:       extract.AvailabilityInStock,
		CapturedAt:         time.Unix(0, 0).UTC(),
		CurrencyConfidence: price.ConfidenceHigh,
		MarketSwitchStatus: price.SwitchOK,
		MarketContextDebug: mctx.Snapshot(currency),
	}
}
