package counters

import (
	"sort"
	"strings"

	"yjkwon/offerharvester/internal/extract"
	"yjkwon/offerharvester/internal/market"
	"yjkwon/offerharvester/internal/price"
)

// RequestedMarket records one (site, market) pass the caller asked for,
// whether or not it produced offers. Failed marks a pass that errored out
// upstream (timeout, discovery failure) before emitting anything.
type RequestedMarket struct {
	SourceSite string
	MarketID   string
	Failed     bool
}

// SiteMarketCounters is the per-(site, market) rollup of one run. Recomputed
// fresh from the offer set every run, never persisted incrementally.
type SiteMarketCounters struct {
	SourceSite            string  `json:"source_site"`
	MarketID              string  `json:"market_id"`
	TotalOffers           int     `json:"total_offers"`
	NativeCurrencyHitRate float64 `json:"native_currency_hit_rate"`
	PriceParseSuccessRate float64 `json:"price_parse_success_rate"`
	LowConfidenceRate     float64 `json:"low_confidence_rate"`
	MarketSwitchFailRate  float64 `json:"market_switch_fail_rate"`
	MarketFailed          bool    `json:"market_failed"`
}

type tally struct {
	total       int
	nativeHits  int
	priceParsed int
	lowConf     int
	switchFails int
	failed      bool
}

type key struct {
	site     string
	marketID string
}

// Compute rolls offers up by (site, market). Every requested market appears
// in the output even with zero offers; a zero-offer market flagged as failed
// reports a switch-failure rate of 1 so dashboards surface it. Output is
// sorted by (source_site, market_id).
func Compute(offers []extract.Offer, requested []RequestedMarket) []SiteMarketCounters {
	tallies := make(map[key]*tally)

	for _, rm := range requested {
		k := key{site: rm.SourceSite, marketID: rm.MarketID}
		t, ok := tallies[k]
		if !ok {
			t = &tally{}
			tallies[k] = t
		}
		if rm.Failed {
			t.failed = true
		}
	}

	for _, o := range offers {
		k := key{site: o.SourceSite, marketID: o.MarketID}
		t, ok := tallies[k]
		if !ok {
			t = &tally{}
			tallies[k] = t
		}
		t.total++

		expected := market.Lookup(o.MarketID).CurrencyTarget
		if o.PriceCurrency != "" && strings.EqualFold(o.PriceCurrency, expected) {
			t.nativeHits++
		}
		if o.PriceAmount != nil {
			t.priceParsed++
		}
		if o.CurrencyConfidence == price.ConfidenceLow {
			t.lowConf++
		}
		if o.MarketSwitchStatus == price.SwitchFailed || o.MarketSwitchStatus == price.SwitchMismatch {
			t.switchFails++
		}
	}

	out := make([]SiteMarketCounters, 0, len(tallies))
	for k, t := range tallies {
		c := SiteMarketCounters{
			SourceSite:   k.site,
			MarketID:     k.marketID,
			TotalOffers:  t.total,
			MarketFailed: t.failed,
		}
		if t.total > 0 {
			c.NativeCurrencyHitRate = rate(t.nativeHits, t.total)
			c.PriceParseSuccessRate = rate(t.priceParsed, t.total)
			c.LowConfidenceRate = rate(t.lowConf, t.total)
			c.MarketSwitchFailRate = rate(t.switchFails, t.total)
		} else if t.failed {
			c.MarketSwitchFailRate = 1
		}
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].SourceSite != out[j].SourceSite {
			return out[i].SourceSite < out[j].SourceSite
		}
		return out[i].MarketID < out[j].MarketID
	})
	return out
}

func rate(count, total int) float64 {
	return float64(count) / float64(total)
}
