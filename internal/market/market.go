package market

import (
	"net/url"
	"strings"
)

// Profile is the static configuration for one simulated storefront region.
// Profiles are immutable; look one up with Lookup.
type Profile struct {
	MarketID            string            `json:"market_id"`
	CurrencyTarget      string            `json:"currency_target"`
	Locale              string            `json:"locale"`
	Country             string            `json:"country"`
	Headers             map[string]string `json:"headers"`
	Cookies             map[string]string `json:"cookies"`
	URLParams           map[string]string `json:"url_params"`
	ShippingDestination string            `json:"shipping_destination,omitempty"`
	GeoHint             string            `json:"geo_hint,omitempty"`
}

// Context is the network overlay threaded through every fetch of one market's
// extraction pass. When injection is disabled the overlay maps are empty but
// the expected currency is still carried for comparison.
type Context struct {
	Profile          Profile
	InjectionEnabled bool
}

// DebugSnapshot records the exact context used to produce one offer so a
// price/currency observation can be audited after the fact.
type DebugSnapshot struct {
	MarketID         string            `json:"market_id"`
	Headers          map[string]string `json:"headers"`
	Cookies          map[string]string `json:"cookies"`
	URLParams        map[string]string `json:"url_params"`
	ExpectedCurrency string            `json:"expected_currency"`
	ObservedCurrency string            `json:"observed_currency,omitempty"`
}

// DefaultMarketID is used when a request names no market or an unknown one.
const DefaultMarketID = "US"

var profiles = map[string]Profile{
	"US": {
		MarketID:       "US",
		CurrencyTarget: "USD",
		Locale:         "en-US",
		Country:        "US",
		Headers:        map[string]string{"Accept-Language": "en-US,en;q=0.9"},
		Cookies:        map[string]string{"localization": "US", "currency": "USD"},
		URLParams:      map[string]string{"country": "US", "currency": "USD"},
	},
	"JP": {
		MarketID:            "JP",
		CurrencyTarget:      "JPY",
		Locale:              "ja-JP",
		Country:             "JP",
		Headers:             map[string]string{"Accept-Language": "ja-JP,ja;q=0.9,en;q=0.5"},
		Cookies:             map[string]string{"localization": "JP", "currency": "JPY"},
		URLParams:           map[string]string{"country": "JP", "currency": "JPY"},
		ShippingDestination: "JP",
	},
	"EU-DE": {
		MarketID:            "EU-DE",
		CurrencyTarget:      "EUR",
		Locale:              "de-DE",
		Country:             "DE",
		Headers:             map[string]string{"Accept-Language": "de-DE,de;q=0.9,en;q=0.5"},
		Cookies:             map[string]string{"localization": "DE", "currency": "EUR"},
		URLParams:           map[string]string{"country": "DE", "currency": "EUR"},
		ShippingDestination: "DE",
		GeoHint:             "eu-central",
	},
	"SG": {
		MarketID:            "SG",
		CurrencyTarget:      "SGD",
		Locale:              "en-SG",
		Country:             "SG",
		Headers:             map[string]string{"Accept-Language": "en-SG,en;q=0.9"},
		Cookies:             map[string]string{"localization": "SG", "currency": "SGD"},
		URLParams:           map[string]string{"country": "SG", "currency": "SGD"},
		ShippingDestination: "SG",
		GeoHint:             "ap-southeast",
	},
}

// Lookup returns the profile for id, falling back to the US profile for an
// empty or unknown id.
func Lookup(id string) Profile {
	normalized := strings.ToUpper(strings.TrimSpace(id))
	if p, ok := profiles[normalized]; ok {
		return p
	}
	return profiles[DefaultMarketID]
}

// KnownMarketIDs lists the configured market ids.
func KnownMarketIDs() []string {
	ids := make([]string, 0, len(profiles))
	for id := range profiles {
		ids = append(ids, id)
	}
	return ids
}

// NewContext builds the network context for one market pass.
func NewContext(p Profile, injectionEnabled bool) *Context {
	return &Context{Profile: p, InjectionEnabled: injectionEnabled}
}

// Headers returns the headers to inject, nil when injection is off.
func (c *Context) Headers() map[string]string {
	if c == nil || !c.InjectionEnabled {
		return nil
	}
	return c.Profile.Headers
}

// Cookies returns the cookies to inject, nil when injection is off.
func (c *Context) Cookies() map[string]string {
	if c == nil || !c.InjectionEnabled {
		return nil
	}
	return c.Profile.Cookies
}

// ExpectedCurrency returns the market's target currency code.
func (c *Context) ExpectedCurrency() string {
	if c == nil {
		return ""
	}
	return c.Profile.CurrencyTarget
}

// MarketID returns the market id of the context.
func (c *Context) MarketID() string {
	if c == nil {
		return DefaultMarketID
	}
	return c.Profile.MarketID
}

// ApplyURLParams merges the market's query parameters into rawURL without
// overwriting parameters the URL already carries. Unparseable URLs are
// returned unchanged.
func (c *Context) ApplyURLParams(rawURL string) string {
	if c == nil || !c.InjectionEnabled || len(c.Profile.URLParams) == 0 {
		return rawURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := parsed.Query()
	for key, value := range c.Profile.URLParams {
		if q.Get(key) == "" {
			q.Set(key, value)
		}
	}
	parsed.RawQuery = q.Encode()
	return parsed.String()
}

// Snapshot captures the context for offer-level debugging. The observed
// currency is filled in by the extractor once known.
func (c *Context) Snapshot(observedCurrency string) DebugSnapshot {
	snap := DebugSnapshot{
		MarketID:         c.MarketID(),
		ExpectedCurrency: c.ExpectedCurrency(),
		ObservedCurrency: observedCurrency,
	}
	if c != nil && c.InjectionEnabled {
		snap.Headers = c.Profile.Headers
		snap.Cookies = c.Profile.Cookies
		snap.URLParams = c.Profile.URLParams
	}
	return snap
}
