package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yjkwon/offerharvester/config"
	"yjkwon/offerharvester/helpers"
	"yjkwon/offerharvester/internal/discovery"
	"yjkwon/offerharvester/internal/extract"
	"yjkwon/offerharvester/internal/metrics"
	"yjkwon/offerharvester/internal/pipeline"
	"yjkwon/offerharvester/internal/server"
	"yjkwon/offerharvester/services/history"
	"yjkwon/offerharvester/services/publisher"
)

// newTestStorefront serves a small catalog the way a real shop would: robots
// and sitemap for discovery, JSON-LD product pages priced per the currency
// query parameter the market overlay injects.
func newTestStorefront(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/products.json", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "User-agent: *\nSitemap: %s/sitemap.xml\n", srv.URL)
	})
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		var locs strings.Builder
		for i := 1; i <= 4; i++ {
			fmt.Fprintf(&locs, "<url><loc>%s/products/item-%d</loc></url>", srv.URL, i)
		}
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><urlset>%s</urlset>`, locs.String())
	})
	for i := 1; i <= 4; i++ {
		i := i
		mux.HandleFunc(fmt.Sprintf("/products/item-%d", i), func(w http.ResponseWriter, r *http.Request) {
			currency := r.URL.Query().Get("currency")
			price := fmt.Sprintf("%d.00", 10+i)
			if currency == "" {
				currency = "USD"
			}
			if currency == "JPY" {
				price = fmt.Sprintf("%d", 1500+i*100)
			}
			fmt.Fprintf(w, `<html><head>
<script type="application/ld+json">
{"@type": "Product", "name": "Item %d", "offers": {"@type": "Offer", "sku": "ITEM-%d", "price": %q, "priceCurrency": %q}}
</script>
</head><body><h1>Item %d</h1></body></html>`, i, i, price, currency, i)
		})
	}
	return srv
}

func newTestStack(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{
		V2Enabled:        true,
		Mode:             config.ModeLive,
		BatchLimit:       2,
		BatchLimitMin:    1,
		BatchLimitMax:    50,
		MaxTotalProducts: 100,
		DiscoveryReserve: 1,
		Concurrency:      2,
		FetchTimeout:     5 * time.Second,
		MarketTimeout:    time.Minute,
		MarketInjection:  true,
		VariantTitleMode: "auto",
		HistoryPath:      filepath.Join(t.TempDir(), "history.jsonl"),
		HistoryLookback:  time.Hour,
	}

	m := metrics.New()
	fetcher := helpers.NewFetcher(cfg.FetchTimeout, nil, 0)
	extractor := pipeline.NewLiveExtractor(
		discovery.New(fetcher, discovery.Options{}),
		extract.NewFetchRenderer(fetcher),
		cfg,
		m,
	)
	runner := pipeline.NewRunner(cfg, extractor, m)
	return server.New(cfg, runner, history.NewStore(cfg.HistoryPath), publisher.Noop{}, m).Handler()
}

func postExtract(t *testing.T, handler http.Handler, path string, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestEndToEndMultiMarketExtraction(t *testing.T) {
	site := newTestStorefront(t)
	handler := newTestStack(t)

	rec := postExtract(t, handler, "/api/extract/v2", map[string]interface{}{
		"brand":   "glow",
		"domain":  site.URL,
		"limit":   10,
		"markets": []string{"US", "JP"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp pipeline.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Len(t, resp.Offers, 8)
	byMarket := map[string][]extract.Offer{}
	for _, o := range resp.Offers {
		byMarket[o.MarketID] = append(byMarket[o.MarketID], o)
	}
	require.Len(t, byMarket["US"], 4)
	require.Len(t, byMarket["JP"], 4)

	// the storefront honored the injected currency parameter per market
	assert.Equal(t, "USD", byMarket["US"][0].PriceCurrency)
	assert.Equal(t, "JPY", byMarket["JP"][0].PriceCurrency)
	assert.Equal(t, "ok", string(byMarket["JP"][0].MarketSwitchStatus))

	// same logical products in both markets despite differing prices
	usIDs := map[string]bool{}
	for _, o := range byMarket["US"] {
		usIDs[o.SourceProductID] = true
	}
	for _, o := range byMarket["JP"] {
		assert.True(t, usIDs[o.SourceProductID], "JP offer %s missing US counterpart", o.SourceProductID)
	}

	require.Len(t, resp.Counters, 2)
	for _, c := range resp.Counters {
		assert.Equal(t, 1.0, c.NativeCurrencyHitRate, c.MarketID)
		assert.Equal(t, 0.0, c.MarketSwitchFailRate, c.MarketID)
		assert.False(t, c.MarketFailed)
	}
	assert.NotEmpty(t, resp.Logs)
}

func TestEndToEndPaginationTerminates(t *testing.T) {
	site := newTestStorefront(t)
	handler := newTestStack(t)

	visited := map[string]int{}
	offset := 0
	for rounds := 0; ; rounds++ {
		require.Less(t, rounds, 10, "pagination must terminate")

		rec := postExtract(t, handler, "/api/extract/v2", map[string]interface{}{
			"brand": "glow", "domain": site.URL, "offset": offset, "limit": 2,
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp pipeline.Result
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		for _, o := range resp.Offers {
			visited[o.SourceProductID]++
		}

		require.NotNil(t, resp.Pagination)
		if !resp.Pagination.HasMore {
			break
		}
		offset = *resp.Pagination.NextOffset
	}

	assert.Len(t, visited, 4)
	for id, n := range visited {
		assert.Equal(t, 1, n, "product %s returned %d times", id, n)
	}
}

func TestEndToEndLegacyEndpoint(t *testing.T) {
	site := newTestStorefront(t)
	handler := newTestStack(t)

	rec := postExtract(t, handler, "/api/extract", map[string]interface{}{
		"brand": "glow", "domain": site.URL, "limit": 10,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp server.LegacyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Products, 4)
	assert.Len(t, resp.Variants, 4)
	assert.Equal(t, "USD", resp.Pricing.Currency)
	require.NotNil(t, resp.Pricing.MinPrice)
	assert.Equal(t, 11.0, *resp.Pricing.MinPrice)
	require.NotNil(t, resp.Pricing.MaxPrice)
	assert.Equal(t, 14.0, *resp.Pricing.MaxPrice)
}
