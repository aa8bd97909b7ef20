package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yjkwon/offerharvester/config"
	"yjkwon/offerharvester/internal/market"
	"yjkwon/offerharvester/internal/metrics"
	"yjkwon/offerharvester/internal/pipeline"
	"yjkwon/offerharvester/internal/trace"
	"yjkwon/offerharvester/services/history"
	"yjkwon/offerharvester/services/publisher"
)

func testServerConfig(t *testing.T) *config.Config {
	return &config.Config{
		ListenAddr:       ":0",
		V2Enabled:        true,
		Mode:             config.ModeSimulated,
		BatchLimit:       5,
		BatchLimitMin:    1,
		BatchLimitMax:    50,
		MaxTotalProducts: 100,
		DiscoveryReserve: 2,
		Concurrency:      2,
		MarketTimeout:    time.Minute,
		MarketInjection:  true,
		HistoryPath:      filepath.Join(t.TempDir(), "history.jsonl"),
		HistoryLookback:  24 * time.Hour,
	}
}

func newTestServer(t *testing.T, cfg *config.Config, extractor pipeline.Extractor) *Server {
	t.Helper()
	m := metrics.New()
	runner := pipeline.NewRunner(cfg, extractor, m)
	return New(cfg, runner, history.NewStore(cfg.HistoryPath), publisher.Noop{}, m)
}

func postJSON(t *testing.T, handler http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestExtractRejectsMissingFields(t *testing.T) {
	srv := newTestServer(t, testServerConfig(t), pipeline.NewSimulatedExtractor(10))
	handler := srv.Handler()

	for _, body := range []map[string]string{
		{},
		{"brand": "glow"},
		{"domain": "glowshop.example"},
		{"brand": "  ", "domain": "glowshop.example"},
	} {
		rec := postJSON(t, handler, "/api/extract", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestExtractLegacyResponse(t *testing.T) {
	srv := newTestServer(t, testServerConfig(t), pipeline.NewSimulatedExtractor(10))
	rec := postJSON(t, srv.Handler(), "/api/extract", map[string]interface{}{
		"brand": "glow", "domain": "glowshop.example", "limit": 3,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LegacyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "glow", resp.Brand)
	assert.Equal(t, "glowshop.example", resp.Domain)
	assert.Equal(t, config.ModeSimulated, resp.Mode)
	assert.Len(t, resp.Products, 3)
	assert.Len(t, resp.Variants, 3)
	assert.Equal(t, 3, resp.Pricing.OfferCount)
	require.NotNil(t, resp.Pricing.MinPrice)
	require.NotNil(t, resp.Pricing.MaxPrice)
	assert.Equal(t, "USD", resp.Pricing.Currency)
	assert.NotEmpty(t, resp.Logs)
	require.NotNil(t, resp.Pagination)
	assert.True(t, resp.Pagination.HasMore)
}

func TestExtractV2Response(t *testing.T) {
	srv := newTestServer(t, testServerConfig(t), pipeline.NewSimulatedExtractor(10))
	rec := postJSON(t, srv.Handler(), "/api/extract/v2", map[string]interface{}{
		"brand": "glow", "domain": "glowshop.example", "limit": 2, "markets": []string{"US", "JP"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp pipeline.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Len(t, resp.Offers, 4)
	require.Len(t, resp.Counters, 2)
	assert.Equal(t, "JP", resp.Counters[0].MarketID)
	assert.Equal(t, "US", resp.Counters[1].MarketID)
	assert.Equal(t, "simulated", resp.Platform)
}

func TestExtractV2DisabledIs404(t *testing.T) {
	cfg := testServerConfig(t)
	cfg.V2Enabled = false
	srv := newTestServer(t, cfg, pipeline.NewSimulatedExtractor(10))

	rec := postJSON(t, srv.Handler(), "/api/extract/v2", map[string]interface{}{
		"brand": "glow", "domain": "glowshop.example",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type failingExtractor struct{}

func (failingExtractor) ExtractMarket(context.Context, string, string, pipeline.Window, *market.Context, *trace.Log) (*pipeline.MarketOutcome, error) {
	return nil, errors.New("browser launch failed")
}

func TestExtractV2AllMarketsFailedIsErrorPayload(t *testing.T) {
	srv := newTestServer(t, testServerConfig(t), failingExtractor{})
	rec := postJSON(t, srv.Handler(), "/api/extract/v2", map[string]interface{}{
		"brand": "glow", "domain": "glowshop.example",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp pipeline.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Error", resp.Platform)
	assert.Empty(t, resp.Offers)
	require.Len(t, resp.Counters, 1)
	assert.True(t, resp.Counters[0].MarketFailed)
}

func TestHistoryEndpoint(t *testing.T) {
	cfg := testServerConfig(t)
	srv := newTestServer(t, cfg, pipeline.NewSimulatedExtractor(10))
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodPost, "/api/extract", bytes.NewReader([]byte(`{"brand":"glow","domain":"glowshop.example"}`)))
	req.Header.Set("X-Session-ID", "session-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	histRec := httptest.NewRecorder()
	handler.ServeHTTP(histRec, httptest.NewRequest(http.MethodGet, "/api/extract/history", nil))
	require.Equal(t, http.StatusOK, histRec.Code)

	var resp struct {
		LookbackSeconds int                      `json:"lookback_seconds"`
		Sessions        []history.SessionSummary `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(histRec.Body.Bytes(), &resp))
	assert.Equal(t, int((24 * time.Hour).Seconds()), resp.LookbackSeconds)
	require.Len(t, resp.Sessions, 1)
	assert.Equal(t, "session-1", resp.Sessions[0].SessionID)
	assert.Equal(t, 1, resp.Sessions[0].Runs)
	assert.Equal(t, []string{"glowshop.example"}, resp.Sessions[0].Domains)
}

func TestHealthzAndMetrics(t *testing.T) {
	srv := newTestServer(t, testServerConfig(t), pipeline.NewSimulatedExtractor(10))
	handler := srv.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExtractMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, testServerConfig(t), pipeline.NewSimulatedExtractor(10))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/extract", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
