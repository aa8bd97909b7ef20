package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"yjkwon/offerharvester/config"
	"yjkwon/offerharvester/internal/metrics"
	"yjkwon/offerharvester/internal/pipeline"
	"yjkwon/offerharvester/logger"
	"yjkwon/offerharvester/services/history"
	"yjkwon/offerharvester/services/publisher"
)

// Server is the HTTP surface of the extraction service.
type Server struct {
	cfg     *config.Config
	runner  *pipeline.Runner
	store   *history.Store
	pub     publisher.Publisher
	metrics *metrics.Metrics
	log     *logger.Logger
	httpSrv *http.Server
}

// New wires the server. pub may be a publisher.Noop when no broker is
// configured.
func New(cfg *config.Config, runner *pipeline.Runner, store *history.Store, pub publisher.Publisher, m *metrics.Metrics) *Server {
	s := &Server{
		cfg:     cfg,
		runner:  runner,
		store:   store,
		pub:     pub,
		metrics: m,
		log:     logger.ForServer(),
	}
	s.httpSrv = &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: s.Handler(),
	}
	return s
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/extract", s.handleExtract)
	mux.HandleFunc("/api/extract/v2", s.handleExtractV2)
	mux.HandleFunc("/api/extract/history", s.handleHistory)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	return mux
}

// ListenAndServe blocks serving HTTP until shutdown.
func (s *Server) ListenAndServe() error {
	s.log.Info().Str("addr", s.cfg.ListenAddr).Msg("HTTP server listening")
	return s.httpSrv.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

type extractRequest struct {
	Brand   string   `json:"brand"`
	Domain  string   `json:"domain"`
	Offset  int      `json:"offset"`
	Limit   int      `json:"limit"`
	Markets []string `json:"markets"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeExtractRequest(w, r)
	if !ok {
		return
	}

	start := time.Now()
	result := s.runner.Run(r.Context(), pipeline.Request{
		Brand:  req.Brand,
		Domain: req.Domain,
		Offset: req.Offset,
		Limit:  req.Limit,
	})
	s.finishRun(r, "v1", req, result, start)

	writeJSON(w, http.StatusOK, legacyResponse(result))
}

func (s *Server) handleExtractV2(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.V2Enabled {
		http.NotFound(w, r)
		return
	}
	req, ok := s.decodeExtractRequest(w, r)
	if !ok {
		return
	}

	start := time.Now()
	result := s.runner.Run(r.Context(), pipeline.Request{
		Brand:   req.Brand,
		Domain:  req.Domain,
		Offset:  req.Offset,
		Limit:   req.Limit,
		Markets: req.Markets,
	})
	if runFailed(result) {
		result.Platform = "Error"
	}
	s.finishRun(r, "v2", req, result, start)

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
		return
	}

	summaries, err := s.store.SessionSummaries(s.cfg.HistoryLookback)
	if err != nil {
		s.log.Error().Err(err).Msg("history read failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "history unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"lookback_seconds": int(s.cfg.HistoryLookback.Seconds()),
		"sessions":         summaries,
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) decodeExtractRequest(w http.ResponseWriter, r *http.Request) (extractRequest, bool) {
	var req extractRequest
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
		return req, false
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return req, false
	}
	req.Brand = strings.TrimSpace(req.Brand)
	req.Domain = strings.TrimSpace(req.Domain)
	if req.Brand == "" || req.Domain == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "brand and domain are required"})
		return req, false
	}
	return req, true
}

// finishRun handles the bookkeeping shared by both extract endpoints:
// metrics, the run-history record and best-effort offer publishing.
func (s *Server) finishRun(r *http.Request, version string, req extractRequest, result *pipeline.Result, start time.Time) {
	elapsed := time.Since(start)
	outcome := "ok"
	status := "ok"
	errMsg := ""
	if runFailed(result) {
		outcome = "failed"
		status = "error"
		errMsg = "all requested markets failed"
	}
	s.metrics.IncExtraction(version, outcome)
	s.metrics.ObserveDuration(elapsed)

	sessionID := r.Header.Get("X-Session-ID")
	if sessionID == "" {
		sessionID = history.NewSessionID()
	}
	if err := s.store.Append(history.Record{
		Timestamp:  time.Now().UTC(),
		SessionID:  sessionID,
		Version:    version,
		Brand:      req.Brand,
		Domain:     req.Domain,
		Markets:    req.Markets,
		Status:     status,
		Offers:     len(result.Offers),
		Products:   distinctProducts(result),
		DurationMS: elapsed.Milliseconds(),
		Error:      errMsg,
	}); err != nil {
		s.log.Warn().Err(err).Msg("run history append failed")
	}

	if len(result.Offers) > 0 {
		if err := s.pub.PublishOffers(r.Context(), result.Offers); err != nil {
			s.log.Warn().Err(err).Msg("offer publish failed")
		}
	}
}

// runFailed reports whether every requested market of the run failed.
func runFailed(result *pipeline.Result) bool {
	if len(result.Counters) == 0 {
		return true
	}
	for _, c := range result.Counters {
		if !c.MarketFailed {
			return false
		}
	}
	return true
}

func distinctProducts(result *pipeline.Result) int {
	seen := make(map[string]bool)
	for _, o := range result.Offers {
		seen[o.SourceProductID] = true
	}
	return len(seen)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("response encode failed: %v", err)
	}
}
