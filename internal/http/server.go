// Package http exposes the tracker as a JSON API.
package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"qmoney/internal/cache"
	applog "qmoney/internal/log"
	"qmoney/internal/middleware/ratelimit"
	"qmoney/internal/middleware/security"
	"qmoney/internal/middleware/trace"
	"qmoney/internal/services"
)

const readyTimeout = 2 * time.Second

type Options struct {
	RateLimitPerMinute int
	ChartCacheSize     int
	ChartCacheTTL      time.Duration

	// TrustedProxies are CIDRs whose forwarded headers are believed on top
	// of the private ranges.
	TrustedProxies []string
}

type Server struct {
	http.Server

	tracker   *services.Tracker
	assistant *services.Assistant
	images    *cache.ImageCache
	logger    *applog.Logger

	trace    *trace.Middleware
	limiter  *ratelimit.Limiter
	detector *security.Detector

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. Call Shutdown to stop it together with its background work.
func NewServer(addr string, tracker *services.Tracker, assistant *services.Assistant, logger *applog.Logger, opts Options) *Server {
	if opts.ChartCacheTTL <= 0 {
		opts.ChartCacheTTL = 10 * time.Minute
	}
	logger = logger.WithComponent(applog.ComponentHTTP)
	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", "cidr", cidr, "error", err)
		}
	}

	s := &Server{
		tracker:   tracker,
		assistant: assistant,
		images:    cache.NewImageCache(opts.ChartCacheSize, opts.ChartCacheTTL),
		logger:    logger,
		trace:     trace.NewMiddleware(logger, detector.ExtractClientIP),
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:  detector,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("GET /api/categories/active", s.handleActiveCategories)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("GET /api/transactions/search", s.handleSearch)

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/stats/daily.png", s.handleDailyChart)
	mux.HandleFunc("GET /api/stats/categories.png", s.handleCategoryChart)

	mux.HandleFunc("GET /api/goals", s.handleListGoals)
	mux.HandleFunc("POST /api/goals", s.handleCreateGoal)
	mux.HandleFunc("POST /api/goals/{id}/deposit", s.handleDeposit)
	mux.HandleFunc("DELETE /api/goals/{id}", s.handleDeleteGoal)

	mux.HandleFunc("POST /api/assistant/parse", s.handleAssistantParse)

	limit := s.limiter.Middleware(detector.ExtractClientIP, s.onRateLimit, http.MethodPost, http.MethodDelete)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	var h http.Handler = mux
	h = limit(h)
	h = detector.Middleware(logger)(h)
	h = headers.Middleware(h)
	h = s.trace.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and the rate limiter cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorResponse{
		Error:     "rate limit exceeded, please try again later",
		RequestID: trace.GetRequestID(r.Context()),
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()
	if err := s.tracker.Ping(ctx); err != nil {
		s.logger.WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
		http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleMetrics writes plain-text counters, one "name value" pair per line.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	tm := s.trace.GetMetrics()
	rm := s.limiter.GetMetrics()
	dm := s.detector.GetMetrics()
	cm := s.images.Stats()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	lines := []struct {
		name  string
		value any
	}{
		{"qmoney_http_requests_total", tm.TotalRequests},
		{"qmoney_http_client_errors_total", tm.ClientErrors},
		{"qmoney_http_server_errors_total", tm.ServerErrors},
		{"qmoney_http_avg_response_microseconds", tm.AverageResponseTime},
		{"qmoney_rate_limit_hits_total", rm.TotalHits},
		{"qmoney_rate_limit_clients", rm.ClientCount},
		{"qmoney_security_suspicious_requests_total", dm.SuspiciousRequests},
		{"qmoney_security_blocked_requests_total", dm.BlockedRequests},
		{"qmoney_chart_cache_hits_total", cm.Hits},
		{"qmoney_chart_cache_misses_total", cm.Misses},
		{"qmoney_chart_cache_entries", cm.Size},
		{"qmoney_ledger_transactions", len(s.tracker.Transactions())},
		{"qmoney_ledger_goals", len(s.tracker.Goals())},
		{"qmoney_ledger_revision", s.tracker.Revision()},
	}
	for _, l := range lines {
		_, _ = fmt.Fprintf(w, "%s %v\n", l.name, l.value)
	}
}
