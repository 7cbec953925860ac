package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"autofint/internal/cache"
	"autofint/internal/core"
	applog "autofint/internal/log"
	"autofint/internal/middleware/ratelimit"
	"autofint/internal/middleware/security"
	"autofint/internal/middleware/trace"
	"autofint/internal/services"
	"autofint/internal/session"
)

const (
	summaryCacheSize   = 200
	breakdownCacheSize = 200
	categoryCacheSize  = 8
)

// Deps are the services the API serves.
type Deps struct {
	Ledger     *services.LedgerService
	Categories *services.CategoryService
	Reports    *services.ReportService
	Sessions   *session.Manager
	Logger     *applog.Logger
}

// Options tune the HTTP layer. Zero values pick defaults.
type Options struct {
	CacheTTL           time.Duration
	RateLimitPerMinute int
	// Now is the clock used for default dates and the runway; tests pin it.
	Now func() time.Time
}

type Server struct {
	http.Server
	ledger     *services.LedgerService
	categories *services.CategoryService
	reports    *services.ReportService
	sessions   *session.Manager
	logger     *applog.Logger
	now        func() time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector

	// Read-through caches, purged by every mutation before it returns.
	summaries    *cache.Loader[core.Summary]
	breakdowns   *cache.Loader[core.Breakdown]
	categoryList *cache.Loader[[]string]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
// Call Shutdown to stop background cleanup.
func NewServer(addr string, deps Deps, opts Options) *Server {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	summaryLRU := cache.NewLRU[core.Summary](summaryCacheSize, opts.CacheTTL)
	breakdownLRU := cache.NewLRU[core.Breakdown](breakdownCacheSize, opts.CacheTTL)
	categoryLRU := cache.NewLRU[[]string](categoryCacheSize, opts.CacheTTL)
	manager := cache.NewManager()
	manager.Register(summaryLRU)
	manager.Register(breakdownLRU)
	manager.Register(categoryLRU)
	manager.StartCleanup(opts.CacheTTL)

	s := &Server{
		ledger:       deps.Ledger,
		categories:   deps.Categories,
		reports:      deps.Reports,
		sessions:     deps.Sessions,
		logger:       logger,
		now:          opts.Now,
		limiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:     security.NewDetector(),
		summaries:    cache.NewLoader[core.Summary](summaryLRU),
		breakdowns:   cache.NewLoader[core.Breakdown](breakdownLRU),
		categoryList: cache.NewLoader[[]string](categoryLRU),
		cacheManager: manager,
	}
	if s.sessions == nil {
		s.sessions = session.NewManager("")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/session", s.handleSessionState)
	mux.HandleFunc("POST /api/session", s.handleLogin)
	mux.HandleFunc("PUT /api/session", s.handleSessionUpdate)
	mux.HandleFunc("DELETE /api/session", s.handleLogout)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleAddCategory)

	mux.HandleFunc("GET /api/transactions", s.handleQueryTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/breakdown", s.handleBreakdown)
	mux.HandleFunc("GET /api/runway", s.handleRunway)
	mux.HandleFunc("GET /api/export.csv", s.handleExportCSV)

	var h http.Handler = mux
	h = s.requireSession(h)
	h = s.limiter.Middleware(s.detector.ExtractClientIP, ratelimit.MutatingOnly, s.handleRateLimited)(h)
	h = s.detector.Middleware(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	h = applog.RequestIDMiddleware(trace.FromRequest)(h)
	h = applog.Middleware(logger)(h)
	h = s.recoverPanic(h)
	h = trace.NewMiddleware(logger, s.detector.ExtractClientIP).Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops background cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		m := s.limiter.GetMetrics()
		s.logger.InfoContext(ctx, "HTTP server stopping",
			"rate_limited_hits", m.TotalHits,
			"tracked_clients", m.ClientCount,
			"suspicious_requests", s.detector.SuspiciousCount())
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// invalidateReports drops cached aggregations after a ledger write.
func (s *Server) invalidateReports() {
	s.summaries.Invalidate()
	s.breakdowns.Invalidate()
}

func (s *Server) today() core.Date {
	return core.DateOf(s.now())
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady checks that the store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if _, err := s.categories.Categories(ctx); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", "error", err)
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		"client_ip", s.detector.ExtractClientIP(r),
		"method", r.Method,
		"path", r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded, try again later"})
}
