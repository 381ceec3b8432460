package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/worker"
)

// Ledger is the service the API serves. *services.LedgerService satisfies it.
type Ledger interface {
	Create(ctx context.Context, userID string, draft core.Draft) (core.Transaction, error)
	Update(ctx context.Context, userID, id string, draft core.Draft) (core.Transaction, error)
	Delete(ctx context.Context, userID, id string) error
	Get(ctx context.Context, userID, id string) (core.Transaction, error)
	List(ctx context.Context, userID string) ([]core.Transaction, error)
	Reset(ctx context.Context, userID string) error
	AllowedCategories(typ core.TransactionType) []string
}

// ReportSource loads the per-user report snapshots built by the worker.
// *worker.ReportStore satisfies it.
type ReportSource interface {
	Load(ctx context.Context, userID string) (worker.Report, bool, error)
}

// Options configures a Server. Zero values pick the defaults.
type Options struct {
	// RateLimitRPM caps mutating requests per client and minute.
	RateLimitRPM int

	// Ready checks downstream dependencies for /readyz. Nil means always ready.
	Ready func(ctx context.Context) error

	// Reports serves GET /api/reports. Nil disables the route's data.
	Reports ReportSource

	Logger *applog.Logger

	// Now is the clock used for summaries (default: time.Now).
	Now func() time.Time
}

// Server is the JSON API over one ledger.
type Server struct {
	http.Server

	ledger  Ledger
	reports ReportSource
	ready   func(ctx context.Context) error
	now     func() time.Time
	logger  *applog.Logger

	detector    *security.Detector
	rateLimiter *ratelimit.Limiter
	tracer      *trace.Middleware

	startedAt    time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, ledger Ledger, opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = applog.FromContext(context.Background())
	}

	detector := security.NewDetector()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    1 << 16, // 64KB
		},
		ledger:   ledger,
		reports:  opts.Reports,
		ready:    opts.Ready,
		now:      opts.Now,
		logger:   opts.Logger.WithComponent(applog.ComponentHTTP),
		detector: detector,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitRPM,
		}),
		tracer:    trace.NewMiddleware(detector.ExtractClientIP, opts.Logger),
		startedAt: time.Now(),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/transactions", s.withUser(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.withUser(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions/recent", s.withUser(s.handleRecentTransactions))
	mux.HandleFunc("GET /api/transactions/{id}", s.withUser(s.handleGetTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.withUser(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.withUser(s.handleDeleteTransaction))
	mux.HandleFunc("POST /api/ledger/reset", s.withUser(s.handleResetLedger))

	mux.HandleFunc("GET /api/summary", s.withUser(s.handleSummary))
	mux.HandleFunc("GET /api/breakdown/categories", s.withUser(s.handleCategoryBreakdown))
	mux.HandleFunc("GET /api/breakdown/monthly", s.withUser(s.handleMonthlyBreakdown))
	mux.HandleFunc("GET /api/categories", s.withUser(s.handleCategories))
	mux.HandleFunc("GET /api/reports", s.withUser(s.handleReport))
	mux.HandleFunc("GET /api/categories/allowed", s.handleAllowedCategories)

	limit := s.rateLimiter.Middleware(detector.ExtractClientIP, isReadOnly, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(),
			"Rate limit exceeded",
			applog.FieldClientIP, detector.ExtractClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		TooManyRequestsError().Write(w)
	})
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	// Outermost first: logger, tracing, detection, headers, rate limit.
	var handler http.Handler = mux
	handler = limit(handler)
	handler = headers.Middleware(handler)
	handler = detector.Middleware(true)(handler)
	handler = s.tracer.Middleware(handler)
	handler = applog.Middleware(opts.Logger)(handler)
	s.Handler = handler

	return s
}

// withUser rejects requests that carry no user id.
func (s *Server) withUser(next func(w http.ResponseWriter, r *http.Request, userID string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := userID(r)
		if id == "" {
			UnauthorizedError("missing " + UserHeader + " header").Write(w)
			return
		}
		next(w, r, id)
	}
}

// fail writes the response for err and logs it with the request's logger.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, userID, operation string, err error) {
	builder, errorType := ErrorResponseFor(err)
	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogLedgerError(r.Context(), userID, operation, errorType, err)
	builder.Write(w)
}

func isReadOnly(r *http.Request) bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
