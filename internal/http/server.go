package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	applog "ledger/internal/log"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/security"
	"ledger/internal/middleware/trace"
	"ledger/internal/services"
)

// Options tunes the server; the zero value is usable.
type Options struct {
	Logger *applog.Logger
	// RecentLimit is the default page size of the recent transactions
	// endpoint; 0 returns everything.
	RecentLimit int
	RateLimit   ratelimit.Config
}

type Server struct {
	http.Server
	ledger      *services.LedgerService
	reports     *services.ReportService
	limiter     *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware
	recentLimit int
	now         func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, ledger *services.LedgerService, reports *services.ReportService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	rlConfig := opts.RateLimit
	if rlConfig.RequestsPerWindow == 0 {
		rlConfig = ratelimit.DefaultConfig()
	}

	s := &Server{
		ledger:      ledger,
		reports:     reports,
		limiter:     ratelimit.NewLimiter(rlConfig),
		detector:    security.NewDetector(),
		recentLimit: opts.RecentLimit,
		now:         time.Now,
	}
	s.tracer = trace.NewMiddleware(logger.WithComponent(applog.ComponentHTTP), s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(s.detector.ExtractClientIP, writeRateLimited)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.detector.Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /categories", handleCategories)

	mux.HandleFunc("POST /users", s.handleRegisterUser)
	mux.HandleFunc("GET /users", s.handleFindUser)
	mux.HandleFunc("GET /users/{id}", s.handleGetUser)
	mux.HandleFunc("DELETE /users/{id}", s.handleDeleteUser)

	mux.HandleFunc("POST /users/{id}/accounts", s.handleOpenAccount)
	mux.HandleFunc("GET /users/{id}/accounts", s.handleListAccounts)
	mux.HandleFunc("GET /users/{id}/balance", s.handleTotalBalance)
	mux.HandleFunc("GET /users/{id}/overview", s.handleOverview)

	mux.HandleFunc("GET /accounts/{id}", s.handleGetAccount)
	mux.HandleFunc("DELETE /accounts/{id}", s.handleDeleteAccount)
	mux.HandleFunc("POST /accounts/{id}/transactions", s.handleRecordTransaction)
	mux.HandleFunc("GET /accounts/{id}/transactions", s.handleListAccountTransactions)

	mux.HandleFunc("GET /users/{id}/transactions/recent", s.handleRecentTransactions)
	mux.HandleFunc("GET /transactions", s.handleTransactionsByCategory)

	mux.HandleFunc("POST /users/{id}/budgets", s.handleCreateBudget)
	mux.HandleFunc("GET /users/{id}/budgets", s.handleListBudgets)
	mux.HandleFunc("GET /users/{id}/budgets/status", s.handleBudgetStatus)

	mux.HandleFunc("GET /users/{id}/summary", s.handlePeriodSummary)
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Close stops the rate limiter and closes the listener immediately.
func (s *Server) Close() error {
	s.limiter.Stop()
	return s.Server.Close()
}
