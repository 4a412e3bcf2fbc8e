// Package http exposes the reconciliation engine as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/lucasdreger/couplecents/internal/cache"
	"github.com/lucasdreger/couplecents/internal/core"
	"github.com/lucasdreger/couplecents/internal/middleware/ratelimit"
	"github.com/lucasdreger/couplecents/internal/middleware/security"
	"github.com/lucasdreger/couplecents/internal/middleware/trace"
	"github.com/lucasdreger/couplecents/internal/ports"
	"github.com/lucasdreger/couplecents/internal/services"
)

// Options configures the API server.
type Options struct {
	Addr      string
	Repo      ports.Repository
	Members   []core.MemberID
	Payer     core.MemberID
	MinBal    core.Money
	Publisher services.IncrementPublisher // optional
}

// Server wires the services, caches and middleware behind one mux.
type Server struct {
	http.Server

	repo        ports.Repository
	members     []core.MemberID
	summaries   *services.SummaryService
	settlements *services.SettlementService
	reconciler  *services.ReconcileService

	summaryCache    *cache.LRUCache[core.MonthlySummary]
	settlementCache *cache.LRUCache[core.SettlementResult]
	cacheManager    *cache.Manager

	limiter      *ratelimit.Limiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(opts Options) *Server {
	mux := http.NewServeMux()

	scheduler := services.NewScheduler(opts.Repo)
	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		repo:        opts.Repo,
		members:     opts.Members,
		summaries:   services.NewSummaryService(opts.Repo),
		settlements: services.NewSettlementService(opts.Repo, opts.Payer, opts.MinBal),
		reconciler:  services.NewReconcileService(scheduler, opts.Publisher),

		summaryCache:    cache.NewLRUCache[core.MonthlySummary](100, 5*time.Minute),
		settlementCache: cache.NewLRUCache[core.SettlementResult](100, 5*time.Minute),
		cacheManager:    cache.NewManager(),

		limiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
	}

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.Register(s.settlementCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/api/summary", s.handleSummary)
	mux.HandleFunc("/api/settlement", s.handleSettlement)
	mux.HandleFunc("/api/income", s.handleIncome)
	mux.HandleFunc("/api/fixed-expenses", s.handleFixedExpenses)
	mux.HandleFunc("/api/fixed-expenses/status", s.handleFixedExpenseStatuses)
	mux.HandleFunc("/api/variable-expenses", s.handleVariableExpenses)
	mux.HandleFunc("/api/variable-expenses/", s.handleVariableExpenseByID)
	mux.HandleFunc("/api/credit-card-bill", s.handleCreditCardBill)
	mux.HandleFunc("/api/credit-card-bill/transfer", s.handleBillTransfer)
	mux.HandleFunc("/api/investments", s.handleInvestments)
	mux.HandleFunc("/api/reserves", s.handleReserves)
	mux.HandleFunc("/api/target-value", s.handleTargetValue)
	mux.HandleFunc("/api/target-history", s.handleTargetHistory)
	mux.HandleFunc("/api/auto-increments", s.handleAutoIncrements)
	mux.HandleFunc("/api/auto-increments/", s.handleAutoIncrementByID)
	mux.HandleFunc("/api/reconcile", s.handleReconcile)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(clientIP)
	limited := s.limiter.Middleware(clientIP, nil)

	s.Handler = tracer.Middleware(headers.Middleware(limited(mux)))
	return s
}

// invalidatePeriod drops every cached view of one period.
func (s *Server) invalidatePeriod(p core.Period) {
	s.summaryCache.Delete("summary:" + p.String())
	s.settlementCache.Delete("settlement:" + p.String())
}

// invalidateAll drops all cached summaries and settlements. Used after
// writes without a single period scope, like fixed-expense changes.
func (s *Server) invalidateAll() {
	s.summaryCache.DeletePrefix("summary:")
	s.settlementCache.DeletePrefix("settlement:")
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
