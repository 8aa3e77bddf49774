package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"splitledger/internal/core"
	"splitledger/internal/ledger"
	"splitledger/internal/log"
	"splitledger/internal/services"
)

// Ledger is the application surface the API serves. services.LedgerService
// implements it.
type Ledger interface {
	CreateGroup(ctx context.Context, name string) (core.Group, error)
	ListGroups(ctx context.Context) ([]core.Group, error)
	AddMember(ctx context.Context, groupID core.GroupID, memberID core.MemberID, displayName string) (core.Member, error)
	ListMembers(ctx context.Context, groupID core.GroupID) ([]core.Member, error)
	CreateExpense(ctx context.Context, req services.CreateExpenseRequest) (core.ExpenseWithSplits, error)
	RecordSettlement(ctx context.Context, req services.SettlementRequest) (core.ExpenseWithSplits, error)
	DeleteExpense(ctx context.Context, groupID core.GroupID, expenseID core.ExpenseID) error
	ListExpenses(ctx context.Context, groupID core.GroupID) ([]core.ExpenseWithSplits, error)
	DebtSummary(ctx context.Context, groupID core.GroupID) (ledger.DebtSummary, error)
	MemberBalance(ctx context.Context, groupID core.GroupID, memberID core.MemberID) (map[core.Currency]int64, error)
	PreviewSplit(req services.PreviewRequest) (services.PreviewResult, error)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	http.Server
	ledger      Ledger
	ready       Pinger
	logger      *log.Logger
	rateLimiter *rateLimiter

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. ready may be nil, in which case /readyz always succeeds.
func NewServer(addr string, l Ledger, ready Pinger, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    1 << 16,
		},
		ledger:      l,
		ready:       ready,
		logger:      logger.WithComponent(log.ComponentHTTP),
		rateLimiter: newRateLimiter(writeLimitPerMinute, time.Minute),
	}
	go s.rateLimiter.startCleanup(5 * time.Minute)

	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(log.Middleware(s.logger))
	r.Use(log.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimiter.limitWrites)

		r.Route("/groups", func(r chi.Router) {
			r.Post("/", s.handleCreateGroup)
			r.Get("/", s.handleListGroups)

			r.Route("/{groupID}", func(r chi.Router) {
				r.Get("/members", s.handleListMembers)
				r.Post("/members", s.handleAddMember)
				r.Get("/members/{memberID}/balance", s.handleMemberBalance)

				r.Get("/expenses", s.handleListExpenses)
				r.Post("/expenses", s.handleCreateExpense)
				r.Delete("/expenses/{expenseID}", s.handleDeleteExpense)

				r.Post("/settlements", s.handleRecordSettlement)
				r.Get("/debts", s.handleDebtSummary)
			})
		})

		r.Post("/splits/preview", s.handlePreviewSplit)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// Shutdown stops the rate limiter cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WithComponent(log.ComponentHTTP).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			writeError(w, http.StatusServiceUnavailable, "storage unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
