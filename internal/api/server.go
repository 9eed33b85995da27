package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/openlabour/labour-engine/internal/config"
	"github.com/openlabour/labour-engine/internal/market"
	"github.com/openlabour/labour-engine/internal/models"
)

// Marketplace is the service surface the HTTP layer depends on. Satisfied by
// *market.Service; handler tests substitute a fake.
type Marketplace interface {
	RegisterUser(ctx context.Context, p market.RegisterUserParams) (*market.RegisterUserResult, error)
	UpdateUser(ctx context.Context, p market.UpdateUserParams) (*market.UpdateUserResult, error)
	RateUser(ctx context.Context, p market.RateUserParams) (*market.RateUserResult, error)

	CreateProject(ctx context.Context, p market.CreateProjectParams) (*market.CreateProjectResult, error)
	ApplyToProject(ctx context.Context, p market.ApplyToProjectParams) (*market.ApplyToProjectResult, error)
	ApproveApplication(ctx context.Context, p market.ApproveApplicationParams) (*market.ApproveApplicationResult, error)
	VerifyWorkDay(ctx context.Context, p market.VerifyWorkDayParams) (*market.VerifyWorkDayResult, error)
	ApproveWorkDay(ctx context.Context, p market.ApproveWorkDayParams) (*market.ApproveWorkDayResult, error)
	MintToken(ctx context.Context, p market.MintTokenParams) (*market.MintTokenResult, error)

	SystemState(ctx context.Context) (*models.KeyedSystemState, error)
	UserByWallet(ctx context.Context, wallet solana.PublicKey) (*models.KeyedUserAccount, error)
	UserByAddress(ctx context.Context, address solana.PublicKey) (*models.KeyedUserAccount, error)
	UserRole(ctx context.Context, wallet solana.PublicKey) (models.UserRole, error)
	Balance(ctx context.Context, wallet solana.PublicKey) (*market.BalanceResult, error)
	Project(ctx context.Context, address solana.PublicKey) (*models.KeyedProject, error)
	Projects(ctx context.Context, manager *solana.PublicKey) ([]models.KeyedProject, error)
	ApplicationsByProject(ctx context.Context, project solana.PublicKey) ([]models.KeyedApplication, error)
	ApplicationsByLabour(ctx context.Context, labourAccount solana.PublicKey) ([]models.KeyedApplication, error)
	AssignmentsByLabour(ctx context.Context, labourAccount solana.PublicKey) ([]models.KeyedAssignment, error)
	AssignmentsByProject(ctx context.Context, project solana.PublicKey) ([]models.KeyedAssignment, error)
	VerificationsByLabour(ctx context.Context, labourAccount solana.PublicKey) ([]models.KeyedWorkVerification, error)
	VerificationsByProject(ctx context.Context, project solana.PublicKey) ([]models.KeyedWorkVerification, error)

	Transaction(ctx context.Context, id string) (*models.PreparedTransaction, error)
	Transactions(ctx context.Context, filters models.TxListFilters) ([]*models.PreparedTransaction, error)
	ReportSignature(ctx context.Context, id, signature string) (*models.PreparedTransaction, error)
	TransactionStatus(ctx context.Context, signature string) (*market.TxChainStatus, error)

	Ready(ctx context.Context) error
}

// Server represents the HTTP API server
type Server struct {
	config config.ServerConfig
	router *chi.Mux
	svc    Marketplace
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, svc Marketplace) *Server {
	s := &Server{
		config: cfg,
		svc:    svc,
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration. Wallets talk to this API from arbitrary origins.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// Health checks
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		// Transaction-producing operations
		r.Post("/register-labour", s.handleRegisterUser(models.RoleLabour))
		r.Post("/register-manager", s.handleRegisterUser(models.RoleManager))
		r.Post("/update-user", s.handleUpdateUser)
		r.Post("/rate-user", s.handleRateUser)
		r.Post("/create-project", s.handleCreateProject)
		r.Post("/apply-to-project", s.handleApplyToProject)
		r.Post("/approve-application", s.handleApproveApplication)
		r.Post("/verify-work-day", s.handleVerifyWorkDay)
		r.Post("/approve-work-day", s.handleApproveWorkDay)
		r.Post("/mint-token", s.handleMintToken)

		// Chain reads
		r.Get("/system-state", s.handleSystemState)
		r.Get("/users/{wallet}", s.handleGetUser)
		r.Get("/users/{wallet}/role", s.handleGetUserRole)
		r.Get("/users/{wallet}/balance", s.handleGetBalance)
		r.Get("/user-accounts/{pda}", s.handleGetUserAccount)
		r.Get("/projects", s.handleListProjects)
		r.Get("/projects/{pda}", s.handleGetProject)
		r.Get("/projects/{pda}/applications", s.handleProjectApplications)
		r.Get("/projects/{pda}/assignments", s.handleProjectAssignments)
		r.Get("/projects/{pda}/work-verifications", s.handleProjectVerifications)
		r.Get("/labours/{pda}/applications", s.handleLabourApplications)
		r.Get("/labours/{pda}/assignments", s.handleLabourAssignments)
		r.Get("/labours/{pda}/work-verifications", s.handleLabourVerifications)

		// Prepared-transaction ledger
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", s.handleListTransactions)
			r.Get("/{id}", s.handleGetTransaction)
			r.Post("/{id}/signature", s.handleReportSignature)
			r.Get("/{id}/stream", s.handleTransactionStream)
		})
		r.Get("/signatures/{signature}/status", s.handleTransactionStatus)
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
