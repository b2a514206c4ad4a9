package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	apperrors "cpsroster/internal/errors"
	"cpsroster/internal/infrastructure"
	"cpsroster/internal/middleware"
	"cpsroster/internal/operations"
	"cpsroster/pkg/contracts/domain"
)

// RunSource exposes the state of pipeline runs
type RunSource interface {
	LatestReport() *domain.BatchReport
	GetOperation(id string) (*operations.OperationState, error)
	ListOperations() []*operations.OperationState
}

// ServerOptions configures the status server
type ServerOptions struct {
	Addr    string
	Runs    RunSource
	Metrics http.Handler
	OTel    *middleware.OTelMiddleware
	Logger  *slog.Logger
	// Debug includes panic values in problem documents
	Debug bool
}

// Server serves run status while the pipeline works
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// NewRouter builds the status routes
func NewRouter(opts ServerOptions) chi.Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	errs := apperrors.NewErrorHandler(logger, opts.Debug)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.TraceID)
	if opts.OTel != nil {
		r.Use(opts.OTel.Handler)
	}
	r.Use(middleware.StructuredLogger(logger))
	r.Use(errs.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.NotFound(errs.NotFound)
	r.MethodNotAllowed(errs.MethodNotAllowed)

	health := NewHealthHandler(opts.Runs)
	r.Get("/healthz", health.Liveness)
	r.Get("/readyz", health.Readiness)
	r.Handle("/metrics", NewMetricsHandler(opts.Metrics, errs))

	r.Mount("/api/v1", NewReportHandler(opts.Runs, errs, logger).Routes())
	return r
}

// NewServer creates a server listening on opts.Addr
func NewServer(opts ServerOptions) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              opts.Addr,
			Handler:           NewRouter(opts),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: infrastructure.ComponentLogger(opts.Logger, "http"),
	}
}

// Start serves in the background until Shutdown
func (s *Server) Start() {
	go func() {
		s.logger.Info("Status server listening", slog.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Status server stopped", slog.String("error", err.Error()))
		}
	}()
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
