package http

import (
	"errors"
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "cpsroster/internal/errors"
	"cpsroster/internal/operations"
	"cpsroster/pkg/contracts/domain"
)

// ReportHandler serves batch reports and run states
type ReportHandler struct {
	runs   RunSource
	errs   *apperrors.ErrorHandler
	logger *slog.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(runs RunSource, errs *apperrors.ErrorHandler, logger *slog.Logger) *ReportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportHandler{
		runs:   runs,
		errs:   errs,
		logger: logger.With(slog.String("handler", "report")),
	}
}

// Routes returns a chi router for report endpoints
func (h *ReportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/report", h.GetReport)
	r.Get("/operations", h.ListOperations)
	r.Get("/operations/{id}", h.GetOperation)
	return r
}

// GetReport handles GET /api/v1/report
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	var report *domain.BatchReport
	if h.runs != nil {
		report = h.runs.LatestReport()
	}
	if report == nil {
		h.errs.HandleError(w, r, apperrors.ErrReportNotReady.WithDetails(map[string]string{
			"operations": "/api/v1/operations",
		}))
		return
	}
	render.JSON(w, r, report)
}

// ListOperations handles GET /api/v1/operations, newest first
func (h *ReportHandler) ListOperations(w http.ResponseWriter, r *http.Request) {
	ops := []*operations.OperationState{}
	if h.runs != nil {
		ops = append(ops, h.runs.ListOperations()...)
	}
	sort.Slice(ops, func(i, j int) bool {
		return ops[i].StartTime.After(ops[j].StartTime)
	})
	render.JSON(w, r, map[string]interface{}{
		"operations": ops,
		"count":      len(ops),
	})
}

// GetOperation handles GET /api/v1/operations/{id}
func (h *ReportHandler) GetOperation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if h.runs == nil {
		h.errs.HandleError(w, r, apperrors.NewNotFoundError("operation "+id))
		return
	}

	state, err := h.runs.GetOperation(id)
	if errors.Is(err, operations.ErrOperationNotFound) {
		h.errs.HandleError(w, r, apperrors.NewNotFoundError("operation "+id))
		return
	}
	if err != nil {
		h.errs.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, state)
}
