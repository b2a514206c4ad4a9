package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// Problem types following RFC 7807
const (
	TypeNotFound    = "/errors/not-found"
	TypeInternal    = "/errors/internal"
	TypeTimeout     = "/errors/timeout"
	TypeUpstream    = "/errors/upstream"
	TypeStorage     = "/errors/storage"
	TypeConfig      = "/errors/config"
	TypeDataInvalid = "/errors/data/invalid"
)

// ProblemDetails implements RFC 7807 Problem Details for HTTP APIs
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	Extensions map[string]interface{} `json:"-"`
}

// NewProblemDetails creates a problem document
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: make(map[string]interface{}),
	}
}

// WithExtension adds an extension member
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	if pd.Extensions == nil {
		pd.Extensions = make(map[string]interface{})
	}
	pd.Extensions[key] = value
	return pd
}

// Render implements the render.Renderer interface
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON flattens extensions into the top-level object
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	data := make(map[string]interface{}, len(pd.Extensions)+5)
	for k, v := range pd.Extensions {
		data[k] = v
	}
	data["type"] = pd.Type
	data["title"] = pd.Title
	data["status"] = pd.Status
	if pd.Detail != "" {
		data["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		data["instance"] = pd.Instance
	}
	return json.Marshal(data)
}

// ErrorHandler renders errors as problem documents
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError logs err and writes its problem document
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}
	reqID := middleware.GetReqID(r.Context())
	problem := h.ErrorToProblem(err, r)

	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", problem.Status),
	)

	if reqID != "" {
		problem.WithExtension("trace_id", reqID)
	}
	render.Render(w, r, problem)
}

// ErrorToProblem maps err onto a problem document
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return NewProblemDetails(http.StatusGatewayTimeout, TypeTimeout,
			"Request Timeout", "The request was cancelled before it completed", r.URL.Path)
	}

	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		p := NewProblemDetails(apiErr.StatusCode, apiErr.problemType(),
			http.StatusText(apiErr.StatusCode), apiErr.Message, r.URL.Path).
			WithExtension("error_code", apiErr.ErrorCode)
		if apiErr.Details != nil {
			p.WithExtension("details", apiErr.Details)
		}
		return p
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		status, problemType := statusFor(appErr.Type)
		p := NewProblemDetails(status, problemType, http.StatusText(status), appErr.Message, r.URL.Path).
			WithExtension("error_type", string(appErr.Type))
		if len(appErr.Context) > 0 {
			p.WithExtension("context", appErr.Context)
		}
		return p
	}

	return NewProblemDetails(http.StatusInternalServerError, TypeInternal,
		"Internal Server Error", "An unexpected error occurred while processing your request", r.URL.Path)
}

func statusFor(t ErrorType) (int, string) {
	switch t {
	case ErrTypeNotFound:
		return http.StatusNotFound, TypeNotFound
	case ErrTypeNetwork:
		return http.StatusBadGateway, TypeUpstream
	case ErrTypeStorage:
		return http.StatusInternalServerError, TypeStorage
	case ErrTypeConfig:
		return http.StatusInternalServerError, TypeConfig
	case ErrTypeDate, ErrTypeUnreadable, ErrTypeExtraction, ErrTypeCoercion:
		return http.StatusUnprocessableEntity, TypeDataInvalid
	default:
		return http.StatusInternalServerError, TypeInternal
	}
}

// NotFound writes a standard 404 problem
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	render.Render(w, r, NewProblemDetails(http.StatusNotFound, TypeNotFound,
		"Not Found", "The requested resource was not found", r.URL.Path))
}

// MethodNotAllowed writes a standard 405 problem
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	render.Render(w, r, NewProblemDetails(http.StatusMethodNotAllowed, TypeInternal,
		"Method Not Allowed", fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method), r.URL.Path))
}

// Recoverer turns handler panics into 500 problems
func (h *ErrorHandler) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				h.logger.ErrorContext(r.Context(), "panic recovered",
					slog.Any("panic", rec),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())),
				)
				p := NewProblemDetails(http.StatusInternalServerError, TypeInternal,
					"Internal Server Error", "An unexpected error occurred", r.URL.Path)
				if h.includeStack {
					p.WithExtension("panic", fmt.Sprintf("%v", rec))
				}
				render.Render(w, r, p)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
