package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorFormatting(t *testing.T) {
	cause := fmt.Errorf("bad xref")
	err := NewExtractionError("raw/EmployeeRoster_07112012.pdf", cause)

	assert.Equal(t, "[EXTRACTION] table extraction failed: bad xref", err.Error())
	assert.Equal(t, "raw/EmployeeRoster_07112012.pdf", err.Context["path"])
	assert.True(t, stderrors.Is(err, cause))

	plain := NewDateError("readme.txt")
	assert.Equal(t, "[DATE] no recognized date pattern", plain.Error())
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{name: "nil", err: nil, fatal: false},
		{name: "date", err: NewDateError("x"), fatal: false},
		{name: "unreadable", err: NewUnreadableError("x.pdf", "2010-05-02"), fatal: false},
		{name: "extraction", err: NewExtractionError("x.pdf", nil), fatal: false},
		{name: "wrapped extraction", err: fmt.Errorf("read: %w", NewExtractionError("x.pdf", nil)), fatal: false},
		{name: "coercion", err: NewCoercionError("unit number", "abc", nil), fatal: true},
		{name: "storage", err: NewStorageError("write", nil), fatal: true},
		{name: "untyped", err: fmt.Errorf("boom"), fatal: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.fatal, IsFatal(tt.err))
		})
	}
}

func TestTypeOf(t *testing.T) {
	errType, ok := TypeOf(fmt.Errorf("wrap: %w", NewCoercionError("fte", "1.0x", nil)))
	require.True(t, ok)
	assert.Equal(t, ErrTypeCoercion, errType)
	assert.True(t, IsType(NewConfigError("bad", nil), ErrTypeConfig))

	_, ok = TypeOf(fmt.Errorf("plain"))
	assert.False(t, ok)
}

func TestAPIError_WithDetails(t *testing.T) {
	withDetails := ErrReportNotReady.WithDetails(map[string]string{"hint": "run the pipeline"})

	assert.Nil(t, ErrReportNotReady.Details, "sentinel is not mutated")
	assert.Equal(t, ErrReportNotReady.ErrorCode, withDetails.ErrorCode)

	p := NewErrorHandler(nil, false).ErrorToProblem(withDetails, httptest.NewRequest(http.MethodGet, "/api/v1/report", nil))
	assert.Equal(t, "REPORT_NOT_READY", p.Extensions["error_code"])
	assert.Equal(t, map[string]string{"hint": "run the pipeline"}, p.Extensions["details"])
}

func TestErrorToProblem(t *testing.T) {
	h := NewErrorHandler(nil, false)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/report", nil)

	tests := []struct {
		name   string
		err    error
		status int
		ptype  string
	}{
		{"not found", NewNotFoundError("report"), http.StatusNotFound, TypeNotFound},
		{"network", NewNetworkError("listing failed", nil), http.StatusBadGateway, TypeUpstream},
		{"coercion", NewCoercionError("fte", "x", nil), http.StatusUnprocessableEntity, TypeDataInvalid},
		{"api error", ErrReportNotReady, http.StatusNotFound, TypeNotFound},
		{"plain", fmt.Errorf("boom"), http.StatusInternalServerError, TypeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := h.ErrorToProblem(tt.err, req)
			assert.Equal(t, tt.status, p.Status)
			assert.Equal(t, tt.ptype, p.Type)
			assert.Equal(t, "/api/v1/report", p.Instance)
		})
	}
}

func TestHandleError_RendersProblem(t *testing.T) {
	h := NewErrorHandler(nil, false)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	h.HandleError(rec, req, NewStorageError("snapshot write failed", nil).WithContext("path", "output/x"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"type":"/errors/storage"`)
	assert.Contains(t, body, `"error_type":"STORAGE"`)
	assert.Contains(t, body, `"detail":"snapshot write failed"`)
}

func TestRecoverer(t *testing.T) {
	h := NewErrorHandler(nil, true)
	handler := h.Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"panic":"kaboom"`)
}
