package errors

import "net/http"

// APIError is a client-facing failure with a stable error_code. ErrorHandler
// renders it as a problem document.
type APIError struct {
	StatusCode int
	ErrorCode  string
	Message    string
	Details    interface{}
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// WithDetails returns a copy of e carrying details
func (e *APIError) WithDetails(details interface{}) *APIError {
	c := *e
	c.Details = details
	return &c
}

func (e *APIError) problemType() string {
	if e.StatusCode == http.StatusNotFound {
		return TypeNotFound
	}
	return TypeInternal
}

// ErrReportNotReady is returned until the first run has produced a report
var ErrReportNotReady = &APIError{
	StatusCode: http.StatusNotFound,
	ErrorCode:  "REPORT_NOT_READY",
	Message:    "No pipeline run has been reported yet",
}
