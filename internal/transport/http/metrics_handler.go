package http

import (
	"net/http"

	apperrors "cpsroster/internal/errors"
)

// NewMetricsHandler serves the prometheus scrape endpoint, or a 404
// problem when metrics export is disabled
func NewMetricsHandler(exporter http.Handler, errs *apperrors.ErrorHandler) http.Handler {
	if exporter == nil {
		return http.HandlerFunc(errs.NotFound)
	}
	return exporter
}
