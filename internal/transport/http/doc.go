// Package http serves the status of roster runs over HTTP.
//
// The server is optional and runs alongside a pipeline run. It exposes:
//
//	GET /healthz                  liveness
//	GET /readyz                   503 until a run has started
//	GET /metrics                  prometheus scrape endpoint
//	GET /api/v1/report            batch report of the latest run
//	GET /api/v1/operations        run states, newest first
//	GET /api/v1/operations/{id}   one run state
//
// Errors are rendered as RFC 7807 problem documents by the errors package.
package http
