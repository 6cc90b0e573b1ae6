// Package handler contains the HTTP request handlers of the local API.
//
// WHAT IS A HANDLER?
// In Go, an HTTP handler is anything that implements the http.Handler interface:
//
//	type Handler interface {
//	    ServeHTTP(ResponseWriter, *Request)
//	}
//
// Or more commonly, a function with the http.HandlerFunc signature. Chi's
// router accepts these directly.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (URL params, JSON body)
// 2. Call the snippet store or the executor
// 3. Write the HTTP response (status code, headers, body)
//
// Handlers hold no business rules: validation lives in the service, execution
// semantics in the executor.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/tinkers/internal/executor"
)

// ExecuteHandler runs ad-hoc code sent by the client.
type ExecuteHandler struct {
	exec    executor.Executor
	timeout time.Duration
	logger  *slog.Logger
}

// NewExecuteHandler creates a new ExecuteHandler. Every run is bounded by
// timeout; zero means no limit beyond the request's own context.
func NewExecuteHandler(exec executor.Executor, timeout time.Duration, logger *slog.Logger) *ExecuteHandler {
	return &ExecuteHandler{
		exec:    exec,
		timeout: timeout,
		logger:  logger,
	}
}

// HandleExecute runs the posted snippet and returns its Result.
//
// HTTP: POST /api/execute
// REQUEST BODY: {"code": "echo 1+1;", "language": "php"}
//
// The response is always 200 once the body parses: success and failure are
// both carried inside the Result.
func (h *ExecuteHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	var req executor.Request
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid execution request body")
		writeError(w, err)
		return
	}

	res := run(r.Context(), h.exec, h.timeout, req)
	writeJSON(w, http.StatusOK, res)
}

// run executes req with the gateway's deadline applied.
func run(ctx context.Context, exec executor.Executor, timeout time.Duration, req executor.Request) *executor.Result {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return exec.Execute(ctx, req)
}
