// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/grouphub/internal/app/system/httpjson"
	"go.uber.org/zap"
)

// Handler serves the JSON fallbacks for unmatched routes and methods.
// No DB needed.
type Handler struct{}

// NewHandler constructs an errors Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// NotFound is installed as the router's NotFound handler.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	httpjson.Message(w, http.StatusNotFound, "ROUTE_NOT_FOUND", "No such endpoint.")
}

// MethodNotAllowed is installed as the router's MethodNotAllowed handler.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httpjson.Message(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed for this endpoint.")
}

// ErrorLogger writes failure responses and logs the ones that are the
// server's fault.
type ErrorLogger struct {
	log *zap.Logger
}

// NewErrorLogger returns an ErrorLogger. A nil logger discards output.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorLogger{log: logger}
}

// LogServerError logs err and writes a 500 carrying only userMsg.
func (e *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg string) {
	e.log.Error(msg,
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path))
	httpjson.Message(w, http.StatusInternalServerError, "INTERNAL", userMsg)
}

// LogBadRequest writes a 400 for an unreadable request body.
func (e *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg string) {
	e.log.Debug(msg, zap.Error(err), zap.String("path", r.URL.Path))
	httpjson.Message(w, http.StatusBadRequest, "INVALID_REQUEST", userMsg)
}
