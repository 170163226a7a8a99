// internal/app/features/errors/render.go
package errors

import (
	"net/http"

	"github.com/dalemusser/grouphub/internal/app/system/apperr"
	"github.com/dalemusser/grouphub/internal/app/system/httpjson"
	"go.uber.org/zap"
)

const (
	serverMessage      = "Something went wrong. Please try again."
	transactionMessage = "The operation could not be completed. No changes were saved."
)

// Write renders err as {message, code} with the status of its kind.
// Unclassified errors and transaction failures are logged and answered
// with a generic 500 so internal detail never reaches the client.
func (e *ErrorLogger) Write(w http.ResponseWriter, r *http.Request, err error) {
	ae, ok := apperr.As(err)
	if !ok {
		e.LogServerError(w, r, "unhandled error", err, serverMessage)
		return
	}
	status := apperr.Status(ae.Kind)
	if status >= http.StatusInternalServerError {
		msg := serverMessage
		code := "INTERNAL"
		if ae.Kind == apperr.Transaction {
			msg, code = transactionMessage, "TRANSACTION_FAILED"
		}
		e.log.Error("request failed",
			zap.Error(err),
			zap.String("code", code),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path))
		httpjson.Message(w, status, code, msg)
		return
	}
	httpjson.Message(w, status, ae.Code, ae.Message)
}
