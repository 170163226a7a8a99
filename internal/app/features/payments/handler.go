// internal/app/features/payments/handler.go
package payments

import (
	apierrors "github.com/dalemusser/grouphub/internal/app/features/errors"
	"github.com/dalemusser/grouphub/internal/app/ledger"
	"go.uber.org/zap"
)

// Handler serves the payment ledger for the caller's active group.
type Handler struct {
	Ledger *ledger.Service
	ErrLog *apierrors.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(svc *ledger.Service, errLog *apierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Ledger: svc,
		ErrLog: errLog,
		Log:    logger,
	}
}
