// internal/app/features/members/handler.go
package members

import (
	apierrors "github.com/dalemusser/grouphub/internal/app/features/errors"
	"github.com/dalemusser/grouphub/internal/app/membership"
	"go.uber.org/zap"
)

// Handler serves member management for the caller's active group.
type Handler struct {
	Registry *membership.Registry
	ErrLog   *apierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(reg *membership.Registry, errLog *apierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Registry: reg,
		ErrLog:   errLog,
		Log:      logger,
	}
}
