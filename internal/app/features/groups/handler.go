// internal/app/features/groups/handler.go
package groups

import (
	apierrors "github.com/dalemusser/grouphub/internal/app/features/errors"
	"github.com/dalemusser/grouphub/internal/app/membership"
	"go.uber.org/zap"
)

// Handler serves the token holder's group endpoints: creating, joining and
// switching groups and reading the active group's join code.
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
