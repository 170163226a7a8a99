// internal/app/features/auditlog/handler.go
package auditlog

import (
	"context"

	apierrors "github.com/dalemusser/grouphub/internal/app/features/errors"
	"github.com/dalemusser/grouphub/internal/app/store/audit"
	"github.com/dalemusser/grouphub/internal/app/system/apperr"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrBadCategory = apperr.E(apperr.Validation, "INVALID_CATEGORY", "Unknown audit category.")
	ErrBadDate     = apperr.E(apperr.Validation, "INVALID_DATE", "Dates must be YYYY-MM-DD.")
)

// Events is the read side of the audit_events collection.
type Events interface {
	Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error)
	CountByFilter(ctx context.Context, filter audit.QueryFilter) (int64, error)
}

// Users resolves actor and target names.
type Users interface {
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
}

type Handler struct {
	Events Events
	Users  Users
	Log    *zap.Logger
	ErrLog *apierrors.ErrorLogger
}

// NewHandler constructs the audit log feature handler.
func NewHandler(events Events, users Users, errLog *apierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Events: events,
		Users:  users,
		Log:    logger,
		ErrLog: errLog,
	}
}
