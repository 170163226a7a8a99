// internal/app/features/records/handler.go
package records

import (
	"context"

	apierrors "github.com/dalemusser/grouphub/internal/app/features/errors"
	recordstore "github.com/dalemusser/grouphub/internal/app/store/records"
	"github.com/dalemusser/grouphub/internal/app/system/apperr"
	"github.com/dalemusser/grouphub/internal/app/system/auditlog"
	"github.com/dalemusser/grouphub/internal/app/system/paging"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrRecordNotFound  = apperr.E(apperr.NotFound, "RECORD_NOT_FOUND", "Record not found.")
	ErrRecordForbidden = apperr.E(apperr.Permission, "RECORD_FORBIDDEN", "You cannot modify this record.")
	ErrTitleRequired   = apperr.E(apperr.Validation, "TITLE_REQUIRED", "Title is required.")
	ErrBadAmount       = apperr.E(apperr.Validation, "INVALID_AMOUNT", "Amount cannot be negative.")
)

// Store is one kind's tenant-scoped collection.
type Store interface {
	Create(ctx context.Context, r models.Record) (models.Record, error)
	GetScoped(ctx context.Context, id, groupID primitive.ObjectID) (models.Record, error)
	Update(ctx context.Context, id, groupID primitive.ObjectID, u recordstore.Update) (models.Record, error)
	Delete(ctx context.Context, id, groupID primitive.ObjectID) error
	List(ctx context.Context, groupID primitive.ObjectID, p paging.Params) (paging.Page[models.Record], error)
}

// WritePermissions returns the permissions that may create, edit and
// delete records of kind.
func WritePermissions(kind models.RecordKind) []models.Permission {
	switch kind {
	case models.KindAnnouncements:
		return []models.Permission{models.PermAdmin, models.PermManageAnnouncements}
	case models.KindExpenses:
		return []models.Permission{models.PermAdmin, models.PermManagePayments}
	case models.KindEvents:
		return []models.Permission{models.PermAdmin, models.PermManageEvents}
	default:
		return []models.Permission{models.PermAdmin}
	}
}

// Handler serves one record kind.
type Handler struct {
	Kind   models.RecordKind
	Store  Store
	Audit  *auditlog.Logger
	ErrLog *apierrors.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(kind models.RecordKind, store Store, audit *auditlog.Logger, errLog *apierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Kind:   kind,
		Store:  store,
		Audit:  audit,
		ErrLog: errLog,
		Log:    logger,
	}
}
