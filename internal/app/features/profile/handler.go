// internal/app/features/profile/handler.go
package profile

import (
	"context"

	apierrors "github.com/dalemusser/grouphub/internal/app/features/errors"
	userstore "github.com/dalemusser/grouphub/internal/app/store/users"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Users is the slice of the user store the profile endpoints need.
type Users interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
	UpdateProfile(ctx context.Context, userID primitive.ObjectID, p userstore.ProfileUpdate) (models.User, error)
}

// Handler owns the caller's own profile.
type Handler struct {
	Users  Users
	Log    *zap.Logger
	ErrLog *apierrors.ErrorLogger
}

func NewHandler(users Users, errLog *apierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:  users,
		Log:    logger,
		ErrLog: errLog,
	}
}
