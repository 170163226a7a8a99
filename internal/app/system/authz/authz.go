// internal/app/system/authz/authz.go
package authz

import (
	"net/http"

	"github.com/dalemusser/grouphub/internal/app/system/apperr"
	"github.com/dalemusser/grouphub/internal/app/system/auth"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Scope returns the caller's user id and active group id from the request
// token. ok is false when the token is missing or not scoped to a group.
func Scope(r *http.Request) (userID, groupID primitive.ObjectID, ok bool) {
	p, signed := auth.CurrentPrincipal(r)
	if !signed || p.GroupID == nil {
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	return p.UserID, *p.GroupID, true
}

// Can reports whether the caller holds any of perms in the active group.
func Can(r *http.Request, perms ...models.Permission) bool {
	p, ok := auth.CurrentPrincipal(r)
	return ok && p.GroupID != nil && models.HasAny(p.Permissions, perms)
}

// IsGroupAdmin reports whether the caller is an admin of the active group.
func IsGroupAdmin(r *http.Request) bool {
	return Can(r, models.PermAdmin)
}

// ErrGroupMismatch rejects a group id in the path that is not the token's
// active group.
var ErrGroupMismatch = apperr.E(apperr.Permission, "GROUP_MISMATCH", "That group is not your active group. Switch groups first.")

// InGroup fails unless groupID is the caller's active group.
func InGroup(r *http.Request, groupID primitive.ObjectID) error {
	_, gid, ok := Scope(r)
	if !ok || gid != groupID {
		return ErrGroupMismatch
	}
	return nil
}
