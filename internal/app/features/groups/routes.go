// internal/app/features/groups/routes.go
package groups

import (
	"github.com/dalemusser/grouphub/internal/app/system/auth"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Register adds the group endpoints to the authenticated /private router.
// Any token holder may create, join, switch and list; reading the join
// code needs admin in the active group.
func Register(r chi.Router, h *Handler) {
	r.Post("/create-another-group", h.CreateAnother)
	r.Post("/join-another-group", h.JoinAnother)
	r.Post("/switch-group", h.Switch)
	r.Get("/my-groups", h.MyGroups)

	r.With(auth.RequireAny(models.PermAdmin)).
		Get("/fetch-group-join-code/{id}", h.JoinCode)
}
