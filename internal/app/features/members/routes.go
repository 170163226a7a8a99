// internal/app/features/members/routes.go
package members

import (
	"github.com/dalemusser/grouphub/internal/app/system/auth"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Register adds member management to the authenticated /private router.
func Register(r chi.Router, h *Handler) {
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireAny(models.PermAdmin, models.PermManageMembers))

		pr.Get("/group-members/{id}", h.List)
		pr.Post("/manage-remove-member", h.RemoveOne)
		pr.Delete("/manage-remove-members", h.RemoveMany)
		pr.Patch("/manage-member-status", h.SetStatus)
	})
}
