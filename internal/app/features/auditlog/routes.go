// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/dalemusser/grouphub/internal/app/system/auth"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Register adds the audit log listing to the /private router. Group
// admins only.
func Register(r chi.Router, h *Handler) {
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireAny(models.PermAdmin))

		pr.Get("/manage-audit-log", h.ServeList)
	})
}
