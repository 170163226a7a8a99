// internal/app/features/records/routes.go
package records

import (
	"github.com/dalemusser/grouphub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Register adds list/get for any member and manage routes gated by each
// kind's write permissions.
func Register(r chi.Router, handlers ...*Handler) {
	for _, h := range handlers {
		base := "/" + string(h.Kind)
		manage := "/manage-" + string(h.Kind)

		r.Group(func(pr chi.Router) {
			pr.Use(auth.RequireAny())
			pr.Get(base, h.List)
			pr.Get(base+"/{id}", h.Get)
		})
		r.Group(func(pr chi.Router) {
			pr.Use(auth.RequireAny(WritePermissions(h.Kind)...))
			pr.Post(manage, h.Create)
			pr.Patch(manage+"/{id}", h.Update)
			pr.Delete(manage+"/{id}", h.Delete)
		})
	}
}
