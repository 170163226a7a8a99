// internal/app/features/profile/routes.go
package profile

import "github.com/go-chi/chi/v5"

// Register adds the profile routes. Any token holder may use them.
func Register(r chi.Router, h *Handler) {
	r.Get("/profile", h.ServeProfile)
	r.Patch("/profile", h.HandleUpdate)
}
