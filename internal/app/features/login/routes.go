// internal/app/features/login/routes.go
package login

import (
	"github.com/dalemusser/grouphub/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /public. perIP throttles every endpoint by client
// address; nil disables it.
func Routes(h *Handler, perIP *ratelimit.IPLimiter) chi.Router {
	r := chi.NewRouter()
	if perIP != nil {
		r.Use(ratelimit.PerIP(perIP))
	}
	r.Post("/create-group", h.CreateGroup)
	r.Post("/join-group", h.JoinGroup)
	r.Post("/confirm-otp", h.ConfirmOTP)
	r.Post("/resend-otp", h.ResendOTP)
	r.Post("/login", h.Login)
	return r
}
