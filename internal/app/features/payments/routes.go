// internal/app/features/payments/routes.go
package payments

import (
	"github.com/dalemusser/grouphub/internal/app/system/auth"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Register adds the payment routes to the authenticated /private router.
func Register(r chi.Router, h *Handler) {
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireAny(models.PermUser, models.PermAdmin))
		pr.Get("/payments", h.Mine)
		pr.Get("/payment/{id}", h.One)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireAny(models.PermAdmin, models.PermManagePayments))
		pr.Post("/create-payment", h.Create)
		pr.Get("/manage-payments", h.List)
		pr.Get("/manage-payment/{id}", h.Detail)
		pr.Post("/manage-mark-payments-as-paid", h.MarkPaid)
		for _, t := range []models.PaymentType{models.PaymentRequired, models.PaymentContribution, models.PaymentDonation} {
			pr.Patch("/manage-edit-"+string(t)+"-payment/{id}", h.Edit(t))
		}
	})

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireAny(models.PermAdmin))
		pr.Delete("/manage-payment/{id}", h.Delete)
	})
}
