package payments

import (
	"net/http"

	"github.com/dalemusser/grouphub/internal/app/ledger"
	"github.com/dalemusser/grouphub/internal/app/system/authz"
	"github.com/dalemusser/grouphub/internal/app/system/formutil"
	"github.com/dalemusser/grouphub/internal/app/system/httpjson"
	"github.com/dalemusser/grouphub/internal/app/system/timeouts"
)

type mineResponse struct {
	Payments []ledger.MemberPayment `json:"payments"`
}

// Mine handles GET /private/payments.
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	uid, gid, _ := authz.Scope(r)

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	ps, err := h.Ledger.ListForMember(ctx, gid, uid)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, mineResponse{Payments: ps})
}

// One handles GET /private/payment/{id}. Only the caller's own ledger
// entry is returned.
func (h *Handler) One(w http.ResponseWriter, r *http.Request) {
	id, err := formutil.URLParam(r, "id")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	uid, gid, _ := authz.Scope(r)

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	mp, err := h.Ledger.MemberView(ctx, id, gid, uid)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, mp)
}
