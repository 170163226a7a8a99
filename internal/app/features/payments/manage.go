package payments

import (
	"net/http"

	"github.com/dalemusser/grouphub/internal/app/ledger"
	"github.com/dalemusser/grouphub/internal/app/system/authz"
	"github.com/dalemusser/grouphub/internal/app/system/formutil"
	"github.com/dalemusser/grouphub/internal/app/system/httpjson"
	"github.com/dalemusser/grouphub/internal/app/system/paging"
	"github.com/dalemusser/grouphub/internal/app/system/timeouts"
	"github.com/dalemusser/grouphub/internal/domain/models"
)

// Create handles POST /private/create-payment.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in ledger.CreateInput
	if err := httpjson.Decode(r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode create-payment", err, "Invalid request body.")
		return
	}
	actor, gid, _ := authz.Scope(r)

	ctx, cancel := timeouts.WithMedium(r.Context())
	defer cancel()

	p, err := h.Ledger.Create(ctx, gid, actor, in)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, p)
}

// List handles GET /private/manage-payments.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	_, gid, _ := authz.Scope(r)

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	page, err := h.Ledger.ListForAdmin(ctx, gid, paging.ParseParams(r))
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, page)
}

// Detail handles GET /private/manage-payment/{id}.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	id, err := formutil.URLParam(r, "id")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	_, gid, _ := authz.Scope(r)

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	d, err := h.Ledger.Detail(ctx, id, gid)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, d)
}

// Delete handles DELETE /private/manage-payment/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := formutil.URLParam(r, "id")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	actor, gid, _ := authz.Scope(r)

	ctx, cancel := timeouts.WithMedium(r.Context())
	defer cancel()

	if err := h.Ledger.Delete(ctx, actor, id, gid); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type markRequest struct {
	PaymentID string   `json:"payment_id"`
	MemberIDs []string `json:"member_ids"`
	Paid      *bool    `json:"paid"`
}

type markResponse struct {
	Updated int  `json:"updated"`
	Paid    bool `json:"paid"`
}

// MarkPaid handles POST /private/manage-mark-payments-as-paid. paid
// defaults to true; send false to mark unpaid.
func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	var req markRequest
	if err := httpjson.Decode(r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode mark-paid", err, "Invalid request body.")
		return
	}
	pid, err := formutil.ObjectID(req.PaymentID)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	ids, err := formutil.ObjectIDs(req.MemberIDs)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	paid := true
	if req.Paid != nil {
		paid = *req.Paid
	}
	actor, gid, _ := authz.Scope(r)

	ctx, cancel := timeouts.WithMedium(r.Context())
	defer cancel()

	n, err := h.Ledger.MarkPaid(ctx, actor, pid, gid, ids, paid)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, markResponse{Updated: n, Paid: paid})
}

// Edit returns the PATCH handler for /private/manage-edit-{t}-payment/{id}.
func (h *Handler) Edit(t models.PaymentType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := formutil.URLParam(r, "id")
		if err != nil {
			h.ErrLog.Write(w, r, err)
			return
		}
		var in ledger.EditInput
		if err := httpjson.Decode(r, &in); err != nil {
			h.ErrLog.LogBadRequest(w, r, "decode edit-payment", err, "Invalid request body.")
			return
		}
		actor, gid, _ := authz.Scope(r)

		ctx, cancel := timeouts.WithLong(r.Context())
		defer cancel()

		p, err := h.Ledger.UpdateLedger(ctx, actor, id, gid, string(t), in)
		if err != nil {
			h.ErrLog.Write(w, r, err)
			return
		}
		httpjson.Write(w, http.StatusOK, p)
	}
}
