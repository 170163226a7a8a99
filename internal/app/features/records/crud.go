package records

import (
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/grouphub/internal/app/store/audit"
	recordstore "github.com/dalemusser/grouphub/internal/app/store/records"
	"github.com/dalemusser/grouphub/internal/app/system/authz"
	"github.com/dalemusser/grouphub/internal/app/system/formutil"
	"github.com/dalemusser/grouphub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/grouphub/internal/app/system/httpjson"
	"github.com/dalemusser/grouphub/internal/app/system/paging"
	"github.com/dalemusser/grouphub/internal/app/system/timeouts"
	"github.com/dalemusser/grouphub/internal/domain/models"
)

type recordInput struct {
	Title    *string    `json:"title"`
	Body     *string    `json:"body"`
	Amount   *float64   `json:"amount"`
	OccursAt *time.Time `json:"occurs_at"`
}

// clean sanitizes in and drops fields the kind does not carry.
func (h *Handler) clean(in recordInput) (recordstore.Update, error) {
	var u recordstore.Update
	if in.Title != nil {
		t := htmlsanitize.PlainText(*in.Title)
		if t == "" {
			return u, ErrTitleRequired
		}
		u.Title = &t
	}
	if in.Body != nil {
		b := htmlsanitize.Sanitize(*in.Body)
		u.Body = &b
	}
	if h.Kind == models.KindExpenses && in.Amount != nil {
		if *in.Amount < 0 {
			return u, ErrBadAmount
		}
		u.Amount = in.Amount
	}
	if (h.Kind == models.KindEvents || h.Kind == models.KindMinutes) && in.OccursAt != nil {
		t := in.OccursAt.UTC()
		u.OccursAt = &t
	}
	return u, nil
}

// readErr and writeErr map a scoped miss. Reads answer not found; writes
// answer forbidden, whether the record is absent or belongs to another group.
func readErr(err error) error {
	if errors.Is(err, recordstore.ErrNotFound) {
		return ErrRecordNotFound
	}
	return err
}

func writeErr(err error) error {
	if errors.Is(err, recordstore.ErrNotFound) {
		return ErrRecordForbidden
	}
	return err
}

// List handles GET /private/{kind}.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	_, gid, _ := authz.Scope(r)

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	page, err := h.Store.List(ctx, gid, paging.ParseParams(r))
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, page)
}

// Get handles GET /private/{kind}/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := formutil.URLParam(r, "id")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	_, gid, _ := authz.Scope(r)

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	rec, err := h.Store.GetScoped(ctx, id, gid)
	if err != nil {
		h.ErrLog.Write(w, r, readErr(err))
		return
	}
	httpjson.Write(w, http.StatusOK, rec)
}

// Create handles POST /private/manage-{kind}.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in recordInput
	if err := httpjson.Decode(r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode create "+string(h.Kind), err, "Invalid request body.")
		return
	}
	if in.Title == nil {
		h.ErrLog.Write(w, r, ErrTitleRequired)
		return
	}
	u, err := h.clean(in)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	actor, gid, _ := authz.Scope(r)

	rec := models.Record{
		GroupID:   gid,
		Title:     *u.Title,
		Amount:    u.Amount,
		OccursAt:  u.OccursAt,
		CreatedBy: actor,
	}
	if u.Body != nil {
		rec.Body = *u.Body
	}

	ctx, cancel := timeouts.WithMedium(r.Context())
	defer cancel()

	rec, err = h.Store.Create(ctx, rec)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.Audit.RecordChanged(ctx, audit.EventRecordCreated, string(h.Kind), actor, gid, rec.ID)
	httpjson.Write(w, http.StatusCreated, rec)
}

// Update handles PATCH /private/manage-{kind}/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := formutil.URLParam(r, "id")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	var in recordInput
	if err := httpjson.Decode(r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode update "+string(h.Kind), err, "Invalid request body.")
		return
	}
	u, err := h.clean(in)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	actor, gid, _ := authz.Scope(r)

	ctx, cancel := timeouts.WithMedium(r.Context())
	defer cancel()

	rec, err := h.Store.Update(ctx, id, gid, u)
	if err != nil {
		h.ErrLog.Write(w, r, writeErr(err))
		return
	}
	h.Audit.RecordChanged(ctx, audit.EventRecordUpdated, string(h.Kind), actor, gid, rec.ID)
	httpjson.Write(w, http.StatusOK, rec)
}

// Delete handles DELETE /private/manage-{kind}/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := formutil.URLParam(r, "id")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	actor, gid, _ := authz.Scope(r)

	ctx, cancel := timeouts.WithMedium(r.Context())
	defer cancel()

	if err := h.Store.Delete(ctx, id, gid); err != nil {
		h.ErrLog.Write(w, r, writeErr(err))
		return
	}
	h.Audit.RecordChanged(ctx, audit.EventRecordDeleted, string(h.Kind), actor, gid, id)
	w.WriteHeader(http.StatusNoContent)
}
