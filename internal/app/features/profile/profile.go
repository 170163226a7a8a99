// internal/app/features/profile/profile.go
package profile

import (
	"errors"
	"net/http"

	userstore "github.com/dalemusser/grouphub/internal/app/store/users"
	"github.com/dalemusser/grouphub/internal/app/system/apperr"
	"github.com/dalemusser/grouphub/internal/app/system/auth"
	"github.com/dalemusser/grouphub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/grouphub/internal/app/system/httpjson"
	"github.com/dalemusser/grouphub/internal/app/system/timeouts"
)

var (
	errUserNotFound = apperr.E(apperr.NotFound, "USER_NOT_FOUND", "User not found.")
	errNameRequired = apperr.E(apperr.Validation, "NAME_REQUIRED", "Full name is required.")
	errBioTooLong   = apperr.E(apperr.Validation, "BIO_TOO_LONG", "Bio must be at most 500 characters.")
)

const maxBio = 500

// ServeProfile handles GET /private/profile.
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.CurrentPrincipal(r)
	if !ok {
		h.ErrLog.Write(w, r, auth.ErrNoPrincipal)
		return
	}

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	u, err := h.Users.GetByID(ctx, p.UserID)
	if errors.Is(err, userstore.ErrNotFound) {
		err = errUserNotFound
	}
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, u)
}

type profileInput struct {
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
	Gender   *string `json:"gender"`
	Bio      *string `json:"bio"`
}

func plain(s *string) *string {
	if s == nil {
		return nil
	}
	v := htmlsanitize.PlainText(*s)
	return &v
}

// HandleUpdate handles PATCH /private/profile. Email and password are not
// editable here.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.CurrentPrincipal(r)
	if !ok {
		h.ErrLog.Write(w, r, auth.ErrNoPrincipal)
		return
	}
	var in profileInput
	if err := httpjson.Decode(r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode profile", err, "Invalid request body.")
		return
	}

	upd := userstore.ProfileUpdate{
		FullName: plain(in.FullName),
		Phone:    plain(in.Phone),
		Gender:   plain(in.Gender),
		Bio:      plain(in.Bio),
	}
	if upd.FullName != nil && *upd.FullName == "" {
		h.ErrLog.Write(w, r, errNameRequired)
		return
	}
	if upd.Bio != nil && len([]rune(*upd.Bio)) > maxBio {
		h.ErrLog.Write(w, r, errBioTooLong)
		return
	}

	ctx, cancel := timeouts.WithMedium(r.Context())
	defer cancel()

	u, err := h.Users.UpdateProfile(ctx, p.UserID, upd)
	if errors.Is(err, userstore.ErrNotFound) {
		err = errUserNotFound
	}
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, u)
}
