package groups

import (
	"errors"
	"net/http"

	"github.com/dalemusser/grouphub/internal/app/membership"
	"github.com/dalemusser/grouphub/internal/app/system/auth"
	"github.com/dalemusser/grouphub/internal/app/system/authz"
	"github.com/dalemusser/grouphub/internal/app/system/formutil"
	"github.com/dalemusser/grouphub/internal/app/system/httpjson"
	"github.com/dalemusser/grouphub/internal/app/system/timeouts"
)

type createRequest struct {
	GroupName        string `json:"group_name"`
	GroupDescription string `json:"group_description"`
	JoinSecret       string `json:"join_secret"`
}

// CreateAnother handles POST /private/create-another-group.
func (h *Handler) CreateAnother(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.CurrentPrincipal(r)
	if !ok {
		h.ErrLog.Write(w, r, auth.ErrNoPrincipal)
		return
	}
	var req createRequest
	if err := httpjson.Decode(r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode create-another-group", err, "Invalid request body.")
		return
	}

	ctx, cancel := timeouts.WithLong(r.Context())
	defer cancel()

	tok, err := h.Registry.CreateAdditionalGroup(ctx, p.UserID, membership.GroupInfo{
		Name:        req.GroupName,
		Description: req.GroupDescription,
		JoinSecret:  req.JoinSecret,
	})
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, tok)
}

type joinRequest struct {
	JoinCode   string `json:"join_code"`
	JoinSecret string `json:"join_secret"`
}

// JoinAnother handles POST /private/join-another-group. Joining a group the
// caller already belongs to answers 202 ALREADY_MEMBER, as the public join does.
func (h *Handler) JoinAnother(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.CurrentPrincipal(r)
	if !ok {
		h.ErrLog.Write(w, r, auth.ErrNoPrincipal)
		return
	}
	var req joinRequest
	if err := httpjson.Decode(r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode join-another-group", err, "Invalid request body.")
		return
	}

	ctx, cancel := timeouts.WithLong(r.Context())
	defer cancel()

	tok, err := h.Registry.JoinAnotherGroup(ctx, p.UserID, req.JoinCode, req.JoinSecret)
	if errors.Is(err, membership.ErrAlreadyMember) {
		httpjson.Message(w, http.StatusAccepted, membership.ErrAlreadyMember.Code,
			"You are already a member of this group. Switch to it to continue.")
		return
	}
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, tok)
}

type switchRequest struct {
	GroupID string `json:"group_id"`
}

// Switch handles POST /private/switch-group.
func (h *Handler) Switch(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.CurrentPrincipal(r)
	if !ok {
		h.ErrLog.Write(w, r, auth.ErrNoPrincipal)
		return
	}
	var req switchRequest
	if err := httpjson.Decode(r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode switch-group", err, "Invalid request body.")
		return
	}
	gid, err := formutil.ObjectID(req.GroupID)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithMedium(r.Context())
	defer cancel()

	tok, err := h.Registry.SwitchGroup(ctx, p.UserID, gid)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, tok)
}

type myGroupsResponse struct {
	Groups []membership.GroupSummary `json:"groups"`
}

// MyGroups handles GET /private/my-groups.
func (h *Handler) MyGroups(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.CurrentPrincipal(r)
	if !ok {
		h.ErrLog.Write(w, r, auth.ErrNoPrincipal)
		return
	}

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	groups, err := h.Registry.MyGroups(ctx, p.UserID)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, myGroupsResponse{Groups: groups})
}

// JoinCode handles GET /private/fetch-group-join-code/{id}. The id must be
// the caller's active group.
func (h *Handler) JoinCode(w http.ResponseWriter, r *http.Request) {
	gid, err := formutil.URLParam(r, "id")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if err := authz.InGroup(r, gid); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	code, err := h.Registry.JoinCode(ctx, gid)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]string{
		"group_id":  gid.Hex(),
		"join_code": code,
	})
}
