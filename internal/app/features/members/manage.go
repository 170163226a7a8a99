package members

import (
	"net/http"

	"github.com/dalemusser/grouphub/internal/app/system/authz"
	"github.com/dalemusser/grouphub/internal/app/system/formutil"
	"github.com/dalemusser/grouphub/internal/app/system/httpjson"
	"github.com/dalemusser/grouphub/internal/app/system/normalize"
	"github.com/dalemusser/grouphub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type removeOneRequest struct {
	UserID string `json:"user_id"`
}

type removeManyRequest struct {
	UserIDs []string `json:"user_ids"`
}

type removedResponse struct {
	Removed int `json:"removed"`
}

// RemoveOne handles POST /private/manage-remove-member.
func (h *Handler) RemoveOne(w http.ResponseWriter, r *http.Request) {
	var req removeOneRequest
	if err := httpjson.Decode(r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode remove-member", err, "Invalid request body.")
		return
	}
	id, err := formutil.ObjectID(req.UserID)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.remove(w, r, []primitive.ObjectID{id})
}

// RemoveMany handles DELETE /private/manage-remove-members.
func (h *Handler) RemoveMany(w http.ResponseWriter, r *http.Request) {
	var req removeManyRequest
	if err := httpjson.Decode(r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode remove-members", err, "Invalid request body.")
		return
	}
	if len(req.UserIDs) == 0 {
		httpjson.Message(w, http.StatusBadRequest, "NO_MEMBERS_SELECTED", "Select at least one member.")
		return
	}
	ids, err := formutil.ObjectIDs(req.UserIDs)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.remove(w, r, ids)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request, ids []primitive.ObjectID) {
	actor, gid, _ := authz.Scope(r)

	ctx, cancel := timeouts.WithLong(r.Context())
	defer cancel()

	n, err := h.Registry.RemoveMembers(ctx, gid, actor, ids)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, removedResponse{Removed: n})
}

type statusRequest struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

// SetStatus handles PATCH /private/manage-member-status.
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := httpjson.Decode(r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode member-status", err, "Invalid request body.")
		return
	}
	id, err := formutil.ObjectID(req.UserID)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	actor, gid, _ := authz.Scope(r)
	status := normalize.Status(req.Status)

	ctx, cancel := timeouts.WithLong(r.Context())
	defer cancel()

	if err := h.Registry.SetMemberStatus(ctx, gid, actor, id, status); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]string{
		"user_id": id.Hex(),
		"status":  status,
	})
}
