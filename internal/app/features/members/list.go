package members

import (
	"net/http"

	"github.com/dalemusser/grouphub/internal/app/membership"
	"github.com/dalemusser/grouphub/internal/app/system/authz"
	"github.com/dalemusser/grouphub/internal/app/system/formutil"
	"github.com/dalemusser/grouphub/internal/app/system/httpjson"
	"github.com/dalemusser/grouphub/internal/app/system/normalize"
	"github.com/dalemusser/grouphub/internal/app/system/timeouts"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
)

type listResponse struct {
	Members []membership.MemberView `json:"members"`
}

// List handles GET /private/group-members/{id}.
//
// ?status=active (default) or inactive filters; ?status=all returns both.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	gid, err := formutil.URLParam(r, "id")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if err := authz.InGroup(r, gid); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	status := normalize.Status(query.Get(r, "status"))
	switch status {
	case "":
		status = models.MemberActive
	case "all":
		status = ""
	case models.MemberActive, models.MemberInactive:
	default:
		h.ErrLog.Write(w, r, membership.ErrBadStatus)
		return
	}

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	views, err := h.Registry.ListMembers(ctx, gid, status)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, listResponse{Members: views})
}
