// internal/app/features/auditlog/list.go
package auditlog

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/grouphub/internal/app/store/audit"
	"github.com/dalemusser/grouphub/internal/app/system/authz"
	"github.com/dalemusser/grouphub/internal/app/system/httpjson"
	"github.com/dalemusser/grouphub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const pageSize = 50

// parseFilter reads ?category=, ?event_type=, ?start_date=, ?end_date= and
// ?page=. Dates are whole UTC days; end_date is inclusive.
func parseFilter(r *http.Request, groupID primitive.ObjectID) (audit.QueryFilter, int, error) {
	page := 1
	if p, err := strconv.Atoi(query.Get(r, "page")); err == nil && p > 0 {
		page = p
	}

	gid := groupID
	filter := audit.QueryFilter{
		GroupID:   &gid,
		Category:  query.Get(r, "category"),
		EventType: query.Get(r, "event_type"),
		Limit:     pageSize,
		Offset:    int64((page - 1) * pageSize),
	}
	if filter.Category != "" && !knownCategory(filter.Category) {
		return filter, 0, ErrBadCategory
	}

	if s := query.Get(r, "start_date"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return filter, 0, ErrBadDate
		}
		filter.StartTime = &t
	}
	if s := query.Get(r, "end_date"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return filter, 0, ErrBadDate
		}
		endOfDay := t.Add(24*time.Hour - time.Nanosecond)
		filter.EndTime = &endOfDay
	}
	return filter, page, nil
}

// ServeList handles GET /private/manage-audit-log. Only events recorded
// against the caller's active group are visible.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	_, gid, _ := authz.Scope(r)

	filter, page, err := parseFilter(r, gid)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := timeouts.WithLong(r.Context())
	defer cancel()

	events, err := h.Events.Query(ctx, filter)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	total, err := h.Events.CountByFilter(ctx, filter)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	seen := make(map[primitive.ObjectID]struct{})
	var ids []primitive.ObjectID
	for _, e := range events {
		for _, id := range []*primitive.ObjectID{e.ActorID, e.UserID} {
			if id == nil {
				continue
			}
			if _, ok := seen[*id]; !ok {
				seen[*id] = struct{}{}
				ids = append(ids, *id)
			}
		}
	}

	names := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) > 0 {
		users, err := h.Users.FindByIDs(ctx, ids)
		if err != nil {
			// names are cosmetic; fall back to ids
			h.Log.Warn("failed to resolve audit log names", zap.Error(err))
		}
		for _, u := range users {
			names[u.ID] = u.FullName
		}
	}
	nameOf := func(id *primitive.ObjectID) (string, string) {
		if id == nil {
			return "", ""
		}
		if n, ok := names[*id]; ok {
			return id.Hex(), n
		}
		return id.Hex(), id.Hex()
	}

	items := make([]listItem, 0, len(events))
	for _, e := range events {
		item := listItem{
			ID:            e.ID.Hex(),
			Timestamp:     e.Timestamp,
			Category:      e.Category,
			EventType:     e.EventType,
			IP:            e.IP,
			Success:       e.Success,
			FailureReason: e.FailureReason,
			Details:       e.Details,
		}
		item.ActorID, item.ActorName = nameOf(e.ActorID)
		item.UserID, item.UserName = nameOf(e.UserID)
		items = append(items, item)
	}

	totalPages := int((total + pageSize - 1) / pageSize)
	if totalPages < 1 {
		totalPages = 1
	}
	httpjson.Write(w, http.StatusOK, listResponse{
		Items:      items,
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
	})
}
