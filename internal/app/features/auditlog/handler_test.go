package auditlog_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/grouphub/internal/app/features/auditlog"
	apierrors "github.com/dalemusser/grouphub/internal/app/features/errors"
	"github.com/dalemusser/grouphub/internal/app/store/audit"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"github.com/dalemusser/grouphub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeEvents struct {
	events []audit.Event
	last   audit.QueryFilter
}

func (f *fakeEvents) Query(_ context.Context, filter audit.QueryFilter) ([]audit.Event, error) {
	f.last = filter
	var out []audit.Event
	for _, e := range f.events {
		if filter.GroupID != nil && (e.GroupID == nil || *e.GroupID != *filter.GroupID) {
			continue
		}
		if filter.Category != "" && e.Category != filter.Category {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeEvents) CountByFilter(ctx context.Context, filter audit.QueryFilter) (int64, error) {
	out, _ := f.Query(ctx, filter)
	return int64(len(out)), nil
}

type fakeUsers struct {
	users []models.User
	err   error
}

func (f fakeUsers) FindByIDs(context.Context, []primitive.ObjectID) ([]models.User, error) {
	return f.users, f.err
}

type listBody struct {
	Items []struct {
		EventType string `json:"event_type"`
		ActorName string `json:"actor_name"`
		UserName  string `json:"user_name"`
	} `json:"items"`
	Page       int   `json:"page"`
	TotalPages int   `json:"total_pages"`
	Total      int64 `json:"total"`
}

func setup(events *fakeEvents, users fakeUsers) chi.Router {
	h := auditlog.NewHandler(events, users, apierrors.NewErrorLogger(zap.NewNop()), zap.NewNop())
	r := chi.NewRouter()
	auditlog.Register(r, h)
	return r
}

func TestServeList_ScopedToGroup(t *testing.T) {
	gid, other := primitive.NewObjectID(), primitive.NewObjectID()
	actor := models.User{ID: primitive.NewObjectID(), FullName: "Ada"}
	stranger := primitive.NewObjectID()
	events := &fakeEvents{events: []audit.Event{
		{ID: primitive.NewObjectID(), GroupID: &gid, Category: audit.CategoryLedger, EventType: audit.EventPaymentCreated, ActorID: &actor.ID, Success: true},
		{ID: primitive.NewObjectID(), GroupID: &gid, Category: audit.CategoryMembership, EventType: audit.EventMemberRemoved, ActorID: &actor.ID, UserID: &stranger, Success: true},
		{ID: primitive.NewObjectID(), GroupID: &other, Category: audit.CategoryLedger, EventType: audit.EventPaymentDeleted, Success: true},
	}}
	r := setup(events, fakeUsers{users: []models.User{actor}})

	rec := testutil.NewRecorder()
	r.ServeHTTP(rec, testutil.NewAuthenticatedRequest(t, http.MethodGet, "/manage-audit-log", nil, testutil.Principal(gid, models.PermAdmin)))
	rec.AssertStatus(t, http.StatusOK)

	var body listBody
	rec.DecodeJSON(t, &body)
	require.Len(t, body.Items, 2)
	assert.Equal(t, int64(2), body.Total)
	assert.Equal(t, 1, body.TotalPages)
	assert.Equal(t, "Ada", body.Items[0].ActorName)
	assert.Equal(t, stranger.Hex(), body.Items[1].UserName)
}

func TestServeList_Filters(t *testing.T) {
	gid := primitive.NewObjectID()
	events := &fakeEvents{}
	r := setup(events, fakeUsers{})

	rec := testutil.NewRecorder()
	target := "/manage-audit-log?category=ledger&event_type=payment_created&start_date=2026-01-02&end_date=2026-01-02&page=3"
	r.ServeHTTP(rec, testutil.NewAuthenticatedRequest(t, http.MethodGet, target, nil, testutil.Principal(gid, models.PermAdmin)))
	rec.AssertStatus(t, http.StatusOK)

	f := events.last
	require.NotNil(t, f.GroupID)
	assert.Equal(t, gid, *f.GroupID)
	assert.Equal(t, audit.CategoryLedger, f.Category)
	assert.Equal(t, audit.EventPaymentCreated, f.EventType)
	assert.Equal(t, int64(100), f.Offset)
	require.NotNil(t, f.StartTime)
	require.NotNil(t, f.EndTime)
	assert.Equal(t, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), *f.StartTime)
	assert.True(t, f.EndTime.Before(time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)))

	var body listBody
	rec.DecodeJSON(t, &body)
	assert.Equal(t, 3, body.Page)
	assert.NotNil(t, body.Items)
}

func TestServeList_Errors(t *testing.T) {
	gid := primitive.NewObjectID()
	r := setup(&fakeEvents{}, fakeUsers{})

	tests := []struct {
		name   string
		target string
		p      bool
		perms  []models.Permission
		status int
		code   string
	}{
		{"bad category", "/manage-audit-log?category=nope", true, []models.Permission{models.PermAdmin}, http.StatusBadRequest, "INVALID_CATEGORY"},
		{"bad date", "/manage-audit-log?start_date=01/02/2026", true, []models.Permission{models.PermAdmin}, http.StatusBadRequest, "INVALID_DATE"},
		{"not admin", "/manage-audit-log", true, []models.Permission{models.PermManagePayments}, http.StatusForbidden, "PERMISSION_DENIED"},
		{"no token", "/manage-audit-log", false, nil, http.StatusUnauthorized, "TOKEN_MISSING"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.NewRequest(t, http.MethodGet, tt.target, nil)
			if tt.p {
				req = testutil.NewAuthenticatedRequest(t, http.MethodGet, tt.target, nil, testutil.Principal(gid, tt.perms...))
			}
			rec := testutil.NewRecorder()
			r.ServeHTTP(rec, req)
			rec.AssertStatus(t, tt.status)
			rec.AssertCode(t, tt.code)
		})
	}
}

func TestServeList_NameLookupFailureFallsBack(t *testing.T) {
	gid := primitive.NewObjectID()
	actor := primitive.NewObjectID()
	events := &fakeEvents{events: []audit.Event{
		{ID: primitive.NewObjectID(), GroupID: &gid, Category: audit.CategoryRecords, EventType: audit.EventRecordCreated, ActorID: &actor},
	}}
	r := setup(events, fakeUsers{err: errors.New("down")})

	rec := testutil.NewRecorder()
	r.ServeHTTP(rec, testutil.NewAuthenticatedRequest(t, http.MethodGet, "/manage-audit-log", nil, testutil.Principal(gid, models.PermAdmin)))
	rec.AssertStatus(t, http.StatusOK)

	var body listBody
	rec.DecodeJSON(t, &body)
	require.Len(t, body.Items, 1)
	assert.Equal(t, actor.Hex(), body.Items[0].ActorName)
}
