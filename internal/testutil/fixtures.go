package testutil

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/grouphub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures inserts documents directly, bypassing services.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts a verified user with no memberships.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()
	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		Email:        email,
		PasswordHash: "not-a-real-hash",
		FullName:     fullName,
		FullNameCI:   text.Fold(fullName),
		Verified:     true,
		Groups:       []models.UserGroup{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("CreateUser: %v", err)
	}
	return u
}

// CreateGroup inserts a group with a fixed join code and no members.
func (f *Fixtures) CreateGroup(ctx context.Context, name, abbr, joinCode string) models.Group {
	f.t.Helper()
	now := time.Now().UTC()
	g := models.Group{
		ID:             primitive.NewObjectID(),
		Name:           name,
		NameCI:         text.Fold(name),
		JoinCode:       joinCode,
		JoinSecretHash: "not-a-real-hash",
		Abbreviation:   abbr,
		Members:        []models.GroupMember{},
		CreatedBy:      primitive.NewObjectID(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := f.db.Collection("groups").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("CreateGroup: %v", err)
	}
	return g
}

// AddMember mirrors an active membership onto both documents and bumps the
// group counter, as a committed join would.
func (f *Fixtures) AddMember(ctx context.Context, g *models.Group, u *models.User, perms ...models.Permission) string {
	f.t.Helper()
	g.MemberCounter++
	number := fmt.Sprintf("%s-%03d", g.Abbreviation, g.MemberCounter)
	now := time.Now().UTC()
	if len(perms) == 0 {
		perms = models.JoinerPermissions()
	}

	gm := models.GroupMember{UserID: u.ID, MemberNumber: number, Status: models.MemberActive, Permissions: perms, JoinedAt: now}
	ug := models.UserGroup{GroupID: g.ID, Status: models.MemberActive, Permissions: perms, MemberNumber: number, JoinedAt: now}

	if _, err := f.db.Collection("groups").UpdateByID(ctx, g.ID, map[string]any{
		"$push": map[string]any{"members": gm},
		"$set":  map[string]any{"member_counter": g.MemberCounter},
	}); err != nil {
		f.t.Fatalf("AddMember group side: %v", err)
	}
	if _, err := f.db.Collection("users").UpdateByID(ctx, u.ID, map[string]any{
		"$push": map[string]any{"groups": ug},
	}); err != nil {
		f.t.Fatalf("AddMember user side: %v", err)
	}
	g.Members = append(g.Members, gm)
	u.Groups = append(u.Groups, ug)
	return number
}

// CreatePayment inserts p after filling ids and timestamps.
func (f *Fixtures) CreatePayment(ctx context.Context, p models.Payment) models.Payment {
	f.t.Helper()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.Members == nil {
		p.Members = []models.LedgerEntry{}
	}
	p.TitleCI = text.Fold(p.Title)
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	if _, err := f.db.Collection("payments").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("CreatePayment: %v", err)
	}
	return p
}
