// Package auth authenticates bearer tokens and enforces permission checks.
//
// Authenticate verifies the token and stores a Principal in the request
// context. RequireAny then intersects the route's permission set with the
// token's group-scoped permissions. Verification failures fail closed.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/grouphub/internal/app/system/apperr"
	"github.com/dalemusser/grouphub/internal/app/system/httpjson"
	"github.com/dalemusser/grouphub/internal/app/system/tokens"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Verifier checks a raw bearer token.
type Verifier interface {
	Verify(token string) (*tokens.Claims, error)
}

// Principal is the authenticated caller.
type Principal struct {
	UserID      primitive.ObjectID
	GroupID     *primitive.ObjectID // nil for unscoped tokens
	Permissions []models.Permission
}

type ctxKey string

const principalKey ctxKey = "principal"

// CurrentPrincipal returns the caller & "found?" flag.
func CurrentPrincipal(r *http.Request) (*Principal, bool) {
	p, ok := r.Context().Value(principalKey).(*Principal)
	return p, ok && p != nil
}

func withPrincipal(r *http.Request, p *Principal) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), principalKey, p))
}

// WithTestPrincipal injects p directly, bypassing token verification.
func WithTestPrincipal(r *http.Request, p *Principal) *http.Request {
	return withPrincipal(r, p)
}

// Authenticate requires a valid bearer token on every request it wraps.
// A missing token is 401; anything wrong with a present token is 403.
func Authenticate(v Verifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				httpjson.Message(w, http.StatusUnauthorized, "TOKEN_MISSING", "Authorization token required.")
				return
			}
			claims, err := v.Verify(raw)
			if err != nil {
				code := tokens.ErrTokenInvalid.Code
				if errors.Is(err, tokens.ErrTokenExpired) {
					code = tokens.ErrTokenExpired.Code
				}
				logger.Debug("token rejected", zap.String("code", code), zap.String("path", r.URL.Path))
				httpjson.Message(w, http.StatusForbidden, code, "Invalid or expired token.")
				return
			}
			p, err := principalFrom(claims)
			if err != nil {
				httpjson.Message(w, http.StatusForbidden, tokens.ErrTokenInvalid.Code, "Invalid or expired token.")
				return
			}
			next.ServeHTTP(w, withPrincipal(r, p))
		})
	}
}

// RequireAny allows the request when the token is scoped to a group and
// holds at least one of perms. With no perms it only requires a scoped token.
func RequireAny(perms ...models.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := CurrentPrincipal(r)
			if !ok {
				httpjson.Message(w, http.StatusUnauthorized, "TOKEN_MISSING", "Authorization token required.")
				return
			}
			if p.GroupID == nil {
				httpjson.Message(w, http.StatusForbidden, "NO_ACTIVE_GROUP", "Join or create a group first.")
				return
			}
			if !models.HasAny(p.Permissions, perms) {
				httpjson.Message(w, http.StatusForbidden, "PERMISSION_DENIED", "You do not have permission to perform this action.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ErrNoPrincipal is returned by handlers that run without Authenticate.
var ErrNoPrincipal = apperr.E(apperr.Unauthenticated, "TOKEN_MISSING", "Authorization token required.")

func bearerToken(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return "", false
	}
	scheme, tok, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

func principalFrom(c *tokens.Claims) (*Principal, error) {
	uid, err := c.UserObjectID()
	if err != nil {
		return nil, err
	}
	p := &Principal{UserID: uid, Permissions: c.Permissions}
	if gid, ok := c.GroupObjectID(); ok {
		p.GroupID = &gid
	}
	return p, nil
}
