// Package tokens issues and verifies group-scoped bearer tokens.
//
// A token carries the user id, the active group id and the permissions the
// user holds in that group only. Permissions held in other groups are never
// included.
package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/grouphub/internal/app/system/apperr"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultTTL is the fixed token lifetime. Tokens are not refreshable.
const DefaultTTL = 24 * time.Hour

var (
	ErrTokenInvalid = apperr.E(apperr.Permission, "TOKEN_INVALID", "invalid token")
	ErrTokenExpired = apperr.E(apperr.Permission, "TOKEN_EXPIRED", "token expired")
)

// Claims is the token payload.
type Claims struct {
	UserID      string              `json:"uid"`
	GroupID     string              `json:"gid,omitempty"`
	Permissions []models.Permission `json:"perms"`
	jwt.RegisteredClaims
}

// UserObjectID parses the user id claim.
func (c *Claims) UserObjectID() (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(c.UserID)
}

// GroupObjectID parses the group id claim. ok is false for unscoped tokens.
func (c *Claims) GroupObjectID() (id primitive.ObjectID, ok bool) {
	if c.GroupID == "" {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(c.GroupID)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

// Issuer signs tokens with an HMAC secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer returns an Issuer. A non-positive ttl selects DefaultTTL.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue mints a token for userID scoped to groupID. A nil groupID yields an
// unscoped token, which carries no permissions.
func (i *Issuer) Issue(userID primitive.ObjectID, groupID *primitive.ObjectID, perms []models.Permission) (string, time.Time, error) {
	for _, p := range perms {
		if !p.Valid() {
			return "", time.Time{}, fmt.Errorf("issue token: unknown permission %q", p)
		}
	}
	gid := ""
	if groupID != nil {
		gid = groupID.Hex()
	} else {
		perms = nil
	}
	if perms == nil {
		perms = []models.Permission{}
	}

	now := i.now().UTC()
	exp := now.Add(i.ttl)
	claims := &Claims{
		UserID:      userID.Hex(),
		GroupID:     gid,
		Permissions: perms,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify checks signature, expiry and claim shape. Every failure maps to
// ErrTokenExpired or ErrTokenInvalid.
func (i *Issuer) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if _, err := claims.UserObjectID(); err != nil {
		return nil, ErrTokenInvalid
	}
	if claims.GroupID != "" {
		if _, ok := claims.GroupObjectID(); !ok {
			return nil, ErrTokenInvalid
		}
	}
	for _, p := range claims.Permissions {
		if !p.Valid() {
			return nil, ErrTokenInvalid
		}
	}
	return claims, nil
}
