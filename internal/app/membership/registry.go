// Package membership creates and joins groups, authenticates members and
// manages the mirrored membership tuples on users and groups.
//
// Every change that touches both a user and a group runs inside one
// txn.Runner call. OTP mail goes out only after the transaction commits;
// a delivery failure is logged and never returned.
package membership

import (
	"context"
	"errors"
	"time"

	userstore "github.com/dalemusser/grouphub/internal/app/store/users"
	"github.com/dalemusser/grouphub/internal/app/system/auditlog"
	"github.com/dalemusser/grouphub/internal/app/system/credentials"
	"github.com/dalemusser/grouphub/internal/app/system/mailer"
	"github.com/dalemusser/grouphub/internal/app/system/metrics"
	"github.com/dalemusser/grouphub/internal/app/system/txn"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Users is the user repository the registry needs.
type Users interface {
	Create(ctx context.Context, u models.User) (models.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	AddMembership(ctx context.Context, userID primitive.ObjectID, ug models.UserGroup, makeCurrent bool) error
	RemoveMembership(ctx context.Context, groupID primitive.ObjectID, ids []primitive.ObjectID) error
	SetMembershipStatus(ctx context.Context, userID, groupID primitive.ObjectID, status string) error
	SetCurrentGroup(ctx context.Context, userID primitive.ObjectID, groupID *primitive.ObjectID) error
	MarkVerified(ctx context.Context, userID primitive.ObjectID) error
	IncOTPAttempts(ctx context.Context, userID primitive.ObjectID) (int, error)
	ResetOTPAttempts(ctx context.Context, userID primitive.ObjectID) error
}

// Groups is the group repository the registry needs.
type Groups interface {
	Create(ctx context.Context, g models.Group) (models.Group, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error)
	GetByJoinCode(ctx context.Context, code string) (models.Group, error)
	JoinCodeExists(ctx context.Context, code string) (bool, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Group, error)
	AllocateMemberNumber(ctx context.Context, groupID, userID primitive.ObjectID) (models.Group, error)
	AddMember(ctx context.Context, groupID primitive.ObjectID, m models.GroupMember) error
	RemoveMembers(ctx context.Context, groupID primitive.ObjectID, userIDs []primitive.ObjectID) error
	SetMemberStatus(ctx context.Context, groupID, userID primitive.ObjectID, status string) error
}

// OTPs stores pending verification codes.
type OTPs interface {
	Create(ctx context.Context, userID primitive.ObjectID, email string) (string, error)
	Verify(ctx context.Context, userID primitive.ObjectID, code string, now time.Time) error
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) error
	Expiry() time.Duration
}

// Notifier delivers OTP mail, either directly over SMTP or via the queue.
type Notifier interface {
	SendOTP(ctx context.Context, m mailer.OTPMessage) error
}

// TokenIssuer signs group-scoped bearer tokens.
type TokenIssuer interface {
	Issue(userID primitive.ObjectID, groupID *primitive.ObjectID, perms []models.Permission) (string, time.Time, error)
}

// Deps wires a Registry. Audit and Metrics may be nil.
type Deps struct {
	Users    Users
	Groups   Groups
	OTPs     OTPs
	Tx       txn.Runner
	Hasher   *credentials.Hasher
	Tokens   TokenIssuer
	Notifier Notifier
	Audit    *auditlog.Logger
	Metrics  *metrics.Metrics
	Log      *zap.Logger

	// Now and NewJoinCode are replaced in tests.
	Now         func() time.Time
	NewJoinCode func() (string, error)
}

// Registry is the group and membership service.
type Registry struct {
	users    Users
	groups   Groups
	otps     OTPs
	tx       txn.Runner
	hasher   *credentials.Hasher
	tokens   TokenIssuer
	notifier Notifier
	audit    *auditlog.Logger
	metrics  *metrics.Metrics
	log      *zap.Logger

	now         func() time.Time
	newJoinCode func() (string, error)
}

// New returns a Registry. Missing optional dependencies get defaults.
func New(d Deps) *Registry {
	r := &Registry{
		users:       d.Users,
		groups:      d.Groups,
		otps:        d.OTPs,
		tx:          d.Tx,
		hasher:      d.Hasher,
		tokens:      d.Tokens,
		notifier:    d.Notifier,
		audit:       d.Audit,
		metrics:     d.Metrics,
		log:         d.Log,
		now:         d.Now,
		newJoinCode: d.NewJoinCode,
	}
	if r.hasher == nil {
		r.hasher = credentials.NewHasher(credentials.DefaultCost)
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.newJoinCode == nil {
		r.newJoinCode = credentials.GenerateJoinCode
	}
	return r
}

// TokenResult is a freshly issued token and the scope it carries.
// GroupID is nil for an unscoped token.
type TokenResult struct {
	Token       string              `json:"token"`
	ExpiresAt   time.Time           `json:"expires_at"`
	UserID      primitive.ObjectID  `json:"user_id"`
	GroupID     *primitive.ObjectID `json:"group_id,omitempty"`
	GroupName   string              `json:"group_name,omitempty"`
	Permissions []models.Permission `json:"permissions"`
}

func (r *Registry) issue(u models.User, g *models.Group, perms []models.Permission) (TokenResult, error) {
	var gid *primitive.ObjectID
	name := ""
	if g != nil {
		id := g.ID
		gid = &id
		name = g.Name
	} else {
		perms = nil
	}
	tok, exp, err := r.tokens.Issue(u.ID, gid, perms)
	if err != nil {
		return TokenResult{}, err
	}
	if perms == nil {
		perms = []models.Permission{}
	}
	return TokenResult{
		Token:       tok,
		ExpiresAt:   exp,
		UserID:      u.ID,
		GroupID:     gid,
		GroupName:   name,
		Permissions: perms,
	}, nil
}

// sendOTP mails code after commit. Failures are logged only.
func (r *Registry) sendOTP(ctx context.Context, u models.User, code, groupName string) {
	if r.notifier == nil {
		r.log.Warn("no OTP notifier configured; code not delivered", zap.String("user_id", u.ID.Hex()))
		return
	}
	err := r.notifier.SendOTP(ctx, mailer.OTPMessage{
		To:        u.Email,
		Name:      u.FullName,
		Code:      code,
		GroupName: groupName,
		Expiry:    r.otps.Expiry(),
	})
	r.metrics.OTPSent(err == nil)
	if err != nil {
		r.log.Warn("OTP delivery failed",
			zap.String("user_id", u.ID.Hex()),
			zap.Error(err))
		return
	}
	r.audit.VerificationCodeSent(ctx, u.ID, u.Email)
}

// lookupUser maps the store's not-found to ErrUserNotFound.
func (r *Registry) lookupUser(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	u, err := r.users.GetByID(ctx, id)
	if errors.Is(err, userstore.ErrNotFound) {
		return models.User{}, ErrUserNotFound
	}
	return u, err
}
